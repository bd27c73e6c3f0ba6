package handlers

import (
	"net/http"

	"bitbucket.org/batisoft/catalog_backend/models"
	"github.com/gin-gonic/gin"
)

func GetArticle(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	article, err := models.GetArticle(c.Request.Context(), id)
	if err != nil {
		respondError(c, "handlers", "GetArticle", err)
		return
	}
	c.JSON(http.StatusOK, article)
}

func GetCatalogArticles(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	articles, err := models.GetArticles(c.Request.Context(), id)
	if err != nil {
		respondError(c, "handlers", "GetCatalogArticles", err)
		return
	}
	c.JSON(http.StatusOK, articles)
}

func GetFamilyArticles(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	articles, err := models.GetArticlesByFamily(c.Request.Context(), id)
	if err != nil {
		respondError(c, "handlers", "GetFamilyArticles", err)
		return
	}
	c.JSON(http.StatusOK, articles)
}

// GetNextArticleCode previews the code a new article would receive. The code
// is only reserved once the article is saved.
func GetNextArticleCode(c *gin.Context) {
	code, err := models.NextArticleCode(c.Request.Context())
	if err != nil {
		respondError(c, "handlers", "GetNextArticleCode", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code})
}

func SaveArticle(c *gin.Context) {
	var input models.NewArticle
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	article, err := models.SaveArticle(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "handlers", "SaveArticle", err)
		return
	}
	status := http.StatusOK
	if input.Id == nil {
		status = http.StatusCreated
	}
	c.JSON(status, article)
}

func DeleteArticle(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	if err := models.DeleteArticle(c.Request.Context(), id); err != nil {
		respondError(c, "handlers", "DeleteArticle", err)
		return
	}
	c.Status(http.StatusNoContent)
}
