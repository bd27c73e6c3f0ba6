package handlers

import (
	"fmt"
	"net/http"

	"bitbucket.org/batisoft/catalog_backend/models"
	"github.com/gin-gonic/gin"
)

func GetCatalogs(c *gin.Context) {
	catalogs, err := models.GetCatalogs(c.Request.Context())
	if err != nil {
		respondError(c, "handlers", "GetCatalogs", err)
		return
	}
	c.JSON(http.StatusOK, catalogs)
}

func GetCatalog(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	catalog, err := models.GetCatalog(c.Request.Context(), id)
	if err != nil {
		respondError(c, "handlers", "GetCatalog", err)
		return
	}
	c.JSON(http.StatusOK, catalog)
}

func SaveCatalog(c *gin.Context) {
	var input models.NewCatalog
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	catalog, err := models.SaveCatalog(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "handlers", "SaveCatalog", err)
		return
	}
	status := http.StatusOK
	if input.Id == nil {
		status = http.StatusCreated
	}
	c.JSON(status, catalog)
}

func DeleteCatalog(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	if err := models.DeleteCatalog(c.Request.Context(), id); err != nil {
		respondError(c, "handlers", "DeleteCatalog", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func ExportCatalogArticles(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	buf, err := models.ExportArticlesXlsx(c.Request.Context(), id)
	if err != nil {
		respondError(c, "handlers", "ExportCatalogArticles", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=catalog-%d-articles.xlsx", id))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}
