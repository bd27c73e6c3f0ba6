package handlers

import (
	"net/http"

	"bitbucket.org/batisoft/catalog_backend/models"
	"github.com/gin-gonic/gin"
)

func GetCatalogFamilies(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	families, err := models.GetFamilies(c.Request.Context(), id)
	if err != nil {
		respondError(c, "handlers", "GetCatalogFamilies", err)
		return
	}
	c.JSON(http.StatusOK, families)
}

func GetSubFamilies(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	families, err := models.GetSubFamilies(c.Request.Context(), id)
	if err != nil {
		respondError(c, "handlers", "GetSubFamilies", err)
		return
	}
	c.JSON(http.StatusOK, families)
}

func GetFamily(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	family, err := models.GetFamily(c.Request.Context(), id)
	if err != nil {
		respondError(c, "handlers", "GetFamily", err)
		return
	}
	c.JSON(http.StatusOK, family)
}

func SaveFamily(c *gin.Context) {
	var input models.NewFamily
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	family, err := models.SaveFamily(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "handlers", "SaveFamily", err)
		return
	}
	status := http.StatusOK
	if input.Id == nil {
		status = http.StatusCreated
	}
	c.JSON(status, family)
}

func DeleteFamily(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	if err := models.DeleteFamily(c.Request.Context(), id); err != nil {
		respondError(c, "handlers", "DeleteFamily", err)
		return
	}
	c.Status(http.StatusNoContent)
}
