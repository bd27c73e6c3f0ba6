package handlers

import (
	"net/http"

	"bitbucket.org/batisoft/catalog_backend/models"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
)

// the ouvrage save cascade is the deepest write path, trace it end to end
var tracer = otel.Tracer("catalog-backend")

func GetOuvrage(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	ouvrage, err := models.GetOuvrage(c.Request.Context(), id)
	if err != nil {
		respondError(c, "handlers", "GetOuvrage", err)
		return
	}
	c.JSON(http.StatusOK, ouvrage)
}

func GetCatalogOuvrages(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	ouvrages, err := models.GetOuvrages(c.Request.Context(), id)
	if err != nil {
		respondError(c, "handlers", "GetCatalogOuvrages", err)
		return
	}
	c.JSON(http.StatusOK, ouvrages)
}

func GetFamilyOuvrages(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	ouvrages, err := models.GetOuvragesByFamily(c.Request.Context(), id)
	if err != nil {
		respondError(c, "handlers", "GetFamilyOuvrages", err)
		return
	}
	c.JSON(http.StatusOK, ouvrages)
}

func SaveOuvrage(c *gin.Context) {
	var input models.NewOuvrage
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx, span := tracer.Start(c.Request.Context(), "SaveOuvrage")
	defer span.End()
	ouvrage, err := models.SaveOuvrage(ctx, &input)
	if err != nil {
		respondError(c, "handlers", "SaveOuvrage", err)
		return
	}
	status := http.StatusOK
	if input.Id == nil {
		status = http.StatusCreated
	}
	c.JSON(status, ouvrage)
}

func DeleteOuvrage(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	if err := models.DeleteOuvrage(c.Request.Context(), id); err != nil {
		respondError(c, "handlers", "DeleteOuvrage", err)
		return
	}
	c.Status(http.StatusNoContent)
}
