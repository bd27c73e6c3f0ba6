package handlers

import (
	"net/http"

	"bitbucket.org/batisoft/catalog_backend/models"
	"github.com/gin-gonic/gin"
)

func GetUnits(c *gin.Context) {
	units, err := models.GetUnits(c.Request.Context())
	if err != nil {
		respondError(c, "handlers", "GetUnits", err)
		return
	}
	c.JSON(http.StatusOK, units)
}

func GetNatures(c *gin.Context) {
	natures, err := models.GetNatures(c.Request.Context())
	if err != nil {
		respondError(c, "handlers", "GetNatures", err)
		return
	}
	c.JSON(http.StatusOK, natures)
}

func CreateUnit(c *gin.Context) {
	var input models.NewUnit
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	unit, err := models.CreateUnit(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "handlers", "CreateUnit", err)
		return
	}
	c.JSON(http.StatusCreated, unit)
}

func CreateNature(c *gin.Context) {
	var input models.NewNature
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	nature, err := models.CreateNature(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "handlers", "CreateNature", err)
		return
	}
	c.JSON(http.StatusCreated, nature)
}
