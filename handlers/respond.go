package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"bitbucket.org/batisoft/catalog_backend/config"
	"bitbucket.org/batisoft/catalog_backend/utils"
	"github.com/gin-gonic/gin"
)

// respondError maps the domain error taxonomy to HTTP statuses. Anything
// outside the taxonomy is logged and reported as a 500 without leaking the
// underlying error.
func respondError(c *gin.Context, module string, funcName string, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		correlationId, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.LogError(config.GetLogger(), module, funcName, correlationId, nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
