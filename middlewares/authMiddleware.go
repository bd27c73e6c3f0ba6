package middlewares

import (
	"net/http"
	"strings"

	"bitbucket.org/batisoft/catalog_backend/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware resolves the tenant from the request's bearer token and
// injects it into the request context; the models layer only ever sees an
// already-resolved tenant id.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		bearer := "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(c.Request.Context(), auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		claim, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok || claim.TenantId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		ctx = utils.SetTokenInContext(ctx, auth)
		ctx = utils.SetTenantIdInContext(ctx, claim.TenantId)
		ctx = utils.SetUserIdInContext(ctx, claim.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
