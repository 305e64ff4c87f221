// README: Auth middleware; resolves the bearer token to an actor id and name.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mealbridge/internal/infra"
)

// Auth verifies the Authorization bearer token and stores the opaque actor
// id and display name on the request context. Identity is taken as a given
// fact from the verifier; nothing downstream re-validates it.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if raw == "" || raw == c.GetHeader("Authorization") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("actor_id", token.UID)
		c.Set("actor_name", token.Name)
		c.Next()
	}
}
