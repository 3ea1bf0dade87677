// internal/interfaces/http/middleware/cors.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
)

// CORS handles cross-origin requests from the storefront pages, which run
// on a separate origin from this API. Credentials are always allowed since
// the cart session travels in a cookie; that rules out a wildcard
// Allow-Origin, so the matched origin is echoed back instead.
func CORS(cfg *config.Config) gin.HandlerFunc {
	allowedOrigins := cfg.Security.CORSAllowedOrigins
	allowedMethods := strings.Join(cfg.Security.CORSAllowedMethods, ", ")
	allowedHeaders := strings.Join(cfg.Security.CORSAllowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if originAllowed(origin, allowedOrigins) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", allowedMethods)
		c.Header("Access-Control-Allow-Headers", allowedHeaders)
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}
	for _, candidate := range allowed {
		if candidate == "*" || candidate == origin {
			return true
		}
		// Wildcard subdomains, e.g. *.example.com
		if suffix, ok := strings.CutPrefix(candidate, "*."); ok && strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}
