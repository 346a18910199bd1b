package middleware

import (
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/temcen/hybridrec/internal/config"
)

// CORS builds the cross-origin policy. A "*" origin allows every origin and
// disables credentials, which browsers reject in combination with a wildcard.
func CORS(cfg *config.Config) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  cfg.Security.CORS.AllowedMethods,
		AllowHeaders:  cfg.Security.CORS.AllowedHeaders,
		ExposeHeaders: []string{"X-Request-ID"},
	}

	if len(cfg.Security.CORS.AllowedOrigins) == 0 || slices.Contains(cfg.Security.CORS.AllowedOrigins, "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = cfg.Security.CORS.AllowedOrigins
		config.AllowCredentials = true
	}

	return cors.New(config)
}
