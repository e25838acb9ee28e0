package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS lets a dashboard page served from any origin read the API and answers
// preflight requests. Credentials are never allowed with the wildcard origin.
func CORS() func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         600,
	})
	return c.Handler
}
