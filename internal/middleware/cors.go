// Package middleware provides HTTP middleware for the Skill Accelerator API.
package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/ashureev/skill-accelerator/internal/identity"
)

// CORS returns middleware that handles CORS headers. Credentials are only
// allowed when every origin is explicit; a wildcard origin never receives
// cookies.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := false
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
			break
		}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", identity.TabHeaderName, "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
}
