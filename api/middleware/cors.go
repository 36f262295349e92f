package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows origins to call the API from a browser. No origins means the
// local dev servers.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:8081"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", IdempotencyKeyHeader, "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-HB-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
