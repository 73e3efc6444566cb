package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"

	"github.com/selleropsapp/sellerops-backend/pkg/config"
)

// CORS allows the dashboard frontend plus local dev origins.
func CORS(frontend config.FrontendConfig) func(http.Handler) http.Handler {
	origins := []string{"http://localhost:5173", "http://localhost:3000"}
	if base := strings.TrimRight(frontend.BaseURL, "/"); base != "" {
		origins = append(origins, base)
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
