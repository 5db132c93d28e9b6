package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/shootpay-backend/pkg/config"
)

const devOrigin = "http://localhost:3000"

// CORS allows the configured booking front-ends to call the API. Outside dev an empty
// origin list allows no cross-origin callers.
func CORS(app config.AppConfig) func(http.Handler) http.Handler {
	origins := app.CORSOrigins
	if len(origins) == 0 && app.IsDev() {
		origins = []string{devOrigin}
	}
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, replayedHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(origins) == 0 {
		// The library treats an empty list as "*".
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return cors.New(opts).Handler
}
