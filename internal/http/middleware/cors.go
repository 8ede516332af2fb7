package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Progenics2025/LIMS-sub000/internal/config"
)

// CORS builds the cross-origin policy for the portal frontends. Origins come
// from config; with none configured, development allows everything and
// production denies everything.
func CORS(cfg *config.CORSConfig, environment string, logger *zap.Logger) func(http.Handler) http.Handler {
	options := cors.Options{
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}

	allowAll := func(r *http.Request, origin string) bool { return origin != "" }
	isDev := environment == "development" || environment == "local" || environment == ""

	switch {
	case hasWildcard(cfg.AllowedOrigins):
		if !isDev {
			logger.Warn("CORS wildcard origin outside development",
				zap.String("environment", environment))
		}
		options.AllowOriginFunc = allowAll
	case len(cfg.AllowedOrigins) > 0:
		options.AllowedOrigins = cfg.AllowedOrigins
		logger.Info("CORS origins configured", zap.Strings("origins", cfg.AllowedOrigins))
	case isDev:
		options.AllowOriginFunc = allowAll
	default:
		// An empty AllowedOrigins list defaults to "*" in the chi cors
		// package, so denial has to be explicit.
		options.AllowOriginFunc = func(r *http.Request, origin string) bool { return false }
		logger.Warn("CORS has no allowed origins, cross-origin requests will be denied",
			zap.String("environment", environment))
	}

	return cors.Handler(options)
}

func hasWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
