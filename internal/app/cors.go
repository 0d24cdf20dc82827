package app

import (
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nn1-dev/club-api/internal/config"
	"github.com/nn1-dev/club-api/internal/middleware"
)

// newCORS allows the configured origins, or any origin in development or when none are set.
func newCORS(cfg *config.AppConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", middleware.IdempotenceHeader},
		MaxAge:       12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			return originAllowed(patterns, origin)
		}
	} else {
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	}
	return cors.New(corsConfig)
}

// originRule is one allowed_origins entry: an exact host, a "*.domain"
// suffix or a "host:*" prefix.
type originRule struct {
	exact, suffix, prefix string
}

func parseOriginRule(pattern string) originRule {
	switch {
	case strings.HasPrefix(pattern, "*."):
		return originRule{suffix: pattern[1:]}
	case strings.HasSuffix(pattern, ":*"):
		return originRule{prefix: strings.TrimSuffix(pattern, "*")}
	default:
		return originRule{exact: pattern}
	}
}

func (r originRule) match(host string) bool {
	switch {
	case r.suffix != "":
		return strings.HasSuffix(host, r.suffix)
	case r.prefix != "":
		return strings.HasPrefix(host, r.prefix)
	default:
		return host == r.exact
	}
}

func originAllowed(patterns []string, origin string) bool {
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Host
	}
	for _, p := range patterns {
		if parseOriginRule(p).match(host) {
			return true
		}
	}
	return false
}
