package config

import (
	"strings"
	"time"
)

// CacheConfig drives the HTTP response cache in front of the study-room
// browse routes.  Entries are purged whenever a room or seat changes, so
// the TTL only bounds how long an unchanged listing is served from Redis.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string // route, route_query, method_route, method_route_query
	Prefix       string
	MaxBodyBytes int
}

const (
	defaultBrowseTTL     = 10 * time.Minute
	defaultBrowsePrefix  = "studyroom:browse"
	defaultBrowseMaxBody = 256 << 10
)

// LoadCacheConfig reads CACHE_* variables.  A non-positive CACHE_TTL turns
// the cache off rather than caching forever.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", defaultBrowseTTL),
		KeyStrategy:  strings.ToLower(envStr("CACHE_KEY_STRATEGY", "route_query")),
		Prefix:       envStr("CACHE_PREFIX", defaultBrowsePrefix),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", defaultBrowseMaxBody),
	}
	if cfg.TTL <= 0 || len(cfg.Methods) == 0 {
		cfg.Enabled = false
	}
	switch cfg.KeyStrategy {
	case "route", "route_query", "method_route", "method_route_query":
	default:
		cfg.KeyStrategy = "route_query"
	}
	return cfg
}

// parseMethods keeps only safe methods; a cached POST would swallow writes.
func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		switch p = strings.TrimSpace(strings.ToUpper(p)); p {
		case "GET", "HEAD":
			m[p] = true
		}
	}
	return m
}
