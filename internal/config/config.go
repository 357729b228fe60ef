// Package config loads gate configuration from environment variables. No
// config file parser: every setting is a plain os.Getenv read with a
// sensible default, matching this codebase's other server entry points.
package config

import "os"

// Config holds the gate's runtime configuration.
type Config struct {
	// ListenAddr is the HTTP address for POST /v1/execute.
	ListenAddr string
	// ProfilesRoot is the directory the profile loader resolves
	// (id, version) file paths under.
	ProfilesRoot string
	// AuditLogPath is the append-only audit log file.
	AuditLogPath string

	// ProfileCacheRedisAddr, if non-empty, front-ends the profile loader
	// with a Redis read-through cache.
	ProfileCacheRedisAddr string
	ProfileCacheRedisDB   int

	// AuditIndexDSN, if non-empty, maintains a Postgres secondary index
	// alongside the authoritative audit file.
	AuditIndexDSN string

	// JWTPublicKeyPath, if non-empty, requires a Bearer JWT on
	// POST /v1/execute, validated against this key.
	JWTPublicKeyPath string

	// ControlVerifier selects the required-controls backend: "reference"
	// (default) or "cel:<expression>".
	ControlVerifier string
}

// Load reads configuration from the environment, applying defaults.
func Load() *Config {
	return &Config{
		ListenAddr:            getenv("GATE_LISTEN_ADDR", ":8080"),
		ProfilesRoot:          getenv("PROFILES_ROOT", "./profiles"),
		AuditLogPath:          getenv("AUDIT_LOG_PATH", "./audit.log"),
		ProfileCacheRedisAddr: os.Getenv("GATE_PROFILE_CACHE_REDIS_ADDR"),
		ProfileCacheRedisDB:   0,
		AuditIndexDSN:         os.Getenv("GATE_AUDIT_INDEX_DSN"),
		JWTPublicKeyPath:      os.Getenv("GATE_JWT_PUBLIC_KEY_PATH"),
		ControlVerifier:       getenv("GATE_CONTROL_VERIFIER", "reference"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
