package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mindburn-labs/execgate/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GATE_LISTEN_ADDR", "")
	t.Setenv("PROFILES_ROOT", "")
	t.Setenv("AUDIT_LOG_PATH", "")
	t.Setenv("GATE_PROFILE_CACHE_REDIS_ADDR", "")
	t.Setenv("GATE_AUDIT_INDEX_DSN", "")
	t.Setenv("GATE_JWT_PUBLIC_KEY_PATH", "")
	t.Setenv("GATE_CONTROL_VERIFIER", "")

	cfg := config.Load()
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "./profiles", cfg.ProfilesRoot)
	assert.Equal(t, "./audit.log", cfg.AuditLogPath)
	assert.Empty(t, cfg.ProfileCacheRedisAddr)
	assert.Equal(t, "reference", cfg.ControlVerifier)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GATE_LISTEN_ADDR", ":9090")
	t.Setenv("PROFILES_ROOT", "/etc/gate/profiles")
	t.Setenv("AUDIT_LOG_PATH", "/var/log/gate/audit.log")
	t.Setenv("GATE_PROFILE_CACHE_REDIS_ADDR", "localhost:6379")
	t.Setenv("GATE_AUDIT_INDEX_DSN", "postgres://gate@localhost/gate")
	t.Setenv("GATE_JWT_PUBLIC_KEY_PATH", "/etc/gate/jwt.pub")
	t.Setenv("GATE_CONTROL_VERIFIER", `cel:true`)

	cfg := config.Load()
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "/etc/gate/profiles", cfg.ProfilesRoot)
	assert.Equal(t, "/var/log/gate/audit.log", cfg.AuditLogPath)
	assert.Equal(t, "localhost:6379", cfg.ProfileCacheRedisAddr)
	assert.Equal(t, "postgres://gate@localhost/gate", cfg.AuditIndexDSN)
	assert.Equal(t, "/etc/gate/jwt.pub", cfg.JWTPublicKeyPath)
	assert.Equal(t, "cel:true", cfg.ControlVerifier)
}
