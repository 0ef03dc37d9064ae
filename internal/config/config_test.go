package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(8188), cfg.HTTP.Port)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, DefaultMediaDir, cfg.Media.Dir)
	assert.Equal(t, int64(5<<20), cfg.Media.MaxUploadBytes)
	assert.Equal(t, AuthModeNone, cfg.Auth.Mode)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionLifetime)
	assert.Equal(t, 2, cfg.Tasks.Workers)
	assert.True(t, cfg.Reconcile.Enabled)
	assert.Equal(t, DefaultReconcileSchedule, cfg.Reconcile.Schedule)
	assert.Equal(t, 90, cfg.Audit.RetentionDays)
}

func TestNewConfig_Environment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("AUTH_MODE", "local")
	t.Setenv("RECONCILE_SCHEDULE", "*/30 * * * *")
	t.Setenv("MEDIA_MAX_UPLOAD_BYTES", "1024")
	t.Setenv("MEDIA_MAX_BOOK_BYTES", "2048")
	t.Setenv("TASK_RETRY_DELAY", "30s")

	cfg := NewConfig()

	assert.Equal(t, int32(9000), cfg.HTTP.Port)
	assert.Equal(t, AuthModeLocal, cfg.Auth.Mode)
	assert.Equal(t, "*/30 * * * *", cfg.Reconcile.Schedule)
	assert.Equal(t, int64(1024), cfg.Media.MaxUploadBytes)
	assert.Equal(t, int64(2048), cfg.Media.MaxBookBytes)
	assert.Equal(t, 30*time.Second, cfg.Tasks.RetryDelay)
}
