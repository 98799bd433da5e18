package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"PAYTHRU_ADDR", "ENVIRONMENT", "AWS_REGION", "AWS_DEFAULT_REGION",
		"AWS_TEXTRACT_BUCKET", "AWS_MAX_SYNC_BYTES", "OCR_POLL_INTERVAL",
		"OCR_POLL_ATTEMPTS", "OCR_USAGE_LIMIT", "OCR_USAGE_WINDOW", "REDIS_URL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, EnvironmentProduction, cfg.Server.Environment)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, DefaultRegion, cfg.AWS.Region)
	assert.Equal(t, int64(5*1024*1024), cfg.OCR.MaxSyncBytes)
	assert.Equal(t, 1500*time.Millisecond, cfg.OCR.PollInterval)
	assert.Equal(t, 20, cfg.OCR.PollAttempts)
	assert.Equal(t, 5, cfg.Usage.Limit)
	assert.Equal(t, time.Hour, cfg.Usage.Window)
	assert.Empty(t, cfg.Redis.URL)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "Development")
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "us-west-2")
	t.Setenv("AWS_TEXTRACT_BUCKET", "kyc-tmp")
	t.Setenv("OCR_POLL_INTERVAL", "250ms")
	t.Setenv("OCR_POLL_ATTEMPTS", "3")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "us-west-2", cfg.AWS.Region)
	assert.Equal(t, "kyc-tmp", cfg.OCR.Bucket)
	assert.Equal(t, 250*time.Millisecond, cfg.OCR.PollInterval)
	assert.Equal(t, 3, cfg.OCR.PollAttempts)
}

func TestFromEnv_Malformed(t *testing.T) {
	t.Setenv("OCR_POLL_ATTEMPTS", "many")
	t.Setenv("OCR_USAGE_WINDOW", "soon")

	_, err := FromEnv()
	require.Error(t, err)
	assert.ErrorContains(t, err, "OCR_POLL_ATTEMPTS")
	assert.ErrorContains(t, err, "OCR_USAGE_WINDOW")
}

func TestValidate(t *testing.T) {
	t.Setenv("OCR_POLL_ATTEMPTS", "")
	t.Setenv("OCR_USAGE_WINDOW", "")
	cfg, err := FromEnv()
	require.NoError(t, err)

	cfg.OCR.PollAttempts = 0
	cfg.OCR.MaxSyncBytes = -1

	err = cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "OCR_POLL_ATTEMPTS")
	assert.ErrorContains(t, err, "AWS_MAX_SYNC_BYTES")
}
