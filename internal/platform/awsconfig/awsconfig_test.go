package awsconfig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paythru/internal/platform/config"
)

func TestLoad_StaticCredentials(t *testing.T) {
	cfg, err := Load(context.Background(), config.AWSConfig{
		Region:          "us-east-2",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "us-east-2", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIDEXAMPLE", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
}
