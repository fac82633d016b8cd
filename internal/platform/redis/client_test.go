package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmachain/internal/platform/config"
)

func TestNewRequiresURL(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{})
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.Nil(t, client)
}

func TestNewRejectsMalformedURL(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{URL: "http://localhost:6379"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis URL")
	assert.Nil(t, client)
}
