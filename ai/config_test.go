package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.False(t, cfg.StripNewLines)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)
	})

	t.Run("with custom host and model", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithEmbeddingModel("text-embedding-3-small"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	})

	t.Run("with retry settings", func(t *testing.T) {
		cfg := NewConfig(WithMaxAttempts(5), WithRetryDelay(250*time.Millisecond))

		assert.Equal(t, 5, cfg.MaxAttempts)
		assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	})

	t.Run("with provider token and stripping", func(t *testing.T) {
		cfg := NewConfig(WithProvider(ProviderOllama), WithToken("secret"), WithStripNewLines(true))

		assert.Equal(t, ProviderOllama, cfg.Provider)
		assert.Equal(t, "secret", cfg.Token)
		assert.True(t, cfg.StripNewLines)
	})
}

func TestConfig_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		host     string
		want     string
	}{
		{"openai adds v1", ProviderOpenAI, "http://localhost:11434", "http://localhost:11434/v1"},
		{"openai trailing slash", ProviderOpenAI, "http://localhost:11434/", "http://localhost:11434/v1"},
		{"openai keeps v1", ProviderOpenAI, "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"ollama strips v1", ProviderOllama, "http://localhost:11434/v1", "http://localhost:11434"},
		{"ollama keeps root", ProviderOllama, "http://localhost:11434", "http://localhost:11434"},
		{"empty provider defaults to openai", "", "http://host", "http://host/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Provider: tt.provider, EmbeddingHost: tt.host}
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.EmbeddingHost)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid default config", func(t *testing.T) {
		require.NoError(t, DefaultConfig().Validate())
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := NewConfig(WithProvider("bedrock"))
		err := cfg.Validate()
		assert.ErrorIs(t, err, ErrUnknownProvider)
	})

	t.Run("missing host", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingHost(""))
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "EmbeddingHost")
	})

	t.Run("missing model", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingModel(""))
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "EmbeddingModel")
	})

	t.Run("zero attempts", func(t *testing.T) {
		cfg := NewConfig(WithMaxAttempts(0))
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MaxAttempts")
	})

	t.Run("negative delay", func(t *testing.T) {
		cfg := NewConfig(WithRetryDelay(-time.Second))
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RetryDelay")
	})

	t.Run("normalizes before validating", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingHost("http://localhost:11434"))
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	})
}
