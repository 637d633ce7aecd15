package profile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	t.Run("sqlite defaults", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "sqlite", Data: dir}
		require.NoError(t, p.Validate())
		require.Contains(t, p.DSN, "parlor_dev.db")
		require.Equal(t, 60, p.LLMTimeout)
	})

	t.Run("unknown mode falls back to demo", func(t *testing.T) {
		p := &Profile{Mode: "staging", Driver: "sqlite", Data: dir}
		require.NoError(t, p.Validate())
		require.Equal(t, "demo", p.Mode)
	})

	t.Run("postgres requires dsn", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "postgres", Data: dir}
		require.Error(t, p.Validate())
	})

	t.Run("unsupported driver", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "mysql", Data: dir}
		require.Error(t, p.Validate())
	})

	t.Run("missing data dir", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "sqlite", Data: "/definitely/not/here"}
		require.Error(t, p.Validate())
	})
}

func TestFromEnvProviderDefaults(t *testing.T) {
	t.Setenv("PARLOR_LLM_PROVIDER", "openrouter")
	t.Setenv("PARLOR_LLM_API_KEY", "sk-test")

	p := &Profile{}
	p.FromEnv()
	require.Equal(t, "https://openrouter.ai/api/v1", p.LLMBaseURL)
	require.Equal(t, "meta-llama/llama-4-maverick:free", p.LLMModel)
	require.Equal(t, 60, p.LLMTimeout)
}
