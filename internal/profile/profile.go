package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start main server.
type Profile struct {
	// LLM configuration (OpenAI-compatible protocol). All providers
	// (openrouter, openai, deepseek, ollama) use the same config.
	LLMProvider string // Provider identifier: openrouter, openai, deepseek, ollama
	LLMAPIKey   string
	LLMBaseURL  string // Optional, has a default per provider
	LLMModel    string
	LLMTimeout  int // Completion request timeout in seconds (default: 60)

	Mode    string // dev, demo or prod
	Addr    string
	Data    string
	Driver  string // sqlite or postgres
	DSN     string
	Secret  string // HMAC secret for session token verification
	Version string
	Port    int
}

// Provider default configurations for the LLM.
// Used when LLM_BASE_URL / LLM_MODEL are not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "meta-llama/llama-4-maverick:free",
	},
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"ollama": {
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("PARLOR_LLM_PROVIDER", "openrouter")
	p.LLMAPIKey = getEnvOrDefault("PARLOR_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("PARLOR_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("PARLOR_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("PARLOR_LLM_TIMEOUT_SECONDS", 60)

	if p.Secret == "" {
		p.Secret = getEnvOrDefault("PARLOR_SECRET", "")
	}

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		// Unknown providers fall through to the generic OpenAI-compatible path;
		// they must supply their own base URL and model.
		return
	}
	defaults := llmProviderDefaults[p.LLMProvider]
	if p.LLMBaseURL == "" {
		p.LLMBaseURL = defaults.BaseURL
	}
	if p.LLMModel == "" {
		p.LLMModel = defaults.Model
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}

	if p.LLMTimeout <= 0 {
		p.LLMTimeout = 60
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("parlor_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn required for postgres driver")
	}

	return nil
}
