// Package config loads chat client configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider names accepted by the chat client.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Defaults.
const (
	DefaultServerURL     = "http://127.0.0.1:5000/rpc"
	DefaultLogDir        = "./logs"
	DefaultOllamaBaseURL = "http://127.0.0.1:11434/v1"
	DefaultOllamaModel   = "granite3.3"
	DefaultOpenAIModel   = "gpt-4o-mini"
)

// Config is the chat client configuration.
type Config struct {
	Provider  string          `yaml:"provider"`
	ServerURL string          `yaml:"server_url"`
	LogDir    string          `yaml:"log_dir"`
	Ollama    EndpointConfig  `yaml:"ollama"`
	OpenAI    EndpointConfig  `yaml:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
}

// EndpointConfig configures an OpenAI-compatible endpoint.
type EndpointConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// AnthropicConfig configures the Anthropic provider.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// Load reads the config file if it exists, then applies environment overrides
// and defaults. A missing file is not an error; everything can come from the
// environment.
func Load(path string) (result Config, err error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil && !os.IsNotExist(readErr) {
		err = fmt.Errorf("reading config file: %w", readErr)
		return result, err
	}

	if readErr == nil {
		err = yaml.Unmarshal(data, &result)
		if err != nil {
			err = fmt.Errorf("parsing config file: %w", err)
			return result, err
		}
	}

	result.applyEnv()
	result.applyDefaults()

	return result, err
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() {
	setIfEnv(&c.Provider, "PROVIDER")
	setIfEnv(&c.ServerURL, "MCP_SERVER_URL")
	setIfEnv(&c.LogDir, "LOG_DIR")

	setIfEnv(&c.Ollama.BaseURL, "OLLAMA_BASE_URL")
	setIfEnv(&c.Ollama.Model, "OLLAMA_MODEL")
	setIfEnv(&c.Ollama.APIKey, "OLLAMA_API_KEY")

	setIfEnv(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setIfEnv(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setIfEnv(&c.OpenAI.Model, "OPENAI_MODEL")

	setIfEnv(&c.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	setIfEnv(&c.Anthropic.Model, "ANTHROPIC_MODEL")
}

// applyDefaults fills anything still unset.
func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderOllama
	}

	c.Provider = strings.ToLower(c.Provider)

	if c.ServerURL == "" {
		c.ServerURL = DefaultServerURL
	}

	if c.LogDir == "" {
		c.LogDir = DefaultLogDir
	}

	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = DefaultOllamaBaseURL
	}

	if c.Ollama.Model == "" {
		c.Ollama.Model = DefaultOllamaModel
	}

	if c.Ollama.APIKey == "" {
		// Ollama ignores the key but the client requires one.
		c.Ollama.APIKey = "ollama"
	}

	if c.OpenAI.Model == "" {
		c.OpenAI.Model = DefaultOpenAIModel
	}
}

// Validate checks that the selected provider is known and has what it needs.
func (c *Config) Validate() (err error) {
	switch c.Provider {
	case ProviderOllama:
		// Defaults suffice.

	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			err = fmt.Errorf("OPENAI_API_KEY not set")
			return err
		}

	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			err = fmt.Errorf("ANTHROPIC_API_KEY not set")
			return err
		}

	default:
		err = fmt.Errorf("unknown provider '%s'", c.Provider)
		return err
	}

	return err
}

// setIfEnv overwrites target when the environment variable is non-empty.
func setIfEnv(target *string, key string) {
	value := os.Getenv(key)
	if value != "" {
		*target = value
	}
}
