// Package config handles loading and validating the config.toml configuration file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/dfirlab/casetrace/internal/analyzer"
)

// Config is the top-level configuration.
type Config struct {
	LLM        LLMConfig        `toml:"llm"`
	Output     OutputConfig     `toml:"output"`
	Case       CaseConfig       `toml:"case"`
	Heuristics HeuristicsConfig `toml:"heuristics"`
}

// LLMConfig configures the LLM provider for forensic analysis.
type LLMConfig struct {
	Provider string `toml:"provider"`
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
	Endpoint string `toml:"endpoint"`
	Timeout  int    `toml:"timeout"` // HTTP timeout in seconds (0 = provider default)
}

// OutputConfig configures output behavior.
type OutputConfig struct {
	Dir string `toml:"dir"`
}

// CaseConfig pre-fills case context so runs can be non-interactive.
type CaseConfig struct {
	Analyst     string   `toml:"analyst"`
	CaseType    string   `toml:"case_type"`
	ThreatActor string   `toml:"threat_actor"`
	IOCs        []string `toml:"iocs"`
	Interactive bool     `toml:"interactive"`
}

// HeuristicsConfig tunes the pattern-based detection stage.
type HeuristicsConfig struct {
	// ExtraKeywords extends the built-in suspicious keyword list.
	ExtraKeywords []string `toml:"extra_keywords"`
	// KnownPaths are path prefixes belonging to trusted tools/operators.
	// Flags on values under these prefixes are suppressed.
	KnownPaths []string `toml:"known_paths"`
}

func defaults() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "gemini",
		},
		Output: OutputConfig{
			Dir: "reports",
		},
		Case: CaseConfig{
			Interactive: true,
		},
	}
}

// Load reads the config file and applies environment overrides. A missing
// file is not an error; defaults plus environment values are used so the
// tool runs with nothing but GEMINI_API_KEY set. API key presence is not
// checked here; callers apply flag overrides first and then call
// RequireAPIKey.
func Load(path string) (*Config, error) {
	// Optional .env next to the working directory, never an error when absent.
	_ = godotenv.Load()

	cfg := defaults()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	// Environment variable overrides for sensitive values
	if provider := os.Getenv("CASETRACE_PROVIDER"); provider != "" {
		cfg.LLM.Provider = provider
	}
	if key := os.Getenv("CASETRACE_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	if cfg.LLM.APIKey == "" {
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			cfg.LLM.APIKey = key
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)

	switch c.LLM.Provider {
	case "gemini", "openai", "ollama":
		// valid
	case "":
		return fmt.Errorf("llm.provider is required (gemini, openai, ollama)")
	default:
		return fmt.Errorf("unsupported llm.provider: %q", c.LLM.Provider)
	}

	if c.LLM.Model == "" {
		c.LLM.Model = analyzer.DefaultModels[c.LLM.Provider]
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "reports"
	}

	return nil
}

// RequireAPIKey checks that cloud providers have a key. Called after every
// source of the key (file, environment, CLI flag) has been applied.
func (c *Config) RequireAPIKey() error {
	if c.LLM.Provider != "ollama" && c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required for provider %q (set GEMINI_API_KEY, CASETRACE_API_KEY, or --api-key)", c.LLM.Provider)
	}
	return nil
}
