package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/docwizard/engine/pkg/types"
)

// ProviderConfig is the user-supplied configuration for one LLM provider
// entry: credentials, an optional OpenAI-compatible base URL (used for the
// Gemini-like and Ollama-like provider kinds), and the models it exposes.
type ProviderConfig struct {
	APIKey  string   `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	BaseURL string   `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	Models  []string `json:"models,omitempty" yaml:"models,omitempty"`
	// Disabled excludes this provider from registration even if credentials
	// are present.
	Disabled bool `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// Config is the fully merged configuration consumed by cmd/wizardd:
// engine tunables plus provider credentials and ambient settings.
type Config struct {
	Engine types.EngineConfig `json:"engine" yaml:"engine"`

	Provider map[string]ProviderConfig `json:"provider,omitempty" yaml:"provider,omitempty"`

	// DefaultModel is "provider/model". It is loaded and merged here only;
	// model selection does not read it (the Executor calls the Gateway with
	// an empty model name and the provider Registry picks one).
	DefaultModel string `json:"defaultModel,omitempty" yaml:"defaultModel,omitempty"`

	LogLevel  string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	LogToFile bool   `json:"logToFile,omitempty" yaml:"logToFile,omitempty"`

	// WatchPatterns are doublestar globs, matched against a changed file's
	// base name, whose matching config files trigger a live reload.
	WatchPatterns []string `json:"watchPatterns,omitempty" yaml:"watchPatterns,omitempty"`
}

func newConfig() *Config {
	return &Config{
		Engine:   types.DefaultEngineConfig(),
		Provider: make(map[string]ProviderConfig),
		WatchPatterns: []string{
			"*.jsonc", "*.json", "*.yaml", "*.yml",
		},
	}
}

// Load loads configuration from, in increasing priority order:
//  1. the global config dir (~/.config/wizard/wizard.{jsonc,yaml})
//  2. the project config dir (<directory>/.wizard/wizard.{jsonc,yaml})
//  3. a ".env" file in <directory>, loaded via godotenv
//  4. environment variables (see applyEnvOverrides: provider API key
//     variables do not replace a key set in a config file)
func Load(directory string) (*Config, error) {
	cfg := newConfig()

	globalDir := GetPaths().Config
	loadConfigFile(filepath.Join(globalDir, "wizard.jsonc"), cfg)
	loadConfigFile(filepath.Join(globalDir, "wizard.yaml"), cfg)

	if directory != "" {
		projectDir := filepath.Join(directory, ".wizard")
		loadConfigFile(filepath.Join(projectDir, "wizard.jsonc"), cfg)
		loadConfigFile(filepath.Join(projectDir, "wizard.yaml"), cfg)

		envPath := filepath.Join(directory, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// loadConfigFile merges a single JSONC or YAML config file into cfg. A
// missing file is not an error; a malformed one is skipped silently so one
// bad file cannot block startup.
func loadConfigFile(path string, cfg *Config) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var file Config
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
			return
		}
	}

	mergeConfig(cfg, &file)
}

// mergeConfig merges source into target, overwriting scalars and unioning
// the Provider map key by key.
func mergeConfig(target, source *Config) {
	if source.DefaultModel != "" {
		target.DefaultModel = source.DefaultModel
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
	if source.LogToFile {
		target.LogToFile = true
	}
	if len(source.WatchPatterns) > 0 {
		target.WatchPatterns = source.WatchPatterns
	}

	zero := types.EngineConfig{}
	if source.Engine != zero {
		mergeEngineConfig(&target.Engine, source.Engine)
	}

	if source.Provider != nil {
		if target.Provider == nil {
			target.Provider = make(map[string]ProviderConfig)
		}
		for k, v := range source.Provider {
			target.Provider[k] = v
		}
	}
}

// mergeEngineConfig overlays only the non-zero fields of src onto dst, so a
// config file that sets one knob does not reset the others to zero.
func mergeEngineConfig(dst *types.EngineConfig, src types.EngineConfig) {
	if src.SessionTTLSeconds != 0 {
		dst.SessionTTLSeconds = src.SessionTTLSeconds
	}
	if src.ConversationTTLSeconds != 0 {
		dst.ConversationTTLSeconds = src.ConversationTTLSeconds
	}
	if src.MaxConcurrentProcessing != 0 {
		dst.MaxConcurrentProcessing = src.MaxConcurrentProcessing
	}
	if src.SafeFraction != 0 {
		dst.SafeFraction = src.SafeFraction
	}
	if src.PerFileContentFraction != 0 {
		dst.PerFileContentFraction = src.PerFileContentFraction
	}
	if src.ChunkOverlapChars != 0 {
		dst.ChunkOverlapChars = src.ChunkOverlapChars
	}
	if src.ModelCacheTTLMillis != 0 {
		dst.ModelCacheTTLMillis = src.ModelCacheTTLMillis
	}
	if src.CleanupIntervalMillis != 0 {
		dst.CleanupIntervalMillis = src.CleanupIntervalMillis
	}
	if src.CleanupCronExpr != "" {
		dst.CleanupCronExpr = src.CleanupCronExpr
	}
}

// applyEnvOverrides applies the handful of environment variables consulted
// after the config files. WIZARD_MODEL and WIZARD_LOG_LEVEL replace any
// file-based value; a provider API key variable only fills in a key that no
// config file set.
func applyEnvOverrides(cfg *Config) {
	providerEnvMap := map[string]string{
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
		"gemini":    "GEMINI_API_KEY",
		"ark":       "ARK_API_KEY",
	}

	for provider, envVar := range providerEnvMap {
		if apiKey := os.Getenv(envVar); apiKey != "" {
			if cfg.Provider == nil {
				cfg.Provider = make(map[string]ProviderConfig)
			}
			p := cfg.Provider[provider]
			if p.APIKey == "" {
				p.APIKey = apiKey
				cfg.Provider[provider] = p
			}
		}
	}

	if model := os.Getenv("WIZARD_MODEL"); model != "" {
		cfg.DefaultModel = model
	}
	if level := os.Getenv("WIZARD_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
}

// Save writes cfg as indented JSON to path, creating parent directories as
// needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// MatchesWatchPattern reports whether relPath matches one of cfg's
// doublestar watch globs.
func MatchesWatchPattern(cfg *Config, relPath string) bool {
	for _, pattern := range cfg.WatchPatterns {
		ok, err := doublestar.Match(pattern, filepath.Base(relPath))
		if err == nil && ok {
			return true
		}
	}
	return false
}

// Validate checks the merged configuration for values that would make the
// engine unsafe to run.
func (c *Config) Validate() error {
	if c.Engine.MaxConcurrentProcessing < 1 {
		return fmt.Errorf("maxConcurrentProcessing must be >= 1")
	}
	if c.Engine.SafeFraction <= 0 || c.Engine.SafeFraction > 1 {
		return fmt.Errorf("safeFraction must be in (0, 1]")
	}
	if c.Engine.PerFileContentFraction <= 0 || c.Engine.PerFileContentFraction > 1 {
		return fmt.Errorf("perFileContentFraction must be in (0, 1]")
	}
	return nil
}
