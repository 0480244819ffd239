package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	AI            AIConfig         `toml:"ai"`
	Normalizer    NormalizerConfig `toml:"normalizer"`
	Extractor     ExtractorConfig  `toml:"extractor"`
	Catalog       CatalogConfig    `toml:"catalog"`
	Shifts        ShiftsConfig     `toml:"shifts"`
	Roster        RosterConfig     `toml:"roster"`
	Chat          ChatConfig       `toml:"chat"`
	Notifications NotifyConfig     `toml:"notifications"`
	Store         StoreConfig      `toml:"store"`
	Log           LogConfig        `toml:"log"`
}

type AIConfig struct {
	Provider         string `toml:"provider"` // "service", "openai", "anthropic" or "claude-cli"
	Model            string `toml:"model"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	ServiceURL       string `toml:"service_url"`
	ServiceAPIKey    string `toml:"service_api_key"`
	OpenAIAPIKey     string `toml:"openai_api_key"`
	OpenAIBaseURL    string `toml:"openai_base_url"`
	AnthropicAPIKey  string `toml:"anthropic_api_key"`
	AnthropicBaseURL string `toml:"anthropic_base_url"`
}

type NormalizerConfig struct {
	TypoTable       string `toml:"typo_table"` // YAML file; empty uses the built-in sample table
	EmailSalutation string `toml:"email_salutation"`
	EmailSignature  string `toml:"email_signature"`
}

type ExtractorConfig struct {
	KeywordTable string `toml:"keyword_table"`
}

type CatalogConfig struct {
	Path string `toml:"path"`
}

type ShiftsConfig struct {
	Timezone string `toml:"timezone"`
}

type RosterConfig struct {
	Source string `toml:"source"` // ICS URL or file path
}

type ChatConfig struct {
	ExportPath string `toml:"export_path"`
}

type NotifyConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

var providers = []string{"service", "openai", "anthropic", "claude-cli"}

func DefaultConfig() Config {
	return Config{
		AI: AIConfig{
			Provider:       "service",
			TimeoutSeconds: 15,
		},
		Normalizer: NormalizerConfig{
			EmailSalutation: "Prezados,",
			EmailSignature:  "Atenciosamente,\nEquipe de Segurança",
		},
		Shifts: ShiftsConfig{
			Timezone: "America/Sao_Paulo",
		},
		Notifications: NotifyConfig{
			Enabled:  true,
			Schedule: "0 6,18 * * *",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "rondalog"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the default config file.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads path on top of the defaults and applies environment
// overrides. A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RONDALOG_SERVICE_URL"); v != "" {
		cfg.AI.ServiceURL = v
	}
	if v := os.Getenv("RONDALOG_SERVICE_API_KEY"); v != "" {
		cfg.AI.ServiceAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.AI.OpenAIAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.AI.AnthropicAPIKey = v
	}
	if v := os.Getenv("RONDALOG_AI_PROVIDER"); v != "" {
		cfg.AI.Provider = v
	}
	if v := os.Getenv("RONDALOG_TIMEZONE"); v != "" {
		cfg.Shifts.Timezone = v
	}
	if v := os.Getenv("RONDALOG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate reports every setting that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if !contains(providers, c.AI.Provider) {
		errs = append(errs, fmt.Errorf("ai.provider %q: want one of %s", c.AI.Provider, strings.Join(providers, ", ")))
	}
	if c.AI.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("ai.timeout_seconds must be positive, got %d", c.AI.TimeoutSeconds))
	}
	if _, err := time.LoadLocation(c.Shifts.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("shifts.timezone: %w", err))
	}
	return errors.Join(errs...)
}

// Timeout is the bound on one remote call.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

// Location returns the shift timezone, falling back to local time.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Shifts.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// StorePath is the SQLite file, defaulting to rondalog.db in the config dir.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return expandHome(c.Store.Path)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "rondalog.db"), nil
}

// LogPath is the log file, defaulting to rondalog.log in the config dir.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return expandHome(c.Log.File)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "rondalog.log"), nil
}

// CatalogPath is the category catalog file, defaulting to catalog.yaml in the
// config dir.
func (c *Config) CatalogPath() (string, error) {
	if c.Catalog.Path != "" {
		return expandHome(c.Catalog.Path)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "catalog.yaml"), nil
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// WriteDefault writes the default config to path unless a file exists there.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	out, err := toml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}

func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, p[2:]), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
