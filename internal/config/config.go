package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultBaseURL is used when no base URL is configured anywhere.
const DefaultBaseURL = "https://phabricator.services.mozilla.com"

// DefaultUserAgent is the browser user agent sent to the web UI endpoints.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:142.0) Gecko/20100101 Firefox/142.0"

// Config represents the phabmd configuration.
type Config struct {
	BaseURL                  string        `json:"baseUrl"`
	Token                    string        `json:"-"`
	Cookies                  string        `json:"-"`
	Format                   string        `json:"format"`
	IncludeDone              bool          `json:"includeDone"`
	LogLevel                 string        `json:"logLevel"`
	TimeoutSeconds           int           `json:"timeoutSeconds"`
	SuggestionTimeoutSeconds int           `json:"suggestionTimeoutSeconds"`
	UserAgent                string        `json:"userAgent,omitempty"`
	ProfileRoot              string        `json:"profileRoot,omitempty"`
	Scoring                  ScoringConfig `json:"scoring"`
	ProbeOffsets             []int         `json:"probeOffsets"`
}

// ScoringConfig holds the changeset relevance weights. Only their relative
// ordering matters: suggestionText > inlineView > inlineComment > 0.
type ScoringConfig struct {
	SuggestionText int `json:"suggestionText"`
	InlineView     int `json:"inlineView"`
	InlineComment  int `json:"inlineComment"`
}

// envConfig is filled from the process environment.
type envConfig struct {
	Token                    string `env:"PHABRICATOR_TOKEN"`
	BaseURL                  string `env:"PHABRICATOR_BASE_URL"`
	Cookies                  string `env:"PHABRICATOR_COOKIES"`
	Format                   string `env:"PHABMD_FORMAT"`
	LogLevel                 string `env:"PHABMD_LOG_LEVEL"`
	IncludeDone              bool   `env:"PHABMD_INCLUDE_DONE"`
	TimeoutSeconds           int    `env:"PHABMD_TIMEOUT_SECONDS"`
	SuggestionTimeoutSeconds int    `env:"PHABMD_SUGGESTION_TIMEOUT_SECONDS"`
	ProfileRoot              string `env:"PHABMD_BROWSER_PROFILES"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		BaseURL:                  DefaultBaseURL,
		Format:                   "markdown",
		LogLevel:                 "info",
		TimeoutSeconds:           60,
		SuggestionTimeoutSeconds: 120,
		UserAgent:                DefaultUserAgent,
		Scoring: ScoringConfig{
			SuggestionText: 100,
			InlineView:     10,
			InlineComment:  1,
		},
		ProbeOffsets: []int{0, 1, 2, -1, -2},
	}
}

// Timeout returns the per-request HTTP timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SuggestionTimeout returns the budget for resolving one inline suggestion.
// Zero means no budget beyond the per-request timeout.
func (c Config) SuggestionTimeout() time.Duration {
	return time.Duration(c.SuggestionTimeoutSeconds) * time.Second
}

// Validate reports configuration values the extractor cannot work with.
func (c Config) Validate() error {
	switch c.Format {
	case "markdown", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format: %s", c.Format)
	}
	s := c.Scoring
	if !(s.SuggestionText > s.InlineView && s.InlineView > s.InlineComment && s.InlineComment > 0) {
		return fmt.Errorf("scoring weights must satisfy suggestionText > inlineView > inlineComment > 0 (got %d/%d/%d)",
			s.SuggestionText, s.InlineView, s.InlineComment)
	}
	if c.TimeoutSeconds < 0 || c.SuggestionTimeoutSeconds < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// ConfigDir returns the platform-appropriate config directory for phabmd.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "phabmd"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "phabmd"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "phabmd"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "phabmd"), nil
	default:
		return filepath.Join(home, ".config", "phabmd"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadFile loads config from the config file. Returns zero Config and nil error if file doesn't exist.
func LoadFile() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// LoadFileWithDefaults returns the defaults overlaid with the config file,
// without consulting the environment.
func LoadFileWithDefaults() (Config, error) {
	cfg := Default()
	fileCfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg)
	return cfg, nil
}

// Save writes the config to the config file. Credentials are never persisted.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadDotEnv loads KEY=value pairs from a .env file into the process
// environment. Variables already set in the environment are not overridden.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	cfg := Default()

	fileCfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg)
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return cfg, nil
}

func mergeFile(dst *Config, src Config) {
	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	dst.IncludeDone = src.IncludeDone || dst.IncludeDone
	if src.TimeoutSeconds > 0 {
		dst.TimeoutSeconds = src.TimeoutSeconds
	}
	if src.SuggestionTimeoutSeconds > 0 {
		dst.SuggestionTimeoutSeconds = src.SuggestionTimeoutSeconds
	}
	if src.UserAgent != "" {
		dst.UserAgent = src.UserAgent
	}
	if src.ProfileRoot != "" {
		dst.ProfileRoot = src.ProfileRoot
	}
	if src.Scoring.SuggestionText > 0 {
		dst.Scoring.SuggestionText = src.Scoring.SuggestionText
	}
	if src.Scoring.InlineView > 0 {
		dst.Scoring.InlineView = src.Scoring.InlineView
	}
	if src.Scoring.InlineComment > 0 {
		dst.Scoring.InlineComment = src.Scoring.InlineComment
	}
	if len(src.ProbeOffsets) > 0 {
		dst.ProbeOffsets = src.ProbeOffsets
	}
}

func mergeEnv(cfg *Config) error {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if e.Token != "" {
		cfg.Token = e.Token
	}
	if e.BaseURL != "" {
		cfg.BaseURL = e.BaseURL
	}
	if e.Cookies != "" {
		cfg.Cookies = e.Cookies
	}
	if e.Format != "" {
		cfg.Format = e.Format
	}
	if e.LogLevel != "" {
		cfg.LogLevel = e.LogLevel
	}
	if e.IncludeDone {
		cfg.IncludeDone = true
	}
	if e.TimeoutSeconds > 0 {
		cfg.TimeoutSeconds = e.TimeoutSeconds
	}
	if e.SuggestionTimeoutSeconds > 0 {
		cfg.SuggestionTimeoutSeconds = e.SuggestionTimeoutSeconds
	}
	if e.ProfileRoot != "" {
		cfg.ProfileRoot = e.ProfileRoot
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for key, value := range overrides {
		if value == "" {
			continue
		}
		switch key {
		case "token":
			cfg.Token = value
		case "cookies":
			cfg.Cookies = value
		default:
			if err := SetField(cfg, key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "baseUrl":
		cfg.BaseURL = strings.TrimRight(value, "/")
	case "format":
		cfg.Format = value
	case "logLevel":
		cfg.LogLevel = value
	case "userAgent":
		cfg.UserAgent = value
	case "profileRoot":
		cfg.ProfileRoot = value
	case "includeDone":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("includeDone must be a boolean: %w", err)
		}
		cfg.IncludeDone = b
	case "timeoutSeconds":
		return setInt(&cfg.TimeoutSeconds, key, value)
	case "suggestionTimeoutSeconds":
		return setInt(&cfg.SuggestionTimeoutSeconds, key, value)
	case "scoring.suggestionText":
		return setInt(&cfg.Scoring.SuggestionText, key, value)
	case "scoring.inlineView":
		return setInt(&cfg.Scoring.InlineView, key, value)
	case "scoring.inlineComment":
		return setInt(&cfg.Scoring.InlineComment, key, value)
	case "probeOffsets":
		offsets, err := parseOffsets(value)
		if err != nil {
			return err
		}
		cfg.ProbeOffsets = offsets
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// Keys lists every key accepted by SetField and GetField.
var Keys = []string{
	"baseUrl", "format", "logLevel", "userAgent", "profileRoot", "includeDone",
	"timeoutSeconds", "suggestionTimeoutSeconds",
	"scoring.suggestionText", "scoring.inlineView", "scoring.inlineComment",
	"probeOffsets",
}

// GetField renders a single config field in the form SetField accepts.
func GetField(cfg Config, key string) (string, error) {
	switch key {
	case "baseUrl":
		return cfg.BaseURL, nil
	case "format":
		return cfg.Format, nil
	case "logLevel":
		return cfg.LogLevel, nil
	case "userAgent":
		return cfg.UserAgent, nil
	case "profileRoot":
		return cfg.ProfileRoot, nil
	case "includeDone":
		return strconv.FormatBool(cfg.IncludeDone), nil
	case "timeoutSeconds":
		return strconv.Itoa(cfg.TimeoutSeconds), nil
	case "suggestionTimeoutSeconds":
		return strconv.Itoa(cfg.SuggestionTimeoutSeconds), nil
	case "scoring.suggestionText":
		return strconv.Itoa(cfg.Scoring.SuggestionText), nil
	case "scoring.inlineView":
		return strconv.Itoa(cfg.Scoring.InlineView), nil
	case "scoring.inlineComment":
		return strconv.Itoa(cfg.Scoring.InlineComment), nil
	case "probeOffsets":
		parts := make([]string, len(cfg.ProbeOffsets))
		for i, n := range cfg.ProbeOffsets {
			parts[i] = strconv.Itoa(n)
		}
		return strings.Join(parts, ","), nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func parseOffsets(value string) ([]int, error) {
	var offsets []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("probeOffsets must be comma-separated integers: %w", err)
		}
		offsets = append(offsets, n)
	}
	return offsets, nil
}
