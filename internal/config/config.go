// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/smartdocs-tui/internal/util"
)

// Surface names select a timeout profile.
const (
	SurfaceTUI = "tui"
	SurfaceCLI = "cli"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete smartdocs configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Server  ServerConfig  `toml:"server" json:"server"`
	Chat    ChatConfig    `toml:"chat" json:"chat"`
	Scroll  ScrollConfig  `toml:"scroll" json:"scroll"`
	Cache   CacheConfig   `toml:"cache" json:"cache"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Auth    AuthConfig    `toml:"auth" json:"auth"`
	Metrics MetricsConfig `toml:"metrics" json:"metrics"`
	Log     LogConfig     `toml:"log" json:"log"`
}

// ServerConfig locates the SmartDocs backend.
type ServerConfig struct {
	// BaseURL is the server origin, e.g. http://127.0.0.1:8000
	BaseURL string `toml:"base_url" json:"base_url"`
	// APIPrefix is the authenticated API root (default "/api")
	APIPrefix string `toml:"api_prefix" json:"api_prefix"`
	// PublicPrefix is the unauthenticated API root (default "/public-api")
	PublicPrefix string `toml:"public_prefix" json:"public_prefix"`
	// RequestTimeoutSecs bounds REST calls, including the non-streaming send
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`
	// RateLimit is the sustained REST request rate per second (0 = unlimited)
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	RateBurst int     `toml:"rate_burst" json:"rate_burst"`
}

// ChatConfig controls how questions are sent and answers are consumed.
type ChatConfig struct {
	// Model is the answer model selector
	Model string `toml:"model" json:"model"`
	// Streaming selects the push channel instead of one blocking request
	Streaming bool `toml:"streaming" json:"streaming"`
	// Transport is "sse" or "websocket"
	Transport string `toml:"transport" json:"transport"`

	// EmptyAnswer is "placeholder" or "empty": how a completed stream with
	// no text is shown
	EmptyAnswer        string `toml:"empty_answer" json:"empty_answer"`
	EmptyPlaceholder   string `toml:"empty_placeholder" json:"empty_placeholder"`
	TimeoutPlaceholder string `toml:"timeout_placeholder" json:"timeout_placeholder"`
	FailurePlaceholder string `toml:"failure_placeholder" json:"failure_placeholder"`

	Surfaces SurfacesConfig `toml:"surfaces" json:"surfaces"`
}

// SurfacesConfig holds one timeout profile per call site.
type SurfacesConfig struct {
	TUI SurfaceConfig `toml:"tui" json:"tui"`
	CLI SurfaceConfig `toml:"cli" json:"cli"`
}

// SurfaceConfig is the stream budget for one call site.
type SurfaceConfig struct {
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// TimeoutPolicy is "deadline" (wall clock) or "idle" (restart per delta)
	TimeoutPolicy string `toml:"timeout_policy" json:"timeout_policy"`
}

// Timeout returns the budget as a duration.
func (s SurfaceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// ScrollConfig holds autoscroll thresholds in terminal rows.
type ScrollConfig struct {
	NearBottom    int  `toml:"near_bottom" json:"near_bottom"`
	FarFromBottom int  `toml:"far_from_bottom" json:"far_from_bottom"`
	Epsilon       int  `toml:"epsilon" json:"epsilon"`
	Smooth        bool `toml:"smooth" json:"smooth"`
}

// CacheConfig controls the local transcript cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
}

// UIConfig contains terminal UI preferences.
type UIConfig struct {
	// Theme is "dark", "light" or "auto"
	Theme     string `toml:"theme" json:"theme"`
	Markdown  bool   `toml:"markdown" json:"markdown"`
	ShowStats bool   `toml:"show_stats" json:"show_stats"`
}

// AuthConfig locates the persisted login.
type AuthConfig struct {
	TokenFile string `toml:"token_file" json:"token_file"`
	Username  string `toml:"username" json:"username"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Addr    string `toml:"addr" json:"addr"`
}

// LogConfig controls the diagnostic log.
type LogConfig struct {
	File    string `toml:"file" json:"file"`
	Verbose bool   `toml:"verbose" json:"verbose"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			BaseURL:            "http://127.0.0.1:8000",
			APIPrefix:          "/api",
			PublicPrefix:       "/public-api",
			RequestTimeoutSecs: 60,
			RateLimit:          5,
			RateBurst:          10,
		},
		Chat: ChatConfig{
			Model:              "qwen-turbo",
			Streaming:          true,
			Transport:          "sse",
			EmptyAnswer:        "placeholder",
			EmptyPlaceholder:   "(no answer)",
			TimeoutPlaceholder: "response timed out",
			FailurePlaceholder: "failed to get a response",
			Surfaces: SurfacesConfig{
				TUI: SurfaceConfig{TimeoutSecs: 120, TimeoutPolicy: "deadline"},
				CLI: SurfaceConfig{TimeoutSecs: 30, TimeoutPolicy: "idle"},
			},
		},
		Scroll: ScrollConfig{
			NearBottom:    1,
			FarFromBottom: 10,
			Epsilon:       0,
			Smooth:        true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    util.HomePath("cache.db"),
		},
		UI: UIConfig{
			Theme:     "auto",
			Markdown:  true,
			ShowStats: true,
		},
		Auth: AuthConfig{
			TokenFile: util.HomePath("token.json"),
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
		Log: LogConfig{
			File: util.HomePath("smartdocs.log"),
		},
	}
}

// fillDefaults fills empty strings and zero budgets left by a sparse file.
func fillDefaults(cfg *Config) {
	d := Default()

	if cfg.Version == "" {
		cfg.Version = d.Version
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = d.Server.BaseURL
	}
	if cfg.Server.APIPrefix == "" {
		cfg.Server.APIPrefix = d.Server.APIPrefix
	}
	if cfg.Server.PublicPrefix == "" {
		cfg.Server.PublicPrefix = d.Server.PublicPrefix
	}
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = d.Server.RequestTimeoutSecs
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = d.Server.RateBurst
	}

	if cfg.Chat.Model == "" {
		cfg.Chat.Model = d.Chat.Model
	}
	if cfg.Chat.Transport == "" {
		cfg.Chat.Transport = d.Chat.Transport
	}
	if cfg.Chat.EmptyAnswer == "" {
		cfg.Chat.EmptyAnswer = d.Chat.EmptyAnswer
	}
	if cfg.Chat.EmptyPlaceholder == "" {
		cfg.Chat.EmptyPlaceholder = d.Chat.EmptyPlaceholder
	}
	if cfg.Chat.TimeoutPlaceholder == "" {
		cfg.Chat.TimeoutPlaceholder = d.Chat.TimeoutPlaceholder
	}
	if cfg.Chat.FailurePlaceholder == "" {
		cfg.Chat.FailurePlaceholder = d.Chat.FailurePlaceholder
	}
	fillSurface(&cfg.Chat.Surfaces.TUI, d.Chat.Surfaces.TUI)
	fillSurface(&cfg.Chat.Surfaces.CLI, d.Chat.Surfaces.CLI)

	if cfg.Cache.Path == "" {
		cfg.Cache.Path = d.Cache.Path
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = d.UI.Theme
	}
	if cfg.Auth.TokenFile == "" {
		cfg.Auth.TokenFile = d.Auth.TokenFile
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = d.Metrics.Addr
	}
	if cfg.Log.File == "" {
		cfg.Log.File = d.Log.File
	}
}

func fillSurface(s *SurfaceConfig, d SurfaceConfig) {
	if s.TimeoutSecs == 0 {
		s.TimeoutSecs = d.TimeoutSecs
	}
	if s.TimeoutPolicy == "" {
		s.TimeoutPolicy = d.TimeoutPolicy
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// APIBase returns the authenticated API root URL.
func (c *Config) APIBase() string {
	return strings.TrimRight(c.Server.BaseURL, "/") + c.Server.APIPrefix
}

// PublicBase returns the unauthenticated API root URL.
func (c *Config) PublicBase() string {
	return strings.TrimRight(c.Server.BaseURL, "/") + c.Server.PublicPrefix
}

// RequestTimeout returns the REST timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSecs) * time.Second
}

// Surface returns the timeout profile for a call site. Unknown names get
// the chat screen profile.
func (c *Config) Surface(name string) SurfaceConfig {
	if name == SurfaceCLI {
		return c.Chat.Surfaces.CLI
	}
	return c.Chat.Surfaces.TUI
}

// EmptyAnswerText returns the placeholder for an empty completed answer,
// or "" when empty answers are shown blank.
func (c *Config) EmptyAnswerText() string {
	if c.Chat.EmptyAnswer == "empty" {
		return ""
	}
	return c.Chat.EmptyPlaceholder
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the smartdocs configuration directory path.
func ConfigDir() string {
	return util.HomePath()
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() string {
	return util.HomePath("config.toml")
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() string {
	return util.HomePath("config.json")
}

// ensureSecurePermissions tightens a config file to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads the configuration from ~/.smartdocs. TOML is tried first, then
// JSON, then defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	for _, path := range []string{ConfigPathTOML(), ConfigPathJSON()} {
		if _, err := os.Stat(path); err == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file with full validation.
// The file is decoded on top of the defaults, so omitted keys keep their
// default values.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	var err error
	if strings.HasSuffix(path, ".json") {
		err = LoadJSON(cfg, path)
	} else {
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	_ = ensureSecurePermissions(path)

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON decodes a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	_ = ensureSecurePermissions(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file %s: %w", path, err)
	}
	fillDefaults(cfg)
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default TOML path.
func Save(cfg *Config) error {
	return SaveTOML(cfg, ConfigPathTOML())
}

// SaveTOML writes cfg as TOML.
// RELIABILITY: Atomic write so the watcher never sees a truncated file.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# smartdocs configuration file\n")
	buf.WriteString("# Changes are picked up while smartdocs is running.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns ValidateErrors on failure.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if u, err := url.Parse(c.Server.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("server.base_url", "must be an http(s) URL, got %q", c.Server.BaseURL)
	}
	for field, prefix := range map[string]string{"server.api_prefix": c.Server.APIPrefix, "server.public_prefix": c.Server.PublicPrefix} {
		if !strings.HasPrefix(prefix, "/") {
			add(field, "must start with '/', got %q", prefix)
		}
	}
	if c.Server.RequestTimeoutSecs < 1 || c.Server.RequestTimeoutSecs > 600 {
		add("server.request_timeout_secs", "must be between 1 and 600, got %d", c.Server.RequestTimeoutSecs)
	}
	if c.Server.RateLimit < 0 {
		add("server.rate_limit", "must not be negative")
	}

	if strings.TrimSpace(c.Chat.Model) == "" {
		add("chat.model", "must not be empty")
	}
	switch c.Chat.Transport {
	case "sse", "websocket":
	default:
		add("chat.transport", "invalid transport %q, must be one of: sse, websocket", c.Chat.Transport)
	}
	switch c.Chat.EmptyAnswer {
	case "placeholder", "empty":
	default:
		add("chat.empty_answer", "invalid value %q, must be one of: placeholder, empty", c.Chat.EmptyAnswer)
	}
	for name, s := range map[string]SurfaceConfig{"tui": c.Chat.Surfaces.TUI, "cli": c.Chat.Surfaces.CLI} {
		field := "chat.surfaces." + name
		if s.TimeoutSecs < 1 || s.TimeoutSecs > 3600 {
			add(field+".timeout_secs", "must be between 1 and 3600, got %d", s.TimeoutSecs)
		}
		switch s.TimeoutPolicy {
		case "deadline", "idle":
		default:
			add(field+".timeout_policy", "invalid policy %q, must be one of: deadline, idle", s.TimeoutPolicy)
		}
	}

	if c.Scroll.NearBottom < 0 || c.Scroll.Epsilon < 0 {
		add("scroll", "thresholds must not be negative")
	}
	if c.Scroll.FarFromBottom < c.Scroll.NearBottom {
		add("scroll.far_from_bottom", "must be >= near_bottom (%d), got %d", c.Scroll.NearBottom, c.Scroll.FarFromBottom)
	}

	switch strings.ToLower(c.UI.Theme) {
	case "dark", "light", "auto":
	default:
		add("ui.theme", "invalid theme %q, must be one of: dark, light, auto", c.UI.Theme)
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		add("metrics.addr", "required when metrics are enabled")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies SMARTDOCS_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SMARTDOCS_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("SMARTDOCS_MODEL"); v != "" {
		c.Chat.Model = v
	}
	if v := os.Getenv("SMARTDOCS_STREAMING"); v != "" {
		c.Chat.Streaming = parseBool(v)
	}
	if v := os.Getenv("SMARTDOCS_TRANSPORT"); v != "" {
		c.Chat.Transport = strings.ToLower(v)
	}
	if v := os.Getenv("SMARTDOCS_TOKEN_FILE"); v != "" {
		c.Auth.TokenFile = v
	}
	if v := os.Getenv("SMARTDOCS_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
		c.Metrics.Enabled = true
	}
	if v := os.Getenv("SMARTDOCS_LOG_FILE"); v != "" {
		c.Log.File = v
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation, e.g.
// "chat.surfaces.cli.timeout_secs".
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	if field.Kind() == reflect.Struct {
		return fmt.Errorf("%s is a section, not a value", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go
// field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

// setFieldValue sets field from value with string conversion.
func setFieldValue(field reflect.Value, value any) error {
	if s, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
			return nil
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(n)
			return nil
		case reflect.Float64:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(f)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(s))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all settable configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"server.base_url",
		"server.api_prefix",
		"server.public_prefix",
		"server.request_timeout_secs",
		"server.rate_limit",
		"server.rate_burst",
		"chat.model",
		"chat.streaming",
		"chat.transport",
		"chat.empty_answer",
		"chat.empty_placeholder",
		"chat.timeout_placeholder",
		"chat.failure_placeholder",
		"chat.surfaces.tui.timeout_secs",
		"chat.surfaces.tui.timeout_policy",
		"chat.surfaces.cli.timeout_secs",
		"chat.surfaces.cli.timeout_policy",
		"scroll.near_bottom",
		"scroll.far_from_bottom",
		"scroll.epsilon",
		"scroll.smooth",
		"cache.enabled",
		"cache.path",
		"ui.theme",
		"ui.markdown",
		"ui.show_stats",
		"auth.token_file",
		"auth.username",
		"metrics.enabled",
		"metrics.addr",
		"log.file",
		"log.verbose",
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the configuration as indented JSON for display.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
