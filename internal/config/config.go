// Package config loads coderunner's layered configuration: built-in
// defaults, then an optional YAML file, then CODERUNNER_ environment
// variables, where a double underscore separates nested keys
// (CODERUNNER_JUDGE0__API_KEY sets judge0.api_key).
package config

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/caffeineduck/coderunner/interpreter"
	"github.com/caffeineduck/coderunner/judge0"
	"github.com/caffeineduck/coderunner/language"
	"github.com/caffeineduck/coderunner/language/python"
)

const envPrefix = "CODERUNNER_"

// envAliases maps flat variable names onto nested keys.
var envAliases = map[string]string{
	"judge0_api_key":  "judge0.api_key",
	"judge0_base_url": "judge0.base_url",
}

// Config is the top-level application config.
type Config struct {
	Judge0 Judge0Config `koanf:"judge0"`
	Local  LocalConfig  `koanf:"local"`
	Log    LogConfig    `koanf:"log"`
	Server ServerConfig `koanf:"server"`
}

type Judge0Config struct {
	BaseURL        string `koanf:"base_url"`
	APIKey         string `koanf:"api_key"`
	Host           string `koanf:"host"`
	RequestTimeout string `koanf:"request_timeout"` // "" or duration; 0 waits indefinitely
	MaxBodySize    int64  `koanf:"max_body_size"`
}

type LocalConfig struct {
	Language  string `koanf:"language"`
	ModuleURL string `koanf:"module_url"`
	CacheDir  string `koanf:"cache_dir"`
	DiskCache bool   `koanf:"disk_cache"`
	Memory    string `koanf:"memory"`  // 1mb | 16mb | 64mb | 256mb | 1gb; "" is unlimited
	Timeout   string `koanf:"timeout"` // "" or duration
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug | info | warn | error
	Format string `koanf:"format"` // text | json
}

type ServerConfig struct {
	Host      string `koanf:"host"`
	Port      int    `koanf:"port"`
	Mode      string `koanf:"mode"` // debug | release
	WidgetTTL string `koanf:"widget_ttl"`
	Snippets  string `koanf:"snippets"`
}

func (c *Config) Validate() error {
	if _, err := optionalDuration("judge0.request_timeout", c.Judge0.RequestTimeout); err != nil {
		return err
	}
	if c.Judge0.MaxBodySize < 0 {
		return fmt.Errorf("judge0.max_body_size must be >= 0")
	}

	if _, err := language.Lookup(c.Local.Language); err != nil {
		return fmt.Errorf("local.language: %w", err)
	}
	if c.Local.Language != python.Key {
		return fmt.Errorf("unsupported local.language %q (only %s runs locally)", c.Local.Language, python.Key)
	}
	if strings.TrimSpace(c.Local.ModuleURL) == "" {
		return fmt.Errorf("local.module_url is required")
	}
	if c.Local.Memory != "" {
		if _, ok := interpreter.ParseMemoryLimit(c.Local.Memory); !ok {
			return fmt.Errorf("invalid local.memory %q (use 1mb, 16mb, 64mb, 256mb or 1gb)", c.Local.Memory)
		}
	}
	if _, err := optionalDuration("local.timeout", c.Local.Timeout); err != nil {
		return err
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log.format %q (must be text or json)", c.Log.Format)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}
	ttl, err := time.ParseDuration(c.Server.WidgetTTL)
	if err != nil {
		return fmt.Errorf("invalid server.widget_ttl %q: %w", c.Server.WidgetTTL, err)
	}
	if ttl <= 0 {
		return fmt.Errorf("server.widget_ttl must be > 0")
	}

	return nil
}

// Load parses config from defaults, the optional file at configPath and the
// environment, then validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"judge0.base_url":        judge0.DefaultBaseURL,
		"judge0.api_key":         "",
		"judge0.host":            "",
		"judge0.request_timeout": "",
		"judge0.max_body_size":   judge0.DefaultMaxBodySize,
		"local.language":         python.Key,
		"local.module_url":       python.DefaultModuleURL,
		"local.cache_dir":        interpreter.DefaultCacheDir(),
		"local.disk_cache":       true,
		"local.memory":           "",
		"local.timeout":          "",
		"log.level":              "info",
		"log.format":             "text",
		"server.host":            "127.0.0.1",
		"server.port":            8080,
		"server.mode":            "release",
		"server.widget_ttl":      "30m",
		"server.snippets":        "",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		if alias, ok := envAliases[key]; ok {
			return alias
		}
		return strings.Replace(key, "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Client returns the remote execution client. Without an API key the client
// reports itself unconfigured and every language but the local one fails.
func (c Judge0Config) Client() *judge0.Client {
	timeout, _ := optionalDuration("judge0.request_timeout", c.RequestTimeout)
	return judge0.NewClient(judge0.Config{
		BaseURL:        c.BaseURL,
		APIKey:         c.APIKey,
		Host:           c.Host,
		MaxBodySize:    c.MaxBodySize,
		RequestTimeout: timeout,
	})
}

// Fetcher returns the module fetcher for the local interpreter.
func (c LocalConfig) Fetcher(logger *slog.Logger) *interpreter.Fetcher {
	return &interpreter.Fetcher{
		URL:      c.ModuleURL,
		CacheDir: c.CacheDir,
		Logger:   logger,
	}
}

// Options returns the runtime options for the local interpreter.
func (c LocalConfig) Options(logger *slog.Logger) []interpreter.Option {
	opts := []interpreter.Option{interpreter.WithLogger(logger)}
	if c.DiskCache {
		opts = append(opts, interpreter.WithDiskCache(filepath.Join(c.CacheDir, "compiled")))
	}
	if pages, ok := interpreter.ParseMemoryLimit(c.Memory); ok {
		opts = append(opts, interpreter.WithMemoryLimit(pages))
	}
	if d, _ := optionalDuration("local.timeout", c.Timeout); d > 0 {
		opts = append(opts, interpreter.WithTimeout(d))
	}
	return opts
}

// Handle returns the shared local interpreter handle.
func (c LocalConfig) Handle(logger *slog.Logger) *interpreter.Handle {
	loader := &interpreter.ModuleLoader{
		Lang:    python.New(),
		Fetcher: c.Fetcher(logger),
		Options: c.Options(logger),
	}
	return interpreter.NewHandle(c.Language, loader, logger)
}

// Logger builds a slog logger writing to w.
func (c LogConfig) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Level)
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if c.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Addr is the server listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TTL is how long an idle widget lives.
func (c ServerConfig) TTL() time.Duration {
	d, _ := time.ParseDuration(c.WidgetTTL)
	return d
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log.level %q (must be debug, info, warn or error)", s)
	}
}

func optionalDuration(key, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must be >= 0", key)
	}
	return d, nil
}
