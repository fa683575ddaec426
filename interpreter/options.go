package interpreter

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Option configures a Runtime at creation time.
type Option func(*config)

type config struct {
	diskCache        bool
	cacheDir         string
	memoryLimitPages uint32 // Max memory pages (each page = 64KB), 0 = default (4GB)
	timeout          time.Duration
	logger           *slog.Logger
}

func defaultConfig() config {
	return config{
		diskCache:        false,
		memoryLimitPages: 0, // 0 means use wazero default (65536 pages = 4GB)
	}
}

// WithDiskCache enables a persistent compilation cache for faster startup.
// Optionally provide a custom directory; otherwise uses
// DefaultCacheDir()/compiled.
//
// Examples:
//
//	interpreter.New(ctx, lang, module, interpreter.WithDiskCache())             // default dir
//	interpreter.New(ctx, lang, module, interpreter.WithDiskCache("/tmp/cache")) // custom dir
func WithDiskCache(dir ...string) Option {
	return func(c *config) {
		c.diskCache = true
		if len(dir) > 0 && dir[0] != "" {
			c.cacheDir = dir[0]
		}
	}
}

// WithMemoryLimit sets the maximum memory available to the interpreter.
// Each page is 64KB. Examples:
//   - WithMemoryLimit(16) = 1MB max
//   - WithMemoryLimit(256) = 16MB max
//   - WithMemoryLimit(4096) = 256MB max
//
// Default is 0 (no limit, up to 4GB).
func WithMemoryLimit(pages uint32) Option {
	return func(c *config) {
		c.memoryLimitPages = pages
	}
}

// WithTimeout bounds each run. Zero, the default, means a run lasts until it
// finishes or its context is cancelled.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithLogger sets the logger used for compile events.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Memory limit constants for convenience.
const (
	MemoryLimit1MB   uint32 = 16    // 1 MB
	MemoryLimit16MB  uint32 = 256   // 16 MB
	MemoryLimit64MB  uint32 = 1024  // 64 MB
	MemoryLimit256MB uint32 = 4096  // 256 MB
	MemoryLimit1GB   uint32 = 16384 // 1 GB
)

// ParseMemoryLimit maps "1mb", "16mb", "64mb", "256mb" and "1gb" to a page
// count. Anything else, including "", returns 0 (no limit) and false.
func ParseMemoryLimit(s string) (uint32, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1mb":
		return MemoryLimit1MB, true
	case "16mb":
		return MemoryLimit16MB, true
	case "64mb":
		return MemoryLimit64MB, true
	case "256mb":
		return MemoryLimit256MB, true
	case "1gb":
		return MemoryLimit1GB, true
	default:
		return 0, false
	}
}

// DefaultCacheDir is where fetched modules and compiled code are kept.
func DefaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "coderunner")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "coderunner")
	}
	return filepath.Join(os.TempDir(), "coderunner-cache")
}
