package interpreter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

// ErrClosed is returned by runs on a closed Runtime.
var ErrClosed = errors.New("interpreter closed")

// Result holds the output and metadata from one run.
type Result struct {
	Output   string
	Stderr   string
	Duration time.Duration
	Error    error
}

// ExecError is a failed run. Its message is the interpreter's stderr when
// there is any (a traceback, typically), otherwise the underlying fault.
type ExecError struct {
	Stderr string
	Err    error
}

func (e *ExecError) Error() string {
	if msg := strings.TrimRight(e.Stderr, "\r\n"); msg != "" {
		return msg
	}
	return e.Err.Error()
}

func (e *ExecError) Unwrap() error { return e.Err }

// Runtime owns a wazero runtime and the compiled interpreter module. It is
// safe for concurrent use; every run instantiates its own module.
type Runtime struct {
	runtime  wazero.Runtime
	cache    wazero.CompilationCache
	compiled wazero.CompiledModule
	lang     Language
	cfg      config
	mu       sync.RWMutex
	closed   bool
}

// New compiles module for lang and returns a Runtime ready to run code.
func New(ctx context.Context, lang Language, module []byte, opts ...Option) (*Runtime, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	var cache wazero.CompilationCache
	var err error

	if cfg.diskCache {
		cacheDir := cfg.cacheDir
		if cacheDir == "" {
			cacheDir = filepath.Join(DefaultCacheDir(), "compiled")
		}
		cache, err = wazero.NewCompilationCacheWithDir(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("create disk cache: %w", err)
		}
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	closeAll := func() {
		rt.Close(ctx)
		if cache != nil {
			cache.Close(ctx)
		}
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		closeAll()
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}

	start := time.Now()
	compiled, err := rt.CompileModule(ctx, module)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("compile %s: %w", lang.Name(), err)
	}
	logger.Info("interpreter compiled",
		slog.String("language", lang.Name()),
		slog.Duration("took", time.Since(start)),
		slog.Bool("disk_cache", cache != nil))

	return &Runtime{
		runtime:  rt,
		cache:    cache,
		compiled: compiled,
		lang:     lang,
		cfg:      cfg,
	}, nil
}

// Language returns the language this runtime serves.
func (r *Runtime) Language() Language { return r.lang }

// Run executes code with stdin as the program's standard input.
func (r *Runtime) Run(ctx context.Context, code, stdin string) Result {
	start := time.Now()

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return Result{Error: ErrClosed, Duration: time.Since(start)}
	}

	if r.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	moduleConfig := wazero.NewModuleConfig().
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithStdin(strings.NewReader(stdin)).
		WithArgs(r.lang.Args(code)...).
		WithName("")

	mod, err := r.runtime.InstantiateModule(ctx, r.compiled, moduleConfig)
	if mod != nil {
		mod.Close(ctx)
	}

	result := Result{
		Output:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
		err = nil
	}

	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			result.Error = fmt.Errorf("timeout after %v", r.cfg.timeout)
		case ctx.Err() != nil:
			result.Error = fmt.Errorf("execution cancelled: %w", ctx.Err())
		default:
			result.Error = fmt.Errorf("execution failed: %w", err)
		}
	}

	return result
}

// Exec runs code and returns its captured standard output. A failed run
// returns an *ExecError and no output.
func (r *Runtime) Exec(ctx context.Context, code, stdin string) (string, error) {
	res := r.Run(ctx, code, stdin)
	if res.Error != nil {
		return "", &ExecError{Stderr: res.Stderr, Err: res.Error}
	}
	return res.Output, nil
}

// Close releases all resources held by the Runtime.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	ctx := context.Background()

	var errs []error
	if err := r.runtime.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if r.cache != nil {
		if err := r.cache.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
