package interpreter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Interpreter runs a program and returns what it printed.
type Interpreter interface {
	Exec(ctx context.Context, code, stdin string) (string, error)
}

// Loader produces an Interpreter. Prefetch makes the interpreter's resources
// available without building it; Load builds it.
type Loader interface {
	Prefetch(ctx context.Context) error
	Load(ctx context.Context) (Interpreter, error)
}

// ModuleLoader loads a WASM interpreter binary through a Fetcher and compiles
// it into a Runtime.
type ModuleLoader struct {
	Lang    Language
	Fetcher *Fetcher
	Options []Option
}

func (l *ModuleLoader) Prefetch(ctx context.Context) error {
	_, err := l.Fetcher.Ensure(ctx)
	return err
}

func (l *ModuleLoader) Load(ctx context.Context) (Interpreter, error) {
	module, err := l.Fetcher.Module(ctx)
	if err != nil {
		return nil, err
	}
	return New(ctx, l.Lang, module, l.Options...)
}

// Handle is the shared, lazily created interpreter for one language. Create
// one per process and hand it to every runner; the first caller of Get pays
// the load cost and everyone after reuses the result.
type Handle struct {
	name   string
	loader Loader
	logger *slog.Logger

	injectOnce sync.Once
	injected   chan struct{}

	group  singleflight.Group
	mu     sync.RWMutex
	interp Interpreter
}

// NewHandle returns a Handle for the language key name. A nil logger means
// slog.Default().
func NewHandle(name string, loader Loader, logger *slog.Logger) *Handle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handle{
		name:     name,
		loader:   loader,
		logger:   logger,
		injected: make(chan struct{}),
	}
}

// Name returns the language key this handle serves.
func (h *Handle) Name() string { return h.name }

// Inject starts prefetching the interpreter's resources in the background.
// Only the first call does anything; it reports whether this call started
// the prefetch. A failed prefetch is logged, and Get will try again.
func (h *Handle) Inject() bool {
	started := false
	h.injectOnce.Do(func() {
		started = true
		go func() {
			defer close(h.injected)
			if err := h.loader.Prefetch(context.Background()); err != nil {
				h.logger.Warn("interpreter prefetch failed",
					slog.String("language", h.name),
					slog.Any("error", err))
			}
		}()
	})
	return started
}

// Injected is closed once the prefetch started by Inject has finished.
func (h *Handle) Injected() <-chan struct{} { return h.injected }

// Loaded reports whether the interpreter has been created.
func (h *Handle) Loaded() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.interp != nil
}

// Get returns the interpreter, loading it on first use. Concurrent first
// calls share a single load. A failed load is not remembered.
func (h *Handle) Get(ctx context.Context) (Interpreter, error) {
	h.mu.RLock()
	interp := h.interp
	h.mu.RUnlock()
	if interp != nil {
		return interp, nil
	}

	ch := h.group.DoChan("load", func() (any, error) {
		h.mu.RLock()
		existing := h.interp
		h.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		h.logger.Info("loading interpreter", slog.String("language", h.name))
		loaded, err := h.loader.Load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, fmt.Errorf("load %s interpreter: %w", h.name, err)
		}

		h.mu.Lock()
		h.interp = loaded
		h.mu.Unlock()
		return loaded, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Interpreter), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close releases the interpreter if it was loaded. A later Get loads a new one.
func (h *Handle) Close() error {
	h.mu.Lock()
	interp := h.interp
	h.interp = nil
	h.mu.Unlock()

	if c, ok := interp.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
