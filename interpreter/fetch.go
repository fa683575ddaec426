package interpreter

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMaxModuleSize bounds a downloaded interpreter binary.
	DefaultMaxModuleSize = 256 << 20 // 256MB
	// DefaultFetchTimeout bounds a single module download.
	DefaultFetchTimeout = 5 * time.Minute
)

var wasmMagic = []byte{0x00, 'a', 's', 'm'}

// Fetcher makes an interpreter binary available on local disk.
//
// URL is either http(s), in which case the binary is downloaded into
// CacheDir once, or a local path (optionally file://), which is used in
// place. A cached file counts as fetched; nothing is downloaded again until
// Clear removes it.
type Fetcher struct {
	URL      string
	CacheDir string
	Client   *http.Client
	MaxSize  int64
	Logger   *slog.Logger

	group singleflight.Group
}

func (f *Fetcher) remote() bool {
	return strings.HasPrefix(f.URL, "http://") || strings.HasPrefix(f.URL, "https://")
}

func (f *Fetcher) modulesDir() string {
	dir := f.CacheDir
	if dir == "" {
		dir = DefaultCacheDir()
	}
	return filepath.Join(dir, "modules")
}

// Path returns where the module lives once fetched.
func (f *Fetcher) Path() string {
	if !f.remote() {
		return strings.TrimPrefix(f.URL, "file://")
	}
	sum := sha256.Sum256([]byte(f.URL))
	name := path.Base(strings.SplitN(f.URL, "?", 2)[0])
	if name == "" || name == "/" || name == "." {
		name = "module.wasm"
	}
	return filepath.Join(f.modulesDir(), hex.EncodeToString(sum[:8])+"-"+name)
}

// Cached reports whether the module is already on disk.
func (f *Fetcher) Cached() bool {
	info, err := os.Stat(f.Path())
	return err == nil && !info.IsDir()
}

// Ensure fetches the module unless it is already present and returns its
// path. Concurrent calls share one download.
func (f *Fetcher) Ensure(ctx context.Context) (string, error) {
	if f.URL == "" {
		return "", errors.New("interpreter module url not configured")
	}
	dest := f.Path()
	if f.Cached() {
		return dest, nil
	}
	if !f.remote() {
		return "", fmt.Errorf("interpreter module not found: %s", dest)
	}

	ch := f.group.DoChan(dest, func() (any, error) {
		if f.Cached() {
			return dest, nil
		}
		return dest, f.download(context.WithoutCancel(ctx), dest)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return dest, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (f *Fetcher) download(ctx context.Context, dest string) error {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	maxSize := f.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxModuleSize
	}

	start := time.Now()
	logger.Info("fetching interpreter module", slog.String("url", f.URL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch interpreter module: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch interpreter module: %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".fetch-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	n, err := io.Copy(tmpFile, io.LimitReader(resp.Body, maxSize+1))
	if cerr := tmpFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to download interpreter module: %w", err)
	}
	if n > maxSize {
		return fmt.Errorf("interpreter module exceeds %d bytes", maxSize)
	}
	if err := checkMagic(tmpPath); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to store interpreter module: %w", err)
	}

	logger.Info("interpreter module fetched",
		slog.String("path", dest),
		slog.Int64("bytes", n),
		slog.Duration("took", time.Since(start)))
	return nil
}

func checkMagic(p string) error {
	fh, err := os.Open(p)
	if err != nil {
		return err
	}
	defer fh.Close()

	head := make([]byte, len(wasmMagic))
	if _, err := io.ReadFull(fh, head); err != nil || !bytes.Equal(head, wasmMagic) {
		return errors.New("fetched file is not a WebAssembly module")
	}
	return nil
}

// Module ensures the module is present and returns its bytes.
func (f *Fetcher) Module(ctx context.Context) ([]byte, error) {
	p, err := f.Ensure(ctx)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read interpreter module: %w", err)
	}
	return data, nil
}

// Clear removes every downloaded module. Local-path modules are left alone.
func (f *Fetcher) Clear() error {
	if err := os.RemoveAll(f.modulesDir()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
