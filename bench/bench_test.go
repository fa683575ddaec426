// Package bench measures the local execution path: interpreter compile
// cost, warm runs on a shared handle, and a full runner submit.
//
// Run with: go test -bench=. -benchtime=3x ./bench/
package bench

import (
	"context"
	"strings"
	"testing"

	"github.com/caffeineduck/coderunner/interpreter"
	"github.com/caffeineduck/coderunner/judge0"
	"github.com/caffeineduck/coderunner/runner"
)

var module = interpreter.TestModule{Stdout: "hello\n"}.Bytes()

// --- Cold start (compile every time) ---

func BenchmarkRuntime_ColdStart(b *testing.B) {
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		rt, err := interpreter.New(ctx, interpreter.TestLanguage{}, module)
		if err != nil {
			b.Fatal(err)
		}
		rt.Exec(ctx, "x=1", "")
		rt.Close()
	}
}

func BenchmarkRuntime_ColdStart_DiskCache(b *testing.B) {
	ctx := context.Background()
	dir := b.TempDir()
	for i := 0; i < b.N; i++ {
		rt, err := interpreter.New(ctx, interpreter.TestLanguage{}, module, interpreter.WithDiskCache(dir))
		if err != nil {
			b.Fatal(err)
		}
		rt.Exec(ctx, "x=1", "")
		rt.Close()
	}
}

// --- Warm start (reuse compiled module) ---

func BenchmarkRuntime_Warm(b *testing.B) {
	ctx := context.Background()
	rt, err := interpreter.New(ctx, interpreter.TestLanguage{}, module)
	if err != nil {
		b.Fatal(err)
	}
	defer rt.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rt.Exec(ctx, "x=1", "")
	}
}

func BenchmarkRuntime_Warm_Parallel(b *testing.B) {
	ctx := context.Background()
	rt, err := interpreter.New(ctx, interpreter.TestLanguage{}, module)
	if err != nil {
		b.Fatal(err)
	}
	defer rt.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			rt.Exec(ctx, "x=1", "")
		}
	})
}

// --- Runner over a shared handle ---

func BenchmarkRunner_SubmitLocal(b *testing.B) {
	ctx := context.Background()
	handle := interpreter.NewHandle("python", &interpreter.StaticLoader{Module: module}, nil)
	defer handle.Close()

	r, err := runner.New("print('hello')", "python", runner.WithLocal(handle))
	if err != nil {
		b.Fatal(err)
	}
	r.Submit(ctx) // load

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Submit(ctx)
	}
}

func BenchmarkRunner_NewWidget(b *testing.B) {
	handle := interpreter.NewHandle("python", &interpreter.StaticLoader{Module: module}, nil)
	defer handle.Close()

	for i := 0; i < b.N; i++ {
		runner.New("print(1)", "python", runner.WithLocal(handle))
	}
}

// --- Remote response decoding ---

func BenchmarkOutcome_LargeStdout(b *testing.B) {
	text := strings.Repeat("0123456789abcdef\n", 4096)
	enc := judge0.Response{}
	s := encodeWrapped(text)
	enc.Stdout = &s

	b.SetBytes(int64(len(text)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := enc.Outcome(); err != nil {
			b.Fatal(err)
		}
	}
}

func TestSharedHandleLoadsOnce(t *testing.T) {
	loader := &interpreter.StaticLoader{Module: module}
	handle := interpreter.NewHandle("python", loader, nil)
	defer handle.Close()

	for i := 0; i < 10; i++ {
		r, err := runner.New("print(1)", "python", runner.WithLocal(handle))
		if err != nil {
			t.Fatal(err)
		}
		if snap, _ := r.Submit(context.Background()); snap.Output != "hello\n" {
			t.Fatalf("run %d: got %q", i, snap.Output)
		}
	}
	if n := loader.Loads.Load(); n != 1 {
		t.Errorf("interpreter loaded %d times, want 1", n)
	}
}
