package interpreter

import (
	"context"
	"encoding/binary"
	"sync/atomic"
)

// TestModule describes a minimal WASI program for tests: it writes Stdout
// and Stderr, then exits with ExitCode, or traps when Trap is set. Bytes
// assembles it, so tests can exercise a real Runtime without a language
// interpreter binary.
type TestModule struct {
	Stdout   string
	Stderr   string
	ExitCode int32
	Trap     bool
}

// Bytes returns the binary WebAssembly encoding of the program.
func (m TestModule) Bytes() []byte {
	const dataBase = 32

	out := []byte(m.Stdout)
	errOut := []byte(m.Stderr)

	// Memory layout: iovec(stdout) at 0, iovec(stderr) at 8, nwritten at 16,
	// payloads from dataBase.
	data := make([]byte, dataBase, dataBase+len(out)+len(errOut))
	binary.LittleEndian.PutUint32(data[0:], dataBase)
	binary.LittleEndian.PutUint32(data[4:], uint32(len(out)))
	binary.LittleEndian.PutUint32(data[8:], uint32(dataBase+len(out)))
	binary.LittleEndian.PutUint32(data[12:], uint32(len(errOut)))
	data = append(data, out...)
	data = append(data, errOut...)

	pages := uint32(len(data)/65536 + 1)

	const (
		i32     = 0x7f
		funcTyp = 0x60
	)

	types := []byte{3}
	types = append(types, funcTyp, 0, 0)                          // 0: () -> ()
	types = append(types, funcTyp, 4, i32, i32, i32, i32, 1, i32) // 1: fd_write
	types = append(types, funcTyp, 1, i32, 0)                     // 2: proc_exit

	imports := []byte{2}
	imports = append(imports, wasmName("wasi_snapshot_preview1")...)
	imports = append(imports, wasmName("fd_write")...)
	imports = append(imports, 0x00, 1)
	imports = append(imports, wasmName("wasi_snapshot_preview1")...)
	imports = append(imports, wasmName("proc_exit")...)
	imports = append(imports, 0x00, 2)

	funcs := []byte{1, 0}

	memory := append([]byte{1, 0x00}, uleb(pages)...)

	exports := []byte{2}
	exports = append(exports, wasmName("memory")...)
	exports = append(exports, 0x02, 0)
	exports = append(exports, wasmName("_start")...)
	exports = append(exports, 0x00, 2)

	body := []byte{0} // no locals
	write := func(fd, iov int32) {
		body = append(body, 0x41)
		body = append(body, sleb(fd)...)
		body = append(body, 0x41)
		body = append(body, sleb(iov)...)
		body = append(body, 0x41, 1, 0x41, 16) // one iovec, nwritten at 16
		body = append(body, 0x10, 0)           // call fd_write
		body = append(body, 0x1a)              // drop
	}
	if len(out) > 0 {
		write(1, 0)
	}
	if len(errOut) > 0 {
		write(2, 8)
	}
	if m.Trap {
		body = append(body, 0x00) // unreachable
	}
	if m.ExitCode != 0 {
		body = append(body, 0x41)
		body = append(body, sleb(m.ExitCode)...)
		body = append(body, 0x10, 1) // call proc_exit
	}
	body = append(body, 0x0b)

	code := []byte{1}
	code = append(code, uleb(uint32(len(body)))...)
	code = append(code, body...)

	seg := []byte{1, 0x00, 0x41, 0, 0x0b}
	seg = append(seg, uleb(uint32(len(data)))...)
	seg = append(seg, data...)

	mod := []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}
	mod = append(mod, wasmSection(1, types)...)
	mod = append(mod, wasmSection(2, imports)...)
	mod = append(mod, wasmSection(3, funcs)...)
	mod = append(mod, wasmSection(5, memory)...)
	mod = append(mod, wasmSection(7, exports)...)
	mod = append(mod, wasmSection(10, code)...)
	mod = append(mod, wasmSection(11, seg)...)
	return mod
}

func wasmSection(id byte, content []byte) []byte {
	s := []byte{id}
	s = append(s, uleb(uint32(len(content)))...)
	return append(s, content...)
}

func wasmName(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func uleb(n uint32) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if n == 0 {
			return out
		}
	}
}

func sleb(n int32) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		done := (n == 0 && b&0x40 == 0) || (n == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		out = append(out, b)
		if done {
			return out
		}
	}
}

// TestLanguage is a Language for TestModule programs.
type TestLanguage struct{}

func (TestLanguage) Name() string { return "test" }

func (TestLanguage) Args(code string) []string { return []string{"test", code} }

// StaticLoader is a Loader over an in-memory module. It counts calls so
// tests can assert on load behaviour.
type StaticLoader struct {
	Lang    Language
	Module  []byte
	Options []Option

	Prefetches atomic.Int32
	Loads      atomic.Int32
}

func (l *StaticLoader) Prefetch(ctx context.Context) error {
	l.Prefetches.Add(1)
	return nil
}

func (l *StaticLoader) Load(ctx context.Context) (Interpreter, error) {
	l.Loads.Add(1)
	lang := l.Lang
	if lang == nil {
		lang = TestLanguage{}
	}
	return New(ctx, lang, l.Module, l.Options...)
}
