// Package python provides the Python adapter for the local interpreter.
//
// Python is the one language that can run without the remote execution
// service. The interpreter is a RustPython WASI build fetched on first use
// rather than embedded in the binary.
package python

// Key is the language descriptor key served by this adapter.
const Key = "python"

// DefaultModuleURL is where the RustPython WASI binary is fetched from.
const DefaultModuleURL = "https://github.com/RustPython/RustPython/releases/latest/download/rustpython.wasm"

// Python implements the interpreter.Language interface for Python execution.
type Python struct{}

// New returns a Python language adapter.
func New() *Python {
	return &Python{}
}

// Name returns "python".
func (p *Python) Name() string {
	return Key
}

// Args returns the command-line arguments for the Python interpreter.
func (p *Python) Args(code string) []string {
	return []string{"python", "-c", code}
}
