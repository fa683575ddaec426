package interpreter

// Language defines how a WASM interpreter binary is invoked for one language.
// Implement this interface to make a language locally runnable.
type Language interface {
	// Name returns the language key the interpreter serves (e.g. "python").
	// It must match a key in the language descriptor table.
	Name() string

	// Args returns the command-line arguments passed to the WASM module to
	// run the given program.
	// For Python: []string{"python", "-c", code}
	Args(code string) []string
}
