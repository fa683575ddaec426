// Package interpreter runs snippets in-process on a WebAssembly language
// interpreter, using wazero.
//
// # Overview
//
// The interpreter binary is not embedded. A [Fetcher] downloads it once into
// a cache directory, a [Runtime] compiles it once and instantiates a fresh
// module per run, capturing standard output.
//
// A [Handle] is the process-wide entry point: it starts the download early
// ([Handle.Inject]), lazily creates the runtime on first use ([Handle.Get])
// and reuses it for every later run.
//
// # Basic Usage
//
//	fetcher := &interpreter.Fetcher{URL: python.DefaultModuleURL, CacheDir: interpreter.DefaultCacheDir()}
//	handle := interpreter.NewHandle(python.Key, &interpreter.ModuleLoader{
//	    Lang:    python.New(),
//	    Fetcher: fetcher,
//	}, nil)
//	defer handle.Close()
//
//	handle.Inject()
//	interp, err := handle.Get(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := interp.Exec(ctx, `print("hello")`, "")
//
// # Isolation
//
// Runs have no filesystem, network or environment access. Each run gets a
// new module instance, so no state survives between runs.
package interpreter
