// Package coderunner runs code snippets embedded in documentation pages and
// tutorials.
//
// # Overview
//
// A snippet is a piece of source code plus a language key. It can be edited,
// reset to its original text, and submitted. A submit goes to the Judge0 API
// when an API key is configured; without one, Python snippets run locally in
// a WebAssembly interpreter that is fetched once and shared by every snippet
// in the process, and other languages report that a key is required.
//
// # Basic Usage
//
//	handle := interpreter.NewHandle(python.Key, &interpreter.ModuleLoader{
//	    Lang:    python.New(),
//	    Fetcher: &interpreter.Fetcher{URL: python.DefaultModuleURL},
//	}, nil)
//
//	r, _ := runner.New(`print("hello")`, "python",
//	    runner.WithRemote(judge0.NewClient(judge0.Config{APIKey: key})),
//	    runner.WithLocal(handle))
//
//	snap, _ := r.Submit(ctx)
//	fmt.Println(snap.Text())
//
// See the [runner], [judge0], [interpreter] and [language] packages for
// detailed API documentation, and cmd/coderunner for the CLI and HTTP server.
package coderunner
