package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caffeineduck/coderunner/interpreter"
	"github.com/caffeineduck/coderunner/runner"
)

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func executeCommand(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return cliResult{stdout: out.String(), stderr: errOut.String(), err: err}
}

// isolate points config at a temp cache and a local test interpreter that
// prints stdout.
func isolate(t *testing.T, stdout string) string {
	t.Helper()
	dir := t.TempDir()
	module := filepath.Join(dir, "python.wasm")
	require.NoError(t, os.WriteFile(module, interpreter.TestModule{Stdout: stdout}.Bytes(), 0o644))

	t.Setenv("XDG_CACHE_HOME", dir)
	t.Setenv("CODERUNNER_LOCAL__MODULE_URL", module)
	t.Setenv("CODERUNNER_LOCAL__CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("CODERUNNER_JUDGE0__API_KEY", "")
	t.Setenv("CODERUNNER_LOG__LEVEL", "error")
	return dir
}

func judge0Server(t *testing.T, stdout string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"stdout": base64.StdEncoding.EncodeToString([]byte(stdout)),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCLIHelp(t *testing.T) {
	isolate(t, "")
	res := executeCommand(t, "", "--help")
	require.NoError(t, res.err)

	for _, phrase := range []string{"coderunner", "Judge0", "run", "edit", "serve", "languages", "runtime"} {
		assert.Contains(t, res.stdout, phrase)
	}
}

func TestCLIRunHelp(t *testing.T) {
	isolate(t, "")
	res := executeCommand(t, "", "run", "--help")
	require.NoError(t, res.err)

	for _, phrase := range []string{"--code", "--lang", "--stdin", "--stdin-file", "--snippets", "--id"} {
		assert.Contains(t, res.stdout, phrase)
	}
}

func TestCLIServeHelp(t *testing.T) {
	isolate(t, "")
	res := executeCommand(t, "", "serve", "--help")
	require.NoError(t, res.err)

	for _, phrase := range []string{"--port", "/execute", "/widgets", "/metrics"} {
		assert.Contains(t, res.stdout, phrase)
	}
}

func TestCLILanguages(t *testing.T) {
	isolate(t, "")
	res := executeCommand(t, "", "languages")
	require.NoError(t, res.err)

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	assert.Len(t, lines, 16)
	assert.Contains(t, res.stdout, "python")
	assert.Contains(t, res.stdout, "csharp")
}

func TestCLIRunLocal(t *testing.T) {
	isolate(t, "2\n")
	res := executeCommand(t, "", "run", "-l", "py", "-c", "print(1+1)")
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, "2\n", res.stdout)
	assert.Contains(t, res.stderr, "Loading Python...")
}

func TestCLIRunLocalNoOutput(t *testing.T) {
	isolate(t, "")
	res := executeCommand(t, "", "run", "-l", "python", "-c", "x = 1")
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, runner.NoOutput+"\n", res.stdout)
}

func TestCLIRunMissingCredentials(t *testing.T) {
	isolate(t, "")
	res := executeCommand(t, "", "run", "-l", "go", "-c", "package main")
	assert.ErrorIs(t, res.err, errRunFailed)
	assert.Contains(t, res.stderr, "API key required for this language")
	assert.Empty(t, res.stdout)
}

func TestCLIRunRemote(t *testing.T) {
	isolate(t, "local\n")
	srv := judge0Server(t, "remote\n")
	t.Setenv("CODERUNNER_JUDGE0__BASE_URL", srv.URL)
	t.Setenv("CODERUNNER_JUDGE0__API_KEY", "k")

	res := executeCommand(t, "", "run", "-l", "rust", "-c", `fn main() { println!("remote"); }`)
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, "remote\n", res.stdout)
}

func TestCLIRunFileAutoDetect(t *testing.T) {
	dir := isolate(t, "from file\n")
	file := filepath.Join(dir, "hello.py")
	require.NoError(t, os.WriteFile(file, []byte("print('from file')"), 0o644))

	res := executeCommand(t, "", "run", file)
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, "from file\n", res.stdout)
}

func TestCLIRunPipedCode(t *testing.T) {
	isolate(t, "piped\n")
	res := executeCommand(t, "print('piped')", "run", "--lang", "python")
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, "piped\n", res.stdout)
}

func TestCLIRunSnippetManifest(t *testing.T) {
	dir := isolate(t, "hi\n")
	manifest := filepath.Join(dir, "snippets.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
snippets:
  - id: hi
    language: python
    code: print("hi")
`), 0o644))

	res := executeCommand(t, "", "run", "--snippets", manifest, "--id", "hi")
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, "hi\n", res.stdout)

	res = executeCommand(t, "", "run", "--snippets", manifest, "--id", "missing")
	assert.Error(t, res.err)

	res = executeCommand(t, "", "run", "--id", "hi")
	assert.ErrorContains(t, res.err, "--snippets and --id must be used together")
}

func TestCLIRunLanguageRequired(t *testing.T) {
	isolate(t, "")
	res := executeCommand(t, "", "run", "-c", "print(1)")
	assert.ErrorContains(t, res.err, "language required")
}

func TestCLIRunUnknownLanguage(t *testing.T) {
	isolate(t, "")
	res := executeCommand(t, "", "run", "-l", "cobol", "-c", "x")
	assert.ErrorContains(t, res.err, "unknown language")
}

func TestCLIRunNoCode(t *testing.T) {
	isolate(t, "")
	res := executeCommand(t, "", "run", "-l", "python")
	assert.ErrorContains(t, res.err, "no code given")
}

func TestCLIRuntimeFetchAndStatus(t *testing.T) {
	dir := isolate(t, "")
	module := filepath.Join(dir, "python.wasm")

	res := executeCommand(t, "", "runtime", "fetch")
	require.NoError(t, res.err)
	assert.Equal(t, module+"\n", res.stdout)

	res = executeCommand(t, "", "runtime", "status")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "status: ready")

	res = executeCommand(t, "", "runtime", "clear")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "cleared")
	assert.FileExists(t, module)
}

func TestCLIBadLogLevel(t *testing.T) {
	isolate(t, "")
	res := executeCommand(t, "", "--log-level", "loud", "languages")
	assert.ErrorContains(t, res.err, "invalid log.level")
}

func newTestEditor(t *testing.T, code string, opts ...runner.Option) (*editor, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	e := &editor{out: &out, errOut: &errOut}
	r, err := runner.New(code, "python", append(opts, runner.WithObserver(e.observe))...)
	require.NoError(t, err)
	e.r = r
	return e, &out, &errOut
}

func TestEditorEditing(t *testing.T) {
	e, out, _ := newTestEditor(t, "a = 1\n")
	ctx := context.Background()

	assert.False(t, e.handle(ctx, "print(a)"))
	assert.Equal(t, "a = 1\nprint(a)\n", e.r.Source())

	e.handle(ctx, ":show")
	assert.Contains(t, out.String(), "a = 1\nprint(a)\n")

	e.handle(ctx, ":reset")
	assert.Equal(t, "a = 1\n", e.r.Source())

	e.handle(ctx, ":clear")
	assert.Equal(t, "", e.r.Source())
	assert.Equal(t, "a = 1\n", e.r.Original())

	assert.True(t, e.handle(ctx, ":quit"))
}

func TestEditorUnknownCommand(t *testing.T) {
	e, _, errOut := newTestEditor(t, "")
	e.handle(context.Background(), ":frobnicate")
	assert.Contains(t, errOut.String(), "unknown command")
	assert.Equal(t, "", e.r.Source())
}

func TestEditorRun(t *testing.T) {
	loader := &interpreter.StaticLoader{Module: interpreter.TestModule{Stdout: "ok\n"}.Bytes()}
	handle := interpreter.NewHandle("python", loader, nil)
	t.Cleanup(func() { handle.Close() })

	e, out, errOut := newTestEditor(t, "print('ok')", runner.WithLocal(handle))
	e.banner()
	assert.Contains(t, out.String(), "Python snippet")

	e.handle(context.Background(), ":run")
	assert.Contains(t, out.String(), "ok\n")
	assert.Contains(t, errOut.String(), "Loading Python...")

	e.handle(context.Background(), ":run")
	assert.Contains(t, errOut.String(), "Running...")
}

func TestEditorRunError(t *testing.T) {
	e, _, errOut := newTestEditor(t, "print(1)")
	e.handle(context.Background(), ":run")
	assert.Contains(t, errOut.String(), "API key required")
	assert.NotContains(t, errOut.String(), errRunFailed.Error())
}
