package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/coderunner/internal/config"
	"github.com/caffeineduck/coderunner/interpreter"
	"github.com/caffeineduck/coderunner/language"
	"github.com/caffeineduck/coderunner/runner"
	"github.com/caffeineduck/coderunner/snippet"
)

// errRunFailed marks a run whose error has already been shown to the user.
var errRunFailed = errors.New("run failed")

// app carries what every command needs once config is loaded.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
	handle *interpreter.Handle
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "coderunner",
		Short: "Run code snippets locally or through Judge0",
		Long: `coderunner - Run code snippets in 15 languages.

With a Judge0 API key every language runs on the remote service. Without
one, Python still runs locally in a WebAssembly interpreter; other languages
report that a key is required.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	root.AddCommand(
		newRunCmd(a),
		newEditCmd(a),
		newServeCmd(a),
		newLanguagesCmd(),
		newRuntimeCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.logger = cfg.Log.Logger(cmd.ErrOrStderr())
	return nil
}

// local returns the process-wide interpreter handle, creating it on first use.
func (a *app) local() *interpreter.Handle {
	if a.handle == nil {
		a.handle = a.cfg.Local.Handle(a.logger)
	}
	return a.handle
}

func (a *app) teardown(cmd *cobra.Command, args []string) error {
	if a.handle == nil {
		return nil
	}
	return a.handle.Close()
}

// snippetSpec is where a command's code comes from.
type snippetSpec struct {
	code      string
	file      string
	lang      string
	stdin     string
	stdinFile string
	snippets  string
	id        string
	title     string

	// allowEmpty accepts a snippet with no code yet.
	allowEmpty bool
}

func addSnippetFlags(cmd *cobra.Command, s *snippetSpec) {
	cmd.Flags().StringVarP(&s.code, "code", "c", "", "Code to run")
	cmd.Flags().StringVarP(&s.lang, "lang", "l", "", "Language key or alias (default: from file extension)")
	cmd.Flags().StringVar(&s.stdin, "stdin", "", "Standard input for the program")
	cmd.Flags().StringVar(&s.stdinFile, "stdin-file", "", "Read the program's standard input from a file")
	cmd.Flags().StringVar(&s.snippets, "snippets", "", "Snippet manifest (YAML)")
	cmd.Flags().StringVar(&s.id, "id", "", "Snippet id in the manifest")
	cmd.Flags().StringVar(&s.title, "title", "", "Snippet title")
}

// resolve turns the flags, an optional file argument and piped input into
// the snippet to run. in is read only when nothing else names the code.
func (s *snippetSpec) resolve(args []string, in io.Reader) (snippet.Snippet, error) {
	var sn snippet.Snippet

	switch {
	case s.snippets != "" || s.id != "":
		if s.snippets == "" || s.id == "" {
			return sn, fmt.Errorf("--snippets and --id must be used together")
		}
		f, err := snippet.Load(s.snippets)
		if err != nil {
			return sn, err
		}
		if sn, err = f.Get(s.id); err != nil {
			return sn, err
		}
	case s.code != "":
		sn.Code = s.code
	case len(args) > 0:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return sn, err
		}
		sn.Code = string(data)
		s.file = args[0]
	case in != nil:
		data, err := io.ReadAll(in)
		if err != nil {
			return sn, fmt.Errorf("read stdin: %w", err)
		}
		sn.Code = string(data)
	}
	if strings.TrimSpace(sn.Code) == "" && !s.allowEmpty {
		return sn, fmt.Errorf("no code given: use --code, a file argument, --snippets with --id, or pipe code on stdin")
	}

	if s.lang != "" {
		sn.Language = s.lang
	}
	if sn.Language == "" && s.file != "" {
		if d, ok := language.FromExt(s.file); ok {
			sn.Language = d.Key
		}
	}
	if sn.Language == "" {
		return sn, fmt.Errorf("language required: use --lang (one of %s)", strings.Join(language.Keys(), ", "))
	}
	d, err := language.Resolve(sn.Language)
	if err != nil {
		return sn, err
	}
	sn.Language = d.Key

	if s.title != "" {
		sn.Title = s.title
	}
	switch {
	case s.stdinFile != "":
		data, err := os.ReadFile(s.stdinFile)
		if err != nil {
			return sn, err
		}
		sn.Stdin = string(data)
	case s.stdin != "":
		sn.Stdin = s.stdin
	}
	return sn, nil
}

func (a *app) newRunner(sn snippet.Snippet, opts ...runner.Option) (*runner.Runner, error) {
	base := []runner.Option{
		runner.WithTitle(sn.Title),
		runner.WithStdin(sn.Stdin),
		runner.WithRemote(a.cfg.Judge0.Client()),
		runner.WithLocal(a.local()),
		runner.WithLogger(a.logger),
	}
	return runner.New(sn.Code, sn.Language, append(base, opts...)...)
}

// pipedInput returns r when it is not an interactive terminal.
func pipedInput(r io.Reader) io.Reader {
	f, ok := r.(*os.File)
	if !ok {
		return r
	}
	stat, err := f.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return nil
	}
	return r
}
