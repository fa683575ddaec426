package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/caffeineduck/coderunner/runner"
)

const editHelp = `Lines you type are appended to the snippet. Commands:
  :run     run the current snippet
  :show    print the current snippet
  :reset   restore the original snippet
  :clear   empty the snippet
  :help    show this help
  :quit    leave (also Ctrl+D)`

func newEditCmd(a *app) *cobra.Command {
	spec := &snippetSpec{allowEmpty: true}
	var historyFile string

	cmd := &cobra.Command{
		Use:   "edit [file]",
		Short: "Edit and run a snippet interactively",
		Long: `Open a snippet in an interactive widget: edit it line by line, run it,
and reset it to the original.

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - History search (Ctrl+R)

` + editHelp,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sn, err := spec.resolve(args, nil)
			if err != nil {
				return err
			}

			if historyFile == "" {
				home, _ := os.UserHomeDir()
				historyFile = filepath.Join(home, ".coderunner_history")
			}

			e := &editor{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
			r, err := a.newRunner(sn, runner.WithObserver(e.observe))
			if err != nil {
				return err
			}
			e.r = r

			rl, err := readline.NewEx(&readline.Config{
				Prompt:            "> ",
				HistoryFile:       historyFile,
				HistoryLimit:      1000,
				InterruptPrompt:   "^C",
				EOFPrompt:         ":quit",
				HistorySearchFold: true,
				Stdout:            cmd.OutOrStdout(),
				Stderr:            cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("initializing readline: %w", err)
			}
			defer rl.Close()

			e.banner()
			for {
				line, err := rl.Readline()
				if err == readline.ErrInterrupt {
					continue
				}
				if err == io.EOF {
					fmt.Fprintln(e.out)
					return nil
				}
				if err != nil {
					return fmt.Errorf("reading input: %w", err)
				}
				if e.handle(cmd.Context(), line) {
					return nil
				}
			}
		},
	}
	addSnippetFlags(cmd, spec)
	cmd.Flags().StringVar(&historyFile, "history", "", "History file path (default: ~/.coderunner_history)")
	return cmd
}

// editor is the terminal rendering of one snippet runner.
type editor struct {
	r      *runner.Runner
	out    io.Writer
	errOut io.Writer
}

func (e *editor) banner() {
	lang := e.r.Language()
	if title := e.r.Title(); title != "" {
		fmt.Fprintf(e.out, "%s (%s)\n", title, lang.Name)
	} else {
		fmt.Fprintf(e.out, "%s snippet\n", lang.Name)
	}
	fmt.Fprintln(e.out, "Type :help for commands.")
	if src := e.r.Source(); src != "" {
		e.show()
	}
}

func (e *editor) show() {
	src := e.r.Source()
	if src == "" {
		fmt.Fprintln(e.out, "(empty)")
		return
	}
	fmt.Fprint(e.out, src)
	if !strings.HasSuffix(src, "\n") {
		fmt.Fprintln(e.out)
	}
}

func (e *editor) observe(s runner.Snapshot) {
	if s.State != runner.StateRunning {
		return
	}
	if s.Output != "" {
		fmt.Fprintln(e.errOut, s.Output)
		return
	}
	fmt.Fprintln(e.errOut, "Running...")
}

// handle processes one input line and reports whether the user quit.
func (e *editor) handle(ctx context.Context, line string) bool {
	switch strings.TrimSpace(line) {
	case ":quit", ":q", ":exit":
		return true
	case ":run":
		snap, err := e.r.Submit(ctx)
		if err != nil {
			fmt.Fprintf(e.errOut, "Error: %v\n", err)
			return false
		}
		if err := printResult(e.out, e.errOut, snap); err != nil && !errors.Is(err, errRunFailed) {
			fmt.Fprintf(e.errOut, "Error: %v\n", err)
		}
	case ":show":
		e.show()
	case ":reset":
		e.r.Reset()
		e.show()
	case ":clear":
		e.r.SetSource("")
	case ":help":
		fmt.Fprintln(e.out, editHelp)
	default:
		if strings.HasPrefix(strings.TrimSpace(line), ":") {
			fmt.Fprintf(e.errOut, "unknown command %q (type :help)\n", strings.TrimSpace(line))
			return false
		}
		e.r.SetSource(e.r.Source() + line + "\n")
	}
	return false
}
