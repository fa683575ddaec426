package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/coderunner/runner"
)

func newRunCmd(a *app) *cobra.Command {
	spec := &snippetSpec{}

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Run a snippet once",
		Long: `Run a code snippet and print its output.

Code can be provided via:
  - File argument: coderunner run hello.py
  - Inline flag: coderunner run -l python -c 'print(1+1)'
  - Manifest: coderunner run --snippets snippets.yaml --id hello
  - Stdin: echo 'print(1+1)' | coderunner run -l python

Output goes to stdout. A compile or runtime error, or a configuration error
such as a missing API key, goes to stderr and the exit status is 1.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sn, err := spec.resolve(args, pipedInput(cmd.InOrStdin()))
			if err != nil {
				return err
			}

			progress := cmd.ErrOrStderr()
			r, err := a.newRunner(sn, runner.WithObserver(func(s runner.Snapshot) {
				if s.State == runner.StateRunning && s.Output != "" {
					fmt.Fprintln(progress, s.Output)
				}
			}))
			if err != nil {
				return err
			}

			snap, err := r.Submit(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), snap)
		},
	}
	addSnippetFlags(cmd, spec)
	return cmd
}

// printResult writes output to out or an error to errOut. An error result
// returns errRunFailed.
func printResult(out, errOut io.Writer, snap runner.Snapshot) error {
	switch snap.State {
	case runner.StateError:
		fmt.Fprintln(errOut, strings.TrimRight(snap.Error, "\n"))
		return errRunFailed
	case runner.StateOutput:
		fmt.Fprint(out, snap.Output)
		if !strings.HasSuffix(snap.Output, "\n") {
			fmt.Fprintln(out)
		}
	}
	return nil
}
