package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newRuntimeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runtime",
		Short: "Manage the local interpreter",
		Long: `Manage the WebAssembly interpreter used to run Python without an API key.

The interpreter is downloaded from local.module_url on first use and kept in
local.cache_dir. "fetch" downloads it ahead of time; "clear" removes the
download and the compiled code cache.`,
	}

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the interpreter module",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.cfg.Local.Fetcher(a.logger).Ensure(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show where the interpreter module lives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := a.cfg.Local.Fetcher(a.logger)
			state := "not fetched"
			if f.Cached() {
				state = "ready"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "url:    %s\n", f.URL)
			fmt.Fprintf(out, "path:   %s\n", f.Path())
			fmt.Fprintf(out, "status: %s\n", state)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the downloaded interpreter and compiled cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Local.Fetcher(a.logger).Clear(); err != nil {
				return fmt.Errorf("clear modules: %w", err)
			}
			if err := os.RemoveAll(filepath.Join(a.cfg.Local.CacheDir, "compiled")); err != nil {
				return fmt.Errorf("clear compiled cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Interpreter cache cleared.")
			return nil
		},
	}

	cmd.AddCommand(fetchCmd, statusCmd, clearCmd)
	return cmd
}
