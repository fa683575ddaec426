package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/coderunner/internal/metrics"
	"github.com/caffeineduck/coderunner/internal/server"
	"github.com/caffeineduck/coderunner/snippet"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		host     string
		port     int
		snippets string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server for snippet widgets",
		Long: `Start an HTTP server that runs snippets and hosts editable widgets.

Endpoints:
  GET    /health                Health check
  GET    /languages             Language table
  GET    /snippets              Snippets from the manifest
  POST   /execute               Run a snippet once
  POST   /widgets               Create widget, returns its id and state
  GET    /widgets/{id}          Widget state
  PUT    /widgets/{id}/source   Replace the editable source
  POST   /widgets/{id}/reset    Restore the original source
  POST   /widgets/{id}/submit   Run the current source (409 while running)
  DELETE /widgets/{id}          Drop widget
  GET    /metrics               Prometheus metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Server
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("snippets") {
				cfg.Snippets = snippets
			}

			var manifest *snippet.File
			if cfg.Snippets != "" {
				f, err := snippet.Load(cfg.Snippets)
				if err != nil {
					return err
				}
				manifest = f
			}

			local := a.local()
			local.Inject()

			srv := server.New(cfg.Addr(), cfg.Mode, server.Deps{
				Remote:    a.cfg.Judge0.Client(),
				Local:     local,
				Snippets:  manifest,
				Metrics:   metrics.New(),
				Logger:    a.logger,
				WidgetTTL: cfg.TTL(),
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host to listen on (default from config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVar(&snippets, "snippets", "", "Snippet manifest to serve")
	return cmd
}
