package main

import (
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"sqlerd/internal/server"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the schema and diagram API over HTTP",
		Long: `Serve starts an HTTP server with the endpoints

  POST /api/v1/schema                          SQL text in, table list out
  POST /api/v1/diagram?format=drawio|mermaid   SQL text in, diagram out
  GET  /healthz

Request bodies are plain SQL text, or JSON {"sql": "..."} when sent as
application/json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if !debug {
				gin.SetMode(gin.ReleaseMode)
			}
			opts, err := a.pipeline()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return server.New(a.cfg.Server, opts, a.logger).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default [server] addr, :8080)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Run gin in debug mode")
	return cmd
}
