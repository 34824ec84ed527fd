package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mfenderov/ragchat/internal/server"
	"github.com/spf13/cobra"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Routes:
  POST /auth/register, POST /auth/login
  POST /chat, GET /documents, POST /upload, POST /delete (bearer token)
  GET /healthz, GET /metrics

Example:
  ragchat serve --listen :8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default from server.listen)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	addr := serveListen
	if addr == "" {
		addr = cfg.Server.Listen
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	a.prepare(ctx)

	srv := server.New(server.Options{
		Accounts:    a.accounts,
		Documents:   a.docs,
		Asker:       a.pipeline,
		Recorder:    a.metrics,
		Metrics:     a.metrics.Handler(),
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s\n", addr)

	return srv.Start(ctx, addr)
}
