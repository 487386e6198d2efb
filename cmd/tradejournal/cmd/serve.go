package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/tradejournal/api"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the journal commands over HTTP",
	Long: `Start the JSON HTTP API.

Endpoints:
  POST /api/v1/sessions/{session}/commands/{command}  {"args": "98.45"}
  GET  /api/v1/commands
  GET  /health

Example:
  tradejournal serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := api.NewServer(a.svc, a.engine,
		api.WithAllowedOrigins(a.cfg.Server.AllowedOrigins),
		api.WithLogger(a.log),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", addr)

	if err := srv.Serve(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
