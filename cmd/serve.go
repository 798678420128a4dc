package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/auto-analyst/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	Long:  `Starts the analyst server with a REST API for sessions and documents, a WebSocket conversation endpoint, and the audit timeline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		port := a.cfg.Server.Port
		if servePort > 0 {
			port = servePort
		}
		turnTimeout := 2*a.cfg.Collaborators.Deadline.Std() + time.Minute
		srv := server.New(server.Config{
			Port:        port,
			AllowAll:    a.cfg.Server.AllowAllOrigins,
			TurnTimeout: turnTimeout,
		}, a.service, a.audit, a.logger)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "analyst server v%s starting on port %d\n", Version, port)
		fmt.Fprintf(os.Stderr, "  Data: %s\n", a.cfg.DataDir)

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
