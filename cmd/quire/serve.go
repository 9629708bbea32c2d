package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/quire/pkg/adapters/memory"
	"github.com/aretw0/quire/pkg/adapters/rest"
	"github.com/aretw0/quire/pkg/adapters/session"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an in-memory notes server for local development",
	Long: `Serve runs the notes REST API over an in-memory store.
Notes are owned by the user id carried in the bearer token and are lost
when the server stops.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := memory.New(memory.WithOwnerResolver(func(credential string) (string, error) {
			user, err := session.DecodeClaims(credential)
			return user.ID, err
		}))
		handler := rest.NewHandler(store, rest.WithHandlerLogger(slog.Default().With("component", "server")))

		srv := &http.Server{
			Addr:              serveAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			slog.Info("serving notes", "addr", serveAddr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("serve: %w", err)
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		slog.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:8080", "Address to listen on")
}
