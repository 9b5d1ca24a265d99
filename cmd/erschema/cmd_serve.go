package main

import (
	"expvar"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/erschema/internal/api"
	"github.com/ajitpratap0/erschema/internal/converter"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP/JSON API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("serve: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()
			if err := st.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("serve: preparing store: %w", err)
			}

			srv := api.NewServer(st, converter.New(logger), newAdvisor(logger), logger, api.Options{
				AuthToken:    cfg.API.AuthToken,
				MaxBodyBytes: cfg.API.MaxBodyBytes,
				MaxRounds:    cfg.Resolve.MaxRounds,
			})

			if cfg.API.AuthToken == "" {
				logger.Warn("HTTP API: auth is DISABLED; set ERSCHEMA_API_AUTH_TOKEN or api.auth_token for production use")
			}

			mux := http.NewServeMux()
			mux.Handle("/debug/vars", expvar.Handler())
			mux.Handle("/", srv.Handler())

			httpSrv := &http.Server{
				Addr:              cfg.API.ListenAddr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      120 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("HTTP API server starting", "addr", cfg.API.ListenAddr)
				if listenErr := httpSrv.ListenAndServe(); listenErr != nil && listenErr != http.ErrServerClosed {
					errCh <- fmt.Errorf("serve: HTTP server: %w", listenErr)
				}
				close(errCh)
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
			case startErr := <-errCh:
				return startErr
			}

			const shutdownTimeout = 10 * time.Second
			if shutdownErr := api.Shutdown(httpSrv, shutdownTimeout); shutdownErr != nil {
				return fmt.Errorf("serve: graceful shutdown: %w", shutdownErr)
			}

			if startErr := <-errCh; startErr != nil {
				return startErr
			}
			return nil
		},
	}
	return cmd
}
