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

	"github.com/khanhnv2901/seca-suite/internal/api"
)

type serveOptions struct {
	CORSOrigins []string
	RateLimit   int
	RateBurst   int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run SECA-Suite as a REST API service",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		addr, _ := cmd.Flags().GetString("addr")
		shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
		corsOrigins, _ := cmd.Flags().GetStringSlice("cors-origins")
		rateLimit, _ := cmd.Flags().GetInt("rate-limit")
		rateBurst, _ := cmd.Flags().GetInt("rate-burst")

		server, err := newAPIServer(commandContext(cmd), appCtx, serveOptions{
			CORSOrigins: corsOrigins,
			RateLimit:   rateLimit,
			RateBurst:   rateBurst,
		})
		if err != nil {
			return err
		}
		defer server.Close()

		// no WriteTimeout: /jobs-stream holds the connection open
		httpServer := &http.Server{
			Addr:              addr,
			Handler:           server,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		// Channel to listen for errors from the server
		serverErrors := make(chan error, 1)

		out := cmd.OutOrStdout()
		go func() {
			fmt.Fprintf(out, "%s API server listening on %s (data dir: %s)\n", colorInfo("→"), addr, appCtx.DataDir)
			fmt.Fprintf(out, "%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Fprintf(out, "\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				// Force close if graceful shutdown fails
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Fprintf(out, "%s Server shutdown complete\n", colorSuccess("✓"))
		}

		return nil
	},
}

// newAPIServer wires the container services into the HTTP API
func newAPIServer(ctx context.Context, appCtx *AppContext, opts serveOptions) (*api.Server, error) {
	c, err := appCtx.Container(ctx)
	if err != nil {
		return nil, err
	}
	if len(appCtx.Config.Gate.Users) == 0 {
		appCtx.Logger.Warnw("no gate users configured; every login will be rejected",
			"hint", "add gate.users entries with `seca-suite auth hash-password`")
	}

	return api.NewServer(api.Config{
		Gate:        c.GateService,
		Scans:       c.ScanService,
		Blog:        c.BlogService,
		Jobs:        api.NewJobManager(),
		Logger:      appCtx.zapLogger().Named("api"),
		CORSOrigins: opts.CORSOrigins,
		RateLimit:   opts.RateLimit,
		RateBurst:   opts.RateBurst,
	}), nil
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Address for the API server")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	serveCmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	serveCmd.Flags().Int("rate-limit", 10, "Rate limit per IP (requests/second, 0 = disabled)")
	serveCmd.Flags().Int("rate-burst", 20, "Rate limit burst size")
	rootCmd.AddCommand(serveCmd)
}
