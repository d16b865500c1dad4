package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/kharven/refract/internal/cli"
	httpAdapter "github.com/kharven/refract/pkg/adapters/http"
	"github.com/kharven/refract/pkg/observability"
)

// shutdownGrace bounds how long a terminating server waits for in-flight
// requests.
const shutdownGrace = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the exam HTTP server",
	Long: `Starts the engine in server mode, exposing exam sessions over a JSON API
with an SSE event stream per session and Prometheus metrics on /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetString("port")

		opts := engineOptions(cmd)
		logger := cli.CreateLogger(opts.Debug)

		metrics := observability.NewMetrics(nil)
		opts.Hooks = metrics.Hooks()

		engine, err := cli.CreateEngine(opts, logger)
		if err != nil {
			fmt.Printf("Error initializing engine: %v\n", err)
			os.Exit(1)
		}

		handler, err := httpAdapter.NewHandler(engine)
		if err != nil {
			fmt.Printf("Error building HTTP handler: %v\n", err)
			os.Exit(1)
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/", handler)

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("Refract server listening on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nShutting down (%v)\n", sig)

			// In-flight exams get a grace period to finish their turn
			// before the listener is torn down.
			ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not finish in %v: %v\n", shutdownGrace, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error closing server: %v\n", err)
				}
			}
			fmt.Println("Refract server stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
