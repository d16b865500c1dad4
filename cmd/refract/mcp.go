package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kharven/refract/internal/cli"
	"github.com/kharven/refract/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the exam engine over the Model Context Protocol",
	Long: `Starts the engine as an MCP server so AI agents can drive exam sessions
as tools: begin_exam, submit_response, escalate_exam, get_report.

Transports:
- stdio (default): JSON-RPC over stdin/stdout, for a locally spawned agent.
- sse: Server-Sent Events over HTTP, for remote agents and debugging.`,
	Run: func(cmd *cobra.Command, args []string) {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		opts := engineOptions(cmd)

		// MCP tool traffic owns stdout on the stdio transport; logs go to
		// stderr regardless.
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		slog.SetDefault(logger)

		engine, err := cli.CreateEngine(opts, logger)
		if err != nil {
			log.Fatalf("Error initializing engine: %v", err)
		}

		srv := mcp.NewServer(engine)

		switch transport {
		case "stdio":
			log.SetOutput(os.Stderr)
			slog.Info("refract MCP server on stdio")
			if err := srv.ServeStdio(); err != nil {
				slog.Error("mcp server failed", "err", err)
				os.Exit(1)
			}
		case "sse":
			slog.Info("refract MCP server on SSE", "port", port)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// ErrServerClosed is the interrupt-driven shutdown, not a
			// failure.
			if err := srv.ServeSSE(ctx, port); err != nil && err != http.ErrServerClosed {
				slog.Error("mcp server failed", "err", err)
				os.Exit(1)
			}
			slog.Info("mcp server stopped")
		default:
			log.Fatalf("unknown transport %q (supported: stdio, sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "transport to use: stdio or sse")
	mcpCmd.Flags().Int("port", 8080, "port to listen on (sse only)")
}
