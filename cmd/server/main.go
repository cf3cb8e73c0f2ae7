// server is the oss-insights MCP server binary. It serves open source
// repository metrics and analytics to MCP clients over stdio or HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fredcamaral/gomcp-sdk/transport"

	"oss-insights-mcp/internal/api"
	"oss-insights-mcp/internal/config"
	"oss-insights-mcp/internal/mcp"
)

func main() {
	var (
		mode = flag.String("mode", "stdio", "Server mode: stdio or http")
		addr = flag.String("addr", ":9080", "HTTP server address (when mode=http)")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	metricsServer, err := mcp.NewMetricsServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create metrics server: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := metricsServer.Start(ctx); err != nil {
		log.Fatalf("Failed to start metrics server: %v", err)
	}

	switch *mode {
	case "stdio":
		err = runStdio(ctx, metricsServer)
	case "http":
		err = runHTTP(ctx, metricsServer, *addr)
	default:
		err = fmt.Errorf("invalid mode: %s (use 'stdio' or 'http')", *mode)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Server failed: %v", err)
	}

	if err := metricsServer.Shutdown(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}

func runStdio(ctx context.Context, metricsServer *mcp.MetricsServer) error {
	mcpServer := metricsServer.GetMCPServer()
	mcpServer.SetTransport(transport.NewStdioTransport())
	return mcpServer.Start(ctx)
}

func runHTTP(ctx context.Context, metricsServer *mcp.MetricsServer, addr string) error {
	router := api.NewRouter(metricsServer.GetMCPServer(), metricsServer.GetContainer())

	cfg := metricsServer.GetContainer().Config
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("MCP endpoint: http://localhost%s/mcp", addr)
		log.Printf("Health check: http://localhost%s/health", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()

	// The parent context is already cancelled, so shutdown gets its own.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
