// Package mcp implements the Model Context Protocol surface of the
// metrics server: tool handlers, resources, and server lifecycle.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mcp "github.com/fredcamaral/gomcp-sdk"
	"github.com/fredcamaral/gomcp-sdk/protocol"
	"github.com/fredcamaral/gomcp-sdk/server"

	"oss-insights-mcp/internal/config"
	"oss-insights-mcp/internal/di"
	"oss-insights-mcp/internal/logging"
	"oss-insights-mcp/internal/metrics"
)

const (
	serverName    = "oss-insights"
	serverVersion = "1.0.0"
)

// MetricsServer is the MCP server exposing repository metrics tools.
type MetricsServer struct {
	container *di.Container
	mcpServer *server.Server
	logger    logging.Logger
}

// NewMetricsServer creates the server and registers all tools and resources.
func NewMetricsServer(cfg *config.Config) (*MetricsServer, error) {
	container, err := di.NewContainer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create DI container: %w", err)
	}

	ms := &MetricsServer{
		container: container,
		logger:    container.GetLogger().WithComponent("mcp"),
	}

	mcpServer := mcp.NewServer(serverName, serverVersion)
	if mcpServer == nil {
		_ = container.Shutdown()
		return nil, errors.New("failed to create MCP server instance")
	}
	ms.mcpServer = mcpServer

	ms.registerTools()
	ms.registerResources()

	ms.logger.Info("metrics server created",
		"tools", 5,
		"provider", cfg.Provider.BaseURL,
	)
	return ms, nil
}

// Start performs startup checks. The transport loop is driven by the caller.
func (ms *MetricsServer) Start(ctx context.Context) error {
	traceID := logging.TraceID(ctx)
	logger := ms.logger.WithTraceID(traceID)

	if err := ms.container.HealthCheck(ctx); err != nil {
		// Degraded dependencies are logged but do not block startup.
		logger.Warn("health check failed, continuing startup", "error", err.Error())
	}

	logger.Info("metrics server started")
	return nil
}

// Shutdown releases the server's resources.
func (ms *MetricsServer) Shutdown() error {
	return ms.container.Shutdown()
}

// GetMCPServer returns the underlying MCP server for transport wiring.
func (ms *MetricsServer) GetMCPServer() *server.Server {
	return ms.mcpServer
}

// GetContainer returns the DI container for accessing services.
func (ms *MetricsServer) GetContainer() *di.Container {
	return ms.container
}

// registerResources registers browsable MCP resources.
func (ms *MetricsServer) registerResources() {
	resources := []struct {
		uri         string
		name        string
		description string
		mimeType    string
	}{
		{
			uri:         "metrics://supported/metrics",
			name:        "Supported Metrics",
			description: "Metric names this server can fetch from the provider",
			mimeType:    "application/json",
		},
		{
			uri:         "metrics://cache/stats",
			name:        "Cache Statistics",
			description: "Hit/miss counters and entry stats for the metric cache",
			mimeType:    "application/json",
		},
	}

	for _, res := range resources {
		resource := mcp.NewResource(res.uri, res.name, res.description, res.mimeType)
		ms.mcpServer.AddResource(resource, mcp.ResourceHandlerFunc(ms.handleResourceRead))
	}
}

func (ms *MetricsServer) handleResourceRead(ctx context.Context, uri string) ([]protocol.Content, error) {
	parts := strings.Split(uri, "/")
	if len(parts) < 4 {
		return nil, fmt.Errorf("invalid resource URI: %s", uri)
	}

	switch parts[2] {
	case "supported":
		return jsonContent(map[string]interface{}{
			"metrics":   metrics.SupportedMetrics,
			"platforms": []string{"github", "gitee"},
		})
	case "cache":
		return jsonContent(ms.container.GetCache().Stats())
	default:
		return nil, fmt.Errorf("unknown resource type: %s", parts[2])
	}
}

func jsonContent(v interface{}) ([]protocol.Content, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return []protocol.Content{protocol.NewContent(string(data))}, nil
}

// cacheKey builds the canonical cache key for one metric of one repository.
func cacheKey(platform, owner, repo, metric string) string {
	return fmt.Sprintf("%s:%s/%s:%s", platform, owner, repo, metric)
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}
