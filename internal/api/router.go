// Package api exposes the HTTP surface of the server: the MCP JSON-RPC
// endpoint, an SSE stream, health checks, and cache administration.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fredcamaral/gomcp-sdk/protocol"
	"github.com/fredcamaral/gomcp-sdk/server"
	"github.com/gorilla/mux"

	"oss-insights-mcp/internal/di"
	stderrors "oss-insights-mcp/internal/errors"
	"oss-insights-mcp/internal/logging"
)

// Router builds the HTTP routes in front of the MCP server.
type Router struct {
	mcpServer *server.Server
	container *di.Container
	logger    logging.Logger
}

// NewRouter creates the HTTP router.
func NewRouter(mcpServer *server.Server, container *di.Container) *Router {
	return &Router{
		mcpServer: mcpServer,
		container: container,
		logger:    container.GetLogger().WithComponent("api"),
	}
}

// Handler returns the assembled route tree.
func (rt *Router) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(rt.traceMiddleware)

	r.HandleFunc("/mcp", rt.handleMCP).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/sse", rt.handleSSE).Methods(http.MethodGet, http.MethodPost, http.MethodOptions)
	r.HandleFunc("/health", rt.handleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/cache/stats", rt.handleCacheStats).Methods(http.MethodGet)
	v1.HandleFunc("/cache/sweep", rt.handleCacheSweep).Methods(http.MethodPost)

	return r
}

// traceMiddleware assigns each request a trace ID and logs completion.
func (rt *Router) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = logging.NewTraceID()
		}
		ctx := logging.WithTrace(r.Context(), traceID)
		w.Header().Set("X-Trace-ID", traceID)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		rt.logger.DebugContext(ctx, "request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Cache-Control")
}

// handleMCP serves JSON-RPC requests over plain HTTP.
func (rt *Router) handleMCP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req protocol.JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		stdErr := stderrors.NewValidationError("body", "invalid JSON-RPC request", nil).
			WithTraceID(logging.TraceID(r.Context()))
		stdErr.WriteHTTPError(w)
		return
	}

	resp := rt.mcpServer.HandleRequest(r.Context(), &req)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		rt.logger.ErrorContext(r.Context(), "encoding MCP response failed", "error", err.Error())
	}
}

// handleSSE serves an event stream on GET and JSON-RPC on POST, for MCP
// clients that speak the SSE transport.
func (rt *Router) handleSSE(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	case http.MethodPost:
		rt.handleMCP(w, r)
	default:
		rt.streamSSE(w, r)
	}
}

func (rt *Router) streamSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	fmt.Fprintf(w, "event: connected\ndata: {\"server\":\"oss-insights\"}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, "event: heartbeat\ndata: {\"time\":%d}\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

// handleHealth reports liveness plus dependency status.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if err := rt.container.HealthCheck(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		rt.logger.WarnContext(r.Context(), "health check failed", "error", err.Error())
	}

	writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (rt *Router) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.container.GetCache().Stats())
}

func (rt *Router) handleCacheSweep(w http.ResponseWriter, r *http.Request) {
	removed := rt.container.GetCache().SweepExpired()
	rt.logger.InfoContext(r.Context(), "cache sweep requested", "removed", removed)
	writeJSON(w, http.StatusOK, map[string]interface{}{"removed": removed})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
