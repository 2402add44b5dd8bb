package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// HTTPServer exposes a Dispatcher over a single HTTP POST endpoint. Protocol
// errors are carried in the JSON body; the transport always answers 200 for
// parseable and unparseable requests alike.
type HTTPServer struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
	httpServer *http.Server
}

// NewHTTPServer creates an HTTP server wrapping the dispatcher.
func NewHTTPServer(dispatcher *Dispatcher, addr string, logger *slog.Logger) (result *HTTPServer) {
	result = &HTTPServer{
		dispatcher: dispatcher,
		logger:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", result.handleRPC)
	mux.HandleFunc("/events", result.handleEvents)
	mux.HandleFunc("/health", result.handleHealth)

	result.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return result
}

// Start starts the HTTP server and blocks until it stops.
func (h *HTTPServer) Start(ctx context.Context) (err error) {
	h.logger.InfoContext(ctx, "starting RPC server", slog.String("addr", h.httpServer.Addr))

	err = h.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}

	err = nil
	return err
}

// Shutdown gracefully shuts down the HTTP server.
func (h *HTTPServer) Shutdown(ctx context.Context) (err error) {
	h.logger.InfoContext(ctx, "shutting down RPC server")

	err = h.httpServer.Shutdown(ctx)
	return err
}

// Run starts the server and shuts it down when the context is cancelled.
func (h *HTTPServer) Run(ctx context.Context) (err error) {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = h.Shutdown(shutdownCtx)
	}()

	err = h.Start(ctx)
	return err
}

// handleRPC decodes one request, dispatches it and writes the response.
func (h *HTTPServer) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request Request

	decoder := json.NewDecoder(r.Body)

	err := decoder.Decode(&request)
	if err != nil {
		h.logger.Warn("unparseable request body", slog.String("error", err.Error()))
		h.writeResponse(w, h.dispatcher.ParseErrorResponse(r.RemoteAddr))
		return
	}

	h.logger.Info("received RPC request",
		slog.String("method", request.Method),
		slog.Any("id", request.ID))

	response := h.dispatcher.Dispatch(r.Context(), request)
	h.writeResponse(w, response)
}

// handleEvents emits a single SSE heartbeat frame.
func (h *HTTPServer) handleEvents(w http.ResponseWriter, _ *http.Request) {
	h.dispatcher.events.Log("sse_heartbeat", nil)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	_, _ = fmt.Fprint(w, "data: {\"event\": \"heartbeat\"}\n\n")
}

// handleHealth returns server health status.
func (h *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := map[string]interface{}{
		"status":  "healthy",
		"service": ServerName,
	}

	encoder := json.NewEncoder(w)
	_ = encoder.Encode(response)
}

// writeResponse serializes a response with HTTP 200 regardless of whether it
// carries a result or a protocol-level error.
func (h *HTTPServer) writeResponse(w http.ResponseWriter, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	encoder := json.NewEncoder(w)

	err := encoder.Encode(response)
	if err != nil {
		h.logger.Error("failed to write response", slog.String("error", err.Error()))
	}
}
