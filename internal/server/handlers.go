package server

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/drivesync/internal/ledger"
	"github.com/desertthunder/drivesync/internal/shared"
	"github.com/desertthunder/drivesync/internal/tasks"
)

// SyncHandler triggers on-demand sync runs and reports sync status.
// Implements the Handler interface for registration with a Router.
type SyncHandler struct {
	engine    tasks.Engine
	processed ledger.Ledger
	batchSize int
	logger    *log.Logger

	mu   sync.Mutex
	last *tasks.RunSummary
}

// NewSyncHandler creates a SyncHandler with the given engine and default per-run cap.
func NewSyncHandler(engine tasks.Engine, processed ledger.Ledger, batchSize int, logger *log.Logger) *SyncHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &SyncHandler{
		engine:    engine,
		processed: processed,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *SyncHandler) Routes() []string {
	return []string{"/sync", "/sync/status"}
}

// ServeHTTP dispatches the sync trigger and status endpoints.
func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/sync" && r.Method == http.MethodPost:
		h.trigger(w, r)
	case r.URL.Path == "/sync/status" && r.Method == http.MethodGet:
		h.status(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// trigger runs one sync pass and writes the summary as JSON.
//
// The per-run cap defaults to the configured batch size; ?limit= overrides
// it for the single request. Run-level failures (catalog or ledger
// unreachable, commit failure) surface as 502.
func (h *SyncHandler) trigger(w http.ResponseWriter, r *http.Request) {
	batchSize := h.batchSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		batchSize = parsed
	}

	summary, err := h.engine.Run(r.Context(), nil, batchSize)
	if err != nil {
		h.logger.Error("sync run failed", "err", err)
		http.Error(w, "sync run failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	h.mu.Lock()
	h.last = summary
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, summary)
}

// status reports the ledger size and the most recent run summary.
func (h *SyncHandler) status(w http.ResponseWriter, r *http.Request) {
	ids, err := h.processed.ListProcessedIDs(r.Context())
	if err != nil {
		h.logger.Error("status read failed", "err", err)
		http.Error(w, "ledger unavailable", http.StatusBadGateway)
		return
	}

	h.mu.Lock()
	last := h.last
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"synced": len(ids),
		"last":   last,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := shared.MarshalJSON(data, false)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
	w.Write([]byte("\n"))
}

// Serve starts an HTTP server on addr with the given router, shutting down
// when ctx is cancelled.
func Serve(ctx context.Context, addr string, router Router, logger *log.Logger) error {
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	logger.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
