package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/drivesync/internal/shared"
	"github.com/desertthunder/drivesync/internal/tasks"
	tu "github.com/desertthunder/drivesync/internal/testing"
)

// stubEngine is a canned tasks.Engine for handler tests.
type stubEngine struct {
	summary  *tasks.RunSummary
	err      error
	runCount atomic.Int64
	lastCap  atomic.Int64
}

func (s *stubEngine) Run(ctx context.Context, progress chan<- tasks.ProgressUpdate, batchSize int) (*tasks.RunSummary, error) {
	s.runCount.Add(1)
	s.lastCap.Store(int64(batchSize))
	if s.err != nil {
		return nil, s.err
	}
	return s.summary, nil
}

func (s *stubEngine) Migrate(ctx context.Context, progress chan<- tasks.ProgressUpdate, opts tasks.MigrateOpts) (*tasks.MigrateResult, error) {
	return nil, shared.ErrNotImplemented
}

func TestSyncHandler(t *testing.T) {
	logger := shared.NewLogger(&tu.FWriter{})

	t.Run("Trigger Returns Summary", func(t *testing.T) {
		engine := &stubEngine{summary: &tasks.RunSummary{RunID: "r1", Processed: 3, Failed: []string{"bad"}}}
		handler := NewSyncHandler(engine, &tu.MockLedger{}, 10, logger)

		req := httptest.NewRequest(http.MethodPost, "/sync", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var summary tasks.RunSummary
		if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
			t.Fatalf("response should be JSON: %v", err)
		}

		if summary.Processed != 3 {
			t.Errorf("expected 3 processed, got %d", summary.Processed)
		}

		if engine.lastCap.Load() != 10 {
			t.Errorf("expected default cap 10, got %d", engine.lastCap.Load())
		}
	})

	t.Run("Limit Override", func(t *testing.T) {
		engine := &stubEngine{summary: &tasks.RunSummary{}}
		handler := NewSyncHandler(engine, &tu.MockLedger{}, 10, logger)

		req := httptest.NewRequest(http.MethodPost, "/sync?limit=50", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if engine.lastCap.Load() != 50 {
			t.Errorf("expected cap 50, got %d", engine.lastCap.Load())
		}
	})

	t.Run("Invalid Limit", func(t *testing.T) {
		engine := &stubEngine{summary: &tasks.RunSummary{}}
		handler := NewSyncHandler(engine, &tu.MockLedger{}, 10, logger)

		req := httptest.NewRequest(http.MethodPost, "/sync?limit=zero", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		if engine.runCount.Load() != 0 {
			t.Error("engine should not run for an invalid limit")
		}
	})

	t.Run("Run Failure Maps To 502", func(t *testing.T) {
		engine := &stubEngine{err: shared.ErrCatalogRead}
		handler := NewSyncHandler(engine, &tu.MockLedger{}, 10, logger)

		req := httptest.NewRequest(http.MethodPost, "/sync", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
	})

	t.Run("Status Reports Ledger And Last Run", func(t *testing.T) {
		engine := &stubEngine{summary: &tasks.RunSummary{RunID: "r1", Processed: 2}}
		processed := &tu.MockLedger{}
		handler := NewSyncHandler(engine, processed, 10, logger)

		// Trigger once so there is a last summary.
		trigger := httptest.NewRequest(http.MethodPost, "/sync", nil)
		handler.ServeHTTP(httptest.NewRecorder(), trigger)

		req := httptest.NewRequest(http.MethodGet, "/sync/status", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var status struct {
			Synced int               `json:"synced"`
			Last   *tasks.RunSummary `json:"last"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("response should be JSON: %v", err)
		}

		if status.Last == nil || status.Last.RunID != "r1" {
			t.Errorf("expected last run r1, got %+v", status.Last)
		}
	})

	t.Run("Wrong Method", func(t *testing.T) {
		handler := NewSyncHandler(&stubEngine{}, &tu.MockLedger{}, 10, logger)

		req := httptest.NewRequest(http.MethodGet, "/sync", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestScheduler(t *testing.T) {
	t.Run("Fires And Stops", func(t *testing.T) {
		engine := &stubEngine{summary: &tasks.RunSummary{}}
		logger := shared.NewLogger(&tu.FWriter{})

		s := NewScheduler(engine, 10*time.Millisecond, 5, logger)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			s.Start(ctx)
			close(done)
		}()

		// Let a few ticks fire.
		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("scheduler did not stop on cancel")
		}

		if engine.runCount.Load() == 0 {
			t.Error("scheduler should have fired at least once")
		}

		if engine.lastCap.Load() != 5 {
			t.Errorf("expected cap 5, got %d", engine.lastCap.Load())
		}
	})

	t.Run("Survives Run Failures", func(t *testing.T) {
		engine := &stubEngine{err: shared.ErrCatalogRead}
		logger := shared.NewLogger(&tu.FWriter{})

		s := NewScheduler(engine, 10*time.Millisecond, 5, logger)

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
		defer cancel()

		s.Start(ctx)

		if engine.runCount.Load() < 2 {
			t.Errorf("scheduler should keep firing after failures, got %d runs", engine.runCount.Load())
		}
	})
}

func TestRouter(t *testing.T) {
	t.Run("Method Filtering", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodPost, "/only-post", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/only-post", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/only-post", nil))
		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rec.Code)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		router := NewBasicRouter()

		var order []string
		mk := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router.Use(mk("first"), mk("second"))
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("expected [first second], got %v", order)
		}
	})
}
