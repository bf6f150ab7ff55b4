package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/drivesync/internal/shared"
)

func TestSheetsSource(t *testing.T) {
	t.Run("NewSheetsSource", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			src, err := NewSheetsSource("", "key", "sheet-id", "", nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if src.baseURL != defaultSheetsBaseURL {
				t.Errorf("expected default base URL, got %s", src.baseURL)
			}

			if src.sheetName != "Sheet1" {
				t.Errorf("expected default sheet name Sheet1, got %s", src.sheetName)
			}
		})

		t.Run("Missing API Key", func(t *testing.T) {
			_, err := NewSheetsSource("", "", "sheet-id", "", nil)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Spreadsheet ID", func(t *testing.T) {
			_, err := NewSheetsSource("", "key", "", "", nil)
			if err == nil {
				t.Error("expected error for missing spreadsheet id")
			}
		})
	})

	t.Run("Rows", func(t *testing.T) {
		t.Run("Returns Values", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.Contains(r.URL.Path, "/v4/spreadsheets/sheet-id/values/") {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if r.URL.Query().Get("key") != "key" {
					t.Errorf("expected api key query parameter")
				}

				json.NewEncoder(w).Encode(map[string]any{
					"values": [][]string{{"row1cell"}, {"row2cell"}},
				})
			}))
			defer server.Close()

			src, err := NewSheetsSource(server.URL, "key", "sheet-id", "Creatives", nil)
			if err != nil {
				t.Fatalf("failed to create source: %v", err)
			}

			rows, err := src.Rows(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(rows) != 2 {
				t.Errorf("expected 2 rows, got %d", len(rows))
			}
		})

		t.Run("Empty Sheet", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"range": "Sheet1!A2:AD"}`))
			}))
			defer server.Close()

			src, _ := NewSheetsSource(server.URL, "key", "sheet-id", "", nil)

			rows, err := src.Rows(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(rows) != 0 {
				t.Errorf("expected 0 rows, got %d", len(rows))
			}
		})

		t.Run("Non Success Status", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "forbidden", http.StatusForbidden)
			}))
			defer server.Close()

			src, _ := NewSheetsSource(server.URL, "key", "sheet-id", "", nil)

			_, err := src.Rows(context.Background())
			if !errors.Is(err, shared.ErrCatalogRead) {
				t.Errorf("expected ErrCatalogRead, got %v", err)
			}
		})

		t.Run("Malformed Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			}))
			defer server.Close()

			src, _ := NewSheetsSource(server.URL, "key", "sheet-id", "", nil)

			_, err := src.Rows(context.Background())
			if !errors.Is(err, shared.ErrCatalogRead) {
				t.Errorf("expected ErrCatalogRead, got %v", err)
			}
		})

		t.Run("Unreachable Server", func(t *testing.T) {
			src, _ := NewSheetsSource("http://127.0.0.1:1", "key", "sheet-id", "", nil)

			_, err := src.Rows(context.Background())
			if !errors.Is(err, shared.ErrCatalogRead) {
				t.Errorf("expected ErrCatalogRead, got %v", err)
			}
		})
	})
}
