// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/desertthunder/drivesync/internal/ledger"
)

// MockSource is a test double for [catalog.Source] serving fixed rows.
type MockSource struct {
	RowsData [][]string
	Err      error
}

func (m *MockSource) Rows(ctx context.Context) ([][]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.RowsData, nil
}

// MockDownloader is a test double for the drive downloader.
//
// Returns Files[id] or FailIDs-listed errors; records call order.
type MockDownloader struct {
	Files   map[string][]byte
	FailIDs map[string]error
	Calls   []string
}

func (m *MockDownloader) Download(ctx context.Context, fileID string) ([]byte, error) {
	m.Calls = append(m.Calls, fileID)

	if err, ok := m.FailIDs[fileID]; ok {
		return nil, err
	}
	if data, ok := m.Files[fileID]; ok {
		return data, nil
	}
	return []byte(fileID + "-bytes"), nil
}

// MockUploader is a test double for [storage.Uploader] recording uploads.
type MockUploader struct {
	mu       sync.Mutex
	Uploads  map[string][]byte
	Types    map[string]string
	FailKeys map[string]error
}

func NewMockUploader() *MockUploader {
	return &MockUploader{
		Uploads: make(map[string][]byte),
		Types:   make(map[string]string),
	}
}

func (m *MockUploader) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.FailKeys[key]; ok {
		return err
	}

	m.Uploads[key] = body
	m.Types[key] = contentType
	return nil
}

// MockLedger is an in-memory test double for [ledger.Ledger].
type MockLedger struct {
	Records  []ledger.Record
	ListErr  error
	WriteErr error
}

func (m *MockLedger) ListProcessedIDs(ctx context.Context) ([]string, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	ids := make([]string, 0, len(m.Records))
	for _, record := range m.Records {
		ids = append(ids, record.FileID)
	}
	return ids, nil
}

func (m *MockLedger) MarkProcessed(ctx context.Context, records []ledger.Record) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Records = append(m.Records, records...)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}
