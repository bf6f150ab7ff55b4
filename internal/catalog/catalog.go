// package catalog reads the creative tracking spreadsheet and extracts Drive asset references.
//
// The spreadsheet is the source of truth for which media files exist. Each row
// references Drive files in fixed column positions (9:16 video, 4:5 video,
// static thumbnail, four carousel images); catalog turns those rows into a
// deduplicated, discovery-ordered list of assets for the sync engine.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/desertthunder/drivesync/internal/shared"
)

const defaultSheetsBaseURL string = "https://sheets.googleapis.com"

// Source provides the raw catalog rows.
//
// Implementations are read-only; the pipeline never writes back to the catalog.
type Source interface {
	// Rows returns all catalog rows, each an ordered slice of cell strings.
	Rows(ctx context.Context) ([][]string, error)
}

// SheetsSource implements [Source] against the Google Sheets values API.
type SheetsSource struct {
	baseURL       string
	apiKey        string
	spreadsheetID string
	sheetName     string
	httpClient    *http.Client
}

// NewSheetsSource creates a SheetsSource for the given spreadsheet.
//
// The base URL and HTTP client default to the public Sheets API and
// [http.DefaultClient] respectively.
func NewSheetsSource(baseURL, apiKey, spreadsheetID, sheetName string, client *http.Client) (*SheetsSource, error) {
	if apiKey == "" || spreadsheetID == "" {
		return nil, fmt.Errorf("%w: api key and spreadsheet id are required", shared.ErrMissingCredentials)
	}
	if baseURL == "" {
		baseURL = defaultSheetsBaseURL
	}
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &SheetsSource{
		baseURL:       baseURL,
		apiKey:        apiKey,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		httpClient:    client,
	}, nil
}

// Rows fetches all data rows from the spreadsheet.
//
// The range skips the header row and spans every column the row parser knows
// about. A sheet with no data rows yields an empty slice, not an error.
func (s *SheetsSource) Rows(ctx context.Context) ([][]string, error) {
	sheetRange := url.PathEscape(fmt.Sprintf("%s!A2:AD", s.sheetName))
	apiURL := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s?key=%s", s.baseURL, s.spreadsheetID, sheetRange, url.QueryEscape(s.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrCatalogRead, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCatalogRead, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: sheets API returned status %d", shared.ErrCatalogRead, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrCatalogRead, err)
	}

	var payload struct {
		Values [][]string `json:"values"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed sheets response: %v", shared.ErrCatalogRead, err)
	}

	return payload.Values, nil
}
