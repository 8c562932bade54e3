package providers

import (
	"context"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker"

	"github.com/i474232898/wellness-van-map/internal/sheets"
)

// SheetsSource implements outreach.SheetSource for a Google spreadsheet.
// The wire format is fixed at construction from whether an API key is set.
type SheetsSource struct {
	sheetID string
	apiKey  string
	format  sheets.Format
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker

	// urlFor builds the request URL of a tab; tests point it at a local server.
	urlFor func(tab string) string
}

// NewSheetsSource creates a source for the given spreadsheet.
func NewSheetsSource(client *http.Client, sheetID, apiKey string) *SheetsSource {
	s := &SheetsSource{
		sheetID: sheetID,
		apiKey:  apiKey,
		format:  sheets.FormatFor(apiKey),
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newCircuitBreaker("google-sheets"),
	}
	s.urlFor = func(tab string) string {
		return sheets.SheetURL(s.format, s.sheetID, s.apiKey, tab)
	}
	return s
}

// Format reports which wire format the source reads.
func (s *SheetsSource) Format() sheets.Format {
	return s.format
}

// Fetch downloads and parses one tab. A malformed body is returned as a
// *sheets.ParseError.
func (s *SheetsSource) Fetch(ctx context.Context, dataset string) ([]sheets.Row, error) {
	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, s.urlFor(dataset), nil)
		if err != nil {
			return nil, eris.Wrap(err, "sheets: build request")
		}
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, s.httpCfg, s.circuit, buildRequest)
	if err != nil {
		return nil, eris.Wrapf(err, "sheets: fetch %q", dataset)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "sheets: read %q", dataset)
	}

	return sheets.Parse(s.format, body)
}
