package sheets

import (
	"fmt"
	"net/url"
)

// Format identifies which wire format a spreadsheet payload uses.
type Format int

const (
	// FormatPublicExport is the unauthenticated visualization export
	// (gviz/tq) of a published sheet.
	FormatPublicExport Format = iota
	// FormatAPIKey is the Sheets v4 values API.
	FormatAPIKey
)

const (
	apiBaseURL    = "https://sheets.googleapis.com/v4/spreadsheets"
	exportBaseURL = "https://docs.google.com/spreadsheets/d"
)

// FormatFor picks the format from configuration: an API key selects the
// values API, otherwise the public export is used.
func FormatFor(apiKey string) Format {
	if apiKey != "" {
		return FormatAPIKey
	}
	return FormatPublicExport
}

func (f Format) String() string {
	switch f {
	case FormatAPIKey:
		return "api-key"
	case FormatPublicExport:
		return "public-export"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// SheetURL builds the request URL for one tab of a spreadsheet.
func SheetURL(f Format, sheetID, apiKey, tab string) string {
	if f == FormatAPIKey {
		q := url.Values{}
		q.Set("key", apiKey)
		return fmt.Sprintf("%s/%s/values/%s?%s",
			apiBaseURL, url.PathEscape(sheetID), url.PathEscape(tab), q.Encode())
	}

	q := url.Values{}
	q.Set("tqx", "out:json")
	q.Set("sheet", tab)
	return fmt.Sprintf("%s/%s/gviz/tq?%s", exportBaseURL, url.PathEscape(sheetID), q.Encode())
}
