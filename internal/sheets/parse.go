package sheets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Row is one spreadsheet record keyed by header text. Every value is a
// string; absent cells are "".
type Row map[string]string

// The visualization export wraps its JSON in a JavaScript callback:
// "/*O_o*/\ngoogle.visualization.Query.setResponse(" ... ");"
const (
	exportPrefixLen = 47
	exportSuffixLen = 2
)

// ParseError reports a payload that could not be turned into rows.
type ParseError struct {
	Format Format
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sheets: parse %s payload: %s: %v", e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("sheets: parse %s payload: %s", e.Format, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes a raw payload in the given format into rows. On failure it
// returns an empty slice together with a *ParseError.
func Parse(f Format, payload []byte) ([]Row, error) {
	switch f {
	case FormatAPIKey:
		return parseValues(payload)
	case FormatPublicExport:
		return parseExport(payload)
	default:
		return []Row{}, &ParseError{Format: f, Reason: "unknown format"}
	}
}

type valuesPayload struct {
	Values *[][]any `json:"values"`
}

func parseValues(payload []byte) ([]Row, error) {
	var p valuesPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return []Row{}, &ParseError{Format: FormatAPIKey, Reason: "invalid json", Err: err}
	}
	if p.Values == nil {
		return []Row{}, &ParseError{Format: FormatAPIKey, Reason: "missing values"}
	}

	values := *p.Values
	if len(values) < 2 {
		return []Row{}, nil
	}

	headers := make([]string, len(values[0]))
	for i, h := range values[0] {
		headers[i] = cellString(h)
	}

	rows := make([]Row, 0, len(values)-1)
	for _, cells := range values[1:] {
		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(cells) {
				row[h] = cellString(cells[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type exportCell struct {
	V any `json:"v"`
}

type exportPayload struct {
	Table *struct {
		Cols []struct {
			ID    string `json:"id"`
			Label string `json:"label"`
		} `json:"cols"`
		Rows *[]struct {
			C []*exportCell `json:"c"`
		} `json:"rows"`
	} `json:"table"`
}

func parseExport(payload []byte) ([]Row, error) {
	payload = bytes.TrimRight(payload, " \t\r\n")
	if len(payload) < exportPrefixLen+exportSuffixLen {
		return []Row{}, &ParseError{Format: FormatPublicExport, Reason: "payload shorter than export wrapper"}
	}
	body := payload[exportPrefixLen : len(payload)-exportSuffixLen]

	var p exportPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return []Row{}, &ParseError{Format: FormatPublicExport, Reason: "invalid json", Err: err}
	}
	if p.Table == nil || p.Table.Rows == nil {
		return []Row{}, &ParseError{Format: FormatPublicExport, Reason: "missing table rows"}
	}

	headers := make([]string, len(p.Table.Cols))
	for i, col := range p.Table.Cols {
		headers[i] = col.Label
		if headers[i] == "" {
			headers[i] = col.ID
		}
	}

	rows := make([]Row, 0, len(*p.Table.Rows))
	for _, r := range *p.Table.Rows {
		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(r.C) && r.C[i] != nil {
				row[h] = cellString(r.C[i].V)
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// cellString renders a decoded JSON scalar the way it would read in the sheet.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
