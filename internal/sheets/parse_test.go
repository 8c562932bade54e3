package sheets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exportWrapper = "/*O_o*/\ngoogle.visualization.Query.setResponse("

func wrapExport(body string) []byte {
	return []byte(exportWrapper + body + ");")
}

func TestExportWrapperLength(t *testing.T) {
	assert.Len(t, exportWrapper, exportPrefixLen)
}

func TestParseValues(t *testing.T) {
	payload := `{"range":"Van Schedule!A1:D3","values":[
		["Date","Location","Latitude","Longitude"],
		["2025-03-10","Town Hall","44.1","-69.1"],
		["2025-03-17","Library"]
	]}`

	rows, err := Parse(FormatAPIKey, []byte(payload))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, Row{"Date": "2025-03-10", "Location": "Town Hall", "Latitude": "44.1", "Longitude": "-69.1"}, rows[0])
	assert.Equal(t, "", rows[1]["Latitude"])
	assert.Equal(t, "", rows[1]["Longitude"])
	assert.Equal(t, "Library", rows[1]["Location"])
}

func TestParseValuesHeaderOnly(t *testing.T) {
	rows, err := Parse(FormatAPIKey, []byte(`{"values":[["Date","Location"]]}`))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseValuesMissingValues(t *testing.T) {
	rows, err := Parse(FormatAPIKey, []byte(`{"range":"A1:B2"}`))
	assert.Empty(t, rows)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, FormatAPIKey, perr.Format)
}

func TestParseValuesInvalidJSON(t *testing.T) {
	rows, err := Parse(FormatAPIKey, []byte(`<html>quota exceeded</html>`))
	assert.Empty(t, rows)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Error(t, perr.Unwrap())
}

func TestParseExport(t *testing.T) {
	body := `{"version":"0.6","status":"ok","table":{
		"cols":[{"id":"A","label":"Date","type":"date"},{"id":"B","label":"","type":"string"},{"id":"C","label":"Attendees","type":"number"}],
		"rows":[
			{"c":[{"v":"Date(2025,2,10)","f":"3/10/2025"},{"v":"Town Hall"},{"v":12,"f":"12"}]},
			{"c":[{"v":"Date(2025,2,17)"},null]}
		]}}`

	rows, err := Parse(FormatPublicExport, wrapExport(body))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, Row{"Date": "Date(2025,2,10)", "B": "Town Hall", "Attendees": "12"}, rows[0])
	assert.Equal(t, Row{"Date": "Date(2025,2,17)", "B": "", "Attendees": ""}, rows[1])
}

func TestParseExportToleratesTrailingNewline(t *testing.T) {
	body := `{"table":{"cols":[{"id":"A","label":"Location"}],"rows":[{"c":[{"v":"Library"}]}]}}`
	payload := append(wrapExport(body), '\n')

	rows, err := Parse(FormatPublicExport, payload)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Library", rows[0]["Location"])
}

func TestParseExportFailures(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "too short", payload: []byte(`{}`)},
		{name: "missing table", payload: wrapExport(`{"status":"error"}`)},
		{name: "missing rows", payload: wrapExport(`{"table":{"cols":[]}}`)},
		{name: "garbage", payload: wrapExport(`not json`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Parse(FormatPublicExport, tt.payload)
			assert.Empty(t, rows)
			assert.NotNil(t, rows)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, FormatPublicExport, perr.Format)
		})
	}
}

func TestFormatsProduceSameRows(t *testing.T) {
	values := `{"values":[["Date","Location","Services"],["2025-03-10","Town Hall","Flu Shots, Blood Pressure"]]}`
	export := wrapExport(`{"table":{"cols":[{"id":"A","label":"Date"},{"id":"B","label":"Location"},{"id":"C","label":"Services"}],
		"rows":[{"c":[{"v":"2025-03-10"},{"v":"Town Hall"},{"v":"Flu Shots, Blood Pressure"}]}]}}`)

	a, err := Parse(FormatAPIKey, []byte(values))
	require.NoError(t, err)
	b, err := Parse(FormatPublicExport, export)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "", cellString(nil))
	assert.Equal(t, "44.1", cellString(44.1))
	assert.Equal(t, "3", cellString(float64(3)))
	assert.Equal(t, "true", cellString(true))
	assert.Equal(t, "x", cellString("x"))
}

func TestSheetURL(t *testing.T) {
	assert.Equal(t,
		"https://sheets.googleapis.com/v4/spreadsheets/abc/values/Van%20Schedule?key=k1",
		SheetURL(FormatAPIKey, "abc", "k1", "Van Schedule"))
	assert.Equal(t,
		"https://docs.google.com/spreadsheets/d/abc/gviz/tq?sheet=Van+Schedule&tqx=out%3Ajson",
		SheetURL(FormatPublicExport, "abc", "", "Van Schedule"))
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatAPIKey, FormatFor("key"))
	assert.Equal(t, FormatPublicExport, FormatFor(""))
}
