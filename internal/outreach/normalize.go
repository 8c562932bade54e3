package outreach

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/i474232898/wellness-van-map/internal/sheets"
)

// Header spellings seen across sheet revisions, in lookup order.
var (
	dateHeaders      = []string{"Date", "date"}
	timeHeaders      = []string{"Time", "time"}
	locationHeaders  = []string{"Location", "location"}
	addressHeaders   = []string{"Address", "address"}
	servicesHeaders  = []string{"Services", "services"}
	zipHeaders       = []string{"Zip Code", "zipCode", "zip"}
	notesHeaders     = []string{"Notes", "notes"}
	latHeaders       = []string{"Latitude", "lat"}
	lngHeaders       = []string{"Longitude", "lng", "lon"}
	attendeesHeaders = []string{"Attendees", "attendees"}
	providedHeaders  = []string{"Services Provided", "servicesProvided"}

	tractHeaders     = []string{"Census_Tract", "Census Tract", "GEOID"}
	tractNameHeaders = []string{"Name", "name"}
	incomeHeaders    = []string{"Med_Inc"}
	insuranceHeaders = []string{"Pct_Wout_Insurance"}
	transportHeaders = []string{"Pct_No_Transport"}
	foodHeaders      = []string{"Pct_Food_Insec"}
	housingHeaders   = []string{"Pct_Housing_Insec"}
	mentalHeaders    = []string{"Pct_Mental_Distress"}
	medianAgeHeaders = []string{"Med_Age"}
)

var (
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
)

// field returns the first non-blank value among keys.
func field(row sheets.Row, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(row[k]); v != "" {
			return v
		}
	}
	return ""
}

// NormalizeSchedule maps raw rows onto ScheduleRecords. Rows without a date
// or a location are dropped; coordinates may still be missing.
func NormalizeSchedule(rows []sheets.Row) []ScheduleRecord {
	out := make([]ScheduleRecord, 0, len(rows))
	for _, row := range rows {
		date, ok := ParseDate(field(row, dateHeaders))
		if !ok {
			continue
		}
		location := field(row, locationHeaders)
		if location == "" {
			continue
		}

		out = append(out, ScheduleRecord{
			Date:     date,
			Time:     field(row, timeHeaders),
			Location: location,
			Address:  field(row, addressHeaders),
			Services: SplitServices(field(row, servicesHeaders)),
			ZipCode:  field(row, zipHeaders),
			Notes:    field(row, notesHeaders),
			Lat:      parseLooseFloat(field(row, latHeaders)),
			Lng:      parseLooseFloat(field(row, lngHeaders)),
		})
	}
	return out
}

// NormalizeTracking maps raw rows onto TrackingRecords, dropping rows
// without a date or a location.
func NormalizeTracking(rows []sheets.Row) []TrackingRecord {
	out := make([]TrackingRecord, 0, len(rows))
	for _, row := range rows {
		date, ok := ParseDate(field(row, dateHeaders))
		if !ok {
			continue
		}
		location := field(row, locationHeaders)
		if location == "" {
			continue
		}

		out = append(out, TrackingRecord{
			Date:             date,
			Location:         location,
			Attendees:        parseLooseCount(field(row, attendeesHeaders)),
			ServicesProvided: SplitServices(field(row, providedHeaders)),
			Notes:            field(row, notesHeaders),
		})
	}
	return out
}

// NormalizeCensus maps raw rows onto CensusTracts. Rows whose tract id is
// not numeric cannot be joined to a polygon and are dropped.
func NormalizeCensus(rows []sheets.Row) []CensusTract {
	out := make([]CensusTract, 0, len(rows))
	for _, row := range rows {
		id, ok := parseTractID(field(row, tractHeaders))
		if !ok {
			continue
		}

		out = append(out, CensusTract{
			TractID:             id,
			Name:                field(row, tractNameHeaders),
			MedianIncome:        optionalFloat(field(row, incomeHeaders)),
			PctWithoutInsurance: optionalFloat(field(row, insuranceHeaders)),
			PctNoTransport:      optionalFloat(field(row, transportHeaders)),
			PctFoodInsecure:     optionalFloat(field(row, foodHeaders)),
			PctHousingInsecure:  optionalFloat(field(row, housingHeaders)),
			PctMentalDistress:   optionalFloat(field(row, mentalHeaders)),
			MedianAge:           optionalFloat(field(row, medianAgeHeaders)),
		})
	}
	return out
}

// SplitServices splits a comma separated list, trimming entries and
// dropping empty ones. The result is never nil.
func SplitServices(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseLooseFloat reads the leading number of s, or NaN if there is none.
func parseLooseFloat(s string) float64 {
	m := leadingFloat.FindString(strings.TrimSpace(s))
	if m == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func optionalFloat(s string) *float64 {
	f := parseLooseFloat(strings.ReplaceAll(s, ",", ""))
	if !isFinite(f) {
		return nil
	}
	return &f
}

// parseLooseCount reads a non-negative integer, defaulting to 0.
func parseLooseCount(s string) int {
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseTractID reads the leading integer of a tract identifier.
func parseTractID(s string) (int64, bool) {
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
