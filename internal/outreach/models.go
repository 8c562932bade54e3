package outreach

import (
	"math"
	"strconv"
)

// Coordinates is a WGS84 position in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both components are finite numbers.
func (c Coordinates) Valid() bool {
	return isFinite(c.Lat) && isFinite(c.Lng)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ScheduleRecord is one planned van stop. Lat and Lng are NaN until the
// record has been geocoded or read from the sheet.
type ScheduleRecord struct {
	Date     Date     `json:"date"`
	Time     string   `json:"time"`
	Location string   `json:"location"`
	Address  string   `json:"address"`
	Services []string `json:"services"`
	ZipCode  string   `json:"zipCode,omitempty"`
	Notes    string   `json:"notes,omitempty"`
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
}

// Coordinates returns the record's position.
func (r ScheduleRecord) Coordinates() Coordinates {
	return Coordinates{Lat: r.Lat, Lng: r.Lng}
}

// HasCoordinates reports whether the record can be placed on a map.
func (r ScheduleRecord) HasCoordinates() bool {
	return r.Coordinates().Valid()
}

// Usable reports whether the record may be shown at all.
func (r ScheduleRecord) Usable() bool {
	return !r.Date.IsZero() && r.Location != "" && r.HasCoordinates()
}

// TrackingRecord is one completed stop with its attendance.
type TrackingRecord struct {
	Date             Date     `json:"date"`
	Location         string   `json:"location"`
	Attendees        int      `json:"attendees"`
	ServicesProvided []string `json:"servicesProvided"`
	Notes            string   `json:"notes,omitempty"`
}

// CensusTract carries the demographic indicators of one census tract.
// A nil metric was absent in the sheet.
type CensusTract struct {
	TractID             int64    `json:"tractId"`
	Name                string   `json:"name"`
	MedianIncome        *float64 `json:"medianIncome"`
	PctWithoutInsurance *float64 `json:"pctWithoutInsurance"`
	PctNoTransport      *float64 `json:"pctNoTransport"`
	PctFoodInsecure     *float64 `json:"pctFoodInsecure"`
	PctHousingInsecure  *float64 `json:"pctHousingInsecure"`
	PctMentalDistress   *float64 `json:"pctMentalDistress"`
	MedianAge           *float64 `json:"medianAge"`
}

// FormatMetric renders an optional metric, using "N/A" when absent.
func FormatMetric(v *float64) string {
	if v == nil || !isFinite(*v) {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Statistics summarizes the tracking dataset.
type Statistics struct {
	TotalStops        int `json:"totalStops"`
	TotalAttendees    int `json:"totalAttendees"`
	TotalServices     int `json:"totalServices"`
	UniqueCommunities int `json:"uniqueCommunities"`
}

// Snapshot is the result of loading every dataset once.
type Snapshot struct {
	Schedule   []ScheduleRecord `json:"schedule"`
	Tracking   []TrackingRecord `json:"tracking"`
	Census     []CensusTract    `json:"census"`
	Statistics Statistics       `json:"statistics"`
}
