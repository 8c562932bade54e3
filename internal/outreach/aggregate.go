package outreach

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// CoordinateTolerance is how far apart, in degrees on each axis, two stops
// may be and still count as the same place.
const CoordinateTolerance = 0.0001

// absorbs float noise such as 44.1001-44.1 != 0.0001
const toleranceEpsilon = 1e-9

// Status classifies a location by its primary event.
type Status string

const (
	StatusPast     Status = "Past"
	StatusToday    Status = "Today"
	StatusUpcoming Status = "Upcoming"
)

// StatusFor classifies date relative to today.
func StatusFor(date, today Date) Status {
	switch date.Compare(today) {
	case 0:
		return StatusToday
	case 1:
		return StatusUpcoming
	default:
		return StatusPast
	}
}

// MarkerGroup is every schedule record at one place, rendered as a single
// marker positioned at the primary event.
type MarkerGroup struct {
	Key           string           `json:"key"`
	Lat           float64          `json:"lat"`
	Lng           float64          `json:"lng"`
	Status        Status           `json:"status"`
	Primary       ScheduleRecord   `json:"primary"`
	AlsoScheduled []Date           `json:"alsoScheduled"`
	Records       []ScheduleRecord `json:"records"`
}

// LocationKey rounds a coordinate pair to 4 decimal places.
func LocationKey(lat, lng float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lng)
}

func samePlace(a, b ScheduleRecord) bool {
	limit := CoordinateTolerance + toleranceEpsilon
	return math.Abs(a.Lat-b.Lat) <= limit && math.Abs(a.Lng-b.Lng) <= limit
}

// GroupMarkers groups records by place and picks each group's primary
// event. A record joins the first group whose members all lie within
// CoordinateTolerance of it. Records without coordinates are ignored.
// Groups are returned in order of their earliest record. When two groups
// round to the same key, the later ones get a "#2", "#3"... suffix.
func GroupMarkers(records []ScheduleRecord, today Date) []MarkerGroup {
	var groups [][]ScheduleRecord

	for _, r := range SortByDate(records) {
		if !r.HasCoordinates() {
			continue
		}

		placed := false
		for i, members := range groups {
			if fitsGroup(members, r) {
				groups[i] = append(members, r)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []ScheduleRecord{r})
		}
	}

	out := make([]MarkerGroup, 0, len(groups))
	seen := make(map[string]int, len(groups))
	for _, members := range groups {
		g := newMarkerGroup(members, today)
		seen[g.Key]++
		if n := seen[g.Key]; n > 1 {
			g.Key = fmt.Sprintf("%s#%d", g.Key, n)
		}
		out = append(out, g)
	}
	return out
}

func fitsGroup(members []ScheduleRecord, r ScheduleRecord) bool {
	for _, m := range members {
		if !samePlace(m, r) {
			return false
		}
	}
	return true
}

// newMarkerGroup expects members sorted by date.
func newMarkerGroup(members []ScheduleRecord, today Date) MarkerGroup {
	primaryIdx := len(members) - 1
	for i, r := range members {
		if !r.Date.Before(today) {
			primaryIdx = i
			break
		}
	}
	primary := members[primaryIdx]
	status := StatusFor(primary.Date, today)

	also := []Date{}
	if status == StatusUpcoming {
		for _, r := range members[primaryIdx+1:] {
			if r.Date.After(today) {
				also = append(also, r.Date)
			}
		}
	}

	return MarkerGroup{
		Key:           LocationKey(members[0].Lat, members[0].Lng),
		Lat:           primary.Lat,
		Lng:           primary.Lng,
		Status:        status,
		Primary:       primary,
		AlsoScheduled: also,
		Records:       members,
	}
}

// FitBounds returns the box around every marker, grown on each side by
// padRatio times its span. ok is false when there are no markers.
func FitBounds(groups []MarkerGroup, padRatio float64) (orb.Bound, bool) {
	if len(groups) == 0 {
		return orb.Bound{}, false
	}

	first := orb.Point{groups[0].Lng, groups[0].Lat}
	b := orb.Bound{Min: first, Max: first}
	for _, g := range groups[1:] {
		b = b.Extend(orb.Point{g.Lng, g.Lat})
	}

	dx := (b.Max[0] - b.Min[0]) * padRatio
	dy := (b.Max[1] - b.Min[1]) * padRatio
	b.Min[0] -= dx
	b.Max[0] += dx
	b.Min[1] -= dy
	b.Max[1] += dy

	return b, true
}

// FindMarker returns the marker placed within CoordinateTolerance of the
// given position on both axes.
func FindMarker(groups []MarkerGroup, lat, lng float64) (MarkerGroup, bool) {
	for _, g := range groups {
		if math.Abs(g.Lat-lat) < CoordinateTolerance && math.Abs(g.Lng-lng) < CoordinateTolerance {
			return g, true
		}
	}
	return MarkerGroup{}, false
}

// MarkerSpec is what a map needs to draw one marker.
type MarkerSpec struct {
	Key       string  `json:"key"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Status    Status  `json:"status"`
	Color     string  `json:"color"`
	PopupHTML string  `json:"popupHtml"`
}

// BuildMarkerSpecs renders the popup and picks the color for each group.
func BuildMarkerSpecs(groups []MarkerGroup, palette Palette) ([]MarkerSpec, error) {
	palette = palette.withDefaults()

	specs := make([]MarkerSpec, 0, len(groups))
	for _, g := range groups {
		popup, err := MarkerPopup(g)
		if err != nil {
			return nil, err
		}
		specs = append(specs, MarkerSpec{
			Key:       g.Key,
			Lat:       g.Lat,
			Lng:       g.Lng,
			Status:    g.Status,
			Color:     palette.StatusColor(g.Status),
			PopupHTML: popup,
		})
	}
	return specs, nil
}
