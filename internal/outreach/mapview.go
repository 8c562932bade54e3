package outreach

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// MapRenderer is the drawing surface of a map client.
type MapRenderer interface {
	// SetView centers the map before any markers are placed.
	SetView(center Coordinates, zoom int) error
	// PlaceMarkers draws markers and fits the view to bounds when bounds is
	// non-nil.
	PlaceMarkers(markers []MarkerSpec, bounds *orb.Bound) error
	AddTractOverlay(
		fc *geojson.FeatureCollection,
		style func(*geojson.Feature) TractStyle,
		popup func(*geojson.Feature) (string, bool),
	) error
}
