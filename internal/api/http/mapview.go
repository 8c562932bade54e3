package httpapi

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/i474232898/wellness-van-map/internal/outreach"
)

type boundsBody struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

func boundsJSON(b orb.Bound) boundsBody {
	return boundsBody{South: b.Min.Lat(), West: b.Min.Lon(), North: b.Max.Lat(), East: b.Max.Lon()}
}

// mapView implements outreach.MapRenderer by collecting the drawing calls
// into a JSON document for the browser client.
type mapView struct {
	Center  outreach.Coordinates       `json:"center"`
	Zoom    int                        `json:"zoom"`
	Markers []outreach.MarkerSpec      `json:"markers"`
	Bounds  *boundsBody                `json:"bounds"`
	Tracts  *geojson.FeatureCollection `json:"tracts,omitempty"`
}

func newMapView() *mapView {
	return &mapView{Markers: []outreach.MarkerSpec{}}
}

func (v *mapView) SetView(center outreach.Coordinates, zoom int) error {
	v.Center = center
	v.Zoom = zoom
	return nil
}

func (v *mapView) PlaceMarkers(markers []outreach.MarkerSpec, bounds *orb.Bound) error {
	v.Markers = markers
	if bounds != nil {
		b := boundsJSON(*bounds)
		v.Bounds = &b
	}
	return nil
}

func (v *mapView) AddTractOverlay(
	fc *geojson.FeatureCollection,
	style func(*geojson.Feature) outreach.TractStyle,
	popup func(*geojson.Feature) (string, bool),
) error {
	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		nf := geojson.NewFeature(f.Geometry)
		nf.ID = f.ID
		for k, val := range f.Properties {
			nf.Properties[k] = val
		}
		nf.Properties["style"] = style(f)
		if html, ok := popup(f); ok {
			nf.Properties["popup"] = html
		}
		out.Append(nf)
	}
	v.Tracts = out
	return nil
}
