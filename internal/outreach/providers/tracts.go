package providers

import (
	"os"

	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
)

// LoadTractFeatures reads census tract polygons from a GeoJSON
// FeatureCollection file.
func LoadTractFeatures(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tracts: read %s", path)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, eris.Wrapf(err, "tracts: decode %s", path)
	}
	return fc, nil
}
