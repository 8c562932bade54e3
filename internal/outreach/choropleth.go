package outreach

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// Tier is a severity bucket for the share of residents without insurance.
type Tier int

const (
	TierUnknown Tier = iota
	Tier1
	Tier2
	Tier3
	Tier4
)

// TierFor buckets a percentage. Thresholds are exclusive, so exactly 15
// lands in Tier3. A missing value is TierUnknown.
func TierFor(pct *float64) Tier {
	if pct == nil || math.IsNaN(*pct) {
		return TierUnknown
	}
	switch v := *pct; {
	case v > 15:
		return Tier4
	case v > 10:
		return Tier3
	case v > 5:
		return Tier2
	default:
		return Tier1
	}
}

// TractStyle is the fill and outline applied to one tract polygon.
type TractStyle struct {
	Tier        Tier    `json:"tier"`
	FillColor   string  `json:"fillColor"`
	Color       string  `json:"color"`
	Weight      int     `json:"weight"`
	Opacity     float64 `json:"opacity"`
	FillOpacity float64 `json:"fillOpacity"`
}

// Polygon properties that identify a tract, in lookup order.
var tractIDProperties = []string{"GEOID", "TRACTCE"}

// TractIDFromProperties reads the tract id of a polygon. The first present,
// non-empty property wins and its leading integer is used.
func TractIDFromProperties(props geojson.Properties) (int64, bool) {
	for _, name := range tractIDProperties {
		raw, ok := props[name]
		if !ok || raw == nil {
			continue
		}

		var s string
		switch v := raw.(type) {
		case string:
			s = v
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			s = strconv.Itoa(v)
		case int64:
			s = strconv.FormatInt(v, 10)
		case json.Number:
			s = v.String()
		default:
			continue
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		return parseTractID(s)
	}
	return 0, false
}

// Choropleth joins tract polygons to census rows by tract id.
type Choropleth struct {
	byTract map[int64]CensusTract
	palette Palette
}

// NewChoropleth indexes tracts by id. A later row with a duplicate id wins.
func NewChoropleth(tracts []CensusTract, palette Palette) *Choropleth {
	byTract := make(map[int64]CensusTract, len(tracts))
	for _, t := range tracts {
		byTract[t.TractID] = t
	}
	return &Choropleth{byTract: byTract, palette: palette.withDefaults()}
}

// Lookup returns the census row for a polygon.
func (c *Choropleth) Lookup(f *geojson.Feature) (CensusTract, bool) {
	if f == nil {
		return CensusTract{}, false
	}
	id, ok := TractIDFromProperties(f.Properties)
	if !ok {
		return CensusTract{}, false
	}
	t, ok := c.byTract[id]
	return t, ok
}

// Style returns the fill for a polygon. Unmatched polygons get the unknown color.
func (c *Choropleth) Style(f *geojson.Feature) TractStyle {
	tier := TierUnknown
	if t, ok := c.Lookup(f); ok {
		tier = TierFor(t.PctWithoutInsurance)
	}
	return TractStyle{
		Tier:        tier,
		FillColor:   c.palette.TierColor(tier),
		Color:       "white",
		Weight:      1,
		Opacity:     1,
		FillOpacity: 0.5,
	}
}

// Popup renders the detail popup of a matched polygon.
func (c *Choropleth) Popup(f *geojson.Feature) (string, bool) {
	t, ok := c.Lookup(f)
	if !ok {
		return "", false
	}
	html, err := TractPopup(t)
	if err != nil {
		return "", false
	}
	return html, true
}

// Annotate returns a copy of fc whose features carry tractId, tier,
// fillColor and, when matched, popup properties.
func (c *Choropleth) Annotate(fc *geojson.FeatureCollection) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	if fc == nil {
		return out
	}

	for _, f := range fc.Features {
		nf := geojson.NewFeature(f.Geometry)
		nf.ID = f.ID
		for k, v := range f.Properties {
			nf.Properties[k] = v
		}

		style := c.Style(f)
		nf.Properties["tier"] = int(style.Tier)
		nf.Properties["fillColor"] = style.FillColor
		if id, ok := TractIDFromProperties(f.Properties); ok {
			nf.Properties["tractId"] = id
		}
		if popup, ok := c.Popup(f); ok {
			nf.Properties["popup"] = popup
		}

		out.Append(nf)
	}
	return out
}
