package providers

import (
	"context"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"
	"github.com/rotisserie/eris"

	"github.com/i474232898/wellness-van-map/internal/geocode"
)

// The geocoder package keeps its key in a package variable.
var googleKeyMu sync.Mutex

// GoogleGeocoder implements geocode.Provider using the Google Geocoding API.
type GoogleGeocoder struct {
	name   string
	apiKey string

	// lookup is geocoder.Geocoding; tests replace it.
	lookup func(geocoder.Address) (geocoder.Location, error)
}

// NewGoogleGeocoder creates a geocoder bound to apiKey.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{
		name:   "google",
		apiKey: apiKey,
		lookup: geocoder.Geocoding,
	}
}

func (p *GoogleGeocoder) Name() string {
	return p.name
}

// Lookup resolves query. The underlying client has no context support, so
// ctx is only checked before the call.
func (p *GoogleGeocoder) Lookup(ctx context.Context, query string) ([]geocode.Candidate, error) {
	if p.apiKey == "" {
		return nil, eris.New("google geocoder: api key not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := splitQuery(query)

	googleKeyMu.Lock()
	geocoder.ApiKey = p.apiKey
	loc, err := p.lookup(addr)
	googleKeyMu.Unlock()

	if err != nil {
		return nil, eris.Wrapf(err, "google geocoder: lookup %q", query)
	}
	if loc.Latitude == 0 && loc.Longitude == 0 {
		return []geocode.Candidate{}, nil
	}
	return []geocode.Candidate{{Lat: loc.Latitude, Lng: loc.Longitude}}, nil
}

// splitQuery maps "street, city, state" onto the geocoder's address fields.
func splitQuery(query string) geocoder.Address {
	parts := strings.Split(query, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	addr := geocoder.Address{Street: parts[0]}
	if len(parts) > 1 {
		addr.City = parts[1]
	}
	if len(parts) > 2 {
		addr.State = strings.Join(parts[2:], ", ")
	}
	return addr
}
