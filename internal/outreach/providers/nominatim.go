package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker"

	"github.com/i474232898/wellness-van-map/internal/geocode"
)

const (
	defaultNominatimURL       = "https://nominatim.openstreetmap.org"
	defaultNominatimUserAgent = "wellness-van-map/1.0"
)

// NominatimGeocoder implements geocode.Provider against an OpenStreetMap
// Nominatim server. The public server allows one request per second, which
// the geocode.Enricher enforces.
type NominatimGeocoder struct {
	name      string
	baseURL   string
	userAgent string
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
}

// NewNominatimGeocoder creates a geocoder. Blank baseURL and userAgent use
// the public server and a default agent.
func NewNominatimGeocoder(client *http.Client, baseURL, userAgent string) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = defaultNominatimURL
	}
	if userAgent == "" {
		userAgent = defaultNominatimUserAgent
	}

	return &NominatimGeocoder{
		name:      "nominatim",
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newCircuitBreaker("nominatim"),
	}
}

func (p *NominatimGeocoder) Name() string {
	return p.name
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Lookup returns at most one candidate for query.
func (p *NominatimGeocoder) Lookup(ctx context.Context, query string) ([]geocode.Candidate, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", query)
		values.Set("format", "jsonv2")
		values.Set("limit", "1")

		u := fmt.Sprintf("%s/search?%s", p.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", p.userAgent)
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: search")
	}
	defer resp.Body.Close()

	var payload []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, eris.Wrap(err, "nominatim: decode response")
	}

	candidates := make([]geocode.Candidate, 0, 1)
	for _, r := range payload {
		lat, errLat := strconv.ParseFloat(r.Lat, 64)
		lng, errLng := strconv.ParseFloat(r.Lon, 64)
		if errLat != nil || errLng != nil {
			continue
		}
		candidates = append(candidates, geocode.Candidate{Lat: lat, Lng: lng, DisplayName: r.DisplayName})
		break
	}
	return candidates, nil
}
