package main

import (
	"net/http"

	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/i474232898/wellness-van-map/internal/config"
	"github.com/i474232898/wellness-van-map/internal/geocode"
	"github.com/i474232898/wellness-van-map/internal/observability"
	"github.com/i474232898/wellness-van-map/internal/outreach"
	"github.com/i474232898/wellness-van-map/internal/outreach/providers"
	"github.com/i474232898/wellness-van-map/internal/store"
)

// app bundles the long-lived pieces shared by the commands.
type app struct {
	service  *outreach.Service
	enricher *geocode.Enricher
}

func (a *app) Close() {
	a.enricher.Close()
}

func newGeocodeProvider(c *config.Config, client *http.Client) geocode.Provider {
	if c.Geocode.Provider == "google" {
		return providers.NewGoogleGeocoder(c.Geocode.APIKey)
	}
	return providers.NewNominatimGeocoder(client, c.Geocode.BaseURL, c.Geocode.UserAgent)
}

func loadTracts(c *config.Config, logger *zap.Logger) *geojson.FeatureCollection {
	if c.Census.GeoJSONPath == "" {
		return nil
	}
	fc, err := providers.LoadTractFeatures(c.Census.GeoJSONPath)
	if err != nil {
		logger.Warn("census tract geometry not loaded; overlay disabled",
			zap.String("path", c.Census.GeoJSONPath), zap.Error(err))
		return nil
	}
	logger.Info("loaded census tract geometry", zap.Int("features", len(fc.Features)))
	return fc
}

func paletteFrom(c config.ColorsConfig) outreach.Palette {
	return outreach.Palette{
		Today:    c.Today,
		Upcoming: c.Upcoming,
		Past:     c.Past,
		Tier1:    c.Tier1,
		Tier2:    c.Tier2,
		Tier3:    c.Tier3,
		Tier4:    c.Tier4,
		Unknown:  c.Unknown,
	}
}

func buildApp(c *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*app, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{Timeout: c.HTTP.Timeout}
	metrics := observability.NewMetrics(reg)

	source := providers.NewSheetsSource(httpClient, c.Sheet.ID, c.Sheet.APIKey)
	logger.Info("reading spreadsheet", zap.String("format", source.Format().String()))

	enricher := geocode.NewEnricher(newGeocodeProvider(c, httpClient), c.Geocode.MinInterval, logger, metrics)

	service := outreach.NewService(source, store.NewMemoryStore(nil), enricher, outreach.Options{
		Datasets: outreach.Datasets{
			Schedule: c.Sheet.ScheduleTab,
			Tracking: c.Sheet.TrackingTab,
			Census:   c.Sheet.CensusTab,
		},
		CacheTTL:      c.CacheTTL(),
		Region:        c.Geocode.Region,
		Location:      loc,
		Palette:       paletteFrom(c.Colors),
		BoundsPadding: c.Map.BoundsPadding,
		Center:        outreach.Coordinates{Lat: c.Map.CenterLat, Lng: c.Map.CenterLng},
		Zoom:          c.Map.Zoom,
		Tracts:        loadTracts(c, logger),
		Logger:        logger,
		Metrics:       metrics,
	})

	return &app{service: service, enricher: enricher}, nil
}
