package outreach

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/wellness-van-map/internal/sheets"
	"github.com/i474232898/wellness-van-map/internal/store"
)

var testDatasets = Datasets{Schedule: "Van Schedule", Tracking: "Service Tracking", Census: "Census Tract Data"}

type fakeSource struct {
	mu    sync.Mutex
	rows  map[string][]sheets.Row
	errs  map[string]error
	calls map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{rows: map[string][]sheets.Row{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeSource) Fetch(_ context.Context, dataset string) ([]sheets.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[dataset]++
	if err := f.errs[dataset]; err != nil {
		return []sheets.Row{}, err
	}
	return f.rows[dataset], nil
}

func (f *fakeSource) set(dataset string, rows []sheets.Row, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[dataset] = rows
	f.errs[dataset] = err
}

func (f *fakeSource) count(dataset string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[dataset]
}

type fakeResolver struct {
	mu      sync.Mutex
	results map[string]Coordinates
	calls   map[string]int
}

func (r *fakeResolver) Resolve(_ context.Context, address, _ string) (Coordinates, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[string]int{}
	}
	r.calls[address]++
	c, ok := r.results[address]
	return c, ok
}

type fixture struct {
	clock    *clockwork.FakeClock
	source   *fakeSource
	resolver *fakeResolver
	svc      *Service
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.March, 12, 15, 0, 0, 0, time.UTC))
	source := newFakeSource()
	resolver := &fakeResolver{results: map[string]Coordinates{}}

	opts.Datasets = testDatasets
	opts.Clock = clock
	opts.Location = time.UTC
	if opts.CacheTTL == 0 {
		opts.CacheTTL = 10 * time.Minute
	}

	svc := NewService(source, store.NewMemoryStore(clock), resolver, opts)
	return &fixture{clock: clock, source: source, resolver: resolver, svc: svc}
}

func TestGetScheduleEnrichesAndDrops(t *testing.T) {
	fx := newFixture(t, Options{Region: "Knox County, Maine"})
	fx.resolver.results["2 Elm St"] = Coordinates{Lat: 44.2, Lng: -69.2}
	fx.source.set("Van Schedule", []sheets.Row{
		{"Date": "2025-03-10", "Location": "Town Hall", "Latitude": "44.1", "Longitude": "-69.1"},
		{"Date": "2025-03-11", "Location": "Library", "Address": "2 Elm St"},
		{"Date": "2025-03-12", "Location": "Church", "Address": "9 Lost Rd"},
		{"Date": "2025-03-13", "Location": "Church", "Address": "9 Lost Rd"},
		{"Date": "2025-03-14", "Location": "Nowhere"},
		{"Date": "", "Location": "Undated", "Latitude": "44", "Longitude": "-69"},
	}, nil)

	got, err := fx.svc.GetSchedule(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Town Hall", got[0].Location)
	assert.Equal(t, "Library", got[1].Location)
	assert.InDelta(t, 44.2, got[1].Lat, 1e-9)

	assert.Equal(t, 1, fx.resolver.calls["9 Lost Rd"], "failed address is not retried within a pass")
	for _, r := range got {
		assert.True(t, r.Usable())
	}
}

func TestFetchUsesCacheWithinTTL(t *testing.T) {
	fx := newFixture(t, Options{})
	fx.source.set("Service Tracking", []sheets.Row{{"Date": "2025-03-01", "Location": "Town Hall", "Attendees": "4"}}, nil)

	ctx := context.Background()
	_, err := fx.svc.GetTracking(ctx)
	require.NoError(t, err)

	fx.clock.Advance(5 * time.Minute)
	_, err = fx.svc.GetTracking(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fx.source.count("Service Tracking"))

	fx.clock.Advance(6 * time.Minute)
	_, err = fx.svc.GetTracking(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fx.source.count("Service Tracking"))
}

func TestFetchServesStaleOnFailure(t *testing.T) {
	fx := newFixture(t, Options{})
	rows := []sheets.Row{{"Date": "2025-03-01", "Location": "Town Hall", "Attendees": "4"}}
	fx.source.set("Service Tracking", rows, nil)

	ctx := context.Background()
	first, err := fx.svc.GetTracking(ctx)
	require.NoError(t, err)

	fx.clock.Advance(time.Hour)
	fx.source.set("Service Tracking", nil, errors.New("connection refused"))

	second, err := fx.svc.GetTracking(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	fx.source.set("Service Tracking", nil, &sheets.ParseError{Format: sheets.FormatAPIKey, Reason: "missing values"})
	third, err := fx.svc.GetTracking(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestFetchUnavailableWithoutCache(t *testing.T) {
	fx := newFixture(t, Options{})
	fx.source.set("Service Tracking", nil, errors.New("dns failure"))

	got, err := fx.svc.GetTracking(context.Background())
	assert.Empty(t, got)
	assert.ErrorIs(t, err, ErrDatasetUnavailable)

	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "Service Tracking", ferr.Dataset)
}

func TestLoadAllPartialFailure(t *testing.T) {
	fx := newFixture(t, Options{})
	fx.source.set("Van Schedule", nil, errors.New("timeout"))
	fx.source.set("Service Tracking", []sheets.Row{
		{"Date": "2025-03-01", "Location": "Town Hall", "Attendees": "10", "Services Provided": "a, b"},
		{"Date": "2025-03-02", "Location": "Library", "Attendees": "5", "Services Provided": "a"},
	}, nil)
	fx.source.set("Census Tract Data", nil, errors.New("timeout"))

	snap, err := fx.svc.LoadAll(context.Background())
	require.NoError(t, err)

	assert.Empty(t, snap.Schedule)
	assert.Empty(t, snap.Census)
	assert.Len(t, snap.Tracking, 2)
	assert.Equal(t, Statistics{TotalStops: 2, TotalAttendees: 15, TotalServices: 3, UniqueCommunities: 2}, snap.Statistics)

	last, ok := fx.svc.LastUpdate()
	require.True(t, ok)
	assert.Equal(t, fx.clock.Now(), last)
}

func TestLoadAllEverythingFails(t *testing.T) {
	fx := newFixture(t, Options{})
	for _, name := range []string{"Van Schedule", "Service Tracking", "Census Tract Data"} {
		fx.source.set(name, nil, errors.New("offline"))
	}

	_, err := fx.svc.LoadAll(context.Background())
	assert.ErrorIs(t, err, ErrAllSourcesUnavailable)
	assert.ErrorIs(t, fx.svc.Refresh(context.Background()), ErrAllSourcesUnavailable)

	_, ok := fx.svc.LastUpdate()
	assert.False(t, ok)
}

func TestLoadAllEmptyIsNotAnError(t *testing.T) {
	fx := newFixture(t, Options{})
	for _, name := range []string{"Van Schedule", "Service Tracking", "Census Tract Data"} {
		fx.source.set(name, []sheets.Row{}, nil)
	}

	snap, err := fx.svc.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Schedule)
	assert.NoError(t, fx.svc.Refresh(context.Background()))
}

func TestClearCacheForcesRefetch(t *testing.T) {
	fx := newFixture(t, Options{})
	fx.source.set("Census Tract Data", []sheets.Row{{"Census_Tract": "970100"}}, nil)

	ctx := context.Background()
	_, err := fx.svc.GetCensus(ctx)
	require.NoError(t, err)
	assert.Contains(t, fx.svc.Status(), "Census Tract Data")

	fx.svc.ClearCache()
	assert.Empty(t, fx.svc.Status())

	_, err = fx.svc.GetCensus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fx.source.count("Census Tract Data"))
}

func TestScheduleAndMarkers(t *testing.T) {
	fx := newFixture(t, Options{BoundsPadding: 0.1})
	fx.source.set("Van Schedule", []sheets.Row{
		{"Date": "2025-03-17", "Location": "Town Hall", "Latitude": "44.1001", "Longitude": "-69.1", "Services": "Flu Shots"},
		{"Date": "2025-03-10", "Location": "Town Hall", "Latitude": "44.10", "Longitude": "-69.10", "Services": "Flu Shots"},
		{"Date": "2025-03-12", "Location": "Library", "Latitude": "44.3", "Longitude": "-69.3", "Services": "Dental"},
	}, nil)

	ctx := context.Background()
	today, err := fx.svc.Schedule(ctx, ScheduleFilter{Range: RangeToday})
	require.NoError(t, err)
	assert.Equal(t, []string{"Library"}, locations(today))

	flu, err := fx.svc.Schedule(ctx, ScheduleFilter{Range: RangeAll, Service: "flu"})
	require.NoError(t, err)
	require.Len(t, flu, 2)
	assert.Equal(t, NewDate(2025, 3, 10), flu[0].Date)

	groups, bounds, ok, err := fx.svc.Markers(ctx, ScheduleFilter{Range: RangeAll})
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, groups, 2)
	assert.Equal(t, "44.1000,-69.1000", groups[0].Key)
	assert.Equal(t, StatusUpcoming, groups[0].Status)
	assert.Equal(t, StatusToday, groups[1].Status)
	assert.Less(t, bounds.Min[1], 44.1)
	assert.Greater(t, bounds.Max[1], 44.3)
}

type recordingRenderer struct {
	center  Coordinates
	zoom    int
	markers []MarkerSpec
	bounds  *orb.Bound
	styles  []TractStyle
}

func (r *recordingRenderer) SetView(center Coordinates, zoom int) error {
	r.center, r.zoom = center, zoom
	return nil
}

func (r *recordingRenderer) PlaceMarkers(markers []MarkerSpec, bounds *orb.Bound) error {
	r.markers, r.bounds = markers, bounds
	return nil
}

func (r *recordingRenderer) AddTractOverlay(fc *geojson.FeatureCollection, style func(*geojson.Feature) TractStyle, _ func(*geojson.Feature) (string, bool)) error {
	for _, f := range fc.Features {
		r.styles = append(r.styles, style(f))
	}
	return nil
}

func TestRender(t *testing.T) {
	tracts := geojson.NewFeatureCollection()
	tracts.Append(tractFeature(map[string]any{"GEOID": "970100"}))

	fx := newFixture(t, Options{Center: Coordinates{Lat: 44.1, Lng: -69.1}, Zoom: 10, Tracts: tracts})
	fx.source.set("Van Schedule", []sheets.Row{
		{"Date": "2025-03-12", "Location": "Library", "Latitude": "44.3", "Longitude": "-69.3"},
	}, nil)
	fx.source.set("Census Tract Data", []sheets.Row{{"Census_Tract": "970100", "Pct_Wout_Insurance": "18"}}, nil)

	r := &recordingRenderer{}
	require.NoError(t, fx.svc.Render(context.Background(), r, ScheduleFilter{}))

	assert.Equal(t, 10, r.zoom)
	require.Len(t, r.markers, 1)
	assert.Equal(t, "#10b981", r.markers[0].Color)
	require.NotNil(t, r.bounds)
	require.Len(t, r.styles, 1)
	assert.Equal(t, Tier4, r.styles[0].Tier)
}

func TestRenderWithoutData(t *testing.T) {
	fx := newFixture(t, Options{Zoom: 10})
	fx.source.set("Van Schedule", nil, errors.New("offline"))

	r := &recordingRenderer{}
	require.NoError(t, fx.svc.Render(context.Background(), r, ScheduleFilter{}))
	assert.Empty(t, r.markers)
	assert.Nil(t, r.bounds)
	assert.Empty(t, r.styles)
}

func TestChoroplethRequiresGeometry(t *testing.T) {
	fx := newFixture(t, Options{})
	_, err := fx.svc.Choropleth(context.Background())
	assert.ErrorIs(t, err, ErrNoTractGeometry)
}

func TestGetScheduleGeocodesOncePerFetch(t *testing.T) {
	fx := newFixture(t, Options{})
	fx.resolver.results["2 Elm St"] = Coordinates{Lat: 44.2, Lng: -69.2}
	fx.source.set("Van Schedule", []sheets.Row{
		{"Date": "2025-03-12", "Location": "Library", "Address": "2 Elm St"},
		{"Date": "2025-03-13", "Location": "Church", "Address": "9 Lost Rd"},
	}, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		got, err := fx.svc.GetSchedule(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	_, _, _, err := fx.svc.Markers(ctx, ScheduleFilter{Range: RangeAll})
	require.NoError(t, err)

	assert.Equal(t, 1, fx.source.count("Van Schedule"))
	assert.Equal(t, 1, fx.resolver.calls["9 Lost Rd"])
	assert.Equal(t, 1, fx.resolver.calls["2 Elm St"])

	// A refetch after the TTL is a new pass and retries the failed address.
	fx.clock.Advance(11 * time.Minute)
	_, err = fx.svc.GetSchedule(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fx.source.count("Van Schedule"))
	assert.Equal(t, 2, fx.resolver.calls["9 Lost Rd"])
}

func TestGetScheduleStaleRowsReuseGeocoding(t *testing.T) {
	fx := newFixture(t, Options{})
	fx.source.set("Van Schedule", []sheets.Row{
		{"Date": "2025-03-13", "Location": "Church", "Address": "9 Lost Rd"},
	}, nil)

	ctx := context.Background()
	_, err := fx.svc.GetSchedule(ctx)
	require.NoError(t, err)

	fx.clock.Advance(time.Hour)
	fx.source.set("Van Schedule", nil, errors.New("connection refused"))
	_, err = fx.svc.GetSchedule(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, fx.resolver.calls["9 Lost Rd"])
}

func TestClearCacheDropsGeocodedSchedule(t *testing.T) {
	fx := newFixture(t, Options{})
	fx.source.set("Van Schedule", []sheets.Row{
		{"Date": "2025-03-13", "Location": "Church", "Address": "9 Lost Rd"},
	}, nil)

	ctx := context.Background()
	_, err := fx.svc.GetSchedule(ctx)
	require.NoError(t, err)

	fx.svc.ClearCache()
	fx.resolver.mu.Lock()
	fx.resolver.results["9 Lost Rd"] = Coordinates{Lat: 44.3, Lng: -69.3}
	fx.resolver.mu.Unlock()

	got, err := fx.svc.GetSchedule(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, fx.resolver.calls["9 Lost Rd"])
}

func TestEnrichFailedAddressesFoldWhitespace(t *testing.T) {
	fx := newFixture(t, Options{})
	fx.source.set("Van Schedule", []sheets.Row{
		{"Date": "2025-03-12", "Location": "Church", "Address": "9 Lost Rd"},
		{"Date": "2025-03-13", "Location": "Church", "Address": "9  lost  RD"},
	}, nil)

	got, err := fx.svc.GetSchedule(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)

	total := 0
	for _, n := range fx.resolver.calls {
		total += n
	}
	assert.Equal(t, 1, total)
}

func TestStatusListsCachedDatasets(t *testing.T) {
	fx := newFixture(t, Options{})
	fx.source.set("Service Tracking", []sheets.Row{}, nil)
	fx.source.set("Census Tract Data", []sheets.Row{}, nil)

	ctx := context.Background()
	_, err := fx.svc.GetTracking(ctx)
	require.NoError(t, err)
	_, err = fx.svc.GetCensus(ctx)
	require.NoError(t, err)

	status := fx.svc.Status()
	assert.Len(t, status, 2)
	assert.Equal(t, fx.clock.Now(), status["Service Tracking"])
	assert.Contains(t, status, "Census Tract Data")
}
