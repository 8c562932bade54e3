package outreach

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/i474232898/wellness-van-map/internal/common"
	"github.com/i474232898/wellness-van-map/internal/observability"
	"github.com/i474232898/wellness-van-map/internal/sheets"
)

// Datasets names the spreadsheet tab behind each dataset.
type Datasets struct {
	Schedule string
	Tracking string
	Census   string
}

// Options configures a Service.
type Options struct {
	Datasets Datasets
	CacheTTL time.Duration

	// Region is appended to addresses before geocoding.
	Region string

	// Location decides which calendar day is "today".
	Location *time.Location
	Clock    clockwork.Clock

	Palette       Palette
	BoundsPadding float64
	Center        Coordinates
	Zoom          int

	// Tracts holds the census tract polygons; nil disables the overlay.
	Tracts *geojson.FeatureCollection

	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// Service loads, caches and derives the outreach datasets.
type Service struct {
	source   SheetSource
	cache    DatasetCache
	resolver Resolver
	opts     Options

	flight       singleflight.Group
	enrichFlight singleflight.Group

	mu          sync.RWMutex
	lastUpdate  time.Time
	generations map[string]uint64
	schedule    *enrichedSchedule
}

// enrichedSchedule is the geocoded schedule built from one fetch of the
// schedule rows.
type enrichedSchedule struct {
	generation uint64
	records    []ScheduleRecord
}

// NewService creates a new Service. resolver may be nil, in which case
// schedule records without coordinates are dropped.
func NewService(source SheetSource, cache DatasetCache, resolver Resolver, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics(prometheus.NewRegistry())
	}
	opts.Palette = opts.Palette.withDefaults()

	return &Service{
		source:      source,
		cache:       cache,
		resolver:    resolver,
		opts:        opts,
		generations: make(map[string]uint64),
	}
}

// Today is the current calendar day in the configured location.
func (s *Service) Today() Date {
	return DateOf(s.opts.Clock.Now().In(s.opts.Location))
}

// LastUpdate reports when any dataset was last fetched successfully.
func (s *Service) LastUpdate() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate, !s.lastUpdate.IsZero()
}

// Status reports the fetch time of every cached dataset.
func (s *Service) Status() map[string]time.Time {
	keys := s.cache.Keys()
	status := make(map[string]time.Time, len(keys))
	for _, name := range keys {
		if at, ok := s.cache.FetchedAt(name); ok {
			status[name] = at
		}
	}
	return status
}

// ClearCache drops every cached dataset so the next read refetches.
func (s *Service) ClearCache() {
	s.cache.Clear()
	s.mu.Lock()
	s.schedule = nil
	s.mu.Unlock()
	s.opts.Logger.Info("dataset cache cleared")
}

// fetchRows returns fresh cached rows, or fetches them. A failed fetch falls
// back to stale rows; with nothing cached it returns a *FetchError.
func (s *Service) fetchRows(ctx context.Context, dataset string) ([]sheets.Row, error) {
	if rows, ok := s.cache.Read(dataset, s.opts.CacheTTL); ok {
		s.opts.Metrics.DatasetFetch.WithLabelValues(dataset, "cached").Inc()
		return rows, nil
	}

	v, err, _ := s.flight.Do(dataset, func() (any, error) {
		// A concurrent flight may have just filled the cache.
		if rows, ok := s.cache.Read(dataset, s.opts.CacheTTL); ok {
			return rows, nil
		}

		rows, err := s.source.Fetch(ctx, dataset)
		if err == nil {
			s.cache.Write(dataset, rows)
			s.touch(dataset)
			s.opts.Metrics.DatasetFetch.WithLabelValues(dataset, "fetched").Inc()
			s.opts.Logger.Debug("dataset fetched", zap.String("dataset", dataset), zap.Int("rows", len(rows)))
			return rows, nil
		}

		var perr *sheets.ParseError
		if errors.As(err, &perr) {
			s.opts.Logger.Warn("dataset payload malformed", zap.String("dataset", dataset), zap.Error(err))
		} else {
			s.opts.Logger.Warn("dataset fetch failed", zap.String("dataset", dataset), zap.Error(err))
		}

		if stale, ok := s.cache.Stale(dataset); ok {
			s.opts.Metrics.DatasetFetch.WithLabelValues(dataset, "stale").Inc()
			s.opts.Logger.Info("serving stale dataset", zap.String("dataset", dataset))
			return stale, nil
		}

		s.opts.Metrics.DatasetFetch.WithLabelValues(dataset, "unavailable").Inc()
		return nil, &FetchError{Dataset: dataset, Err: err}
	})
	if err != nil {
		return nil, err
	}
	return v.([]sheets.Row), nil
}

// touch records a successful fetch of dataset.
func (s *Service) touch(dataset string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUpdate = s.opts.Clock.Now()
	s.generations[dataset]++
}

func (s *Service) generation(dataset string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generations[dataset]
}

func (s *Service) cachedSchedule(generation uint64) ([]ScheduleRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.schedule == nil || s.schedule.generation != generation {
		return nil, false
	}
	return s.schedule.records, true
}

// GetSchedule returns every usable schedule record, geocoding the ones that
// have an address but no coordinates. Geocoding runs once per fetch of the
// schedule rows; later calls reuse the result until the rows are refetched.
// An unavailable dataset yields an empty slice and an error matching
// ErrDatasetUnavailable.
func (s *Service) GetSchedule(ctx context.Context) ([]ScheduleRecord, error) {
	rows, err := s.fetchRows(ctx, s.opts.Datasets.Schedule)
	if err != nil {
		return []ScheduleRecord{}, err
	}

	gen := s.generation(s.opts.Datasets.Schedule)
	if records, ok := s.cachedSchedule(gen); ok {
		return cloneRecords(records), nil
	}

	v, _, _ := s.enrichFlight.Do(s.opts.Datasets.Schedule, func() (any, error) {
		if records, ok := s.cachedSchedule(gen); ok {
			return records, nil
		}

		records := s.enrich(ctx, NormalizeSchedule(rows))
		// A cancelled pass may have dropped records it never looked up.
		if ctx.Err() == nil {
			s.mu.Lock()
			s.schedule = &enrichedSchedule{generation: gen, records: records}
			s.mu.Unlock()
		}
		return records, nil
	})
	return cloneRecords(v.([]ScheduleRecord)), nil
}

func cloneRecords(records []ScheduleRecord) []ScheduleRecord {
	out := make([]ScheduleRecord, len(records))
	copy(out, records)
	return out
}

func (s *Service) enrich(ctx context.Context, records []ScheduleRecord) []ScheduleRecord {
	failed := make(map[string]struct{})

	out := make([]ScheduleRecord, 0, len(records))
	for _, r := range records {
		if !r.HasCoordinates() {
			if r.Address == "" || s.resolver == nil {
				continue
			}
			key := common.FoldSpace(r.Address)
			if _, seen := failed[key]; seen {
				continue
			}

			c, ok := s.resolver.Resolve(ctx, r.Address, s.opts.Region)
			if !ok {
				failed[key] = struct{}{}
				s.opts.Logger.Info("dropping schedule record without coordinates",
					zap.String("location", r.Location),
					zap.String("address", r.Address),
				)
				continue
			}
			r.Lat, r.Lng = c.Lat, c.Lng
		}

		if r.Usable() {
			out = append(out, r)
		}
	}
	return out
}

// GetTracking returns every usable tracking record.
func (s *Service) GetTracking(ctx context.Context) ([]TrackingRecord, error) {
	rows, err := s.fetchRows(ctx, s.opts.Datasets.Tracking)
	if err != nil {
		return []TrackingRecord{}, err
	}
	return NormalizeTracking(rows), nil
}

// GetCensus returns the census tract rows.
func (s *Service) GetCensus(ctx context.Context) ([]CensusTract, error) {
	rows, err := s.fetchRows(ctx, s.opts.Datasets.Census)
	if err != nil {
		return []CensusTract{}, err
	}
	return NormalizeCensus(rows), nil
}

// GetStatistics summarizes the tracking dataset.
func (s *Service) GetStatistics(ctx context.Context) (Statistics, error) {
	tracking, err := s.GetTracking(ctx)
	if err != nil {
		return Statistics{}, err
	}
	return ComputeStatistics(tracking), nil
}

// LoadAll fetches every dataset concurrently. Datasets that fail are
// served empty; only when all of them fail is ErrAllSourcesUnavailable
// returned.
func (s *Service) LoadAll(ctx context.Context) (Snapshot, error) {
	var (
		snap                            Snapshot
		scheduleErr, trackErr, tractErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap.Schedule, scheduleErr = s.GetSchedule(gctx)
		return nil
	})
	g.Go(func() error {
		snap.Tracking, trackErr = s.GetTracking(gctx)
		return nil
	})
	g.Go(func() error {
		snap.Census, tractErr = s.GetCensus(gctx)
		return nil
	})
	_ = g.Wait()

	if scheduleErr != nil && trackErr != nil && tractErr != nil {
		s.opts.Logger.Error("no dataset could be loaded", zap.Error(scheduleErr))
		return Snapshot{}, ErrAllSourcesUnavailable
	}

	snap.Schedule = SortByDate(snap.Schedule)
	snap.Statistics = ComputeStatistics(snap.Tracking)
	return snap, nil
}

// Refresh loads every dataset once, warming the caches. It is meant to be
// run periodically.
func (s *Service) Refresh(ctx context.Context) error {
	start := time.Now()
	snap, err := s.LoadAll(ctx)
	s.opts.Metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	s.opts.Metrics.LastRefresh.Set(float64(s.opts.Clock.Now().Unix()))
	s.opts.Logger.Info("datasets refreshed",
		zap.Int("schedule", len(snap.Schedule)),
		zap.Int("tracking", len(snap.Tracking)),
		zap.Int("census", len(snap.Census)),
	)
	return nil
}

// Schedule returns the schedule narrowed by f and sorted by date.
func (s *Service) Schedule(ctx context.Context, f ScheduleFilter) ([]ScheduleRecord, error) {
	records, err := s.GetSchedule(ctx)
	if err != nil {
		return records, err
	}
	records = FilterByDateRange(records, f.Range, s.Today())
	records = FilterByService(records, f.Service)
	return SortByDate(records), nil
}

// Markers groups the filtered schedule by place. ok is false when there is
// nothing to fit the map to.
func (s *Service) Markers(ctx context.Context, f ScheduleFilter) ([]MarkerGroup, orb.Bound, bool, error) {
	records, err := s.Schedule(ctx, f)
	if err != nil {
		return []MarkerGroup{}, orb.Bound{}, false, err
	}
	groups := GroupMarkers(records, s.Today())
	bounds, ok := FitBounds(groups, s.opts.BoundsPadding)
	return groups, bounds, ok, nil
}

// Choropleth returns the tract polygons annotated with tier colors and popups.
func (s *Service) Choropleth(ctx context.Context) (*geojson.FeatureCollection, error) {
	if s.opts.Tracts == nil {
		return nil, ErrNoTractGeometry
	}
	census, err := s.GetCensus(ctx)
	if err != nil {
		s.opts.Logger.Warn("census data unavailable; tracts render as unknown", zap.Error(err))
	}
	return NewChoropleth(census, s.opts.Palette).Annotate(s.opts.Tracts), nil
}

// Render draws the filtered schedule and, when configured, the tract
// overlay onto r. An unavailable schedule leaves the map empty.
func (s *Service) Render(ctx context.Context, r MapRenderer, f ScheduleFilter) error {
	if err := r.SetView(s.opts.Center, s.opts.Zoom); err != nil {
		return err
	}

	if s.opts.Tracts != nil {
		census, err := s.GetCensus(ctx)
		if err != nil {
			s.opts.Logger.Warn("census data unavailable; tracts render as unknown", zap.Error(err))
		}
		c := NewChoropleth(census, s.opts.Palette)
		if err := r.AddTractOverlay(s.opts.Tracts, c.Style, c.Popup); err != nil {
			return err
		}
	}

	groups, bounds, ok, err := s.Markers(ctx, f)
	if err != nil && !errors.Is(err, ErrDatasetUnavailable) {
		return err
	}
	specs, err := BuildMarkerSpecs(groups, s.opts.Palette)
	if err != nil {
		return err
	}

	var fit *orb.Bound
	if ok {
		fit = &bounds
	}
	return r.PlaceMarkers(specs, fit)
}
