package geocode

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/i474232898/wellness-van-map/internal/common"
	"github.com/i474232898/wellness-van-map/internal/observability"
	"github.com/i474232898/wellness-van-map/internal/outreach"
)

// Candidate is one match returned by a geocoding service.
type Candidate struct {
	Lat         float64
	Lng         float64
	DisplayName string
}

// Provider abstracts a forward geocoding service (e.g. Nominatim, Google).
// An empty slice with a nil error means the query matched nothing.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, query string) ([]Candidate, error)
}

type job struct {
	ctx   context.Context
	key   string
	query string
	reply chan outcome
}

type outcome struct {
	coords outreach.Coordinates
	ok     bool
}

// Enricher resolves addresses to coordinates. Lookups are served from a
// process-lifetime cache when possible; everything else goes through a single
// worker that keeps at least minInterval between calls to the provider.
type Enricher struct {
	provider Provider
	limiter  *rate.Limiter
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu    sync.RWMutex
	cache map[string]outreach.Coordinates

	jobs      chan job
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewEnricher starts the lookup worker. Call Close to stop it.
func NewEnricher(p Provider, minInterval time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}

	e := &Enricher{
		provider: p,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
		metrics:  metrics,
		cache:    make(map[string]outreach.Coordinates),
		jobs:     make(chan job),
		done:     make(chan struct{}),
	}

	e.wg.Add(1)
	go e.run()
	return e
}

// NormalizeKey builds the cache key for an address within a region.
func NormalizeKey(address, region string) string {
	parts := make([]string, 0, 2)
	for _, s := range []string{address, region} {
		if s = common.FoldSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func buildQuery(address, region string) string {
	address = strings.TrimSpace(address)
	region = strings.TrimSpace(region)
	if region == "" {
		return address
	}
	return address + ", " + region
}

// Resolve returns the coordinates of address within region. ok is false when
// the provider found nothing, failed, or ctx ended first. Failures are logged,
// never returned, and never cached.
func (e *Enricher) Resolve(ctx context.Context, address, region string) (outreach.Coordinates, bool) {
	key := NormalizeKey(address, region)
	if key == "" {
		return outreach.Coordinates{}, false
	}

	if c, ok := e.lookupCache(key); ok {
		e.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return c, true
	}
	e.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	j := job{ctx: ctx, key: key, query: buildQuery(address, region), reply: make(chan outcome, 1)}

	select {
	case e.jobs <- j:
	case <-ctx.Done():
		return outreach.Coordinates{}, false
	case <-e.done:
		return outreach.Coordinates{}, false
	}

	select {
	case out := <-j.reply:
		return out.coords, out.ok
	case <-ctx.Done():
		return outreach.Coordinates{}, false
	}
}

// Len reports how many addresses are cached.
func (e *Enricher) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

// Clear forgets every cached address.
func (e *Enricher) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]outreach.Coordinates)
}

// Close stops the worker. Pending and later Resolve calls that miss the
// cache report not found.
func (e *Enricher) Close() {
	e.closeOnce.Do(func() { close(e.done) })
	e.wg.Wait()
}

func (e *Enricher) lookupCache(key string) (outreach.Coordinates, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.cache[key]
	return c, ok
}

func (e *Enricher) run() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			return
		case j := <-e.jobs:
			j.reply <- e.handle(j)
		}
	}
}

func (e *Enricher) handle(j job) outcome {
	// An earlier job in the queue may have resolved the same address.
	if c, ok := e.lookupCache(j.key); ok {
		return outcome{coords: c, ok: true}
	}

	if err := e.limiter.Wait(j.ctx); err != nil {
		return outcome{}
	}

	start := time.Now()
	candidates, err := e.provider.Lookup(j.ctx, j.query)
	e.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		e.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		e.logger.Warn("geocode lookup failed",
			zap.String("provider", e.provider.Name()),
			zap.String("query", j.query),
			zap.Error(err),
		)
		return outcome{}
	}

	for _, c := range candidates {
		coords := outreach.Coordinates{Lat: c.Lat, Lng: c.Lng}
		if !coords.Valid() {
			continue
		}

		e.mu.Lock()
		e.cache[j.key] = coords
		e.mu.Unlock()

		e.metrics.GeocodeRequests.WithLabelValues("success").Inc()
		e.logger.Debug("geocode lookup resolved",
			zap.String("provider", e.provider.Name()),
			zap.String("query", j.query),
			zap.String("match", c.DisplayName),
		)
		return outcome{coords: coords, ok: true}
	}

	e.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
	e.logger.Debug("geocode lookup returned no usable candidates",
		zap.String("provider", e.provider.Name()),
		zap.String("query", j.query),
	)
	return outcome{}
}
