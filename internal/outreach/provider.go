package outreach

import (
	"context"
	"time"

	"github.com/i474232898/wellness-van-map/internal/sheets"
)

// SheetSource fetches the raw rows of one named dataset (a spreadsheet tab).
// Malformed payloads are reported as *sheets.ParseError.
type SheetSource interface {
	Fetch(ctx context.Context, dataset string) ([]sheets.Row, error)
}

// DatasetCache is the contract the in-memory dataset cache must satisfy.
type DatasetCache interface {
	Read(key string, ttl time.Duration) ([]sheets.Row, bool)
	Write(key string, rows []sheets.Row)
	Stale(key string) ([]sheets.Row, bool)
	FetchedAt(key string) (time.Time, bool)
	Keys() []string
	Clear()
}

// Resolver turns a street address into coordinates.
type Resolver interface {
	Resolve(ctx context.Context, address, region string) (Coordinates, bool)
}
