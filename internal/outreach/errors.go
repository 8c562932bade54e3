package outreach

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrDatasetUnavailable is reported for a dataset that could not be
	// fetched and has never been cached.
	ErrDatasetUnavailable = eris.New("dataset unavailable")

	// ErrAllSourcesUnavailable is returned by LoadAll when no dataset could
	// be produced at all.
	ErrAllSourcesUnavailable = eris.New("all data sources unavailable")

	// ErrNoTractGeometry means no census tract polygons were configured.
	ErrNoTractGeometry = eris.New("census tract geometry not loaded")
)

// FetchError wraps the upstream failure for a dataset that had no cached
// fallback.
type FetchError struct {
	Dataset string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch dataset %q: %v", e.Dataset, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDatasetUnavailable) hold for every FetchError.
func (e *FetchError) Is(target error) bool {
	return target == ErrDatasetUnavailable
}
