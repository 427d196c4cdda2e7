package solver

import "github.com/cockroachdb/errors"

var (
	// ErrOptimize marks failures while planning a pattern. The query
	// aborts; there is no fallback to an unoptimized plan.
	ErrOptimize = errors.New("optimize failed")

	// ErrUnsupportedFilter is the reason a filter was not pushed into an
	// index range scan.
	ErrUnsupportedFilter = errors.New("unsupported filter")
)
