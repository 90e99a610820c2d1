package indicator

import "github.com/moznion/go-optional"

// someCells wraps plain booleans as defined signal cells. Indicator signal
// columns are false where the underlying computation is undefined, never
// missing, so the aggregator can always read them.
func someCells(bits []bool) []optional.Option[bool] {
	cells := make([]optional.Option[bool], len(bits))
	for i, b := range bits {
		cells[i] = optional.Some(b)
	}

	return cells
}
