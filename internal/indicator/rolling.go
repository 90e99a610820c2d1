package indicator

import (
	"math"
	"sort"
)

// Rolling window helpers over NaN-aware float columns. A window covers the
// trailing N values including the current index; cells with fewer than
// minPeriods defined observations yield NaN.

func windowStart(i, window int) int {
	start := i - window + 1
	if start < 0 {
		start = 0
	}

	return start
}

func rollingMean(vals []float64, window, minPeriods int) []float64 {
	out := make([]float64, len(vals))

	for i := range vals {
		sum, count := 0.0, 0

		for j := windowStart(i, window); j <= i; j++ {
			if !math.IsNaN(vals[j]) {
				sum += vals[j]
				count++
			}
		}

		if count < minPeriods || count == 0 {
			out[i] = math.NaN()
		} else {
			out[i] = sum / float64(count)
		}
	}

	return out
}

// rollingStd computes the sample standard deviation (one delta degree of
// freedom) over each window.
func rollingStd(vals []float64, window, minPeriods int) []float64 {
	out := make([]float64, len(vals))

	for i := range vals {
		sum, count := 0.0, 0

		for j := windowStart(i, window); j <= i; j++ {
			if !math.IsNaN(vals[j]) {
				sum += vals[j]
				count++
			}
		}

		if count < minPeriods || count < 2 {
			out[i] = math.NaN()

			continue
		}

		mean := sum / float64(count)
		sq := 0.0

		for j := windowStart(i, window); j <= i; j++ {
			if !math.IsNaN(vals[j]) {
				d := vals[j] - mean
				sq += d * d
			}
		}

		out[i] = math.Sqrt(sq / float64(count-1))
	}

	return out
}

func rollingMax(vals []float64, window, minPeriods int) []float64 {
	out := make([]float64, len(vals))

	for i := range vals {
		best, count := math.Inf(-1), 0

		for j := windowStart(i, window); j <= i; j++ {
			if !math.IsNaN(vals[j]) {
				count++
				if vals[j] > best {
					best = vals[j]
				}
			}
		}

		if count < minPeriods || count == 0 {
			out[i] = math.NaN()
		} else {
			out[i] = best
		}
	}

	return out
}

func rollingMin(vals []float64, window, minPeriods int) []float64 {
	out := make([]float64, len(vals))

	for i := range vals {
		best, count := math.Inf(1), 0

		for j := windowStart(i, window); j <= i; j++ {
			if !math.IsNaN(vals[j]) {
				count++
				if vals[j] < best {
					best = vals[j]
				}
			}
		}

		if count < minPeriods || count == 0 {
			out[i] = math.NaN()
		} else {
			out[i] = best
		}
	}

	return out
}

func rollingMedian(vals []float64, window, minPeriods int) []float64 {
	out := make([]float64, len(vals))
	buf := make([]float64, 0, window)

	for i := range vals {
		buf = buf[:0]

		for j := windowStart(i, window); j <= i; j++ {
			if !math.IsNaN(vals[j]) {
				buf = append(buf, vals[j])
			}
		}

		if len(buf) < minPeriods || len(buf) == 0 {
			out[i] = math.NaN()

			continue
		}

		sort.Float64s(buf)

		mid := len(buf) / 2
		if len(buf)%2 == 1 {
			out[i] = buf[mid]
		} else {
			out[i] = (buf[mid-1] + buf[mid]) / 2
		}
	}

	return out
}

// ema computes an exponential moving average with alpha = 2/(span+1), seeded
// by the first defined value with equal smoothing from then on (no bias
// adjustment). NaN inputs carry the running mean forward. Cells before
// minPeriods defined observations yield NaN.
func ema(vals []float64, span, minPeriods int) []float64 {
	alpha := 2.0 / (float64(span) + 1.0)
	out := make([]float64, len(vals))

	running := math.NaN()
	count := 0

	for i, v := range vals {
		if !math.IsNaN(v) {
			if math.IsNaN(running) {
				running = v
			} else {
				running = (1-alpha)*running + alpha*v
			}

			count++
		}

		if count < minPeriods || count == 0 {
			out[i] = math.NaN()
		} else {
			out[i] = running
		}
	}

	return out
}

// shift1 shifts values back one index, introducing NaN at the front.
func shift1(vals []float64) []float64 {
	out := make([]float64, len(vals))
	if len(out) == 0 {
		return out
	}

	out[0] = math.NaN()
	copy(out[1:], vals[:len(vals)-1])

	return out
}

// crossAbove fires where x moves from at-or-below ref to above ref between
// consecutive bars. NaN on either side of either bar yields false.
func crossAbove(x, ref []float64) []bool {
	out := make([]bool, len(x))

	for i := 1; i < len(x); i++ {
		out[i] = x[i] > ref[i] && x[i-1] <= ref[i-1]
	}

	return out
}

// crossBelow is the mirror of crossAbove.
func crossBelow(x, ref []float64) []bool {
	out := make([]bool, len(x))

	for i := 1; i < len(x); i++ {
		out[i] = x[i] < ref[i] && x[i-1] >= ref[i-1]
	}

	return out
}
