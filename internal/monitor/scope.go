package monitor

import (
	"time"

	"github.com/tradesentry/tradesentry/pkg/errors"
)

// Scope is a preset pairing a lookback period with a bar interval. The poll
// cadence follows the interval: there is no point polling faster than a new
// bar can appear.
type Scope string

const (
	ScopeIntraday Scope = "intraday"
	ScopeShort    Scope = "short"
	ScopeLong     Scope = "long"
)

// PeriodInterval resolves the preset's fetch parameters.
func (s Scope) PeriodInterval() (string, string, error) {
	switch s {
	case ScopeIntraday:
		return "1d", "1m", nil
	case ScopeShort:
		return "1w", "15m", nil
	case ScopeLong:
		return "1mo", "1d", nil
	default:
		return "", "", errors.Newf(errors.ErrCodeInvalidScope, "unknown scope %q", s)
	}
}

// PollInterval maps a bar interval to its polling cadence.
func PollInterval(interval string) (time.Duration, error) {
	switch interval {
	case "1m":
		return time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "30m":
		return 30 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "2h":
		return 2 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	case "1w":
		return 7 * 24 * time.Hour, nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidInterval, "no poll interval for %q", interval)
	}
}
