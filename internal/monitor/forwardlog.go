package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

const forwardStampLayout = "20060102_150405"

// ForwardLog appends each executed trade of a live session to
// <runstamp>_<ticker>_forwardtest.json as JSON lines. The runstamp is the
// timestamp of the session's first entry so a session's fills stay in one
// file.
type ForwardLog struct {
	dir    string
	ticker string
	path   string
}

// NewForwardLog creates a forward log for one ticker under dir. Nothing is
// written until the first trade.
func NewForwardLog(dir, ticker string) *ForwardLog {
	return &ForwardLog{dir: dir, ticker: ticker}
}

// Append records a trade. INFO records are ignored: the forward log is the
// trade-for-trade account of the session, not a heartbeat.
func (l *ForwardLog) Append(rec types.OrderRecord) error {
	if !rec.IsTrade() {
		return nil
	}

	if l.path == "" {
		stamp := rec.Timestamp.UTC()
		if rec.Action != types.ActionBuy || stamp.IsZero() {
			stamp = time.Now().UTC()
		}

		l.path = filepath.Join(l.dir, stamp.Format(forwardStampLayout)+"_"+l.ticker+"_forwardtest.json")
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeUnknown, "failed to create forward log directory", err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(errors.ErrCodeUnknown, "failed to encode trade record", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(errors.ErrCodeUnknown, "failed to open forward log", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return errors.Wrap(errors.ErrCodeUnknown, "failed to append trade record", err)
	}

	return nil
}

// Path returns the log file path, empty until the first trade is written.
func (l *ForwardLog) Path() string {
	return l.path
}
