package backtest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/invopop/jsonschema"
	"go.uber.org/zap"

	"github.com/tradesentry/tradesentry/internal/indicator"
	"github.com/tradesentry/tradesentry/internal/logger"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

// SchemaVersion tags persisted reports. Readers accept any version sharing the
// same major.
const SchemaVersion = "1.0.0"

const reportStampLayout = "20060102_150405"

// Report is the persisted optimizer output the monitor consumes: the winning
// indicator configurations plus the metrics they scored.
type Report struct {
	SchemaVersion           string           `json:"schema_version"`
	Ticker                  string           `json:"ticker"`
	Period                  string           `json:"period"`
	Interval                string           `json:"interval"`
	GeneratedAt             time.Time        `json:"generated_at"`
	IndicatorConfigurations []indicator.Spec `json:"indicator_configurations"`
	Performance             Performance      `json:"performance"`
}

// Save writes the report to dir as <ticker>_<stamp>_metrics.json, creating the
// directory when needed, and returns the written path.
func (r *Report) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeBacktestStoreFailed, "failed to create report directory", err)
	}

	path := filepath.Join(dir, r.Ticker+"_"+r.GeneratedAt.UTC().Format(reportStampLayout)+"_metrics.json")

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeBacktestStoreFailed, "failed to encode report", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(errors.ErrCodeBacktestStoreFailed, "failed to write report", err)
	}

	return path, nil
}

// LoadLatestReport loads the newest <ticker>_*_metrics.json in dir by
// modification time. Missing reports yield ErrCodeReportNotFound so callers
// can fall back to running a backtest.
func LoadLatestReport(dir, ticker string) (*Report, error) {
	matches, err := filepath.Glob(filepath.Join(dir, ticker+"_*_metrics.json"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeReportNotFound, "report glob failed", err)
	}

	var (
		newest      string
		newestMtime time.Time
	)

	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		if newest == "" || info.ModTime().After(newestMtime) {
			newest = path
			newestMtime = info.ModTime()
		}
	}

	if newest == "" {
		return nil, errors.Newf(errors.ErrCodeReportNotFound, "no optimizer report for %s in %s", ticker, dir)
	}

	return LoadReport(newest)
}

// LoadReport loads and version-checks one report file.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeReportNotFound, "failed to read report", err)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeReportParseFailed, err, "failed to parse report %s", path)
	}

	if err := checkSchemaVersion(report.SchemaVersion); err != nil {
		return nil, err
	}

	return &report, nil
}

func checkSchemaVersion(version string) error {
	if version == "" {
		return errors.New(errors.ErrCodeReportVersionMismatch, "report has no schema_version")
	}

	got, err := semver.NewVersion(version)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeReportVersionMismatch, err, "invalid schema_version %q", version)
	}

	want := semver.MustParse(SchemaVersion)
	if got.Major() != want.Major() {
		return errors.Newf(errors.ErrCodeReportVersionMismatch,
			"report schema_version %s is incompatible with %s", version, SchemaVersion)
	}

	return nil
}

// ResolveIndicators filters the stored configurations to the kinds the static
// registry knows, logging and skipping the rest. Renamed or removed kinds in a
// stale report must not take the monitor down.
func (r *Report) ResolveIndicators(log *logger.Logger) []indicator.Spec {
	if log == nil {
		log = logger.NewNopLogger()
	}

	resolved := make([]indicator.Spec, 0, len(r.IndicatorConfigurations))

	for _, spec := range r.IndicatorConfigurations {
		if !indicator.Known(spec.Kind) {
			log.Warn("skipping unresolvable indicator configuration",
				zap.String("kind", string(spec.Kind)),
				zap.String("ticker", r.Ticker))

			continue
		}

		resolved = append(resolved, spec)
	}

	return resolved
}

// ReportSchema returns the JSON schema of the report document.
func ReportSchema() ([]byte, error) {
	schema := jsonschema.Reflect(&Report{})

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnknown, "failed to encode report schema", err)
	}

	return data, nil
}
