package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyPath       = "path"
	KeyPattern    = "pattern"
	KeySource     = "source"
	KeyOutput     = "output"
	KeyURL        = "url"
	KeyFiles      = "files"
	KeyJobs       = "jobs"
	KeyFailed     = "failed"
	KeyOutcome    = "outcome"
	KeyDurationMS = "duration_ms"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Pattern(p string) slog.Attr      { return slog.String(KeyPattern, p) }
func Source(p string) slog.Attr       { return slog.String(KeySource, p) }
func Output(p string) slog.Attr       { return slog.String(KeyOutput, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Files(n int) slog.Attr           { return slog.Int(KeyFiles, n) }
func Jobs(n int) slog.Attr            { return slog.Int(KeyJobs, n) }
func Failed(n int) slog.Attr          { return slog.Int(KeyFailed, n) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
