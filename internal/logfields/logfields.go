package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyProject    = "project"
	KeyModule     = "module"
	KeyLayer      = "layer"
	KeyBaseline   = "baseline"
	KeyTask       = "task"
	KeyTaskStatus = "task_status"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyDigest     = "digest"
	KeyEntries    = "entries"
	KeyCount      = "count"
	KeyTool       = "tool"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Project(id string) slog.Attr     { return slog.String(KeyProject, id) }
func Module(name string) slog.Attr    { return slog.String(KeyModule, name) }
func Layer(name string) slog.Attr     { return slog.String(KeyLayer, name) }
func Baseline(b int) slog.Attr        { return slog.Int(KeyBaseline, b) }
func Task(id string) slog.Attr        { return slog.String(KeyTask, id) }
func TaskStatus(s string) slog.Attr   { return slog.String(KeyTaskStatus, s) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Digest(d string) slog.Attr       { return slog.String(KeyDigest, d) }
func Entries(n int) slog.Attr         { return slog.Int(KeyEntries, n) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Tool(name string) slog.Attr      { return slog.String(KeyTool, name) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
