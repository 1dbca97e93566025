package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyMode       = "mode"
	KeyModule     = "module"
	KeyRule       = "rule"
	KeyLoader     = "loader"
	KeyPlugin     = "plugin"
	KeyHook       = "hook"
	KeyStage      = "stage"
	KeyPath       = "path"
	KeyOutput     = "output"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyPort       = "port"
	KeyError      = "error"
)

func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Module(rel string) slog.Attr     { return slog.String(KeyModule, rel) }
func Rule(index int) slog.Attr        { return slog.Int(KeyRule, index) }
func Loader(name string) slog.Attr    { return slog.String(KeyLoader, name) }
func Plugin(name string) slog.Attr    { return slog.String(KeyPlugin, name) }
func Hook(point string) slog.Attr     { return slog.String(KeyHook, point) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Output(p string) slog.Attr       { return slog.String(KeyOutput, p) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Port(p int) slog.Attr            { return slog.Int(KeyPort, p) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
