package plugin

import "fmt"

// HookPoint names a lifecycle point of a build.
type HookPoint string

const (
	HookStart    HookPoint = "start"
	HookAsset    HookPoint = "asset"
	HookFinalize HookPoint = "finalize"
	HookEmit     HookPoint = "emit"
	HookDone     HookPoint = "done"
)

// HookPoints lists every hook point in lifecycle order.
var HookPoints = []HookPoint{HookStart, HookAsset, HookFinalize, HookEmit, HookDone}

// IsValid returns true if the hook point is recognized.
func (h HookPoint) IsValid() bool {
	switch h {
	case HookStart, HookAsset, HookFinalize, HookEmit, HookDone:
		return true
	default:
		return false
	}
}

// String returns the string representation of the hook point.
func (h HookPoint) String() string {
	return string(h)
}

// PluginError represents an error that occurred within a plugin.
type PluginError struct {
	// PluginName identifies which plugin failed.
	PluginName string

	// Operation is the hook or step the plugin was running when it failed.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin %s failed during %s: %v", e.PluginName, e.Operation, e.Err)
}

// Unwrap returns the underlying error for error inspection.
func (e *PluginError) Unwrap() error {
	return e.Err
}

// NewPluginError creates a new plugin error.
func NewPluginError(pluginName, operation string, err error) *PluginError {
	return &PluginError{
		PluginName: pluginName,
		Operation:  operation,
		Err:        err,
	}
}
