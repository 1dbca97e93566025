// Package plugin provides the build plugin system: plugins implement any
// subset of the lifecycle hooks and run in registration order against a
// shared BuildContext.
package plugin

import "context"

// Plugin is anything with a stable name. Hooks are opt-in through the
// StartHook, AssetHook, FinalizeHook, EmitHook and DoneHook interfaces.
type Plugin interface {
	Name() string
}

// StartHook runs once before the source tree is walked.
type StartHook interface {
	OnStart(ctx context.Context, bc *BuildContext) error
}

// AssetHook runs once per processed module, in path order, with bc.Current set.
type AssetHook interface {
	OnAsset(ctx context.Context, bc *BuildContext) error
}

// FinalizeHook runs after the entry has been linked and before emission.
// Plugins add chunks here.
type FinalizeHook interface {
	OnFinalize(ctx context.Context, bc *BuildContext) error
}

// EmitHook runs when all chunks are known and may add or rewrite outputs.
type EmitHook interface {
	OnEmit(ctx context.Context, bc *BuildContext) error
}

// DoneHook runs after outputs have been written.
type DoneHook interface {
	OnDone(ctx context.Context, bc *BuildContext) error
}

// Implements reports whether p has the hook for point.
func Implements(p Plugin, point HookPoint) bool {
	switch point {
	case HookStart:
		_, ok := p.(StartHook)
		return ok
	case HookAsset:
		_, ok := p.(AssetHook)
		return ok
	case HookFinalize:
		_, ok := p.(FinalizeHook)
		return ok
	case HookEmit:
		_, ok := p.(EmitHook)
		return ok
	case HookDone:
		_, ok := p.(DoneHook)
		return ok
	default:
		return false
	}
}

func invoke(ctx context.Context, p Plugin, point HookPoint, bc *BuildContext) error {
	switch point {
	case HookStart:
		return p.(StartHook).OnStart(ctx, bc)
	case HookAsset:
		return p.(AssetHook).OnAsset(ctx, bc)
	case HookFinalize:
		return p.(FinalizeHook).OnFinalize(ctx, bc)
	case HookEmit:
		return p.(EmitHook).OnEmit(ctx, bc)
	case HookDone:
		return p.(DoneHook).OnDone(ctx, bc)
	}
	return nil
}
