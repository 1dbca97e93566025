// Package build runs one complete asset build.
//
// A Builder owns the compiled rule matcher, the loader registry, the plugin
// registry and the optional transpile cache for a single configuration. Run
// walks the source root, sends every matched file through its loader chain on
// a bounded worker pool, resolves asset modules, links the entry with esbuild
// and writes the outputs. Plugins observe the build through the start, asset,
// finalize, emit and done hooks.
//
// All execution paths (the build command, the dev server and tests) go
// through Builder.Run.
package build
