// Package errors provides the classified error primitives used across assetpack.
//
// A ClassifiedError carries a category (config, rule, loader, plugin, build, ...),
// a severity, a retry strategy and a small map of structured context. Errors are
// created with the fluent builder:
//
//	err := errors.LoaderError("transpile failed").
//		WithContext("loader", "babel-loader").
//		WithContext("module", "src/App.jsx").
//		WithCause(cause).
//		Build()
//
// The CLI adapter maps categories to process exit codes.
package errors
