package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for builds, stages, loaders and the transpile cache.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(result ResultLabel)
	ObserveLoaderDuration(loader string, d time.Duration)
	IncModulesProcessed(moduleType string)
	IncCacheLookup(hit bool)
	SetEmittedBytes(n int64)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)  {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)          {}
func (NoopRecorder) IncStageResult(string, ResultLabel)          {}
func (NoopRecorder) IncBuildOutcome(ResultLabel)                 {}
func (NoopRecorder) ObserveLoaderDuration(string, time.Duration) {}
func (NoopRecorder) IncModulesProcessed(string)                  {}
func (NoopRecorder) IncCacheLookup(bool)                         {}
func (NoopRecorder) SetEmittedBytes(int64)                       {}
