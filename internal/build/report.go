package build

import (
	"time"

	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/plugin"
)

// Status represents the outcome of a build execution.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// IsSuccess returns true if the build completed successfully.
func (s Status) IsSuccess() bool { return s == StatusSuccess }

// StageTiming is how long one stage of a build took.
type StageTiming struct {
	Name     string
	Duration time.Duration
}

// Report describes a finished build. Run returns a report even when the build
// fails, filled in as far as the build got.
type Report struct {
	BuildID  string
	Mode     config.Mode
	Status   Status
	Snapshot string

	// Modules is the number of files that went through a rule.
	Modules int
	// Passthrough is the number of unmatched files copied verbatim.
	Passthrough int
	// Emitted lists written files relative to the output directory, in write order.
	Emitted      []string
	EmittedBytes int64
	Chunks       []plugin.Chunk
	Warnings     []string

	Stages    []StageTiming
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Hash identifies the emitted output set; it changes whenever any
	// emitted path or byte changes.
	Hash string
}

// StageDuration returns the recorded duration of a stage.
func (r *Report) StageDuration(name string) (time.Duration, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s.Duration, true
		}
	}
	return 0, false
}
