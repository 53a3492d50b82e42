package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/databacker/docker-database-backup/pkg/config"
)

// Status is the terminal state of a target in a cycle.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	// StatusFailedInGrace is a failure of a container younger than its grace time. It counts
	// as a success for the cycle.
	StatusFailedInGrace Status = "failed_in_grace"
)

// Counted reports whether the status counts as successful for the cycle.
func (s Status) Counted() bool {
	return s == StatusSuccess || s == StatusFailedInGrace
}

// Classify decides the status of a target from whether it failed and how long its
// container has been up.
func Classify(failed bool, uptime, grace time.Duration) Status {
	switch {
	case !failed:
		return StatusSuccess
	case uptime < grace:
		return StatusFailedInGrace
	}
	return StatusFailed
}

// Artifact is a dump file on disk.
type Artifact struct {
	Path          string
	RawSize       int64
	ProcessedSize int64
}

type TargetResult struct {
	// Container is the container name, Name the dump name.
	Container string
	Name      string
	Kind      config.Kind
	Status    Status
	Duration  time.Duration
	// RawSize and Size are zero when no dump was produced.
	RawSize int64
	Size    int64
	Checked int
	Kept    int
	Path    string
	Err     error
}

type CycleResult struct {
	Run        uuid.UUID
	Start      time.Time
	Duration   time.Duration
	Targets    int
	Successful int
	Results    []TargetResult
}

// Success reports whether every target counted as successful. A cycle without targets is
// a success.
func (r CycleResult) Success() bool {
	return r.Successful == r.Targets
}

