package core

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/databacker/docker-database-backup/pkg/docker"
	"github.com/databacker/docker-database-backup/pkg/process"
)

// Runtime is the container runtime the targets run on.
type Runtime interface {
	Self(ctx context.Context) (docker.Container, error)
	ListTargets(ctx context.Context, label string) ([]docker.Container, error)
	CreateNetwork(ctx context.Context, name string) (string, error)
	Connect(ctx context.Context, networkID, containerID, alias string) error
	Disconnect(ctx context.Context, networkID, containerID string) error
	RemoveNetwork(ctx context.Context, networkID string) error
}

// Runner runs the dump tools.
type Runner interface {
	Run(ctx context.Context, cmd process.Command) (process.Result, error)
}

// MetricsSink receives the result of every cycle.
type MetricsSink interface {
	Flush(result CycleResult)
}

// Healthcheck is notified about cycles. Delivery is best effort.
type Healthcheck interface {
	Start(ctx context.Context, message string)
	Success(ctx context.Context, message string)
	Fail(ctx context.Context, message string)
}

type Executor struct {
	Logger  *log.Logger
	Runtime Runtime
	Runner  Runner
	Metrics MetricsSink
	Health  Healthcheck
	// Now defaults to time.Now.
	Now func() time.Time
}

func (e *Executor) SetLogger(logger *log.Logger) {
	e.Logger = logger
}

func (e *Executor) GetLogger() *log.Logger {
	return e.Logger
}

func (e *Executor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Executor) flush(result CycleResult) {
	if e.Metrics != nil {
		e.Metrics.Flush(result)
	}
}

func (e *Executor) health() Healthcheck {
	if e.Health != nil {
		return e.Health
	}
	return noopHealthcheck{}
}

type noopHealthcheck struct{}

func (noopHealthcheck) Start(context.Context, string)   {}
func (noopHealthcheck) Success(context.Context, string) {}
func (noopHealthcheck) Fail(context.Context, string)    {}
