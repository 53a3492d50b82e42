package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/databacker/docker-database-backup/pkg/config"
	"github.com/databacker/docker-database-backup/pkg/docker"
	"github.com/databacker/docker-database-backup/pkg/util"
)

const noTargetsMessage = "Finished backup cycle. No databases to backup."

type CycleOptions struct {
	// Run identifies the cycle in logs; a new one is generated when empty.
	Run         uuid.UUID
	Global      config.Labels
	LabelPrefix string
	DumpDir     string
	UID         int
	GID         int
	// NetworkName names the isolation network, TargetName is the alias targets get on it.
	NetworkName string
	TargetName  string
	Whitelist   []string
	Blacklist   []string
	// Self is connected to the isolation network so the dump tools can reach the targets.
	// It is skipped when its ID is empty.
	Self docker.Container
}

// Discover finds the container the service runs in.
func (e *Executor) Discover(ctx context.Context) (docker.Container, error) {
	self, err := e.Runtime.Self(ctx)
	if err != nil {
		return docker.Container{}, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	e.Logger.Debugf("own container: %s (%s)", self.Name, self.ShortID)
	return self, nil
}

// RunCycle backs up every enabled target once. Target failures end up in the result; the
// error is for failures of the cycle itself.
func (e *Executor) RunCycle(ctx context.Context, opts CycleOptions) (CycleResult, error) {
	tracer := util.GetTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "cycle")
	defer span.End()

	result := CycleResult{Run: opts.Run, Start: e.now()}
	if result.Run == uuid.Nil {
		result.Run = uuid.New()
	}
	logger := e.Logger.WithField("run", result.Run.String())
	span.SetAttributes(attribute.String("run", result.Run.String()))

	health := e.health()
	health.Start(ctx, "Starting backup cycle.")

	containers, err := e.Runtime.ListTargets(ctx, opts.LabelPrefix+string(config.KeyEnable)+"=true")
	if err != nil {
		message := fmt.Sprintf("Failed backup cycle. Cannot list containers: %v", err)
		logger.Error(message)
		health.Fail(ctx, message)
		span.SetStatus(codes.Error, err.Error())
		return result, fmt.Errorf("failed to list targets: %w", err)
	}
	containers = filterContainers(logger, containers, opts.Whitelist, opts.Blacklist)
	result.Targets = len(containers)
	span.SetAttributes(attribute.Int("targets", result.Targets))

	if result.Targets == 0 {
		logger.Info(noTargetsMessage)
		health.Success(ctx, noTargetsMessage)
		result.Duration = e.now().Sub(result.Start)
		e.flush(result)
		span.SetStatus(codes.Ok, noTargetsMessage)
		return result, nil
	}

	logger.Infof("Starting backup cycle with %d container(s)", result.Targets)
	networkID, err := e.isolate(ctx, opts)
	if err != nil {
		message := fmt.Sprintf("Failed backup cycle. %v", err)
		logger.Error(message)
		health.Fail(ctx, message)
		result.Duration = e.now().Sub(result.Start)
		e.flush(result)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	for i, ctr := range containers {
		logger.Infof("[%d/%d] Processing container %s %s", i+1, result.Targets, ctr.ShortID, ctr.Name)
		tr := e.backupTarget(ctx, logger.WithField("target", ctr.Name), ctr, networkID, opts)
		if tr.Status.Counted() {
			result.Successful++
		}
		result.Results = append(result.Results, tr)
	}

	e.teardown(ctx, logger, networkID, opts)

	message := fmt.Sprintf("Finished backup cycle. %d/%d successful.", result.Successful, result.Targets)
	logger.Info(message)
	if result.Success() {
		health.Success(ctx, message)
		span.SetStatus(codes.Ok, message)
	} else {
		health.Fail(ctx, message)
		span.SetStatus(codes.Error, message)
	}
	result.Duration = e.now().Sub(result.Start)
	e.flush(result)
	return result, nil
}

// isolate creates the cycle network and connects the own container to it.
func (e *Executor) isolate(ctx context.Context, opts CycleOptions) (string, error) {
	networkID, err := e.Runtime.CreateNetwork(ctx, opts.NetworkName)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if opts.Self.ID == "" {
		return networkID, nil
	}
	if err := e.Runtime.Connect(ctx, networkID, opts.Self.ID, ""); err != nil {
		err = fmt.Errorf("%w: %w", ErrNetwork, err)
		if rmErr := e.Runtime.RemoveNetwork(ctx, networkID); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
		return "", err
	}
	return networkID, nil
}

func (e *Executor) teardown(ctx context.Context, logger *log.Entry, networkID string, opts CycleOptions) {
	if opts.Self.ID != "" {
		if err := e.Runtime.Disconnect(ctx, networkID, opts.Self.ID); err != nil {
			logger.Errorf("failed to disconnect own container from backup network: %v", err)
		}
	}
	if err := e.Runtime.RemoveNetwork(ctx, networkID); err != nil {
		logger.Errorf("failed to remove backup network: %v", err)
	}
}

// filterContainers applies the whitelist, then the blacklist, by container name.
func filterContainers(logger *log.Entry, containers []docker.Container, whitelist, blacklist []string) []docker.Container {
	if len(whitelist) > 0 {
		logger.Infof("Container whitelist is active, only these names are processed: %v", whitelist)
		containers = slices.DeleteFunc(containers, func(c docker.Container) bool {
			return !slices.Contains(whitelist, c.Name)
		})
	}
	if len(blacklist) > 0 {
		logger.Infof("Container blacklist is active, these names are not processed: %v", blacklist)
		containers = slices.DeleteFunc(containers, func(c docker.Container) bool {
			return slices.Contains(blacklist, c.Name)
		})
	}
	return containers
}

// Scheduler tells the service loop when to run.
type Scheduler interface {
	Next(now time.Time) (time.Time, bool)
	Wait(ctx context.Context, t time.Time) error
}

// Serve runs cycles as scheduled until the schedule is exhausted or ctx is done. A running
// cycle is not interrupted by ctx.
func (e *Executor) Serve(ctx context.Context, sched Scheduler, opts CycleOptions) error {
	for {
		now := e.now()
		next, ok := sched.Next(now)
		if !ok {
			e.Logger.Info("no further cycles scheduled")
			return nil
		}
		if next.After(now) {
			e.Logger.Infof("next backup cycle at %s", next.Format(time.RFC3339))
		}
		if err := sched.Wait(ctx, next); err != nil {
			return err
		}
		if _, err := e.RunCycle(context.WithoutCancel(ctx), opts); err != nil {
			e.Logger.Errorf("backup cycle failed: %v", err)
		}
	}
}
