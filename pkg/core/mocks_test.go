package core

import (
	"context"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/databacker/docker-database-backup/pkg/docker"
	"github.com/databacker/docker-database-backup/pkg/process"
)

type mockRuntime struct {
	mock.Mock
}

func (m *mockRuntime) Self(ctx context.Context) (docker.Container, error) {
	args := m.Called()
	return args.Get(0).(docker.Container), args.Error(1)
}

func (m *mockRuntime) ListTargets(ctx context.Context, label string) ([]docker.Container, error) {
	args := m.Called(label)
	return args.Get(0).([]docker.Container), args.Error(1)
}

func (m *mockRuntime) CreateNetwork(ctx context.Context, name string) (string, error) {
	args := m.Called(name)
	return args.String(0), args.Error(1)
}

func (m *mockRuntime) Connect(ctx context.Context, networkID, containerID, alias string) error {
	return m.Called(networkID, containerID, alias).Error(0)
}

func (m *mockRuntime) Disconnect(ctx context.Context, networkID, containerID string) error {
	return m.Called(networkID, containerID).Error(0)
}

func (m *mockRuntime) RemoveNetwork(ctx context.Context, networkID string) error {
	return m.Called(networkID).Error(0)
}

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, cmd process.Command) (process.Result, error) {
	args := m.Called(cmd.Name, cmd.Args, cmd.Env)
	// an optional third return value is written as the dump
	if len(args) > 2 && cmd.Stdout != nil {
		_, _ = io.WriteString(cmd.Stdout, args.String(2))
	}
	return args.Get(0).(process.Result), args.Error(1)
}

type ping struct {
	kind    string
	message string
}

type recordingHealthcheck struct {
	mu    sync.Mutex
	pings []ping
}

func (r *recordingHealthcheck) record(kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pings = append(r.pings, ping{kind, message})
}

func (r *recordingHealthcheck) Start(_ context.Context, message string)   { r.record("start", message) }
func (r *recordingHealthcheck) Success(_ context.Context, message string) { r.record("success", message) }
func (r *recordingHealthcheck) Fail(_ context.Context, message string)    { r.record("fail", message) }

type recordingSink struct {
	results []CycleResult
}

func (r *recordingSink) Flush(result CycleResult) {
	r.results = append(r.results, result)
}

func testLogger() *log.Logger {
	logger := log.New()
	logger.Out = io.Discard
	logger.Level = log.DebugLevel
	return logger
}

var testNow = time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
