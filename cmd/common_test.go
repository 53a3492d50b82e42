package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/databacker/docker-database-backup/pkg/core"
	"github.com/databacker/docker-database-backup/pkg/docker"
)

type mockExecs struct {
	mock.Mock
	logger *log.Logger
}

func newMockExecs() *mockExecs {
	m := &mockExecs{}
	return m
}

func (m *mockExecs) SetLogger(logger *log.Logger) {
	m.logger = logger
}

func (m *mockExecs) GetLogger() *log.Logger {
	return m.logger
}

func (m *mockExecs) Discover(ctx context.Context) (docker.Container, error) {
	args := m.Called()
	return args.Get(0).(docker.Container), args.Error(1)
}

// Serve records the schedule by its description, as its state is unexported.
func (m *mockExecs) Serve(ctx context.Context, sched core.Scheduler, opts core.CycleOptions) error {
	args := m.Called(fmt.Sprint(sched), opts)
	return args.Error(0)
}
