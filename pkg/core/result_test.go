package core

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/databacker/docker-database-backup/pkg/config"
	"github.com/databacker/docker-database-backup/pkg/docker"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		failed bool
		uptime time.Duration
		grace  time.Duration
		status Status
	}{
		{"success", false, time.Hour, 0, StatusSuccess},
		{"success in grace", false, time.Second, time.Minute, StatusSuccess},
		{"failed", true, time.Hour, 10 * time.Second, StatusFailed},
		{"failed in grace", true, 5 * time.Second, 10 * time.Second, StatusFailedInGrace},
		{"grace boundary", true, 10 * time.Second, 10 * time.Second, StatusFailed},
		{"no grace", true, 0, 0, StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, Classify(tt.failed, tt.uptime, tt.grace))
		})
	}
	assert.True(t, StatusFailedInGrace.Counted())
	assert.False(t, StatusFailed.Counted())
}

func TestDumpCommand(t *testing.T) {
	var out bytes.Buffer
	d := config.TargetDescriptor{Kind: config.KindMariaDB, Host: "target", Port: 3307, Username: "backup", Password: "p w"}
	cmd, err := dumpCommand(d, &out)
	require.NoError(t, err)
	assert.Equal(t, "mysqldump", cmd.Name)
	assert.Contains(t, cmd.Args, "--port=3307")
	assert.Contains(t, cmd.Args, "--password=p w")
	assert.Nil(t, cmd.Env)
	assert.Same(t, &out, cmd.Stdout)

	d.Kind = config.KindPostgres
	cmd, err = dumpCommand(d, &out)
	require.NoError(t, err)
	assert.Equal(t, "pg_dumpall", cmd.Name)
	assert.NotContains(t, cmd.Args, "--password=p w")
	assert.Equal(t, map[string]string{"PGPASSWORD": "p w"}, cmd.Env)

	d.Kind = config.KindUnknown
	_, err = dumpCommand(d, &out)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestDiscover(t *testing.T) {
	runtime := &mockRuntime{}
	runtime.On("Self").Return(docker.Container{}, docker.ErrDuplicateInstance).Once()
	runtime.On("Self").Return(self, nil).Once()
	e := &Executor{Logger: testLogger(), Runtime: runtime}

	_, err := e.Discover(context.Background())
	assert.ErrorIs(t, err, ErrDiscovery)
	assert.ErrorIs(t, err, docker.ErrDuplicateInstance)

	got, err := e.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, self, got)
}

type fakeSchedule struct {
	instants []time.Time
	waitErr  error
	waited   int
}

func (s *fakeSchedule) Next(time.Time) (time.Time, bool) {
	if len(s.instants) == 0 {
		return time.Time{}, false
	}
	next := s.instants[0]
	s.instants = s.instants[1:]
	return next, true
}

func (s *fakeSchedule) Wait(ctx context.Context, _ time.Time) error {
	s.waited++
	return s.waitErr
}

func TestServe(t *testing.T) {
	t.Run("runs until exhausted", func(t *testing.T) {
		f := newFixture(t)
		sched := &fakeSchedule{instants: []time.Time{testNow, testNow.Add(time.Hour)}}
		require.NoError(t, f.exec.Serve(context.Background(), sched, f.opts))
		assert.Equal(t, 2, sched.waited)
		assert.Len(t, f.sink.results, 2)
	})
	t.Run("stops on cancel", func(t *testing.T) {
		f := newFixture(t)
		sched := &fakeSchedule{instants: []time.Time{testNow}, waitErr: context.Canceled}
		err := f.exec.Serve(context.Background(), sched, f.opts)
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Empty(t, f.sink.results)
	})
	t.Run("continues after failed cycle", func(t *testing.T) {
		runtime := &mockRuntime{}
		runtime.On("ListTargets", selector).Return([]docker.Container(nil), errors.New("daemon down"))
		e := &Executor{Logger: testLogger(), Runtime: runtime}
		sched := &fakeSchedule{instants: []time.Time{testNow, testNow}}
		require.NoError(t, e.Serve(context.Background(), sched, CycleOptions{LabelPrefix: prefix}))
		runtime.AssertNumberOfCalls(t, "ListTargets", 2)
	})
}
