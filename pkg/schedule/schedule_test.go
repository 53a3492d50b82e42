package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestNextCron(t *testing.T) {
	tests := []struct {
		name   string
		cron   string
		from   string
		offset time.Duration
		wait   time.Duration
	}{
		{"on the match", "1 * * * *", "2018-10-10T10:01:00Z", 0, time.Hour},
		{"next minute", "1 * * * *", "2018-10-10T10:00:00Z", 0, 1 * time.Minute},
		{"next day by hour", "* 1 * * *", "2018-10-10T10:00:00Z", 0, 15 * time.Hour},
		{"current minute but seconds in", "1 * * * *", "2018-10-10T10:01:10Z", 0, 59*time.Minute + 50*time.Second},
		{"midnight next day", "0 0 * * *", "2021-11-30T10:00:00Z", 0, 14 * time.Hour},
		{"first day next month in next year", "0 0 1 * *", "2020-12-30T10:00:00Z", 0, 14*time.Hour + 24*time.Hour},
		{"offset within the match", "1 * * * *", "2018-10-10T10:01:10Z", 30 * time.Second, time.Hour + 20*time.Second},
		{"offset past the match", "1 * * * *", "2018-10-10T10:01:40Z", 30 * time.Second, 59*time.Minute + 50*time.Second},
		{"offset exactly on", "1 * * * *", "2018-10-10T10:01:30Z", 30 * time.Second, time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, err := time.Parse(time.RFC3339, tt.from)
			require.NoError(t, err)
			sched, err := cron.ParseStandard(tt.cron)
			require.NoError(t, err)
			next := nextCron(sched, from, tt.offset)
			assert.Equal(t, tt.wait, next.Sub(from))
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		runAtStartup *bool
		mode         Mode
		startup      bool
		err          bool
	}{
		{"empty is once", "", nil, ModeOnce, true, false},
		{"interval", "3600", nil, ModeInterval, true, false},
		{"interval without startup", "60", boolPtr(false), ModeInterval, false, false},
		{"cron", "0 3 * * *", nil, ModeCron, false, false},
		{"cron descriptor", "@daily", boolPtr(true), ModeCron, true, false},
		{"zero interval", "0", nil, 0, false, true},
		{"negative interval", "-5", nil, 0, false, true},
		{"bad cron", "every tuesday", nil, 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse(tt.raw, tt.runAtStartup, 0)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.mode, s.Mode())
			assert.Equal(t, tt.startup, s.runAtStartup)
		})
	}
}

func TestNextOnce(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s, err := Parse("", nil, 0)
	require.NoError(t, err)
	next, ok := s.Next(now)
	assert.True(t, ok)
	assert.Equal(t, now, next)
	_, ok = s.Next(now)
	assert.False(t, ok)
	_, ok = s.Next(now)
	assert.False(t, ok)

	s, err = Parse("", boolPtr(false), 0)
	require.NoError(t, err)
	_, ok = s.Next(now)
	assert.False(t, ok)
}

func TestNextInterval(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s, err := Parse("90", nil, 0)
	require.NoError(t, err)
	next, ok := s.Next(now)
	require.True(t, ok)
	assert.Equal(t, now, next)
	next, ok = s.Next(now)
	require.True(t, ok)
	assert.Equal(t, now.Add(90*time.Second), next)

	s, err = Parse("90", boolPtr(false), 0)
	require.NoError(t, err)
	next, ok = s.Next(now)
	require.True(t, ok)
	assert.Equal(t, now.Add(90*time.Second), next)
}

func TestNextCronSeed(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	a, err := Parse("0 3 * * *", nil, Seed("backup-1"))
	require.NoError(t, err)
	b, err := Parse("0 3 * * *", nil, Seed("backup-1"))
	require.NoError(t, err)
	nextA, ok := a.Next(now)
	require.True(t, ok)
	nextB, ok := b.Next(now)
	require.True(t, ok)
	assert.Equal(t, nextA, nextB, "same seed must give the same instant")
	assert.True(t, nextA.After(now))

	match := time.Date(2024, 5, 2, 3, 0, 0, 0, time.UTC)
	for _, seed := range []uint64{0, 1, 59, 60, 12345, Seed("backup-2")} {
		s, err := Parse("0 3 * * *", nil, seed)
		require.NoError(t, err)
		next, ok := s.Next(now)
		require.True(t, ok)
		assert.False(t, next.Before(match))
		assert.Less(t, next.Sub(match), time.Minute)
		assert.Equal(t, time.Duration(seed%60)*time.Second, s.Offset())
	}

	// seeds on either side of now still share the next match
	between := time.Date(2024, 5, 1, 3, 0, 20, 0, time.UTC)
	early, err := Parse("0 3 * * *", nil, 10)
	require.NoError(t, err)
	late, err := Parse("0 3 * * *", nil, 30)
	require.NoError(t, err)
	nextEarly, ok := early.Next(between)
	require.True(t, ok)
	nextLate, ok := late.Next(between)
	require.True(t, ok)
	assert.Equal(t, match.Add(10*time.Second), nextEarly)
	assert.Equal(t, match.Add(30*time.Second), nextLate)
	assert.Less(t, nextLate.Sub(nextEarly), time.Minute)

	// startup run only on request
	s, err := Parse("0 3 * * *", boolPtr(true), 7)
	require.NoError(t, err)
	next, ok := s.Next(now)
	require.True(t, ok)
	assert.Equal(t, now, next)
	next, ok = s.Next(now)
	require.True(t, ok)
	assert.Equal(t, match.Add(7*time.Second), next)
}

func TestSeedStable(t *testing.T) {
	assert.Equal(t, Seed("database-backup"), Seed("database-backup"))
	assert.NotEqual(t, Seed("database-backup"), Seed("database-backup-2"))
}

func TestWaitUntil(t *testing.T) {
	now := time.Now()
	assert.NoError(t, waitUntil(context.Background(), now.Add(-time.Hour), now))
	assert.NoError(t, waitUntil(context.Background(), now.Add(10*time.Millisecond), now))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, waitUntil(ctx, now.Add(time.Hour), now), context.Canceled)

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	s, err := Parse("", nil, 0)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Wait(ctx, time.Now().Add(time.Hour)), context.DeadlineExceeded)
}

func TestString(t *testing.T) {
	s, _ := Parse("", nil, 0)
	assert.Equal(t, "once", s.String())
	s, _ = Parse("300", nil, 0)
	assert.Equal(t, "every 5m0s", s.String())
	s, _ = Parse("@hourly", nil, 65)
	assert.Equal(t, "cron '@hourly' (+5s)", s.String())
}
