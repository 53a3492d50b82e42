package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/robfig/cron/v3"
)

type Mode int

const (
	ModeOnce Mode = iota
	ModeInterval
	ModeCron
)

func (m Mode) String() string {
	switch m {
	case ModeOnce:
		return "once"
	case ModeInterval:
		return "interval"
	case ModeCron:
		return "cron"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// granularity of a cron expression; the jitter offset stays below it
const granularity = time.Minute

// Schedule decides when the next cycle runs. It is not safe for concurrent use.
type Schedule struct {
	mode         Mode
	raw          string
	interval     time.Duration
	cron         cron.Schedule
	offset       time.Duration
	runAtStartup bool
	started      bool
	done         bool
}

// Seed returns a stable jitter seed for an instance identity.
func Seed(identity string) uint64 {
	return xxhash.Sum64String(identity)
}

// Parse builds a schedule. An empty expression runs once, an integer runs every that many
// seconds, anything else is a cron expression. When runAtStartup is nil the mode default
// applies: true for once and interval, false for cron.
func Parse(raw string, runAtStartup *bool, seed uint64) (*Schedule, error) {
	raw = strings.TrimSpace(raw)
	s := &Schedule{raw: raw}
	switch {
	case raw == "":
		s.mode = ModeOnce
		s.runAtStartup = true
	case isInteger(raw):
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid interval '%s': must be a positive number of seconds", raw)
		}
		s.mode = ModeInterval
		s.interval = time.Duration(n) * time.Second
		s.runAtStartup = true
	default:
		sched, err := cron.ParseStandard(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid cron format '%s': %v", raw, err)
		}
		s.mode = ModeCron
		s.cron = sched
		s.offset = time.Duration(seed%uint64(granularity/time.Second)) * time.Second
	}
	if runAtStartup != nil {
		s.runAtStartup = *runAtStartup
	}
	return s, nil
}

func isInteger(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (s *Schedule) Mode() Mode {
	return s.mode
}

// Offset is the jitter added to every cron instant.
func (s *Schedule) Offset() time.Duration {
	return s.offset
}

// Next returns the instant of the next cycle, or false when there will be none.
func (s *Schedule) Next(now time.Time) (time.Time, bool) {
	if s.done {
		return time.Time{}, false
	}
	first := !s.started
	s.started = true
	if first && s.runAtStartup {
		if s.mode == ModeOnce {
			s.done = true
		}
		return now, true
	}
	switch s.mode {
	case ModeInterval:
		return now.Add(s.interval), true
	case ModeCron:
		return nextCron(s.cron, now, s.offset), true
	}
	s.done = true
	return time.Time{}, false
}

// nextCron returns the first cron match strictly after now, shifted by offset. All offsets
// share the same match, so two instances never end up a whole cron period apart.
func nextCron(sched cron.Schedule, now time.Time, offset time.Duration) time.Time {
	return sched.Next(now).Add(offset)
}

// Wait blocks until t, or until ctx is done. An instant in the past returns immediately.
func (s *Schedule) Wait(ctx context.Context, t time.Time) error {
	return waitUntil(ctx, t, time.Now())
}

func waitUntil(ctx context.Context, t, now time.Time) error {
	delay := t.Sub(now)
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Schedule) String() string {
	switch s.mode {
	case ModeInterval:
		return fmt.Sprintf("every %s", s.interval)
	case ModeCron:
		return fmt.Sprintf("cron '%s' (+%s)", s.raw, s.offset)
	}
	return "once"
}
