package retention

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/databacker/docker-database-backup/pkg/util"
)

// TimestampLayout is the suffix format of timestamped dump files, always in UTC.
const TimestampLayout = "2006-01-02_15-04-05"

// timestampRE matches the part of a dump filename following "<dump name>_".
var timestampRE = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2})\.[^/]+$`)

// File is one dump of a dump family.
type File struct {
	Path string
	Name string
	Time time.Time
}

// Policy holds the floors (MinCount, MinAge) and ceilings (MaxCount, MaxAge).
// A zero ceiling is unbounded.
type Policy struct {
	MinCount int
	MinAge   time.Duration
	MaxCount int
	MaxAge   time.Duration
}

type Result struct {
	Checked int
	Kept    int
	Deleted []string
}

// Rule names the rule that decided a file.
type Rule string

const (
	RuleMinCount Rule = "min_count"
	RuleMinAge   Rule = "min_age"
	RuleMaxCount Rule = "max_count"
	RuleMaxAge   Rule = "max_age"
	RuleDefault  Rule = "default"
)

// Filename returns the name of a timestamped dump taken at t.
func Filename(dumpName string, t time.Time, ext string) string {
	return fmt.Sprintf("%s_%s%s", dumpName, t.UTC().Format(TimestampLayout), ext)
}

// Scan returns the timestamped dumps of dumpName found in dir, newest first. Files that
// do not exactly follow the naming pattern are ignored.
func Scan(dir, dumpName string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	prefix := dumpName + "_"
	var files []File
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		matches := timestampRE.FindStringSubmatch(strings.TrimPrefix(name, prefix))
		if matches == nil {
			continue
		}
		filetime, err := time.ParseInLocation(TimestampLayout, matches[1], time.UTC)
		if err != nil {
			continue
		}
		files = append(files, File{Path: filepath.Join(dir, name), Name: name, Time: filetime})
	}
	slices.SortFunc(files, func(a, b File) int {
		if c := b.Time.Compare(a.Time); c != 0 {
			return c
		}
		return strings.Compare(b.Name, a.Name)
	})
	return files, nil
}

// Decide tells whether the file at rank i (0 is the newest) of the given age is deleted,
// and by which rule. The first matching rule wins.
func Decide(i int, age time.Duration, p Policy) (bool, Rule) {
	switch {
	case i < p.MinCount:
		return false, RuleMinCount
	case age <= p.MinAge:
		return false, RuleMinAge
	case p.MaxCount > 0 && i >= p.MaxCount:
		return true, RuleMaxCount
	case p.MaxAge > 0 && age > p.MaxAge:
		return true, RuleMaxAge
	}
	return false, RuleDefault
}

// Apply removes the files the policy evicts. files must be ordered newest first. A file
// that cannot be removed counts as kept; the removal errors are returned joined.
func Apply(ctx context.Context, files []File, p Policy, now time.Time, logger *log.Entry) (Result, error) {
	_, span := util.GetTracerFromContext(ctx).Start(ctx, "retention")
	defer span.End()

	var (
		result Result
		errs   []error
	)
	for i, f := range files {
		age := now.Sub(f.Time)
		result.Checked++
		remove, rule := Decide(i, age, p)
		if !remove {
			logger.Debugf("keeping %s (age %s, rule %s)", f.Name, age.Round(time.Second), rule)
			result.Kept++
			continue
		}
		logger.Debugf("deleting %s (age %s, rule %s)", f.Name, age.Round(time.Second), rule)
		if err := os.Remove(f.Path); err != nil {
			logger.Errorf("failed to delete %s: %v", f.Path, err)
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", f.Name, err))
			result.Kept++
			continue
		}
		result.Deleted = append(result.Deleted, f.Name)
	}
	span.SetAttributes(
		attribute.Int("checked", result.Checked),
		attribute.Int("kept", result.Kept),
		attribute.StringSlice("deleted", result.Deleted),
	)
	if err := errors.Join(errs...); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	span.SetStatus(codes.Ok, fmt.Sprintf("deleted %d files", len(result.Deleted)))
	return result, nil
}
