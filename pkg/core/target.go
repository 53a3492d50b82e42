package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/go-units"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/databacker/docker-database-backup/pkg/compression"
	"github.com/databacker/docker-database-backup/pkg/config"
	"github.com/databacker/docker-database-backup/pkg/docker"
	"github.com/databacker/docker-database-backup/pkg/encrypt"
	"github.com/databacker/docker-database-backup/pkg/retention"
	"github.com/databacker/docker-database-backup/pkg/util"
)

// backupTarget runs the whole pipeline for one container. It never fails the cycle, the
// outcome is in the result.
func (e *Executor) backupTarget(ctx context.Context, logger *log.Entry, ctr docker.Container, networkID string, opts CycleOptions) TargetResult {
	ctx, span := util.GetTracerFromContext(ctx).Start(ctx, fmt.Sprintf("target %s", ctr.Name))
	defer span.End()

	start := e.now()
	tr := TargetResult{Container: ctr.Name, Name: ctr.Name}

	d, err := config.Resolver{Host: opts.TargetName}.Resolve(opts.Global, config.Target{
		Name:   ctr.Name,
		Labels: config.FromContainerLabels(opts.LabelPrefix, ctr.Labels),
		Images: ctr.Images,
	})
	if err == nil {
		tr.Name = d.DumpName
		tr.Kind = d.Kind
		logger.Debugf("type %s, login %s@%s:%d using password: %s", d.Kind, d.Username, d.Host, d.Port, yesNo(d.Password != ""))
		var artifact Artifact
		artifact, err = e.produce(ctx, logger, d, ctr, networkID, opts, start)
		tr.Path = artifact.Path
		tr.RawSize = artifact.RawSize
		tr.Size = artifact.ProcessedSize
		if err == nil {
			summary := fmt.Sprintf("> SUCCESS. Size: %s", units.HumanSize(float64(artifact.RawSize)))
			if !strings.HasSuffix(artifact.Path, ".sql") {
				summary += fmt.Sprintf(" (%s compressed/encrypted)", units.HumanSize(float64(artifact.ProcessedSize)))
			}
			logger.Info(summary)
		}
		tr.Checked, tr.Kept = e.retain(ctx, logger, d, opts.DumpDir, start)
	}

	uptime := start.Sub(ctr.StartedAt)
	if ctr.StartedAt.IsZero() {
		uptime = math.MaxInt64
	}
	tr.Status = Classify(err != nil, uptime, d.GraceTime)
	tr.Err = err
	switch tr.Status {
	case StatusFailed:
		logger.Errorf("> FAILED: %v", err)
	case StatusFailedInGrace:
		logger.Errorf("> FAILED: %v", err)
		logger.Infof("> Ignore failure because of grace time (uptime %s < %s)", uptime.Round(time.Second), d.GraceTime)
	}
	tr.Duration = e.now().Sub(start)

	span.SetAttributes(
		attribute.String("kind", tr.Kind.String()),
		attribute.String("status", string(tr.Status)),
		attribute.Int64("raw_size", tr.RawSize),
		attribute.Int64("size", tr.Size),
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return tr
}

// produce creates the dump and post-processes it. The returned artifact describes whatever
// was produced, also on failure.
func (e *Executor) produce(ctx context.Context, logger *log.Entry, d config.TargetDescriptor, ctr docker.Container, networkID string, opts CycleOptions, start time.Time) (Artifact, error) {
	name := d.DumpName + ".sql"
	if d.DumpTimestamp {
		name = retention.Filename(d.DumpName, start, ".sql")
	}
	artifact := Artifact{Path: filepath.Join(opts.DumpDir, name)}

	if err := e.capture(ctx, d, ctr, networkID, artifact.Path); err != nil {
		return artifact, err
	}
	info, err := os.Stat(artifact.Path)
	switch {
	case err != nil:
		return artifact, fmt.Errorf("%w: %v", ErrEmptyDump, err)
	case info.Size() == 0:
		return artifact, ErrEmptyDump
	}
	artifact.RawSize = info.Size()
	artifact.ProcessedSize = info.Size()

	if d.Compress {
		logger.Debugf("> Compressing dump (level %d)", d.CompressionLevel)
		c := &compression.GzipCompressor{Level: d.CompressionLevel}
		if err := replaceWith(&artifact, artifact.Path+c.Extension(), func(src, dst string) error {
			_, err := compression.CompressFile(c, src, dst)
			return err
		}); err != nil {
			return artifact, fmt.Errorf("%w: compression: %v", ErrProcessing, err)
		}
	}

	// downgraded for this target only
	encrypted := d.Encrypt
	if encrypted && d.EncryptionKey == "" {
		logger.Warn("> No encryption key specified, dump is not encrypted")
		encrypted = false
	}
	if encrypted {
		logger.Debugf("> Encrypting dump (%s)", d.EncryptionAlgorithm)
		enc, err := encrypt.GetEncryptor(d.EncryptionAlgorithm, []byte(d.EncryptionKey))
		if err != nil {
			return artifact, fmt.Errorf("%w: encryption: %v", ErrProcessing, err)
		}
		if err := replaceWith(&artifact, artifact.Path+encrypt.Extension(d.EncryptionAlgorithm), func(src, dst string) error {
			return encrypt.EncryptFile(enc, src, dst)
		}); err != nil {
			return artifact, fmt.Errorf("%w: encryption: %v", ErrProcessing, err)
		}
	}

	if err := os.Chown(artifact.Path, opts.UID, opts.GID); err != nil {
		return artifact, fmt.Errorf("%w: %v", ErrOwnership, err)
	}
	return artifact, nil
}

// replaceWith runs a processing stage from the artifact to dst. An earlier dst is removed
// first. On success the predecessor is removed and the artifact moves to dst; on failure
// both files stay for inspection.
func replaceWith(a *Artifact, dst string, stage func(src, dst string) error) error {
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := stage(a.Path, dst); err != nil {
		return err
	}
	info, err := os.Stat(dst)
	if err != nil {
		return err
	}
	if err := os.Remove(a.Path); err != nil {
		return err
	}
	a.Path = dst
	a.ProcessedSize = info.Size()
	return nil
}

// capture runs the dump tool with the target attached to the isolation network. The target
// is detached on every path.
func (e *Executor) capture(ctx context.Context, d config.TargetDescriptor, ctr docker.Container, networkID, path string) (err error) {
	if d.Kind == config.KindUnknown {
		return ErrUnknownKind
	}
	if err := e.Runtime.Connect(ctx, networkID, ctr.ID, d.Host); err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer func() {
		if dErr := e.Runtime.Disconnect(ctx, networkID, ctr.ID); dErr != nil {
			err = errors.Join(err, fmt.Errorf("%w: %w", ErrNetwork, dErr))
		}
	}()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCapture, err)
	}
	defer f.Close()

	cmd, err := dumpCommand(d, f)
	if err != nil {
		return err
	}
	res, err := e.Runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCapture, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: %s exited with %d: %s", ErrCapture, cmd.Name, res.ExitCode, res.Stderr)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrCapture, err)
	}
	return nil
}

// retain applies the retention policy to the dump family and returns the checked and kept
// file counts. Without timestamps there is only ever one file.
func (e *Executor) retain(ctx context.Context, logger *log.Entry, d config.TargetDescriptor, dir string, now time.Time) (checked, kept int) {
	if !d.DumpTimestamp {
		logger.Infof("> Retention (%s). Kept 1/1 files", d.Retention.Policy)
		return 1, 1
	}
	files, err := retention.Scan(dir, d.DumpName)
	if err != nil {
		logger.Errorf("> Retention failed: %v", err)
		return 0, 0
	}
	res, err := retention.Apply(ctx, files, retention.Policy{
		MinCount: d.Retention.MinCount,
		MinAge:   d.Retention.MinAge,
		MaxCount: d.Retention.MaxCount,
		MaxAge:   d.Retention.MaxAge,
	}, now, logger)
	if err != nil {
		logger.Errorf("> Retention could not delete all files: %v", err)
	}
	logger.Infof("> Retention (%s). Kept %d/%d files", d.Retention.Policy, res.Kept, res.Checked)
	return res.Checked, res.Kept
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
