package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/databacker/docker-database-backup/pkg/config"
	"github.com/databacker/docker-database-backup/pkg/core"
	"github.com/databacker/docker-database-backup/pkg/docker"
	"github.com/databacker/docker-database-backup/pkg/healthcheck"
	applog "github.com/databacker/docker-database-backup/pkg/log"
	"github.com/databacker/docker-database-backup/pkg/metrics"
	"github.com/databacker/docker-database-backup/pkg/process"
	"github.com/databacker/docker-database-backup/pkg/schedule"
	"github.com/databacker/docker-database-backup/pkg/util"
)

const shutdownTimeout = 5 * time.Second

func runCmd(passedExecs execs, cmdConfig *cmdConfiguration) (*cobra.Command, error) {
	var v *viper.Viper
	var cmd = &cobra.Command{
		Use:     "run",
		Aliases: []string{"serve"},
		Short:   "back up labelled containers, once or on a schedule",
		Long: `Discover the containers labelled for backup and dump their databases into the dump
		directory, once or on a schedule. Each dump may be compressed, encrypted and rotated
		according to its retention policy.`,
		Args: cobra.NoArgs,
		PreRun: func(cmd *cobra.Command, args []string) {
			bindFlags(cmd, v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cmdConfig.logger
			logger.Debug("starting service")

			settings, err := serviceSettings(v, cmdConfig.configuration)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			tracer := getTracer("run")
			defer func() {
				if tp := getTracerProvider(); tp != nil {
					_ = tp.ForceFlush(context.Background())
					_ = tp.Shutdown(context.Background())
				}
			}()
			ctx = util.ContextWithTracer(ctx, tracer)

			executor := passedExecs
			if executor == nil {
				e, cleanup, err := newService(settings, logger)
				if err != nil {
					return err
				}
				defer cleanup()
				executor = e
			}
			executor.SetLogger(logger)

			self, err := executor.Discover(ctx)
			if err != nil {
				return err
			}
			identity := settings.InstanceID
			if identity == "" {
				identity = self.Name
			}
			sched, err := schedule.Parse(settings.Schedule, settings.RunAtStartup, schedule.Seed(identity))
			if err != nil {
				return fmt.Errorf("invalid schedule: %w", err)
			}
			logger.Infof("schedule: %s", sched)
			logger.Debugf("dump directory %s, owner %d:%d", settings.DumpDir, settings.DumpUID, settings.DumpGID)
			for _, k := range settings.Global.SortedKeys() {
				logger.Debugf("global default set for %s", k)
			}

			opts := core.CycleOptions{
				Global:      settings.Global,
				LabelPrefix: settings.LabelPrefix,
				DumpDir:     settings.DumpDir,
				UID:         settings.DumpUID,
				GID:         settings.DumpGID,
				NetworkName: settings.NetworkName,
				TargetName:  settings.TargetName,
				Whitelist:   settings.Whitelist,
				Blacklist:   settings.Blacklist,
				Self:        self,
			}
			if err := executor.Serve(ctx, sched, opts); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Info("received stop signal, shutting down")
					return nil
				}
				return err
			}
			return nil
		},
	}

	v = viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, k := range config.Keys {
		_ = v.BindEnv(globalKey(k), k.EnvName())
	}

	flags := cmd.Flags()
	flags.String("schedule", "", "when to run backup cycles: empty for a single cycle, a number of seconds for an interval, or a cron expression such as `0 3 * * *`")
	flags.String("run-at-startup", "", "run a cycle immediately on start; defaults to true for a single cycle or an interval, false for cron")
	flags.String("dump-dir", config.DefaultDumpDir, "directory the dumps are written to, usually a mounted volume")
	flags.Int("dump-uid", 0, "owner uid of the dump files")
	flags.Int("dump-gid", 0, "owner gid of the dump files")
	flags.String("docker-network-name", config.DefaultNetworkName, "name of the network created to reach the targets")
	flags.String("docker-target-name", config.DefaultTargetName, "alias a target gets on the backup network while it is dumped")
	flags.String("healthchecks-io-url", "", "healthchecks.io check URL to ping on start, success and failure of a cycle")
	flags.Int("metrics-port", config.DefaultMetricsPort, "port to serve prometheus metrics on; 0 disables the metrics server")
	flags.StringSlice("container-whitelist", nil, "only back up containers with these names")
	flags.StringSlice("container-blacklist", nil, "never back up containers with these names")
	flags.String("own-image-ref", config.DefaultOwnImageRef, "value of the org.opencontainers.image.ref.name label of the image the service runs in, used to find its own container")
	flags.String("instance-id", "", "name or ID of the own container; also seeds the cron jitter")
	flags.String("label-prefix", config.DefaultLabelPrefix, "prefix of the container labels read by the service")

	return cmd, nil
}

func globalKey(k config.Key) string {
	return "global-" + string(k)
}

// serviceSettings layers defaults, the config file, and env vars or flags.
func serviceSettings(v *viper.Viper, spec *config.ConfigSpec) (config.Settings, error) {
	s := config.DefaultSettings()
	spec.Apply(&s)

	if v.IsSet("schedule") {
		s.Schedule = strings.TrimSpace(v.GetString("schedule"))
	}
	if raw := v.GetString("run-at-startup"); v.IsSet("run-at-startup") && raw != "" {
		b, err := config.ParseBool(raw)
		if err != nil {
			return s, fmt.Errorf("invalid run-at-startup %q: %w", raw, err)
		}
		s.RunAtStartup = &b
	}
	if v.IsSet("dump-dir") {
		s.DumpDir = v.GetString("dump-dir")
	}
	if v.IsSet("dump-uid") {
		s.DumpUID = v.GetInt("dump-uid")
	}
	if v.IsSet("dump-gid") {
		s.DumpGID = v.GetInt("dump-gid")
	}
	if v.IsSet("docker-network-name") {
		s.NetworkName = v.GetString("docker-network-name")
	}
	if v.IsSet("docker-target-name") {
		s.TargetName = v.GetString("docker-target-name")
	}
	if v.IsSet("healthchecks-io-url") {
		s.HealthchecksURL = v.GetString("healthchecks-io-url")
	}
	if v.IsSet("metrics-port") {
		s.MetricsPort = v.GetInt("metrics-port")
	}
	if v.IsSet("container-whitelist") {
		s.Whitelist = names(v.GetStringSlice("container-whitelist"))
	}
	if v.IsSet("container-blacklist") {
		s.Blacklist = names(v.GetStringSlice("container-blacklist"))
	}
	if v.IsSet("own-image-ref") {
		s.OwnImageRef = v.GetString("own-image-ref")
	}
	if v.IsSet("instance-id") {
		s.InstanceID = v.GetString("instance-id")
	}
	if v.IsSet("label-prefix") {
		s.LabelPrefix = v.GetString("label-prefix")
	}

	global := config.Labels{}
	for _, k := range config.Keys {
		if v.IsSet(globalKey(k)) {
			global[k] = v.GetString(globalKey(k))
		}
	}
	s.Global = config.Merge(s.Global, global)

	if s.MetricsPort < 0 || s.MetricsPort > 65535 {
		return s, fmt.Errorf("invalid metrics port %d", s.MetricsPort)
	}
	if s.DumpDir == "" {
		return s, fmt.Errorf("dump directory cannot be empty")
	}
	return s, nil
}

// names flattens comma separated entries, as env vars carry a single string.
func names(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, config.SplitNames(v)...)
	}
	return out
}

// newService wires the executor to docker, the dump tools, metrics and healthchecks.
func newService(s config.Settings, logger *log.Logger) (*core.Executor, func(), error) {
	dockerClient, err := docker.New(docker.Options{OwnImageRef: s.OwnImageRef, InstanceID: s.InstanceID})
	if err != nil {
		return nil, nil, err
	}
	collector := metrics.NewCollector()
	logHook := applog.NewMetricsHook()
	logger.AddHook(logHook)
	executor := &core.Executor{
		Logger:  logger,
		Runtime: dockerClient,
		Runner:  process.ExecRunner{},
		Metrics: collector,
		Health:  healthcheck.New(s.HealthchecksURL, logger),
	}

	var server *metrics.Server
	if s.MetricsPort != 0 {
		if server, err = metrics.NewServer(s.MetricsPort, logger, collector, logHook); err != nil {
			_ = dockerClient.Close()
			return nil, nil, err
		}
		server.Start()
	}

	cleanup := func() {
		if server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				logger.Warnf("metrics server shutdown: %v", err)
			}
		}
		if err := dockerClient.Close(); err != nil {
			logger.Debugf("closing docker client: %v", err)
		}
	}
	return executor, cleanup, nil
}
