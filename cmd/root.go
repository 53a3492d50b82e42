package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/databacker/docker-database-backup/pkg/config"
	"github.com/databacker/docker-database-backup/pkg/core"
	"github.com/databacker/docker-database-backup/pkg/docker"
)

type execs interface {
	SetLogger(logger *log.Logger)
	GetLogger() *log.Logger
	Discover(ctx context.Context) (docker.Container, error)
	Serve(ctx context.Context, sched core.Scheduler, opts core.CycleOptions) error
}

type subCommand func(execs, *cmdConfiguration) (*cobra.Command, error)

var subCommands = []subCommand{runCmd, decryptCmd}

type cmdConfiguration struct {
	configuration *config.ConfigSpec
	logger        *log.Logger
}

func rootCmd(execs execs) (*cobra.Command, error) {
	var (
		v         *viper.Viper
		cmd       *cobra.Command
		cmdConfig = &cmdConfiguration{}
		ctx       = context.Background()
	)
	cmd = &cobra.Command{
		Use:   "docker-database-backup",
		Short: "backup the databases running in labelled docker containers",
		Long: `Backup the MySQL, MariaDB and PostgreSQL databases running in docker containers
		on the same host. Containers opt in with the label jan-di.database-backup.enable=true;
		every other option is a label on the container or a GLOBAL_<KEY> environment variable.`,
		SilenceUsage: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			bindFlags(cmd, v)
			var logger = log.New()
			logLevel := v.GetInt("verbose")
			debugSet := v.IsSet("debug")
			if !v.IsSet("verbose") && (v.GetBool("debug") || (debugSet && v.GetString("debug") == "true")) {
				logLevel = 1
			}
			switch logLevel {
			case 0:
				logger.SetLevel(log.InfoLevel)
			case 1:
				logger.SetLevel(log.DebugLevel)
			case 2:
				logger.SetLevel(log.TraceLevel)
			}

			// the config file is nested while flags and env vars are flat, so it is read
			// separately and overridden by anything set explicitly
			var tracerExporters []sdktrace.SpanExporter

			if configFilePath := v.GetString("config-file"); configFilePath != "" {
				f, err := os.Open(configFilePath)
				if err != nil {
					return fmt.Errorf("fatal error config file: %w", err)
				}
				defer f.Close()
				actualConfig, err := config.ProcessConfig(f)
				if err != nil {
					return fmt.Errorf("unable to read provided config: %w", err)
				}
				cmdConfig.configuration = actualConfig
			}
			cmdConfig.logger = logger

			if endpoint := v.GetString("otlp-endpoint"); endpoint != "" {
				opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
				if v.GetBool("otlp-insecure") {
					opts = append(opts, otlptracehttp.WithInsecure())
				}
				exp, err := otlptracehttp.New(ctx, opts...)
				if err != nil {
					return fmt.Errorf("unable to set up telemetry: %w", err)
				}
				tracerExporters = append(tracerExporters, exp)
			}
			if v.GetBool("trace-stderr") {
				exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint(), stdouttrace.WithWriter(os.Stderr))
				if err != nil {
					return fmt.Errorf("failed to initialize stdouttrace exporter: %w", err)
				}
				tracerExporters = append(tracerExporters, exp)
			}
			var tracerProviderOpts []sdktrace.TracerProviderOption
			for _, exp := range tracerExporters {
				tracerProviderOpts = append(tracerProviderOpts, sdktrace.WithBatcher(exp))
			}
			otel.SetTracerProvider(sdktrace.NewTracerProvider(tracerProviderOpts...))

			return nil
		},
	}

	v = viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	pflags := cmd.PersistentFlags()
	pflags.String("config-file", "", "config file to use, if any; individual CLI flags and env vars override config file")

	// debug via CLI or env var or default
	pflags.IntP("verbose", "v", 0, "set log level, 1 is debug, 2 is trace")
	pflags.Bool("debug", false, "set log level to debug, equivalent of --verbose=1; if both set, --verbose always overrides")
	pflags.Bool("trace-stderr", false, "trace to stderr, in addition to any configured telemetry")
	pflags.String("otlp-endpoint", "", "host:port of an OTLP/HTTP collector to send traces to")
	pflags.Bool("otlp-insecure", false, "use plain HTTP for the OTLP collector")

	for _, subCmd := range subCommands {
		if sc, err := subCmd(execs, cmdConfig); err != nil {
			return nil, err
		} else {
			cmd.AddCommand(sc)
		}
	}

	return cmd, nil
}

// Bind each cobra flag to its associated viper configuration (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		configName := f.Name
		_ = v.BindPFlag(configName, f)
		// Apply the viper config value to the flag when the flag is not set and viper has a value
		if !f.Changed && v.IsSet(configName) {
			val := v.Get(configName)
			_ = cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val))
		}
	})
}

// Execute primary function for cobra
func Execute() {
	rootCmd, err := rootCmd(nil)
	if err != nil {
		log.Fatal(err)
	}
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
