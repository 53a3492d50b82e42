package config

const (
	DefaultDumpDir     = "/dump"
	DefaultNetworkName = "docker-database-backup"
	DefaultTargetName  = "database-backup-target"
	DefaultOwnImageRef = "jan-di/database-backup"
	DefaultMetricsPort = 8000
)

// Settings are the service-wide options, as opposed to the per-target labels.
type Settings struct {
	// Schedule is empty for a single cycle, an integer number of seconds, or a cron expression.
	Schedule     string
	RunAtStartup *bool
	DumpDir      string
	DumpUID      int
	DumpGID      int
	NetworkName  string
	TargetName   string
	// HealthchecksURL disables pinging when empty.
	HealthchecksURL string
	// MetricsPort disables the metrics server when 0.
	MetricsPort int
	Whitelist   []string
	Blacklist   []string
	OwnImageRef string
	InstanceID  string
	LabelPrefix string
	// Global holds the operator-wide label defaults.
	Global Labels
}

func DefaultSettings() Settings {
	return Settings{
		DumpDir:     DefaultDumpDir,
		NetworkName: DefaultNetworkName,
		TargetName:  DefaultTargetName,
		MetricsPort: DefaultMetricsPort,
		OwnImageRef: DefaultOwnImageRef,
		LabelPrefix: DefaultLabelPrefix,
		Global:      Labels{},
	}
}

// Apply overlays the values set in the config file.
func (c *ConfigSpec) Apply(s *Settings) {
	if c == nil {
		return
	}
	if c.Schedule.Expression != "" {
		s.Schedule = c.Schedule.Expression
	}
	if c.Schedule.RunAtStartup != nil {
		v := *c.Schedule.RunAtStartup
		s.RunAtStartup = &v
	}
	if c.Dump.Dir != "" {
		s.DumpDir = c.Dump.Dir
	}
	if c.Dump.UID != nil {
		s.DumpUID = *c.Dump.UID
	}
	if c.Dump.GID != nil {
		s.DumpGID = *c.Dump.GID
	}
	if c.Docker.NetworkName != "" {
		s.NetworkName = c.Docker.NetworkName
	}
	if c.Docker.TargetName != "" {
		s.TargetName = c.Docker.TargetName
	}
	if c.Docker.OwnImageRef != "" {
		s.OwnImageRef = c.Docker.OwnImageRef
	}
	if c.Docker.LabelPrefix != "" {
		s.LabelPrefix = c.Docker.LabelPrefix
	}
	if c.Docker.InstanceID != "" {
		s.InstanceID = c.Docker.InstanceID
	}
	if len(c.Containers.Whitelist) > 0 {
		s.Whitelist = c.Containers.Whitelist
	}
	if len(c.Containers.Blacklist) > 0 {
		s.Blacklist = c.Containers.Blacklist
	}
	if c.Telemetry.HealthchecksURL != "" {
		s.HealthchecksURL = c.Telemetry.HealthchecksURL
	}
	if c.Telemetry.MetricsPort != nil {
		s.MetricsPort = *c.Telemetry.MetricsPort
	}
	s.Global = Merge(s.Global, FromMap(c.Global))
}
