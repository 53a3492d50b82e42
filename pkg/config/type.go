package config

// ConfigSpec is the structure of the optional YAML config file. Everything in it can be
// overridden by CLI flags and environment variables.
type ConfigSpec struct {
	Schedule   Schedule          `yaml:"schedule"`
	Dump       Dump              `yaml:"dump"`
	Docker     Docker            `yaml:"docker"`
	Containers Containers        `yaml:"containers"`
	Telemetry  Telemetry         `yaml:"telemetry"`
	Global     map[string]string `yaml:"global"`
}

type Schedule struct {
	// Expression is empty for once, an integer number of seconds for an interval,
	// or a cron expression.
	Expression   string `yaml:"expression"`
	RunAtStartup *bool  `yaml:"runAtStartup"`
}

type Dump struct {
	Dir string `yaml:"dir"`
	UID *int   `yaml:"uid"`
	GID *int   `yaml:"gid"`
}

type Docker struct {
	NetworkName string `yaml:"networkName"`
	TargetName  string `yaml:"targetName"`
	OwnImageRef string `yaml:"ownImageRef"`
	LabelPrefix string `yaml:"labelPrefix"`
	InstanceID  string `yaml:"instanceId"`
}

type Containers struct {
	Whitelist []string `yaml:"whitelist"`
	Blacklist []string `yaml:"blacklist"`
}

type Telemetry struct {
	HealthchecksURL string `yaml:"healthchecksUrl"`
	MetricsPort     *int   `yaml:"metricsPort"`
}
