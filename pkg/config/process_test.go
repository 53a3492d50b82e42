package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessConfig(t *testing.T) {
	input := `
schedule:
  expression: "0 3 * * *"
  runAtStartup: true
dump:
  dir: /backups
  uid: 1000
docker:
  networkName: backup-net
containers:
  blacklist: [legacy]
telemetry:
  healthchecksUrl: https://hc-ping.com/abc
  metricsPort: 0
global:
  compress: "true"
  retention_policy: simple
`
	spec, err := ProcessConfig(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "0 3 * * *", spec.Schedule.Expression)
	require.NotNil(t, spec.Schedule.RunAtStartup)
	assert.True(t, *spec.Schedule.RunAtStartup)
	assert.Equal(t, "/backups", spec.Dump.Dir)
	require.NotNil(t, spec.Dump.UID)
	assert.Equal(t, 1000, *spec.Dump.UID)
	assert.Nil(t, spec.Dump.GID)
	assert.Equal(t, "backup-net", spec.Docker.NetworkName)
	assert.Equal(t, []string{"legacy"}, spec.Containers.Blacklist)
	require.NotNil(t, spec.Telemetry.MetricsPort)
	assert.Equal(t, 0, *spec.Telemetry.MetricsPort)
	assert.Equal(t, Labels{KeyCompress: "true", KeyRetentionPolicy: "simple"}, FromMap(spec.Global))
}

func TestProcessConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown field", "scheduel:\n  expression: 60\n"},
		{"unknown global key", "global:\n  colour: blue\n"},
		{"not yaml", "{{{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ProcessConfig(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestProcessConfigEmpty(t *testing.T) {
	spec, err := ProcessConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, &ConfigSpec{}, spec)
}

func TestApplySettings(t *testing.T) {
	port := 0
	uid := 1000
	startup := false
	spec := &ConfigSpec{
		Schedule:   Schedule{Expression: "3600", RunAtStartup: &startup},
		Dump:       Dump{UID: &uid},
		Docker:     Docker{LabelPrefix: "example.backup."},
		Containers: Containers{Whitelist: []string{"db1", "db2"}},
		Telemetry:  Telemetry{MetricsPort: &port},
		Global:     map[string]string{"compress": "true"},
	}

	s := DefaultSettings()
	spec.Apply(&s)

	want := DefaultSettings()
	want.Schedule = "3600"
	want.RunAtStartup = &startup
	want.DumpUID = 1000
	want.LabelPrefix = "example.backup."
	want.Whitelist = []string{"db1", "db2"}
	want.MetricsPort = 0
	want.Global = Labels{KeyCompress: "true"}
	assert.Equal(t, want, s)

	// without a config file the defaults stay
	var none *ConfigSpec
	s = DefaultSettings()
	none.Apply(&s)
	assert.Equal(t, DefaultSettings(), s)
}
