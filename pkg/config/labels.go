package config

import (
	"sort"
	"strings"
)

// DefaultLabelPrefix is the prefix of every container label read by the service.
const DefaultLabelPrefix = "jan-di.database-backup."

// Auto is the sentinel value meaning "derive from context".
const Auto = "auto"

// Key is a label key with the label prefix removed, e.g. "compress".
type Key string

const (
	KeyEnable              Key = "enable"
	KeyType                Key = "type"
	KeyPort                Key = "port"
	KeyUsername            Key = "username"
	KeyPassword            Key = "password"
	KeyDumpName            Key = "dump_name"
	KeyDumpTimestamp       Key = "dump_timestamp"
	KeyCompress            Key = "compress"
	KeyCompressionLevel    Key = "compression_level"
	KeyEncrypt             Key = "encrypt"
	KeyEncryptionKey       Key = "encryption_key"
	KeyEncryptionAlgorithm Key = "encryption_algorithm"
	KeyRetentionPolicy     Key = "retention_policy"
	KeyRetentionMinCount   Key = "retention_min_count"
	KeyRetentionMinAge     Key = "retention_min_age"
	KeyRetentionMaxCount   Key = "retention_max_count"
	KeyRetentionMaxAge     Key = "retention_max_age"
	KeyGraceTime           Key = "grace_time"
)

// Keys lists every recognized label key.
var Keys = []Key{
	KeyEnable,
	KeyType,
	KeyPort,
	KeyUsername,
	KeyPassword,
	KeyDumpName,
	KeyDumpTimestamp,
	KeyCompress,
	KeyCompressionLevel,
	KeyEncrypt,
	KeyEncryptionKey,
	KeyEncryptionAlgorithm,
	KeyRetentionPolicy,
	KeyRetentionMinCount,
	KeyRetentionMinAge,
	KeyRetentionMaxCount,
	KeyRetentionMaxAge,
	KeyGraceTime,
}

// EnvName returns the environment variable holding the operator-wide default for the key,
// e.g. GLOBAL_COMPRESSION_LEVEL.
func (k Key) EnvName() string {
	return "GLOBAL_" + strings.ToUpper(string(k))
}

// Labels is a flat label namespace keyed by short key. Only keys that are present
// override a lower layer.
type Labels map[Key]string

// defaultLabels is the bottom layer of every resolution.
func defaultLabels() Labels {
	return Labels{
		KeyEnable:              "false",
		KeyType:                Auto,
		KeyPort:                Auto,
		KeyUsername:            "root",
		KeyPassword:            "",
		KeyDumpName:            "",
		KeyDumpTimestamp:       Auto,
		KeyCompress:            "false",
		KeyCompressionLevel:    "6",
		KeyEncrypt:             "false",
		KeyEncryptionKey:       "",
		KeyEncryptionAlgorithm: DefaultEncryptionAlgorithm,
		KeyRetentionPolicy:     string(PolicyNone),
		KeyRetentionMinCount:   Auto,
		KeyRetentionMinAge:     Auto,
		KeyRetentionMaxCount:   Auto,
		KeyRetentionMaxAge:     Auto,
		KeyGraceTime:           "0",
	}
}

// FromContainerLabels extracts the recognized keys carrying the given prefix.
// Unknown keys are ignored.
func FromContainerLabels(prefix string, labels map[string]string) Labels {
	known := make(map[Key]bool, len(Keys))
	for _, k := range Keys {
		known[k] = true
	}
	out := Labels{}
	for name, value := range labels {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		key := Key(strings.TrimPrefix(name, prefix))
		if known[key] {
			out[key] = value
		}
	}
	return out
}

// FromMap converts a string keyed map, such as the global section of the config file.
// Unknown keys are ignored.
func FromMap(m map[string]string) Labels {
	out := Labels{}
	for _, k := range Keys {
		if v, ok := m[string(k)]; ok {
			out[k] = v
		}
	}
	return out
}

// Merge returns a new label set where every key present in one of the sources
// overrides the value of the previous ones.
func Merge(sources ...Labels) Labels {
	out := Labels{}
	for _, src := range sources {
		for k, v := range src {
			out[k] = v
		}
	}
	return out
}

// SortedKeys returns the keys of the label set in lexical order.
func (l Labels) SortedKeys() []Key {
	keys := make([]Key, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Value is a raw label value that is either explicit or to be derived.
type Value struct {
	Raw    string
	Derive bool
}

func valueOf(raw string) Value {
	if strings.EqualFold(strings.TrimSpace(raw), Auto) {
		return Value{Derive: true}
	}
	return Value{Raw: raw}
}

// SplitNames splits a comma separated list of container names, dropping empty entries.
func SplitNames(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}
