package config

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/databacker/docker-database-backup/pkg/encrypt"
)

var (
	// ErrInvalidLabel is wrapped by every error caused by a malformed label value.
	ErrInvalidLabel = errors.New("invalid label value")
	// ErrInvalidDumpName is returned when the dump name is not a safe filename.
	ErrInvalidDumpName = errors.New("invalid dump name")
)

// DumpNamePattern is what a dump name must match to be used as a filename.
var DumpNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// DefaultEncryptionAlgorithm is used when no encryption_algorithm label is set.
const DefaultEncryptionAlgorithm = encrypt.AlgoPBKDF2AES256CBC

// Policy is a named retention preset.
type Policy string

const (
	PolicyNone   Policy = "none"
	PolicySimple Policy = "simple"
	PolicyAll    Policy = "all"
	PolicyCustom Policy = "custom"
)

type preset struct {
	timestamp bool
	minCount  int
	minAge    time.Duration
	maxCount  int
	maxAge    time.Duration
}

var presets = map[Policy]preset{
	PolicyNone:   {timestamp: false, minCount: 1},
	PolicySimple: {timestamp: true, minCount: 10, maxAge: 30 * 24 * time.Hour},
	PolicyAll:    {timestamp: true, minCount: 1},
	PolicyCustom: {timestamp: true, minCount: 1},
}

// Retention is the resolved retention configuration of a target.
type Retention struct {
	Policy   Policy
	MinCount int
	MinAge   time.Duration
	MaxCount int
	MaxAge   time.Duration
}

// TargetDescriptor is the fully resolved backup configuration of one container for one cycle.
type TargetDescriptor struct {
	Name                string
	Kind                Kind
	Host                string
	Port                int
	Username            string
	Password            string
	DumpName            string
	DumpTimestamp       bool
	Compress            bool
	CompressionLevel    int
	Encrypt             bool
	EncryptionKey       string
	EncryptionAlgorithm string
	Retention           Retention
	GraceTime           time.Duration
}

// Target is what the resolver needs to know about a container.
type Target struct {
	Name   string
	Labels Labels
	Images []string
}

// Resolver builds target descriptors. Host is the network alias every target is reachable
// under while it is being dumped.
type Resolver struct {
	Host string
}

// Resolve layers the defaults, the global labels and the target labels, then derives
// everything left on auto. The result does not depend on anything but the arguments.
func (r Resolver) Resolve(global Labels, target Target) (TargetDescriptor, error) {
	labels := Merge(defaultLabels(), global, target.Labels)

	d := TargetDescriptor{
		Name:                target.Name,
		Host:                r.Host,
		Username:            labels[KeyUsername],
		Password:            labels[KeyPassword],
		DumpName:            labels[KeyDumpName],
		EncryptionKey:       labels[KeyEncryptionKey],
		EncryptionAlgorithm: labels[KeyEncryptionAlgorithm],
	}
	if d.DumpName == "" {
		d.DumpName = target.Name
	}
	if !DumpNamePattern.MatchString(d.DumpName) {
		return TargetDescriptor{}, fmt.Errorf("%w %q: must match '%s'", ErrInvalidDumpName, d.DumpName, DumpNamePattern.String())
	}
	if !slices.Contains(encrypt.All, d.EncryptionAlgorithm) {
		return TargetDescriptor{}, labelError(KeyEncryptionAlgorithm, d.EncryptionAlgorithm, fmt.Errorf("must be one of %v", encrypt.All))
	}

	// kind first, the port default depends on it
	kind, detect := parseKind(labels[KeyType])
	if detect {
		kind = KindFromImages(target.Images)
	}
	d.Kind = kind

	var err error
	if d.Port, err = resolveInt(labels, KeyPort, kind.DefaultPort()); err != nil {
		return TargetDescriptor{}, err
	}
	if d.Port < 0 || d.Port > 65535 {
		return TargetDescriptor{}, labelError(KeyPort, labels[KeyPort], errors.New("out of range"))
	}

	policy := Policy(labels[KeyRetentionPolicy])
	p, ok := presets[policy]
	if !ok {
		return TargetDescriptor{}, labelError(KeyRetentionPolicy, string(policy), errors.New("must be one of none, simple, all, custom"))
	}
	d.Retention.Policy = policy
	if d.DumpTimestamp, err = resolveBool(labels, KeyDumpTimestamp, p.timestamp); err != nil {
		return TargetDescriptor{}, err
	}
	if d.Retention.MinCount, err = resolveInt(labels, KeyRetentionMinCount, p.minCount); err != nil {
		return TargetDescriptor{}, err
	}
	if d.Retention.MinCount < 1 {
		return TargetDescriptor{}, labelError(KeyRetentionMinCount, labels[KeyRetentionMinCount], errors.New("must be at least 1"))
	}
	if d.Retention.MaxCount, err = resolveInt(labels, KeyRetentionMaxCount, p.maxCount); err != nil {
		return TargetDescriptor{}, err
	}
	if d.Retention.MaxCount < 0 {
		return TargetDescriptor{}, labelError(KeyRetentionMaxCount, labels[KeyRetentionMaxCount], errors.New("must not be negative"))
	}
	if d.Retention.MinAge, err = resolveDuration(labels, KeyRetentionMinAge, p.minAge); err != nil {
		return TargetDescriptor{}, err
	}
	if d.Retention.MaxAge, err = resolveDuration(labels, KeyRetentionMaxAge, p.maxAge); err != nil {
		return TargetDescriptor{}, err
	}

	if d.Compress, err = resolveBool(labels, KeyCompress, false); err != nil {
		return TargetDescriptor{}, err
	}
	if d.CompressionLevel, err = resolveInt(labels, KeyCompressionLevel, 6); err != nil {
		return TargetDescriptor{}, err
	}
	if d.CompressionLevel < 1 || d.CompressionLevel > 9 {
		return TargetDescriptor{}, labelError(KeyCompressionLevel, labels[KeyCompressionLevel], errors.New("must be between 1 and 9"))
	}
	if d.Encrypt, err = resolveBool(labels, KeyEncrypt, false); err != nil {
		return TargetDescriptor{}, err
	}
	if d.GraceTime, err = resolveDuration(labels, KeyGraceTime, 0); err != nil {
		return TargetDescriptor{}, err
	}
	return d, nil
}

func labelError(key Key, raw string, err error) error {
	return fmt.Errorf("%w %s=%q: %v", ErrInvalidLabel, key, raw, err)
}

func resolveInt(labels Labels, key Key, derived int) (int, error) {
	v := valueOf(labels[key])
	if v.Derive {
		return derived, nil
	}
	i, err := parseInt(v.Raw)
	if err != nil {
		return 0, labelError(key, v.Raw, err)
	}
	return i, nil
}

func resolveBool(labels Labels, key Key, derived bool) (bool, error) {
	v := valueOf(labels[key])
	if v.Derive {
		return derived, nil
	}
	b, err := ParseBool(v.Raw)
	if err != nil {
		return false, labelError(key, v.Raw, err)
	}
	return b, nil
}

func resolveDuration(labels Labels, key Key, derived time.Duration) (time.Duration, error) {
	v := valueOf(labels[key])
	if v.Derive {
		return derived, nil
	}
	d, err := ParseDuration(v.Raw)
	if err != nil {
		return 0, labelError(key, v.Raw, err)
	}
	return d, nil
}
