package config

import (
	"strings"
)

// Kind is the database engine running in a target container.
type Kind int

const (
	KindUnknown Kind = iota
	KindMySQL
	KindMariaDB
	KindPostgres
)

func (k Kind) String() string {
	switch k {
	case KindMySQL:
		return "mysql"
	case KindMariaDB:
		return "mariadb"
	case KindPostgres:
		return "postgres"
	default:
		return "unknown"
	}
}

// DefaultPort is the port substituted for port=auto.
func (k Kind) DefaultPort() int {
	switch k {
	case KindMySQL, KindMariaDB:
		return 3306
	case KindPostgres:
		return 5432
	default:
		return 0
	}
}

// parseKind maps a type label to a kind. auto reports whether the label asks for detection.
// Anything unrecognized is KindUnknown.
func parseKind(raw string) (kind Kind, auto bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case Auto:
		return KindUnknown, true
	case "mysql":
		return KindMySQL, false
	case "mariadb":
		return KindMariaDB, false
	case "postgres":
		return KindPostgres, false
	default:
		return KindUnknown, false
	}
}

// knownImages maps bare image names to the kind they run.
var knownImages = map[string]Kind{
	"mysql":               KindMySQL,
	"bitnami/mysql":       KindMySQL,
	"mysql/mysql-server":  KindMySQL,
	"mariadb":             KindMariaDB,
	"bitnami/mariadb":     KindMariaDB,
	"linuxserver/mariadb": KindMariaDB,
	"mariadb/server":      KindMariaDB,
	"postgres":            KindPostgres,
	"bitnami/postgresql":  KindPostgres,
}

// KindFromImages detects the kind from the image references of a container.
// References are checked in order and the first one found in the known image table wins.
func KindFromImages(refs []string) Kind {
	for _, ref := range refs {
		if kind, ok := knownImages[bareImage(ref)]; ok {
			return kind
		}
	}
	return KindUnknown
}

// bareImage strips digest, tag and the default registry from an image reference,
// so "docker.io/library/mysql:8.0@sha256:..." becomes "mysql".
func bareImage(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.Index(ref, "@"); i >= 0 {
		ref = ref[:i]
	}
	// a colon after the last slash is a tag; before it, a registry port
	if i := strings.LastIndex(ref, ":"); i > strings.LastIndex(ref, "/") {
		ref = ref[:i]
	}
	ref = strings.TrimPrefix(ref, "docker.io/")
	ref = strings.TrimPrefix(ref, "library/")
	return ref
}
