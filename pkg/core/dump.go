package core

import (
	"fmt"
	"io"
	"strconv"

	"github.com/databacker/docker-database-backup/pkg/config"
	"github.com/databacker/docker-database-backup/pkg/process"
)

// system schemas left out of mysql and mariadb dumps
var ignoredDatabases = []string{"mysql", "information_schema", "performance_schema"}

// dumpCommand builds the dump tool invocation for the kind of the target. The dump is
// written to out.
func dumpCommand(d config.TargetDescriptor, out io.Writer) (process.Command, error) {
	port := strconv.Itoa(d.Port)
	switch d.Kind {
	case config.KindMySQL, config.KindMariaDB:
		args := []string{
			"--host=" + d.Host,
			"--port=" + port,
			"--user=" + d.Username,
			"--password=" + d.Password,
			"--all-databases",
		}
		for _, db := range ignoredDatabases {
			args = append(args, "--ignore-database="+db)
		}
		return process.Command{Name: "mysqldump", Args: args, Stdout: out}, nil
	case config.KindPostgres:
		return process.Command{
			Name: "pg_dumpall",
			Args: []string{
				"--host=" + d.Host,
				"--port=" + port,
				"--username=" + d.Username,
			},
			Env:    map[string]string{"PGPASSWORD": d.Password},
			Stdout: out,
		}, nil
	case config.KindUnknown:
		return process.Command{}, ErrUnknownKind
	}
	return process.Command{}, fmt.Errorf("%w: %s", ErrUnknownKind, d.Kind)
}
