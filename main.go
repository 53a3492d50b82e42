package main

import (
	"github.com/databacker/docker-database-backup/cmd"
)

func main() {
	cmd.Execute()
}
