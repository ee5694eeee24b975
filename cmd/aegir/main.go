// Package main is the entry point for the aegir CLI.
package main

import (
	"context"
	"os"

	"github.com/mrz1836/aegir/internal/cli"
)

// Build-time variables set via ldflags.
//
//nolint:gochecknoglobals // Required for ldflags injection at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	defer cli.CloseLogFile()

	info := cli.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}

	if err := cli.Execute(context.Background(), info); err != nil {
		return cli.ExitCodeForError(err)
	}
	return cli.ExitSuccess
}
