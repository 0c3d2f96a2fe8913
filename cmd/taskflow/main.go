package main

import (
	"github.com/tgienger/taskflow/internal/cli"
	"github.com/tgienger/taskflow/internal/config"
	apperrors "github.com/tgienger/taskflow/internal/errors"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := cli.Execute(cli.BuildInfo{Version: version, Commit: commit, Date: date})
	if err != nil {
		config.Exitf(apperrors.CodeOf(err).ExitCode(), "Error [%s]: %v", apperrors.CodeOf(err), err)
	}
}
