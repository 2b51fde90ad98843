package main

import (
	"fmt"
	"os"

	"spendsync/internal/cli"
	"spendsync/internal/config"
	applog "spendsync/internal/log"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentCLI, (*config.Config).ValidateStorage)

	cmd := cli.NewRootCommand(cli.NewRootOptions(cfg, logger))
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
