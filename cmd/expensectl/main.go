package main

import (
	"errors"
	"fmt"
	"os"

	"expensetracker/internal/cli"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/render"
)

func main() {
	if len(os.Args) < 2 {
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}
	switch os.Args[1] {
	case "help", "-h", "--help":
		cli.PrintUsage(os.Stdout)
		return
	}

	cli.LoadEnvFile()
	cfg := cli.MustConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentCLI)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	stack, err := cli.OpenStack(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cmds := &cli.Commands{
		Tracker: stack.Tracker,
		Format:  render.NewFormatter(cfg.CurrencySymbol),
		Out:     os.Stdout,
	}
	runErr := cmds.Run(ctx, os.Args[1:])
	if err := stack.Close(); err != nil {
		logger.Error("Cleanup error", applog.FieldError, err)
	}

	switch {
	case runErr == nil:
	case errors.Is(runErr, cli.ErrUsage):
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", runErr)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	case core.IsValidation(runErr):
		fmt.Fprintf(os.Stderr, "Invalid input: %v\n", runErr)
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}
