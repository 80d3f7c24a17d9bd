// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Command skillrt lists, runs and serves registered skills.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

type rootFlags struct {
	ConfigPath string
	Profile    string
	Overrides  []string
	JSON       bool
	LogLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flags := &rootFlags{}
	root := newRootCmd(flags)
	if err := root.ExecuteContext(ctx); err != nil {
		printError(err, flags.JSON)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(flags *rootFlags) *cobra.Command {
	root := &cobra.Command{
		Use:           "skillrt",
		Short:         "Skill registry and execution runtime",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&flags.ConfigPath, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&flags.Profile, "profile", "", "profile overlay merged next to --config")
	pf.StringArrayVar(&flags.Overrides, "set", nil, "override a config key (key=value, repeatable)")
	pf.BoolVar(&flags.JSON, "json", false, "print machine-readable JSON")
	pf.StringVar(&flags.LogLevel, "log-level", "", "override log.level")

	root.AddCommand(
		newListCmd(flags),
		newStatsCmd(flags),
		newRunCmd(flags),
		newSequenceCmd(flags),
		newEstimateCmd(flags),
		newAuditCmd(flags),
		newServeCmd(flags),
	)
	return root
}
