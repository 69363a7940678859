// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/txlink/pkg/logging"
	"github.com/AleutianAI/txlink/services/txlink"
	"github.com/AleutianAI/txlink/services/txlink/config"
)

// cli holds state shared by all subcommands of one invocation.
type cli struct {
	configPath string
	logLevel   string
	logJSON    bool

	cfg    config.Config
	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "txlink",
		Short: "Find balanced input/output groupings in transaction values",
		Long: `txlink enumerates groupings of a transaction's inputs and outputs whose
sums match exactly. Each grouping is a candidate sub-transfer.`,
		Version:       txlink.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if c.logger != nil {
				return c.logger.Close()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&c.logJSON, "log-json", false, "log as JSON")

	rootCmd.AddCommand(newComputeCmd(c))
	rootCmd.AddCommand(newPartitionsCmd(c))
	rootCmd.AddCommand(newServeCmd(c))
	return rootCmd
}

// setup loads configuration and installs the logger.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Logging.JSON = c.logJSON
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}

	c.cfg = cfg
	c.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "txlink",
		JSON:    cfg.Logging.JSON,
		Output:  cmd.ErrOrStderr(),
	})
	c.logger.SetDefault()
	return nil
}
