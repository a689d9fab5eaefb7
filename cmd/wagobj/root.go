// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type rootCommand struct {
	logger *logrus.Logger
	cmd    *cobra.Command
	config Config

	configPath string
	logLevel   string
	logFormat  string
}

func newRootCommand(logger *logrus.Logger) *rootCommand {
	c := &rootCommand{
		logger: logger,
	}

	c.cmd = &cobra.Command{
		Use:               "wagobj",
		Short:             "inspect compiled object files",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
	}

	c.cmd.PersistentFlags().AddFlagSet(c.persistentFlagSet())
	c.cmd.AddCommand(
		getDumpCmd(c),
		getStackMapCmd(c),
	)
	return c
}

func (c *rootCommand) persistentFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.StringVarP(&c.configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warning, error)")
	flags.StringVar(&c.logFormat, "log-format", "", "log output format (text, json)")
	return flags
}

func (c *rootCommand) persistentPreRunE(cmd *cobra.Command, args []string) (err error) {
	c.config, err = loadConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		c.config.LogLevel = c.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		c.config.LogFormat = c.logFormat
	}

	return c.setupLogger()
}

func (c *rootCommand) setupLogger() error {
	level, err := logrus.ParseLevel(c.config.LogLevel)
	if err != nil {
		return err
	}
	c.logger.SetLevel(level)

	switch c.config.LogFormat {
	case "json":
		c.logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		c.logger.SetFormatter(&logrus.TextFormatter{})
	default:
		return fmt.Errorf("unsupported log format %q", c.config.LogFormat)
	}

	c.logger.WithField("config", c.configPath).Debug("configured")
	return nil
}
