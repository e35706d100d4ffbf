/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gopdfreader/internal/app"
	"gopdfreader/internal/config"
	"gopdfreader/internal/crash"
	applog "gopdfreader/internal/log"
)

// cli carries what the persistent pre-run resolved for the subcommands.
type cli struct {
	configPath string
	logLevel   string

	cfg      config.AppConfig
	password string
	crash    *crash.State
}

func newRootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gopdfreader",
		Short: "Read PDF documents and keep a library of what you opened",
		Long: `GoPDFReader opens PDF documents from a URL or a local path, shows one page
at a time with an animated page turn and remembers every document it
opened in a persistent library.

The desktop reader needs a binary built with -tags fyne; the library
commands work in every build.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// .env is optional
			_ = godotenv.Load()
			return c.load()
		},
	}
	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default is the user config dir, or $"+config.EnvConfigPath+")")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newUICmd(c),
		newLibraryCmd(c),
		newInfoCmd(c),
		newConfigCmd(c),
		newVersionCmd(),
	)
	return cmd
}

func (c *cli) load() error {
	var err error
	if c.configPath != "" {
		c.cfg, c.password, err = config.LoadFrom(c.configPath)
	} else {
		c.cfg, c.password, err = config.Load()
	}
	if lvl := strings.TrimSpace(c.logLevel); lvl != "" {
		c.cfg.Logging.Level = lvl
	}
	applog.Init(applog.Options{
		Level:     c.cfg.Logging.Level,
		Format:    c.cfg.Logging.Format,
		AddSource: c.cfg.Logging.Source,
		File:      c.cfg.Logging.File,
	})
	if err != nil {
		// Load hands back defaults alongside the error.
		applog.WithComponent("cli").Warn("config not loaded, using defaults", slog.Any("err", err))
	}
	if dir, derr := c.cfg.DataDir(); derr == nil {
		c.crash.DataDir = dir
	}
	return nil
}

// runtime opens the shared services; callers must Close it.
func (c *cli) runtime(ctx context.Context) (*app.Runtime, error) {
	rt, err := app.OpenRuntime(ctx, c.cfg, app.RuntimeOptions{Password: c.password})
	if err != nil {
		return nil, fmt.Errorf("open library: %w", err)
	}
	return rt, nil
}
