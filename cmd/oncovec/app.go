package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/oncovec/internal/cli"
	"github.com/hyperjump/oncovec/internal/config"
	"github.com/hyperjump/oncovec/pkg/utils"
)

const defaultConfigPath = "/usr/local/etc/oncovec/config.yaml"

type app struct {
	// config, when set, replaces loading from --config.
	config *config.Config
	// logger, when set, replaces the logger built from --debug.
	logger *zap.Logger
}

func newApp() *app {
	return &app{}
}

// loadConfig resolves the config for cmd. With the default path, a config.yaml in
// the working directory wins; when neither exists the built-in defaults are used.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if a.config != nil {
		return a.config, nil
	}
	path := flagValue(cmd, "config")
	var cfg *config.Config
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			if fallback := filepath.Join(cwd, "config.yaml"); fileExists(fallback) {
				path = fallback
			}
		}
		if !fileExists(path) {
			cfg = config.Default()
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
		}
	}
	if cfg == nil {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flagValue(cmd, "debug") == "true" {
		cfg.Debug = true
	}
	return cfg, nil
}

func (a *app) newLogger(cfg *config.Config) (*zap.Logger, error) {
	if a.logger != nil {
		return a.logger, nil
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

// client returns an HTTP client when --server is set.
func (a *app) client(cmd *cobra.Command) *cli.Client {
	url := flagValue(cmd, "server")
	if url == "" {
		return nil
	}
	return cli.NewClient(url)
}

// open loads config and opens every local component with the vector store ready.
func (a *app) open(cmd *cobra.Command) (*Components, error) {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := a.newLogger(cfg)
	if err != nil {
		return nil, err
	}
	comps, err := newComponents(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := comps.Store.Open(cmd.Context()); err != nil {
		_ = comps.Close(context.Background())
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	return comps, nil
}

func outputFormat(cmd *cobra.Command) cli.OutputFormat {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return cli.OutputJSON
	}
	return cli.OutputText
}

// flagValue looks a flag up in cmd and its parents' persistent flags.
func flagValue(cmd *cobra.Command, name string) string {
	if f := cmd.Flag(name); f != nil {
		return f.Value.String()
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
