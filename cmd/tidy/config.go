package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jamesainslie/tidy/pkg/tidy/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage tidy configuration.

Configuration is loaded from:
  1. --config <file> (if given)
  2. $XDG_CONFIG_HOME/tidy/config.yaml (if set)
  3. ~/.config/tidy/config.yaml

Environment variables override file settings using the TIDY_ prefix:
  TIDY_SCANNER_MAX_DEPTH=2
  TIDY_CACHE_ENABLED=false
  TIDY_WATCH_SETTLE=5s`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

// init and path work without a readable config file.
var configInitCmd = &cobra.Command{
	Use:               "init",
	Short:             "Create a default configuration file",
	Args:              cobra.NoArgs,
	PersistentPreRunE: skipSetup,
	RunE:              runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:               "path",
	Short:             "Show the configuration file path",
	Args:              cobra.NoArgs,
	PersistentPreRunE: skipSetup,
	RunE:              runConfigPath,
}

var configForce bool

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	if cfg.File != "" {
		fmt.Fprintf(w, "# Config file: %s\n", cfg.File)
	} else {
		fmt.Fprintln(w, "# Config file: (none found, using defaults)")
	}

	var overrides []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, config.EnvPrefix+"_") {
			overrides = append(overrides, kv)
		}
	}
	for _, kv := range overrides {
		fmt.Fprintf(w, "# Environment: %s\n", kv)
	}

	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	path, err := config.WriteDefault(cfgFile, configForce)
	if errors.Is(err, config.ErrConfigExists) {
		printInfo("Config file already exists: %s", path)
		printInfo("Use --force to overwrite it.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		p, err := config.DefaultFile()
		if err != nil {
			return err
		}
		path = p
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)

	if _, err := os.Stat(path); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (defaults are used)")
	}
	return nil
}
