/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// cfg is rebuilt from flags, environment and config file on every run.
var cfg = viper.New()

var rootCmd = &cobra.Command{
	Use:   "notesync",
	Short: "Personal notes kept in sync with a remote note store.",
	Long: `notesync keeps a local cache of your notes and reconciles it with the
remote note service once per session: the newer side of each note wins and
notes only known locally are created remotely.

Settings come from flags, NOTESYNC_* environment variables (NOTESYNC_API_URL,
NOTESYNC_LOG_LEVEL, ...) and an optional config.toml in the home directory,
in that order of precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cmd.Root().PersistentFlags())
		if err != nil {
			return err
		}

		cfg = c
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("home", defaultHome(), "Directory holding the local note store.")
	f.String("api-url", "http://localhost:3000", "Base URL of the remote note service.")
	f.Duration("timeout", 30*time.Second, "Timeout for each remote request.")
	f.String("log-level", "info", "Log level (debug, info, warn, error).")
	f.String("log-file", "", "Write logs to this file instead of stderr.")
	f.Bool("welcome", true, "Seed a welcome note on first run.")
}

func defaultHome() string {
	if home := os.Getenv("NOTESYNC_HOME"); len(home) > 0 {
		return home
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".notesync"
	}

	return filepath.Join(home, ".notesync")
}

func loadConfig(flags *pflag.FlagSet) (*viper.Viper, error) {
	c := viper.New()

	if err := c.BindPFlags(flags); err != nil {
		return nil, err
	}

	c.SetEnvPrefix("NOTESYNC")
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()

	path := filepath.Join(c.GetString("home"), "config.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c, nil
	}

	c.SetConfigFile(path)
	if err := c.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	return c, nil
}
