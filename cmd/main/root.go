package main

import (
	"fmt"
	"os"

	"github.com/matt-steen/todostream/pkg/config"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	databasePath string
	logPath      string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "todostream",
	Short: "A live-syncing todo list in your terminal",
	Long: `todostream signs you in and keeps your todo list in sync with the store.

Add, edit, toggle and delete tasks, filter them by category or search text,
and undo a deletion for a few seconds after it happens.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		return run(conf)
	},
}

// loadConfig reads the config file and environment, then applies any flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Root().PersistentFlags()

	if flags.Changed("db") {
		conf.DatabasePath = databasePath
	}

	if flags.Changed("log") {
		conf.LogPath = logPath
	}

	if flags.Changed("log-level") {
		conf.LogLevel = logLevel
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&databasePath, "db", "", "sqlite database file")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "log file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(versionCmd)
}
