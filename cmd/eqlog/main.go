package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eqlog/eqlog-go/internal/config"
)

var (
	// Version information (set by ldflags)
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	verbose bool
	cfgFile string

	// settings is the merged configuration, loaded before any subcommand runs.
	settings = &config.Config{}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "eqlog",
	Short: "EverQuest log parser and DKP auction tracker",
	Long: `eqlog parses and monitors EverQuest log files for DKP bookkeeping.

It extracts raid attendance, kills, loot, DKP spent calls and /who
rosters, tracks live loot auctions and their bids, and reads raid
roster updates from the Zeal pipe. Entries are output as JSON Lines
for easy processing with other tools.

Settings are read from $HOME/.eqlog.yaml (or --config), EQLOG_*
environment variables and flags, in increasing order of precedence.

This is an unofficial tool and is not affiliated with Daybreak Game Company.`,
	SilenceUsage:      true, // Don't show usage on error
	PersistentPreRunE: loadSettings,
}

func init() {
	// Global flags (inherited by all subcommands)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Config file (default: $HOME/.eqlog.yaml)")

	// Add subcommands
	rootCmd.AddCommand(tailCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(auctionsCmd)
	rootCmd.AddCommand(zealCmd)
	rootCmd.AddCommand(versionCmd)
}

// settingFlags maps command flags to config keys. Flags set on the command
// line override the config file and environment.
var settingFlags = map[string]string{
	"log-dir":           config.KeyLogDir,
	"character":         config.KeyCharacter,
	"channels":          config.KeyChannels,
	"guild-tag":         config.KeyGuildTag,
	"population-window": config.KeyPopulationWindow,
	"db":                config.KeyDatabase,
	"format":            config.KeyFormat,
}

func loadSettings(cmd *cobra.Command, args []string) error {
	v := config.New()
	if err := bindSettingFlags(v, cmd); err != nil {
		return err
	}
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	settings = cfg
	return nil
}

func bindSettingFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range settingFlags {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

// newLogger returns a debug-level stderr logger with --verbose, nil otherwise.
func newLogger() *slog.Logger {
	if !verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("eqlog %s (commit: %s, built: %s)\n", version, commit, date)
	},
}
