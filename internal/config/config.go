// Package config loads eqlog settings from a YAML file, EQLOG_* environment
// variables and command-line flags using viper.
//
// Library packages never read configuration directly; the CLI converts a
// Config into functional options.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/eqlog/eqlog-go/pkg/eqlog/entry"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "EQLOG"

// Keys understood in the config file and as EQLOG_<KEY> variables.
const (
	KeyLogDir           = "logdir"
	KeyCharacter        = "character"
	KeyChannels         = "channels"
	KeyGuildTag         = "guild_tag"
	KeyPopulationWindow = "population_window"
	KeyNotOnDkp         = "not_on_dkp"
	KeyDatabase         = "database"
	KeyFormat           = "format"
)

// Config is the resolved configuration.
type Config struct {
	LogDir           string        `mapstructure:"logdir"`
	Character        string        `mapstructure:"character"`
	Channels         []string      `mapstructure:"channels"`
	GuildTag         string        `mapstructure:"guild_tag"`
	PopulationWindow time.Duration `mapstructure:"population_window"`
	NotOnDkp         []string      `mapstructure:"not_on_dkp"`
	Database         string        `mapstructure:"database"`
	Format           string        `mapstructure:"format"`
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyLogDir, "")
	v.SetDefault(KeyCharacter, "")
	v.SetDefault(KeyChannels, []string{string(entry.ChannelRaid), string(entry.ChannelGuild)})
	v.SetDefault(KeyGuildTag, "")
	v.SetDefault(KeyPopulationWindow, 30*time.Second)
	v.SetDefault(KeyNotOnDkp, []string{})
	v.SetDefault(KeyDatabase, "")
	v.SetDefault(KeyFormat, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Read reads the config file into v. An explicit file must exist; otherwise
// $HOME/.eqlog.yaml and ./.eqlog.yaml are tried and their absence is not an error.
func Read(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", file, err)
		}
		return nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")
	v.SetConfigName(".eqlog")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// Load reads file (see Read) and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if err := Read(v, file); err != nil {
		return nil, err
	}
	return Decode(v)
}

// Decode validates and returns the settings currently held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	for _, name := range c.Channels {
		if !entry.Channel(normalize(name)).IsDkpEligible() {
			return fmt.Errorf("config: channel %q is not raid or guild", name)
		}
	}
	if c.PopulationWindow < 0 {
		return fmt.Errorf("config: population_window must be non-negative, got %v", c.PopulationWindow)
	}
	switch c.Format {
	case "", "jsonl", "pretty":
	default:
		return fmt.Errorf("config: unknown format %q (use jsonl or pretty)", c.Format)
	}
	return nil
}

// ChannelList returns the configured DKP channels.
func (c *Config) ChannelList() []entry.Channel {
	out := make([]entry.Channel, 0, len(c.Channels))
	for _, name := range c.Channels {
		out = append(out, entry.Channel(normalize(name)))
	}
	return out
}

// NotOnDkpFunc returns a case-insensitive lookup over the not_on_dkp list,
// or nil when the list is empty.
func (c *Config) NotOnDkpFunc() func(name string) bool {
	if len(c.NotOnDkp) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(c.NotOnDkp))
	for _, n := range c.NotOnDkp {
		set[normalize(n)] = struct{}{}
	}
	return func(name string) bool {
		_, ok := set[normalize(name)]
		return ok
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
