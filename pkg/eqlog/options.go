package eqlog

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/eqlog/eqlog-go/internal/chat"
	"github.com/eqlog/eqlog-go/internal/parser"
	"github.com/eqlog/eqlog-go/pkg/eqlog/auction"
)

// ReplayMode specifies how to handle existing log lines.
type ReplayMode int

const (
	// ReplayNone only watches for new lines (default, tail -f behavior).
	ReplayNone ReplayMode = iota
	// ReplayFromStart reads from the beginning of the file.
	ReplayFromStart
	// ReplayLastN reads the last N lines before tailing.
	ReplayLastN
	// ReplaySinceTime reads lines since a specific timestamp.
	ReplaySinceTime
)

// DefaultMaxReplayLastN is the default maximum lines for ReplayLastN mode.
const DefaultMaxReplayLastN = 10000

// DefaultPollInterval is how often the watcher looks for a newer log file.
const DefaultPollInterval = 2 * time.Second

// ReplayConfig configures replay behavior.
// Only one mode can be active at a time (mutually exclusive).
type ReplayConfig struct {
	Mode  ReplayMode
	LastN int       // For ReplayLastN
	Since time.Time // For ReplaySinceTime
}

// chainConfig holds the entry parser settings shared by parsing and watching.
type chainConfig struct {
	guildTag         string
	channels         []Channel
	populationWindow time.Duration
	logger           *slog.Logger
}

func (c *chainConfig) parserConfig(start time.Time) parser.Config {
	cfg := parser.Config{
		StartTime:        start,
		GuildTag:         c.guildTag,
		PopulationWindow: c.populationWindow,
		Logger:           c.logger,
	}
	if c.channels != nil {
		names := make([]string, len(c.channels))
		for i, ch := range c.channels {
			names[i] = string(ch)
		}
		cfg.Channels = chat.NewChannelSet(names...)
	}
	return cfg
}

// WatchOption configures Watch behavior using the functional options pattern.
type WatchOption func(*watchConfig)

// watchConfig holds internal configuration for the watcher.
type watchConfig struct {
	chainConfig
	logDir         string
	character      string
	pollInterval   time.Duration
	replay         ReplayConfig
	maxReplayLines int
	filter         *compiledFilter
	tracker        *auction.Tracker
	onAuction      func(auction.Event)
}

// defaultWatchConfig returns a watchConfig with sensible defaults.
func defaultWatchConfig() *watchConfig {
	return &watchConfig{
		pollInterval:   DefaultPollInterval,
		maxReplayLines: DefaultMaxReplayLastN,
	}
}

// applyWatchOptions applies functional options to a watchConfig.
func applyWatchOptions(opts []WatchOption) *watchConfig {
	cfg := defaultWatchConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// validate checks for invalid option combinations.
func (c *watchConfig) validate() error {
	if c.replay.Mode == ReplayLastN {
		if c.replay.LastN < 0 {
			return fmt.Errorf("replay LastN must be non-negative, got %d", c.replay.LastN)
		}
		if c.maxReplayLines > 0 && c.replay.LastN > c.maxReplayLines {
			return fmt.Errorf("replay LastN (%d) exceeds maximum of %d", c.replay.LastN, c.maxReplayLines)
		}
	}
	if c.replay.Mode == ReplaySinceTime && c.replay.Since.IsZero() {
		return fmt.Errorf("replay Since must be set when mode is ReplaySinceTime")
	}
	if c.pollInterval < 0 {
		return fmt.Errorf("poll interval must be non-negative, got %v", c.pollInterval)
	}
	if c.populationWindow < 0 {
		return fmt.Errorf("population window must be non-negative, got %v", c.populationWindow)
	}
	return nil
}

// WithLogDir sets the EverQuest log directory.
// If not set, auto-detects from default Windows locations.
// Can also be set via EQLOG_LOGDIR environment variable.
func WithLogDir(dir string) WatchOption {
	return func(c *watchConfig) {
		c.logDir = dir
	}
}

// WithCharacter follows only the named character's logs. The name also
// replaces "You" in auction calls made by the log owner.
func WithCharacter(name string) WatchOption {
	return func(c *watchConfig) {
		c.character = name
	}
}

// WithPollInterval sets how often to check for a newer log file.
// Default: 2 seconds.
func WithPollInterval(interval time.Duration) WatchOption {
	return func(c *watchConfig) {
		c.pollInterval = interval
	}
}

// WithReplay configures replay behavior for existing log lines.
// Default: ReplayNone (only new lines).
func WithReplay(config ReplayConfig) WatchOption {
	return func(c *watchConfig) {
		c.replay = config
	}
}

// WithReplayFromStart reads from the beginning of the log file.
func WithReplayFromStart() WatchOption {
	return func(c *watchConfig) {
		c.replay = ReplayConfig{Mode: ReplayFromStart}
	}
}

// WithReplayLastN reads the last N lines before tailing.
func WithReplayLastN(n int) WatchOption {
	return func(c *watchConfig) {
		c.replay = ReplayConfig{Mode: ReplayLastN, LastN: n}
	}
}

// WithReplaySinceTime reads lines since a specific timestamp.
func WithReplaySinceTime(since time.Time) WatchOption {
	return func(c *watchConfig) {
		c.replay = ReplayConfig{Mode: ReplaySinceTime, Since: since}
	}
}

// WithMaxReplayLines sets the maximum lines for ReplayLastN mode.
// 0 uses default (10000). Set to -1 for unlimited (not recommended).
func WithMaxReplayLines(max int) WatchOption {
	return func(c *watchConfig) {
		c.maxReplayLines = max
	}
}

// WithLogger sets the slog logger for debug output.
// If nil (default), logging is disabled.
func WithLogger(logger *slog.Logger) WatchOption {
	return func(c *watchConfig) {
		c.logger = logger
	}
}

// WithIncludeKinds filters entries to only include the specified kinds.
// If called multiple times, only the last call takes effect.
func WithIncludeKinds(kinds ...Kind) WatchOption {
	return func(c *watchConfig) {
		c.filter = c.filter.withInclude(kinds)
	}
}

// WithExcludeKinds filters out entries of the specified kinds.
// Exclude takes precedence over include.
func WithExcludeKinds(kinds ...Kind) WatchOption {
	return func(c *watchConfig) {
		c.filter = c.filter.withExclude(kinds)
	}
}

// WithFilter sets both include and exclude kind filters.
func WithFilter(include, exclude []Kind) WatchOption {
	return func(c *watchConfig) {
		c.filter = newCompiledFilter(include, exclude)
	}
}

// WithGuildTag sets the "<Guild>" tag that marks roster lines of a
// population listing. Empty accepts any tag.
func WithGuildTag(tag string) WatchOption {
	return func(c *watchConfig) {
		c.guildTag = tag
	}
}

// WithChannels sets the channels accepted for DKP bookkeeping.
// Default: raid and guild.
func WithChannels(channels ...Channel) WatchOption {
	return func(c *watchConfig) {
		c.channels = channels
	}
}

// WithPopulationWindow sets how long after an attendance call a population
// listing is awaited. Default: 30 seconds.
func WithPopulationWindow(d time.Duration) WatchOption {
	return func(c *watchConfig) {
		c.populationWindow = d
	}
}

// WithTracker feeds every watched line to t.
// If not set, the watcher creates its own tracker.
func WithTracker(t *auction.Tracker) WatchOption {
	return func(c *watchConfig) {
		c.tracker = t
	}
}

// WithAuctionHandler is called, on the watcher goroutine, for every
// auction event the tracker reports.
func WithAuctionHandler(fn func(auction.Event)) WatchOption {
	return func(c *watchConfig) {
		c.onAuction = fn
	}
}

// ParseOption configures ParseFile/ParseDir behavior.
type ParseOption func(*parseConfig)

// parseConfig holds internal configuration for parsing.
type parseConfig struct {
	chainConfig
	filter      *compiledFilter
	since       time.Time
	until       time.Time
	stopOnError bool
	tracker     *auction.Tracker
}

// defaultParseConfig returns a parseConfig with sensible defaults.
func defaultParseConfig() *parseConfig {
	return &parseConfig{}
}

// applyParseOptions applies functional options to a parseConfig.
func applyParseOptions(opts []ParseOption) *parseConfig {
	cfg := defaultParseConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithParseIncludeKinds filters entries to only include the specified kinds.
func WithParseIncludeKinds(kinds ...Kind) ParseOption {
	return func(c *parseConfig) {
		c.filter = c.filter.withInclude(kinds)
	}
}

// WithParseExcludeKinds filters out entries of the specified kinds.
func WithParseExcludeKinds(kinds ...Kind) ParseOption {
	return func(c *parseConfig) {
		c.filter = c.filter.withExclude(kinds)
	}
}

// WithParseFilter sets both include and exclude kind filters for parsing.
func WithParseFilter(include, exclude []Kind) ParseOption {
	return func(c *parseConfig) {
		c.filter = newCompiledFilter(include, exclude)
	}
}

// WithParseTimeRange filters entries to only include those within the time range.
// since is inclusive, until is exclusive.
// Zero values are ignored (no filtering for that boundary).
//
// Lines before since are not classified at all: the parser stays in its
// start-time search until the first line at or after since.
func WithParseTimeRange(since, until time.Time) ParseOption {
	return func(c *parseConfig) {
		c.since = since
		c.until = until
	}
}

// WithParseSince filters entries to only include those at or after the given time.
func WithParseSince(since time.Time) ParseOption {
	return func(c *parseConfig) {
		c.since = since
	}
}

// WithParseUntil filters entries to only include those before the given time.
func WithParseUntil(until time.Time) ParseOption {
	return func(c *parseConfig) {
		c.until = until
	}
}

// WithParseStopOnError stops parsing on the first line without a timestamp
// instead of skipping it.
// Default: false (skip malformed lines and continue).
func WithParseStopOnError(stop bool) ParseOption {
	return func(c *parseConfig) {
		c.stopOnError = stop
	}
}

// WithParseGuildTag sets the roster guild tag. See WithGuildTag.
func WithParseGuildTag(tag string) ParseOption {
	return func(c *parseConfig) {
		c.guildTag = tag
	}
}

// WithParseChannels sets the DKP channels. See WithChannels.
func WithParseChannels(channels ...Channel) ParseOption {
	return func(c *parseConfig) {
		c.channels = channels
	}
}

// WithParsePopulationWindow sets the population listing window. See WithPopulationWindow.
func WithParsePopulationWindow(d time.Duration) ParseOption {
	return func(c *parseConfig) {
		c.populationWindow = d
	}
}

// WithParseLogger sets the slog logger for skipped lines.
func WithParseLogger(logger *slog.Logger) ParseOption {
	return func(c *parseConfig) {
		c.logger = logger
	}
}

// WithParseTracker also feeds every parsed line within the time range to t.
func WithParseTracker(t *auction.Tracker) ParseOption {
	return func(c *parseConfig) {
		c.tracker = t
	}
}
