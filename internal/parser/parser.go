// Package parser classifies EverQuest log lines into entries.
//
// The chain is an explicit state machine: Transition maps the current State and
// one line to the next State and the entries that line produced.
package parser

import (
	"log/slog"
	"time"

	"github.com/eqlog/eqlog-go/internal/chat"
	"github.com/eqlog/eqlog-go/internal/timestamp"
	"github.com/eqlog/eqlog-go/pkg/eqlog/entry"
)

// DefaultPopulationWindow is how long after an attendance call the chain waits
// for the start of a /who listing.
const DefaultPopulationWindow = 30 * time.Second

// Mode is the active classifier of the chain.
type Mode int

const (
	// ModeFindStartTime discards lines before Config.StartTime.
	ModeFindStartTime Mode = iota
	// ModePrimary is the steady state.
	ModePrimary
	// ModePopulationStart waits for the banner of a /who listing.
	ModePopulationStart
	// ModePopulationBody reads roster lines until the zone terminator.
	ModePopulationBody
)

func (m Mode) String() string {
	switch m {
	case ModeFindStartTime:
		return "find_start_time"
	case ModePrimary:
		return "primary"
	case ModePopulationStart:
		return "population_start"
	case ModePopulationBody:
		return "population_body"
	}
	return "unknown"
}

// Config controls classification.
type Config struct {
	// StartTime discards earlier lines. Zero starts in ModePrimary.
	StartTime time.Time

	// Channels enabled for DKP spent calls. Nil enables raid and guild.
	Channels chat.ChannelSet

	// GuildTag is the "<Guild Name>" tag identifying roster lines.
	// Empty accepts any angle-bracketed tag.
	GuildTag string

	// PopulationWindow bounds the wait for a /who banner. 0 uses DefaultPopulationWindow.
	PopulationWindow time.Duration

	// Logger receives debug records for skipped lines. Nil disables logging.
	Logger *slog.Logger
}

func (c *Config) window() time.Duration {
	if c.PopulationWindow <= 0 {
		return DefaultPopulationWindow
	}
	return c.PopulationWindow
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// State is the full mutable state of the chain.
type State struct {
	Mode        Mode
	WindowStart time.Time
	SawBanner   bool
}

// InitialState returns the state a new chain starts in.
func InitialState(cfg *Config) State {
	if cfg.StartTime.IsZero() {
		return State{Mode: ModePrimary}
	}
	return State{Mode: ModeFindStartTime}
}

// Line is one timestamped log body.
type Line struct {
	Timestamp time.Time
	Body      string
}

// Transition classifies ln in state st.
func Transition(cfg *Config, st State, ln Line) (State, []entry.Entry) {
	switch st.Mode {
	case ModeFindStartTime:
		if ln.Timestamp.Before(cfg.StartTime) {
			return st, nil
		}
		return Transition(cfg, State{Mode: ModePrimary}, ln)

	case ModePopulationStart:
		return populationStart(cfg, st, ln)

	case ModePopulationBody:
		return populationBody(cfg, st, ln)

	default:
		return primary(cfg, State{Mode: ModePrimary}, ln)
	}
}

// Chain holds a State and feeds lines through Transition.
type Chain struct {
	cfg   Config
	state State
}

// New creates a chain.
func New(cfg Config) *Chain {
	c := &Chain{cfg: cfg}
	c.state = InitialState(&c.cfg)
	return c
}

// State returns the current state.
func (c *Chain) State() State { return c.state }

// Step classifies one already-timestamped line.
func (c *Chain) Step(ln Line) []entry.Entry {
	var out []entry.Entry
	c.state, out = Transition(&c.cfg, c.state, ln)
	return out
}

// Feed classifies one raw log line. Lines without a valid timestamp are skipped
// and leave the state unchanged.
func (c *Chain) Feed(raw string) []entry.Entry {
	ts, ok := timestamp.Extract(raw)
	if !ok {
		if raw != "" {
			c.cfg.logger().Debug("skipping line without timestamp", "line", raw)
		}
		return nil
	}
	return c.Step(Line{Timestamp: ts, Body: timestamp.Body(raw)})
}
