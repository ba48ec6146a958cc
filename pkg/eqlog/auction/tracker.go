package auction

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eqlog/eqlog-go/internal/chat"
	"github.com/eqlog/eqlog-go/internal/timestamp"
	"github.com/eqlog/eqlog-go/pkg/eqlog/entry"
	"github.com/eqlog/eqlog-go/pkg/eqlog/zeal"
)

// EventType identifies what a processed line did to the tracker.
type EventType string

const (
	EventOpened        EventType = "opened"
	EventDuplicateOpen EventType = "duplicate_open"
	EventBid           EventType = "bid"
	EventStatus        EventType = "status"
	EventSpent         EventType = "spent"
	EventClosed        EventType = "closed"
	EventRemoved       EventType = "removed"
)

// Event reports one state change. Only the fields relevant to Type are set.
type Event struct {
	Type    EventType   `json:"type"`
	Auction LiveAuction `json:"auction"`
	Bid     *LiveBid    `json:"bid,omitempty"`
	Spent   *SpentCall  `json:"spent,omitempty"`
}

// Snapshot is a copy of the tracker state.
type Snapshot struct {
	Session   string             `json:"session"`
	Open      []LiveAuction      `json:"open"`
	Bids      []LiveBid          `json:"bids"`
	Completed []CompletedAuction `json:"completed"`
}

// Option configures a Tracker.
type Option func(*trackerConfig)

type trackerConfig struct {
	self     string
	channels chat.ChannelSet
	notOnDkp func(name string) bool
	roster   RosterLookup
	logger   *slog.Logger
}

// RosterLookup returns the raid roster record of a character. known is
// false while no roster has been received; bids are then left unannotated.
// (*zeal.Service).Lookup satisfies it.
type RosterLookup func(name string) (rc zeal.RaidCharacter, inRaid, known bool)

// WithSelf sets the log owner's character name, used in place of "You".
func WithSelf(name string) Option {
	return func(c *trackerConfig) {
		c.self = chat.NormalizeName(strings.TrimSpace(name))
	}
}

// WithChannels restricts auction tracking to the given channels.
// Only raid and guild are eligible; others are ignored. Default: raid and guild.
func WithChannels(channels ...entry.Channel) Option {
	return func(c *trackerConfig) {
		names := make([]string, len(channels))
		for i, ch := range channels {
			names[i] = string(ch)
		}
		c.channels = chat.NewChannelSet(names...)
	}
}

// WithNotOnDkp sets the lookup for characters confirmed not on the DKP server.
func WithNotOnDkp(fn func(name string) bool) Option {
	return func(c *trackerConfig) {
		c.notOnDkp = fn
	}
}

// WithRoster annotates each bid with the beneficiary's raid membership and
// rank at the time the bid is recorded.
func WithRoster(fn RosterLookup) Option {
	return func(c *trackerConfig) {
		c.roster = fn
	}
}

// WithLogger sets the logger for unmatched and duplicate events.
// If nil, logging is disabled.
func WithLogger(l *slog.Logger) Option {
	return func(c *trackerConfig) {
		c.logger = l
	}
}

// Tracker owns the open auctions, every bid and the completed auctions of
// one tracking session.
//
// Process and the Apply methods must be called from a single goroutine.
// Snapshot, HighBids and the other queries may be called concurrently.
type Tracker struct {
	mu sync.RWMutex

	session  uuid.UUID
	self     string
	channels chat.ChannelSet
	notOnDkp func(string) bool
	roster   RosterLookup
	logger   *slog.Logger

	nextID    int
	open      []LiveAuction
	bids      []LiveBid
	completed []CompletedAuction

	analyzer BidAnalyzer
}

// NewTracker creates an empty tracker with a fresh session ID.
func NewTracker(opts ...Option) *Tracker {
	cfg := trackerConfig{channels: chat.DefaultDkpChannels()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return &Tracker{
		session:  uuid.New(),
		self:     cfg.self,
		channels: cfg.channels,
		notOnDkp: cfg.notOnDkp,
		roster:   cfg.roster,
		logger:   cfg.logger,
	}
}

// Session returns the tracker's session ID.
func (t *Tracker) Session() uuid.UUID { return t.session }

// ProcessLine feeds one raw log line, timestamp prefix included.
// Lines without a valid timestamp are ignored.
func (t *Tracker) ProcessLine(raw string) []Event {
	ts, ok := timestamp.Extract(raw)
	if !ok {
		return nil
	}
	return t.Process(ts, timestamp.Body(raw))
}

// Process feeds one log body written at ts and returns the resulting events.
func (t *Tracker) Process(ts time.Time, body string) []Event {
	msg, ok := chat.Parse(body)
	if !ok {
		return t.processRoll(ts, body)
	}
	if !t.channels.Allows(msg.Channel) {
		return nil
	}
	msg.Speaker = t.resolve(msg.Speaker)

	if calls := ParseEnd(msg, ts); len(calls) > 0 {
		var events []Event
		for _, c := range calls {
			events = append(events, t.ApplyEnd(c)...)
		}
		return events
	}

	if starts := ParseStart(msg, ts); len(starts) > 0 {
		events := make([]Event, 0, len(starts))
		for _, a := range starts {
			opened, ok := t.ApplyStart(a)
			typ := EventOpened
			if !ok {
				typ = EventDuplicateOpen
			}
			events = append(events, Event{Type: typ, Auction: opened})
		}
		return events
	}

	if IsStatusPing(msg.Text) {
		if a, ok := t.applyStatus(msg.Text, ts); ok {
			return []Event{{Type: EventStatus, Auction: a}}
		}
		return nil
	}

	bid, ok := t.analyzer.Analyze(msg, msg.Speaker, ts, t.Open())
	if !ok {
		return nil
	}
	return t.applyBidEvent(bid)
}

func (t *Tracker) processRoll(ts time.Time, body string) []Event {
	bid, ok := t.analyzer.AnalyzeRoll(body, ts, t.Open())
	if !ok {
		return nil
	}
	return t.applyBidEvent(bid)
}

func (t *Tracker) applyBidEvent(bid LiveBid) []Event {
	a, recorded, ok := t.applyBid(bid)
	if !ok {
		return nil
	}
	return []Event{{Type: EventBid, Auction: a, Bid: &recorded}}
}

func (t *Tracker) resolve(speaker string) string {
	if speaker == chat.Self && t.self != "" {
		return t.self
	}
	return speaker
}

// ApplyStart opens a, assigning it the next ID. If an equal auction is
// already open, a is ignored and the existing auction is returned with false.
func (t *Tracker) ApplyStart(a LiveAuction) (LiveAuction, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, o := range t.open {
		if o.Equal(a) {
			t.logger.Debug("duplicate auction open ignored",
				"item", a.ItemName, "id", o.ID, "auctioneer", a.Auctioneer)
			return o, false
		}
	}

	if a.Quantity < 1 {
		a.Quantity = 1
	}
	t.nextID++
	a.ID = t.nextID
	t.open = append(t.open, a)
	return a, true
}

// ApplyBid records a bid against its open auction. Bids for auctions that
// are not open are dropped. An exact repeat of a recorded bid is ignored.
func (t *Tracker) ApplyBid(b LiveBid) (LiveAuction, bool) {
	a, _, ok := t.applyBid(b)
	return a, ok
}

// applyBid is ApplyBid returning the bid as recorded, flags included.
func (t *Tracker) applyBid(b LiveBid) (LiveAuction, LiveBid, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := slices.IndexFunc(t.open, func(a LiveAuction) bool { return a.ID == b.AuctionID })
	if i < 0 {
		t.logger.Warn("bid for unknown auction dropped",
			"item", b.ItemName, "bidder", b.Bidder, "auction_id", b.AuctionID)
		return LiveAuction{}, LiveBid{}, false
	}

	for _, prev := range t.bids {
		if prev.Equal(b) && prev.Bidder == b.Bidder && prev.Timestamp.Equal(b.Timestamp) {
			return t.open[i], prev, false
		}
	}

	if t.notOnDkp != nil && t.notOnDkp(b.Beneficiary) {
		b.NotOnDkpServer = true
	}
	if t.roster != nil {
		if rc, inRaid, known := t.roster(b.Beneficiary); known {
			b.RosterChecked = true
			b.InRaid = inRaid
			b.Rank = rc.Rank
		}
	}
	t.bids = append(t.bids, b)
	t.open[i].HasBids = true
	t.open[i].HasNewBidsAdded = true
	return t.open[i], b, true
}

// ApplyEnd applies a closing call. The call is attached to the completed
// auction of the open lot with the same item name; the lot leaves the open
// set when it rots or its spent calls reach its quantity. Calls with no open
// lot are dropped. Remove calls retract an earlier call for the same winner.
func (t *Tracker) ApplyEnd(c SpentCall) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c.IsRemove {
		return t.applyRemove(c)
	}

	i := slices.IndexFunc(t.open, func(a LiveAuction) bool {
		return strings.EqualFold(a.ItemName, c.ItemName) && (c.Kind != KindRoll || a.IsRoll())
	})
	if i < 0 {
		t.logger.Warn("closing call for unknown auction dropped",
			"item", c.ItemName, "winner", c.Winner, "amount", c.Amount)
		return nil
	}
	a := t.open[i]

	ci := slices.IndexFunc(t.completed, func(ca CompletedAuction) bool { return ca.Auction.ID == a.ID })
	if ci < 0 {
		t.completed = append(t.completed, CompletedAuction{Auction: a, ItemName: a.ItemName})
		ci = len(t.completed) - 1
	}
	ca := &t.completed[ci]
	for _, prev := range ca.SpentCalls {
		if strings.EqualFold(prev.Winner, c.Winner) && prev.Amount == c.Amount && prev.Timestamp.Equal(c.Timestamp) {
			return nil
		}
	}
	ca.SpentCalls = append(ca.SpentCalls, c)
	ca.Auction = a

	events := []Event{{Type: EventSpent, Auction: a, Spent: &c}}
	if c.Rot || len(ca.SpentCalls) >= a.Quantity {
		t.open = slices.Delete(t.open, i, i+1)
		events = append(events, Event{Type: EventClosed, Auction: a})
	}
	return events
}

// applyRemove retracts the latest spent call for c.Winner on the most recent
// lot of c.ItemName and reopens the lot if it had closed.
func (t *Tracker) applyRemove(c SpentCall) []Event {
	for ci := len(t.completed) - 1; ci >= 0; ci-- {
		ca := &t.completed[ci]
		if !strings.EqualFold(ca.ItemName, c.ItemName) {
			continue
		}
		for si := len(ca.SpentCalls) - 1; si >= 0; si-- {
			prev := ca.SpentCalls[si]
			if !strings.EqualFold(prev.Winner, c.Winner) || (c.Amount != 0 && prev.Amount != c.Amount) {
				continue
			}
			ca.SpentCalls = slices.Delete(ca.SpentCalls, si, si+1)

			events := []Event{{Type: EventRemoved, Auction: ca.Auction, Spent: &prev}}
			isOpen := slices.ContainsFunc(t.open, func(a LiveAuction) bool { return a.ID == ca.Auction.ID })
			if !isOpen && !slices.ContainsFunc(t.open, ca.Auction.Equal) {
				t.open = append(t.open, ca.Auction)
				events = append(events, Event{Type: EventOpened, Auction: ca.Auction})
			}
			if len(ca.SpentCalls) == 0 {
				t.completed = slices.Delete(t.completed, ci, ci+1)
			}
			return events
		}
	}
	t.logger.Warn("remove call with no matching spent call dropped",
		"item", c.ItemName, "winner", c.Winner)
	return nil
}

func (t *Tracker) applyStatus(text string, ts time.Time) (LiveAuction, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := FindOpen(t.open, text, true)
	if i < 0 {
		return LiveAuction{}, false
	}
	t.open[i].lastStatus = ts
	return t.open[i], true
}

// AcknowledgeBids clears HasNewBidsAdded on the open auction with id.
func (t *Tracker) AcknowledgeBids(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.open {
		if t.open[i].ID == id {
			t.open[i].HasNewBidsAdded = false
		}
	}
}

// Open returns a copy of the open auctions in opening order.
func (t *Tracker) Open() []LiveAuction {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.open)
}

// Bids returns the bids recorded for the auction with id.
func (t *Tracker) Bids(id int) []LiveBid {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []LiveBid
	for _, b := range t.bids {
		if b.AuctionID == id {
			out = append(out, b)
		}
	}
	return out
}

// HighBids returns every bid on the auction with id whose amount equals the
// maximum. Ties are all returned in bid order.
func (t *Tracker) HighBids(id int) []LiveBid {
	bids := t.Bids(id)
	if len(bids) == 0 {
		return nil
	}
	top := slices.MaxFunc(bids, func(a, b LiveBid) int { return a.Amount - b.Amount }).Amount
	return slices.DeleteFunc(bids, func(b LiveBid) bool { return b.Amount != top })
}

// Completed returns a copy of the completed auctions.
func (t *Tracker) Completed() []CompletedAuction {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cloneCompleted(t.completed)
}

// Snapshot returns a copy of the whole tracker state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		Session:   t.session.String(),
		Open:      slices.Clone(t.open),
		Bids:      slices.Clone(t.bids),
		Completed: cloneCompleted(t.completed),
	}
}

func cloneCompleted(in []CompletedAuction) []CompletedAuction {
	out := slices.Clone(in)
	for i := range out {
		out[i].SpentCalls = slices.Clone(out[i].SpentCalls)
	}
	return out
}
