// Package auction tracks live DKP auctions announced in raid and guild chat.
//
// Analyzers (ParseStart, BidAnalyzer, ParseEnd) turn chat messages into fresh
// values; the Tracker owns all open auctions, bids and completed auctions and
// applies those values to its state. The Tracker is safe for one writer and
// any number of concurrent Snapshot readers.
package auction

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/eqlog/eqlog-go/pkg/eqlog/entry"
)

// Kind distinguishes DKP item lots from free-text random rolls.
type Kind int

const (
	// KindItem is an item auctioned for DKP. Amounts are DKP.
	KindItem Kind = iota
	// KindRoll is a /random roll. Amounts are roll results.
	KindRoll
)

func (k Kind) String() string {
	if k == KindRoll {
		return "roll"
	}
	return "item"
}

// MarshalText encodes the kind as "item" or "roll".
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// LiveAuction is one open or historically opened lot.
type LiveAuction struct {
	// ID is unique within the Tracker that opened the auction.
	ID int `json:"id"`

	Kind Kind `json:"kind"`

	// ItemName is the item, or the roll subject for KindRoll.
	ItemName string `json:"item_name"`

	// Quantity is the lot size.
	Quantity int `json:"quantity"`

	// RollCeiling is the /random ceiling. Only set for KindRoll.
	RollCeiling int `json:"roll_ceiling,omitempty"`

	Auctioneer string        `json:"auctioneer"`
	Channel    entry.Channel `json:"channel"`
	Timestamp  time.Time     `json:"timestamp"`

	HasBids bool `json:"has_bids"`

	// HasNewBidsAdded is set when a bid arrives and cleared by AcknowledgeBids.
	HasNewBidsAdded bool `json:"has_new_bids_added"`

	lastStatus time.Time
}

// IsRoll reports whether the auction is a roll.
func (a LiveAuction) IsRoll() bool { return a.Kind == KindRoll }

// Equal reports whether a and b describe the same lot: the item names match
// and, when both are rolls, so do the ceilings. ID is not compared.
func (a LiveAuction) Equal(b LiveAuction) bool {
	if !strings.EqualFold(a.ItemName, b.ItemName) {
		return false
	}
	if a.IsRoll() && b.IsRoll() {
		return a.RollCeiling == b.RollCeiling
	}
	return true
}

// StatusText describes how long ago the auctioneer last posted a status
// update for this lot, relative to now.
func (a LiveAuction) StatusText(now time.Time) string {
	if a.lastStatus.IsZero() {
		return "no status update"
	}
	return "status " + humanize.RelTime(a.lastStatus, now, "ago", "from now")
}

// LastStatus returns the time of the last status update, or zero.
func (a LiveAuction) LastStatus() time.Time { return a.lastStatus }

// LiveBid is one bid on, or roll for, an open auction.
type LiveBid struct {
	Timestamp time.Time     `json:"timestamp"`
	Channel   entry.Channel `json:"channel,omitempty"`
	AuctionID int           `json:"auction_id"`

	Kind Kind `json:"kind"`

	// Bidder typed the bid; Beneficiary receives the item.
	Bidder      string `json:"bidder"`
	Beneficiary string `json:"beneficiary"`

	ItemName string `json:"item_name"`

	// Amount is DKP for KindItem or the roll result for KindRoll.
	Amount int `json:"amount"`

	NotOnDkpServer bool `json:"not_on_dkp_server,omitempty"`

	// RosterChecked is set when a raid roster was available for the bid.
	// InRaid and Rank describe the beneficiary on that roster.
	RosterChecked bool   `json:"roster_checked,omitempty"`
	InRaid        bool   `json:"in_raid,omitempty"`
	Rank          string `json:"rank,omitempty"`
}

// IsRoll reports whether the bid is a roll result.
func (b LiveBid) IsRoll() bool { return b.Kind == KindRoll }

// Equal reports whether two bids are the same bid. Beneficiaries of DKP bids
// compare case-insensitively.
func (b LiveBid) Equal(o LiveBid) bool {
	if b.Kind != o.Kind || b.AuctionID != o.AuctionID || b.Amount != o.Amount || b.ItemName != o.ItemName {
		return false
	}
	if b.IsRoll() {
		return true
	}
	return strings.EqualFold(b.Beneficiary, o.Beneficiary)
}

// SpentCall is a closing call: DKP spent, a roll win, or a rot.
type SpentCall struct {
	Timestamp  time.Time     `json:"timestamp"`
	Channel    entry.Channel `json:"channel,omitempty"`
	Auctioneer string        `json:"auctioneer"`
	ItemName   string        `json:"item_name"`
	Winner     string        `json:"winner"`

	Kind Kind `json:"kind"`

	// Amount is DKP spent for KindItem or the winning roll for KindRoll.
	Amount int `json:"amount"`

	Rot      bool `json:"rot,omitempty"`
	IsRemove bool `json:"is_remove,omitempty"`
}

// CompletedAuction groups the closing calls of one lot.
type CompletedAuction struct {
	Auction    LiveAuction `json:"auction"`
	ItemName   string      `json:"item_name"`
	SpentCalls []SpentCall `json:"spent_calls"`
}
