// Package store persists parsed entries and completed auctions in SQLite.
//
// Timestamps are stored as Unix nanoseconds and read back in local time, the
// same zone the log timestamps were parsed in.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/eqlog/eqlog-go/pkg/eqlog/auction"
	"github.com/eqlog/eqlog-go/pkg/eqlog/entry"
)

// Memory is the path of a private in-memory database.
const Memory = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	started_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	kind       TEXT NOT NULL,
	ts         INTEGER NOT NULL,
	channel    TEXT NOT NULL DEFAULT '',
	character  TEXT NOT NULL DEFAULT '',
	item_name  TEXT NOT NULL DEFAULT '',
	call_name  TEXT NOT NULL DEFAULT '',
	zone       TEXT NOT NULL DEFAULT '',
	amount     INTEGER NOT NULL DEFAULT 0,
	raw_line   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_entries_kind_ts ON entries(kind, ts);

CREATE TABLE IF NOT EXISTS spent_calls (
	id           TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL REFERENCES sessions(id),
	auction_id   INTEGER NOT NULL,
	auction_kind INTEGER NOT NULL,
	item_name    TEXT NOT NULL,
	quantity     INTEGER NOT NULL,
	opened_at    INTEGER NOT NULL,
	ts           INTEGER NOT NULL,
	channel      TEXT NOT NULL DEFAULT '',
	auctioneer   TEXT NOT NULL DEFAULT '',
	winner       TEXT NOT NULL,
	amount       INTEGER NOT NULL DEFAULT 0,
	rot          INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_spent_session ON spent_calls(session_id, auction_id);
`

// Store is a SQLite-backed result sink. It is safe for concurrent use.
type Store struct {
	db *sql.DB
	sb squirrel.StatementBuilderType
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == Memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Session is one import or live tracking run.
type Session struct {
	ID        uuid.UUID
	Source    string
	StartedAt time.Time
}

// SaveSession records a session. Saving the same ID again is a no-op.
func (s *Store) SaveSession(ctx context.Context, sess Session) error {
	query, args, err := s.sb.Insert("sessions").
		Options("OR IGNORE").
		Columns("id", "source", "started_at").
		Values(sess.ID.String(), sess.Source, sess.StartedAt.UnixNano()).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Sessions lists sessions, newest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	query, args, err := s.sb.Select("id", "source", "started_at").
		From("sessions").
		OrderBy("started_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var id string
		var started int64
		var sess Session
		if err := rows.Scan(&id, &sess.Source, &started); err != nil {
			return nil, err
		}
		if sess.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("session id %q: %w", id, err)
		}
		sess.StartedAt = fromNanos(started)
		out = append(out, sess)
	}
	return out, rows.Err()
}

// SaveEntries inserts entries under session in one transaction.
func (s *Store) SaveEntries(ctx context.Context, session uuid.UUID, entries []entry.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		const batch = 100
		for start := 0; start < len(entries); start += batch {
			end := min(start+batch, len(entries))
			ins := s.sb.Insert("entries").Columns(
				"id", "session_id", "kind", "ts", "channel", "character",
				"item_name", "call_name", "zone", "amount", "raw_line",
			)
			for _, e := range entries[start:end] {
				ins = ins.Values(
					uuid.NewString(), session.String(), string(e.Kind), e.Timestamp.UnixNano(),
					string(e.Channel), e.Character, e.ItemName, e.CallName, e.Zone, e.Amount, e.RawLine,
				)
			}
			query, args, err := ins.ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("inserting entries: %w", err)
			}
		}
		return nil
	})
}

// EntryQuery selects stored entries. Zero fields do not filter.
type EntryQuery struct {
	Session   uuid.UUID
	Kinds     []entry.Kind
	Character string
	Since     time.Time
	Until     time.Time
	Limit     uint64
}

// Entries returns matching entries in timestamp order.
func (s *Store) Entries(ctx context.Context, q EntryQuery) ([]entry.Entry, error) {
	sel := s.sb.Select(
		"kind", "ts", "channel", "character", "item_name", "call_name", "zone", "amount", "raw_line",
	).From("entries").OrderBy("ts", "rowid")

	if q.Session != uuid.Nil {
		sel = sel.Where(squirrel.Eq{"session_id": q.Session.String()})
	}
	if len(q.Kinds) > 0 {
		kinds := make([]string, len(q.Kinds))
		for i, k := range q.Kinds {
			kinds[i] = string(k)
		}
		sel = sel.Where(squirrel.Eq{"kind": kinds})
	}
	if q.Character != "" {
		sel = sel.Where("character = ? COLLATE NOCASE", q.Character)
	}
	if !q.Since.IsZero() {
		sel = sel.Where(squirrel.GtOrEq{"ts": q.Since.UnixNano()})
	}
	if !q.Until.IsZero() {
		sel = sel.Where(squirrel.Lt{"ts": q.Until.UnixNano()})
	}
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var out []entry.Entry
	for rows.Next() {
		var e entry.Entry
		var kind, channel string
		var ts int64
		if err := rows.Scan(&kind, &ts, &channel, &e.Character, &e.ItemName, &e.CallName, &e.Zone, &e.Amount, &e.RawLine); err != nil {
			return nil, err
		}
		e.Kind = entry.Kind(kind)
		e.Channel = entry.Channel(channel)
		e.Timestamp = fromNanos(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveCompleted replaces the stored spent calls of each given auction.
// Saving a tracker's Completed() repeatedly keeps the store in sync,
// including calls later retracted with REMOVE.
func (s *Store) SaveCompleted(ctx context.Context, session uuid.UUID, done []auction.CompletedAuction) error {
	if len(done) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, c := range done {
			query, args, err := s.sb.Delete("spent_calls").
				Where(squirrel.Eq{"session_id": session.String(), "auction_id": c.Auction.ID}).
				ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("clearing auction %d: %w", c.Auction.ID, err)
			}
			if len(c.SpentCalls) == 0 {
				continue
			}

			ins := s.sb.Insert("spent_calls").Columns(
				"id", "session_id", "auction_id", "auction_kind", "item_name", "quantity", "opened_at",
				"ts", "channel", "auctioneer", "winner", "amount", "rot",
			)
			for _, call := range c.SpentCalls {
				ins = ins.Values(
					uuid.NewString(), session.String(), c.Auction.ID, int(c.Auction.Kind), c.ItemName,
					c.Auction.Quantity, c.Auction.Timestamp.UnixNano(),
					call.Timestamp.UnixNano(), string(call.Channel), call.Auctioneer, call.Winner,
					call.Amount, call.Rot,
				)
			}
			query, args, err = ins.ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("inserting spent calls for %s: %w", c.ItemName, err)
			}
		}
		return nil
	})
}

// Completed loads the completed auctions of session ordered by auction ID.
func (s *Store) Completed(ctx context.Context, session uuid.UUID) ([]auction.CompletedAuction, error) {
	query, args, err := s.sb.Select(
		"auction_id", "auction_kind", "item_name", "quantity", "opened_at",
		"ts", "channel", "auctioneer", "winner", "amount", "rot",
	).From("spent_calls").
		Where(squirrel.Eq{"session_id": session.String()}).
		OrderBy("auction_id", "ts", "rowid").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying spent calls: %w", err)
	}
	defer rows.Close()

	var out []auction.CompletedAuction
	for rows.Next() {
		var (
			id, kind, qty int
			item, channel string
			opened, ts    int64
			call          auction.SpentCall
		)
		if err := rows.Scan(&id, &kind, &item, &qty, &opened, &ts, &channel,
			&call.Auctioneer, &call.Winner, &call.Amount, &call.Rot); err != nil {
			return nil, err
		}
		call.ItemName = item
		call.Kind = auction.Kind(kind)
		call.Channel = entry.Channel(channel)
		call.Timestamp = fromNanos(ts)

		if n := len(out); n == 0 || out[n-1].Auction.ID != id {
			out = append(out, auction.CompletedAuction{
				Auction: auction.LiveAuction{
					ID:         id,
					Kind:       auction.Kind(kind),
					ItemName:   item,
					Quantity:   qty,
					Auctioneer: call.Auctioneer,
					Channel:    call.Channel,
					Timestamp:  fromNanos(opened),
				},
				ItemName: item,
			})
		}
		last := &out[len(out)-1]
		last.SpentCalls = append(last.SpentCalls, call)
	}
	return out, rows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).In(time.Local)
}
