package store

import (
	"context"
	"fmt"
	"strings"
)

// Entry is one journaled engine command.
type Entry struct {
	ID      string `json:"id"`
	Seq     int64  `json:"seq"`
	Session string `json:"session"`
	Command string `json:"command"`
	Args    string `json:"args"`    // canonical JSON
	Outcome string `json:"outcome"` // "ok" or an error code
	Message string `json:"message,omitempty"`
}

// JournalQuery filters ReadJournal. Zero values match everything.
type JournalQuery struct {
	Session string
	Command string
	// Limit keeps only the last Limit entries (by seq). 0 means no limit.
	Limit int
}

// AppendJournal inserts a journal entry.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) AppendJournal(ctx context.Context, e Entry) error {
	args := e.Args
	if args == "" {
		args = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journal (id, seq, session, command, args, outcome, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, e.ID, e.Seq, e.Session, e.Command, args, e.Outcome, e.Message)
	if err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}

// ReadJournal returns matching entries ordered by seq ASC, id ASC.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ReadJournal(ctx context.Context, q JournalQuery) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if q.Session != "" {
		where = append(where, "session = ?")
		args = append(args, q.Session)
	}
	if q.Command != "" {
		where = append(where, "command = ?")
		args = append(args, q.Command)
	}

	query := `SELECT id, seq, session, command, args, outcome, message FROM journal`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if q.Limit > 0 {
		// Last N by seq, then re-ordered ascending.
		query = `SELECT * FROM (` + query + ` ORDER BY seq DESC, id COLLATE BINARY DESC LIMIT ?)`
		args = append(args, q.Limit)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Seq, &e.Session, &e.Command, &e.Args, &e.Outcome, &e.Message); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

// MaxJournalSeq returns the highest journaled seq, or 0 for an empty journal.
// The engine resumes its logical clock from this value.
func (s *Store) MaxJournalSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM journal`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("max journal seq: %w", err)
	}
	return seq, nil
}
