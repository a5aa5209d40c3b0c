// Package history provides PostgreSQL-backed storage for moderation cases.
// Every confirmed decision is recorded with the flagged content and the
// outcome, giving moderators an auditable trail and feeding the repeat-
// offender count used by enforcement.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/devansoliman/cs152bots-spr24-group19/internal/fusion"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/taxonomy"
)

// Case is one confirmed moderation decision to be persisted.
type Case struct {
	CaseID         string
	Community      string
	Channel        string
	MessageID      string
	AuthorName     string
	Text           string
	Category       taxonomy.Category
	Severity       fusion.Severity
	Action         fusion.Action
	Source         fusion.Source
	LawEnforcement bool
}

// Store manages moderation cases in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a new case store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// RecordCase inserts a confirmed decision into PostgreSQL.
func (s *Store) RecordCase(ctx context.Context, c *Case) error {
	const query = `
		INSERT INTO moderation_cases
			(case_id, community_id, channel_id, message_id, author_name, message_text,
			 category, severity, action, source, law_enforcement)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.ExecContext(ctx, query,
		c.CaseID,
		c.Community,
		c.Channel,
		c.MessageID,
		c.AuthorName,
		c.Text,
		c.Category.String(),
		c.Severity.String(),
		c.Action.String(),
		string(c.Source),
		c.LawEnforcement,
	)
	if err != nil {
		return fmt.Errorf("history: insert case: %w", err)
	}
	return nil
}

// CountRecent returns the number of confirmed cases recorded against an
// author within the given time window. Useful for repeat-offender
// escalation.
func (s *Store) CountRecent(ctx context.Context, authorName string, window time.Duration) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM moderation_cases
		WHERE author_name = $1
		  AND created_at >= NOW() - $2::interval`

	var count int
	err := s.db.QueryRowContext(ctx, query, authorName, window.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("history: count recent: %w", err)
	}
	return count, nil
}
