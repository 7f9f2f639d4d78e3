// Package store - Membership operations
//
// A membership is one row in market_participants. Market.ParticipantIDs and
// Participant.MarketIDs are both read from that table, so adding or removing
// a row updates both views at once.

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/xtxerr/marketstats/internal/errors"
)

// AddMembership links a participant to a market.
func (s *Store) AddMembership(ctx context.Context, marketID, participantID int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return insertMembership(ctx, s.db, marketID, participantID, time.Now().UTC())
}

// RemoveMembership unlinks a participant from a market.
func (s *Store) RemoveMembership(ctx context.Context, marketID, participantID int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM market_participants WHERE market_id = $1 AND participant_id = $2
	`, marketID, participantID)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NewNotFound(ErrMembershipNotFound, fmt.Sprintf("%d/%d", marketID, participantID))
	}
	return nil
}

// HasMembership reports whether the participant belongs to the market.
func (s *Store) HasMembership(ctx context.Context, marketID, participantID int64) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM market_participants WHERE market_id = $1 AND participant_id = $2
	`, marketID, participantID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query membership: %w", err)
	}
	return n > 0, nil
}

func insertMembership(ctx context.Context, q queryer, marketID, participantID int64, at time.Time) error {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO market_participants (market_id, participant_id, created_at)
		VALUES ($1, $2, $3)
	`, marketID, participantID, at); err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}
