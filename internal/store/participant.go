// Package store - Participant operations

package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/xtxerr/marketstats/internal/constants"
	"github.com/xtxerr/marketstats/internal/errors"
)

// =============================================================================
// Participant Types
// =============================================================================

// Participant is a registered market participant. (Identification,
// IdentificationType) is unique.
type Participant struct {
	ID                 int64
	Name               string
	Identification     string
	IdentificationType constants.IdentificationType
	Description        string
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// MarketIDs is the participant's side of the membership relation,
	// ascending.
	MarketIDs []int64
}

const participantSelect = `
	SELECT p.id, p.name, p.identification, p.identification_type, p.description,
	       p.created_at, p.updated_at
	FROM participants p`

// =============================================================================
// CRUD Operations
// =============================================================================

// CreateParticipant inserts a participant and attaches it to every market in
// marketIDs, in one transaction. The caller resolves marketIDs beforehand.
func (s *Store) CreateParticipant(ctx context.Context, p *Participant, marketIDs []int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ids := uniqueSorted(marketIDs)
	now := time.Now().UTC()

	err := s.TransactionContext(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO participants (name, identification, identification_type, description, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, p.Name, p.Identification, string(p.IdentificationType), p.Description, now, now).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}

		for _, marketID := range ids {
			if err := insertMembership(ctx, tx, marketID, p.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.CreatedAt = now
	p.UpdatedAt = now
	p.MarketIDs = ids
	return nil
}

// GetParticipant retrieves a participant with its market ids.
func (s *Store) GetParticipant(ctx context.Context, id int64) (*Participant, error) {
	return s.getParticipant(ctx, participantSelect+` WHERE p.id = $1`, id)
}

// GetParticipantByIdentification retrieves a participant by its natural key.
func (s *Store) GetParticipantByIdentification(ctx context.Context, identification string, idType constants.IdentificationType) (*Participant, error) {
	return s.getParticipant(ctx,
		participantSelect+` WHERE p.identification = $1 AND p.identification_type = $2`,
		identification, string(idType))
}

func (s *Store) getParticipant(ctx context.Context, query string, args ...any) (*Participant, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := scanParticipant(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query participant: %w", err)
	}

	ps := []*Participant{p}
	if err := attachMarkets(ctx, s.db, ps, `
		SELECT participant_id, market_id FROM market_participants
		WHERE participant_id = $1
		ORDER BY market_id
	`, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// ListParticipants returns all participants ordered by id.
func (s *Store) ListParticipants(ctx context.Context) ([]*Participant, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var participants []*Participant
	err := s.TransactionContext(ctx, func(tx *sql.Tx) error {
		var err error
		participants, err = queryParticipants(ctx, tx, participantSelect+` ORDER BY p.id`)
		if err != nil {
			return err
		}
		return attachMarkets(ctx, tx, participants, `
			SELECT participant_id, market_id FROM market_participants
			ORDER BY participant_id, market_id
		`)
	})
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// ListParticipantsByMarket returns the members of a market ordered by id.
func (s *Store) ListParticipantsByMarket(ctx context.Context, marketID int64) ([]*Participant, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var participants []*Participant
	err := s.TransactionContext(ctx, func(tx *sql.Tx) error {
		var err error
		participants, err = queryParticipants(ctx, tx, participantSelect+`
			JOIN market_participants mp ON mp.participant_id = p.id
			WHERE mp.market_id = $1
			ORDER BY p.id
		`, marketID)
		if err != nil {
			return err
		}
		return attachMarkets(ctx, tx, participants, `
			SELECT participant_id, market_id FROM market_participants
			WHERE participant_id IN (SELECT participant_id FROM market_participants WHERE market_id = $1)
			ORDER BY participant_id, market_id
		`, marketID)
	})
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// UpdateParticipantDescription replaces a participant's description.
func (s *Store) UpdateParticipantDescription(ctx context.Context, id int64, description string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, `
		UPDATE participants SET description = $1, updated_at = $2 WHERE id = $3
	`, description, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update participant: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NewNotFound(ErrParticipantNotFound, id)
	}
	return nil
}

// DeleteParticipant deletes a participant together with its membership edges.
func (s *Store) DeleteParticipant(ctx context.Context, id int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.TransactionContext(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM market_participants WHERE participant_id = $1`, id); err != nil {
			return fmt.Errorf("delete participant memberships: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete participant: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return errors.NewNotFound(ErrParticipantNotFound, id)
		}
		return nil
	})
}

// =============================================================================
// Helpers
// =============================================================================

func scanParticipant(row rowScanner) (*Participant, error) {
	p := &Participant{}
	var idType string

	if err := row.Scan(
		&p.ID, &p.Name, &p.Identification, &idType, &p.Description,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.IdentificationType = constants.IdentificationType(idType)
	p.MarketIDs = []int64{}
	return p, nil
}

func queryParticipants(ctx context.Context, q queryer, query string, args ...any) ([]*Participant, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var participants []*Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// attachMarkets fills MarketIDs from an edge query returning
// (participant_id, market_id) rows.
func attachMarkets(ctx context.Context, q queryer, participants []*Participant, query string, args ...any) error {
	if len(participants) == 0 {
		return nil
	}

	byID := make(map[int64]*Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var participantID, marketID int64
		if err := rows.Scan(&participantID, &marketID); err != nil {
			return fmt.Errorf("scan membership: %w", err)
		}
		if p, ok := byID[participantID]; ok {
			p.MarketIDs = append(p.MarketIDs, marketID)
		}
	}

	return rows.Err()
}

func uniqueSorted(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
