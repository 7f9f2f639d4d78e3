// Package store - Market operations
//
// Provides CRUD operations for markets and the full market graph read used
// by the statistics engine.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/xtxerr/marketstats/internal/constants"
	"github.com/xtxerr/marketstats/internal/errors"
)

// =============================================================================
// Market Types
// =============================================================================

// Market is a trading venue owned by exactly one country.
type Market struct {
	ID          int64
	Code        string
	Description string
	CountryID   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Country is resolved on read.
	Country *Country

	// ParticipantIDs is the market's side of the membership relation,
	// ascending.
	ParticipantIDs []int64
}

// HasParticipant reports whether the participant is a member.
func (m *Market) HasParticipant(participantID int64) bool {
	for _, id := range m.ParticipantIDs {
		if id == participantID {
			return true
		}
	}
	return false
}

const marketSelect = `
	SELECT m.id, m.code, m.description, m.country_id, m.created_at, m.updated_at,
	       c.name, c.created_at
	FROM markets m
	JOIN countries c ON c.id = m.country_id`

// =============================================================================
// CRUD Operations
// =============================================================================

// CreateMarket inserts a market and sets its ID. The owning country must exist.
func (s *Store) CreateMarket(ctx context.Context, m *Market) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO markets (code, description, country_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, m.Code, m.Description, m.CountryID, now, now).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert market: %w", err)
	}

	m.CreatedAt = now
	m.UpdatedAt = now
	return nil
}

// GetMarket retrieves a market with its country and members by id.
func (s *Store) GetMarket(ctx context.Context, id int64) (*Market, error) {
	return s.getMarket(ctx, marketSelect+` WHERE m.id = $1`, id)
}

// GetMarketByCode retrieves a market with its country and members by code.
func (s *Store) GetMarketByCode(ctx context.Context, code string) (*Market, error) {
	return s.getMarket(ctx, marketSelect+` WHERE m.code = $1`, code)
}

func (s *Store) getMarket(ctx context.Context, query string, arg any) (*Market, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	m, err := scanMarket(s.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query market: %w", err)
	}

	ids, err := marketMemberIDs(ctx, s.db, m.ID)
	if err != nil {
		return nil, err
	}
	m.ParticipantIDs = ids
	return m, nil
}

// ListMarkets returns every market with its country and member set, ordered
// by country id and then market id. Markets and edges are read in one
// transaction so the graph is a consistent snapshot.
func (s *Store) ListMarkets(ctx context.Context) ([]*Market, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var markets []*Market
	err := s.TransactionContext(ctx, func(tx *sql.Tx) error {
		var err error
		markets, err = queryMarkets(ctx, tx, marketSelect+` ORDER BY m.country_id, m.id`)
		if err != nil {
			return err
		}
		return attachMembers(ctx, tx, markets, `
			SELECT market_id, participant_id FROM market_participants
			ORDER BY market_id, participant_id
		`)
	})
	if err != nil {
		return nil, err
	}
	return markets, nil
}

// ListMarketsByIDs returns the markets whose ids are in ids. Unknown ids are
// ignored. Order follows ListMarkets.
func (s *Store) ListMarketsByIDs(ctx context.Context, ids []int64) ([]*Market, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	in, args := inClause(ids, 1)
	markets, err := queryMarkets(ctx, s.db,
		marketSelect+` WHERE m.id IN (`+in+`) ORDER BY m.country_id, m.id`, args...)
	if err != nil {
		return nil, err
	}
	if err := attachMembers(ctx, s.db, markets, `
		SELECT market_id, participant_id FROM market_participants
		WHERE market_id IN (`+in+`)
		ORDER BY market_id, participant_id
	`, args...); err != nil {
		return nil, err
	}
	return markets, nil
}

// UpdateMarketDescription replaces a market's description.
func (s *Store) UpdateMarketDescription(ctx context.Context, id int64, description string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, `
		UPDATE markets SET description = $1, updated_at = $2 WHERE id = $3
	`, description, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update market: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NewNotFound(ErrMarketNotFound, id)
	}
	return nil
}

// DeleteMarket deletes a market together with its membership edges.
func (s *Store) DeleteMarket(ctx context.Context, id int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.TransactionContext(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM market_participants WHERE market_id = $1`, id); err != nil {
			return fmt.Errorf("delete market memberships: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM markets WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete market: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return errors.NewNotFound(ErrMarketNotFound, id)
		}
		return nil
	})
}

// =============================================================================
// Helpers
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMarket(row rowScanner) (*Market, error) {
	m := &Market{Country: &Country{}}
	var countryName string

	if err := row.Scan(
		&m.ID, &m.Code, &m.Description, &m.CountryID, &m.CreatedAt, &m.UpdatedAt,
		&countryName, &m.Country.CreatedAt,
	); err != nil {
		return nil, err
	}

	m.Country.ID = m.CountryID
	m.Country.Name = constants.Country(countryName)
	return m, nil
}

func queryMarkets(ctx context.Context, q queryer, query string, args ...any) ([]*Market, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query markets: %w", err)
	}
	defer rows.Close()

	var markets []*Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan market: %w", err)
		}
		markets = append(markets, m)
	}

	return markets, rows.Err()
}

// attachMembers fills ParticipantIDs from an edge query returning
// (market_id, participant_id) rows.
func attachMembers(ctx context.Context, q queryer, markets []*Market, query string, args ...any) error {
	if len(markets) == 0 {
		return nil
	}

	byID := make(map[int64]*Market, len(markets))
	for _, m := range markets {
		m.ParticipantIDs = []int64{}
		byID[m.ID] = m
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var marketID, participantID int64
		if err := rows.Scan(&marketID, &participantID); err != nil {
			return fmt.Errorf("scan membership: %w", err)
		}
		if m, ok := byID[marketID]; ok {
			m.ParticipantIDs = append(m.ParticipantIDs, participantID)
		}
	}

	return rows.Err()
}

func marketMemberIDs(ctx context.Context, q queryer, marketID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT participant_id FROM market_participants
		WHERE market_id = $1
		ORDER BY participant_id
	`, marketID)
	if err != nil {
		return nil, fmt.Errorf("query market members: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan market member: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// inClause renders "$n, $n+1, ..." for ids starting at placeholder start.
func inClause(ids []int64, start int) (string, []any) {
	parts := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("$%d", start+i)
		args[i] = id
	}
	return strings.Join(parts, ", "), args
}
