// Package store - Country operations
//
// Countries are created and deleted only; they carry no mutable fields.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xtxerr/marketstats/internal/constants"
	"github.com/xtxerr/marketstats/internal/errors"
)

// =============================================================================
// Country Types
// =============================================================================

// Country is an allow-listed country that may own markets.
type Country struct {
	ID        int64
	Name      constants.Country
	CreatedAt time.Time
}

// Description returns the country's display name.
func (c *Country) Description() string {
	return c.Name.Description()
}

// =============================================================================
// CRUD Operations
// =============================================================================

// CreateCountry inserts a country and sets its ID.
func (s *Store) CreateCountry(ctx context.Context, c *Country) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO countries (name, created_at)
		VALUES ($1, $2)
		RETURNING id
	`, string(c.Name), now).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert country: %w", err)
	}

	c.CreatedAt = now
	return nil
}

// GetCountry retrieves a country by id.
func (s *Store) GetCountry(ctx context.Context, id int64) (*Country, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return scanCountry(s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at FROM countries WHERE id = $1
	`, id))
}

// GetCountryByName retrieves a country by its allow-listed name.
func (s *Store) GetCountryByName(ctx context.Context, name constants.Country) (*Country, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return scanCountry(s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at FROM countries WHERE name = $1
	`, string(name)))
}

// ListCountries returns all countries ordered by id.
func (s *Store) ListCountries(ctx context.Context) ([]*Country, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at FROM countries ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query countries: %w", err)
	}
	defer rows.Close()

	var countries []*Country
	for rows.Next() {
		c := &Country{}
		var name string
		if err := rows.Scan(&c.ID, &name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		c.Name = constants.Country(name)
		countries = append(countries, c)
	}

	return countries, rows.Err()
}

// CountMarketsByCountry returns how many markets a country owns.
func (s *Store) CountMarketsByCountry(ctx context.Context, countryID int64) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM markets WHERE country_id = $1
	`, countryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count markets: %w", err)
	}
	return n, nil
}

// DeleteCountry deletes a country. Markets must have been removed first.
func (s *Store) DeleteCountry(ctx context.Context, id int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, `DELETE FROM countries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete country: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NewNotFound(ErrCountryNotFound, id)
	}
	return nil
}

func scanCountry(row *sql.Row) (*Country, error) {
	c := &Country{}
	var name string

	err := row.Scan(&c.ID, &name, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query country: %w", err)
	}

	c.Name = constants.Country(name)
	return c, nil
}
