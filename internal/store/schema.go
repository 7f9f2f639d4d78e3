package store

import (
	"context"
	"fmt"
)

// schemaStatements create the registry tables. They are idempotent and use
// only syntax shared by DuckDB and PostgreSQL.
//
// Membership edges live in a single table so both adjacency views are read
// from the same rows. There are no foreign keys: DuckDB does not cascade, and
// edge cleanup happens explicitly inside the deleting transaction.
var schemaStatements = []string{
	`CREATE SEQUENCE IF NOT EXISTS countries_id_seq START 1`,
	`CREATE SEQUENCE IF NOT EXISTS markets_id_seq START 1`,
	`CREATE SEQUENCE IF NOT EXISTS participants_id_seq START 1`,

	`CREATE TABLE IF NOT EXISTS countries (
		id         BIGINT PRIMARY KEY DEFAULT nextval('countries_id_seq'),
		name       VARCHAR NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS markets (
		id          BIGINT PRIMARY KEY DEFAULT nextval('markets_id_seq'),
		code        VARCHAR NOT NULL UNIQUE,
		description VARCHAR NOT NULL,
		country_id  BIGINT NOT NULL,
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS participants (
		id                  BIGINT PRIMARY KEY DEFAULT nextval('participants_id_seq'),
		name                VARCHAR NOT NULL,
		identification      VARCHAR NOT NULL,
		identification_type VARCHAR NOT NULL,
		description         VARCHAR NOT NULL,
		created_at          TIMESTAMP NOT NULL,
		updated_at          TIMESTAMP NOT NULL,
		UNIQUE (identification, identification_type)
	)`,

	`CREATE TABLE IF NOT EXISTS market_participants (
		market_id      BIGINT NOT NULL,
		participant_id BIGINT NOT NULL,
		created_at     TIMESTAMP NOT NULL,
		PRIMARY KEY (market_id, participant_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_markets_country ON markets (country_id)`,
	`CREATE INDEX IF NOT EXISTS idx_market_participants_participant ON market_participants (participant_id)`,
}

// Migrate applies the schema. It is safe to call on every start.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
