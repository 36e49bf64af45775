package check

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ip-fomin/LaborX-backend/internal/verification/models"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
	"github.com/ip-fomin/LaborX-backend/pkg/platform/sentinel"
)

// Schema documents the table this store expects. The (account_id, purpose)
// unique key lets Replace be a single upsert.
const Schema = `
CREATE TABLE IF NOT EXISTS onetime_checks (
	id         UUID NOT NULL,
	account_id UUID NOT NULL,
	purpose    TEXT NOT NULL,
	payload    TEXT NOT NULL,
	code       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (account_id, purpose)
);
`

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Replace(ctx context.Context, check *models.OneTimeCheck) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO onetime_checks (id, account_id, purpose, payload, code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id, purpose)
		DO UPDATE SET id = EXCLUDED.id, payload = EXCLUDED.payload,
			code = EXCLUDED.code, created_at = EXCLUDED.created_at`,
		check.ID.String(), check.AccountID.String(), string(check.Purpose),
		check.Payload, check.Code, check.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert check: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindMatch(ctx context.Context, accountID id.AccountID, purpose models.CheckPurpose, payload, code string) (*models.OneTimeCheck, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, account_id, purpose, payload, code, created_at
		FROM onetime_checks
		WHERE account_id = $1 AND purpose = $2 AND payload = $3 AND code = $4`,
		accountID.String(), string(purpose), payload, code)

	var (
		check        models.OneTimeCheck
		rawID        string
		rawAccountID string
		rawPurpose   string
	)
	err := row.Scan(&rawID, &rawAccountID, &rawPurpose, &check.Payload, &check.Code, &check.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check (%s, %s): %w", accountID, purpose, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan check: %w", err)
	}

	checkID, err := id.ParseCheckID(rawID)
	if err != nil {
		return nil, fmt.Errorf("corrupt check row: %w", err)
	}
	ownerID, err := id.ParseAccountID(rawAccountID)
	if err != nil {
		return nil, fmt.Errorf("corrupt check row: %w", err)
	}
	check.ID = checkID
	check.AccountID = ownerID
	check.Purpose = models.CheckPurpose(rawPurpose)
	return &check, nil
}

func (s *PostgresStore) Consume(ctx context.Context, checkID id.CheckID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM onetime_checks WHERE id = $1`, checkID.String())
	if err != nil {
		return fmt.Errorf("delete check: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("check %s: %w", checkID, sentinel.ErrNotFound)
	}
	return nil
}
