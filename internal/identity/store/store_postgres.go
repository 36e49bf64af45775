package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ip-fomin/LaborX-backend/internal/identity/models"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
	"github.com/ip-fomin/LaborX-backend/pkg/platform/sentinel"
)

// Schema documents the tables these stores expect; applied by migrations in
// deployment and by the test harness in integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            UUID PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	notifications JSONB NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS signatures (
	id         UUID PRIMARY KEY,
	account_id UUID NOT NULL REFERENCES accounts(id),
	sig_type   TEXT NOT NULL,
	value      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (sig_type, value)
);
`

const uniqueViolation = "23505"

type PostgresAccountStore struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountStore(pool *pgxpool.Pool) *PostgresAccountStore {
	return &PostgresAccountStore{pool: pool}
}

func (s *PostgresAccountStore) Create(ctx context.Context, account *models.Account) error {
	prefs, err := json.Marshal(account.Notifications)
	if err != nil {
		return fmt.Errorf("marshal notifications: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO accounts (id, name, email, phone, notifications, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		account.ID.String(), account.Name, account.Email, account.Phone,
		prefs, account.CreatedAt, account.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("account %s: %w", account.ID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *PostgresAccountStore) FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, notifications, created_at, updated_at
		FROM accounts WHERE id = $1`, accountID.String())
	return scanAccount(row)
}

func (s *PostgresAccountStore) Save(ctx context.Context, account *models.Account) error {
	prefs, err := json.Marshal(account.Notifications)
	if err != nil {
		return fmt.Errorf("marshal notifications: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts
		SET name = $2, email = $3, phone = $4, notifications = $5, updated_at = $6
		WHERE id = $1`,
		account.ID.String(), account.Name, account.Email, account.Phone,
		prefs, account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", account.ID, sentinel.ErrNotFound)
	}
	return nil
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var (
		account models.Account
		rawID   string
		prefs   []byte
	)
	err := row.Scan(&rawID, &account.Name, &account.Email, &account.Phone,
		&prefs, &account.CreatedAt, &account.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("account: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}

	accountID, err := id.ParseAccountID(rawID)
	if err != nil {
		return nil, fmt.Errorf("corrupt account row: %w", err)
	}
	account.ID = accountID

	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &account.Notifications); err != nil {
			return nil, fmt.Errorf("unmarshal notifications: %w", err)
		}
	}
	return &account, nil
}

type PostgresSignatureStore struct {
	pool *pgxpool.Pool
}

func NewPostgresSignatureStore(pool *pgxpool.Pool) *PostgresSignatureStore {
	return &PostgresSignatureStore{pool: pool}
}

func (s *PostgresSignatureStore) Create(ctx context.Context, signature *models.Signature) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO signatures (id, account_id, sig_type, value, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		signature.ID.String(), signature.AccountID.String(),
		signature.Type, signature.Value, signature.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("signature (%s, %s): %w", signature.Type, signature.Value, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert signature: %w", err)
	}
	return nil
}

func (s *PostgresSignatureStore) FindByTypeValue(ctx context.Context, sigType, value string) (*models.Signature, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, account_id, sig_type, value, created_at
		FROM signatures WHERE sig_type = $1 AND value = $2`, sigType, value)
	signature, err := scanSignature(row)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("signature (%s, %s): %w", sigType, value, sentinel.ErrNotFound)
	}
	return signature, err
}

func (s *PostgresSignatureStore) FindByValues(ctx context.Context, sigType string, values []string) ([]*models.Signature, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, sig_type, value, created_at
		FROM signatures WHERE sig_type = $1 AND value = ANY($2)`, sigType, values)
	if err != nil {
		return nil, fmt.Errorf("query signatures: %w", err)
	}
	defer rows.Close()

	var matches []*models.Signature
	for rows.Next() {
		signature, err := scanSignature(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, signature)
	}
	return matches, rows.Err()
}

func scanSignature(row pgx.Row) (*models.Signature, error) {
	var (
		signature    models.Signature
		rawID        string
		rawAccountID string
	)
	err := row.Scan(&rawID, &rawAccountID, &signature.Type, &signature.Value, &signature.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan signature: %w", err)
	}

	sigID, err := id.ParseSignatureID(rawID)
	if err != nil {
		return nil, fmt.Errorf("corrupt signature row: %w", err)
	}
	accountID, err := id.ParseAccountID(rawAccountID)
	if err != nil {
		return nil, fmt.Errorf("corrupt signature row: %w", err)
	}
	signature.ID = sigID
	signature.AccountID = accountID
	return &signature, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
