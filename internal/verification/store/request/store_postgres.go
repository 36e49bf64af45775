package request

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ip-fomin/LaborX-backend/internal/verification/models"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
	"github.com/ip-fomin/LaborX-backend/pkg/platform/sentinel"
)

// Schema documents the table this store expects. The partial unique index
// holds the one-active-request invariant even across racing submissions.
const Schema = `
CREATE TABLE IF NOT EXISTS verification_requests (
	id                 UUID PRIMARY KEY,
	account_id         UUID NOT NULL,
	level              INT NOT NULL CHECK (level BETWEEN 1 AND 4),
	status             TEXT NOT NULL,
	payload            JSONB NOT NULL,
	validation_comment TEXT NOT NULL DEFAULT '',
	is_valid           BOOLEAN NOT NULL DEFAULT FALSE,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS verification_requests_active_uniq
	ON verification_requests (account_id, level)
	WHERE status = 'created';
`

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, request *models.VerificationRequest) error {
	payload, err := models.MarshalPayload(request.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO verification_requests
			(id, account_id, level, status, payload, validation_comment, is_valid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		request.ID.String(), request.AccountID.String(), int(request.Level), string(request.Status),
		payload, request.ValidationComment, request.IsValid, request.CreatedAt, request.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("active request for (account %s, level %d): %w",
			request.AccountID, request.Level, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindActive(ctx context.Context, accountID id.AccountID, level models.Level) (*models.VerificationRequest, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, account_id, level, status, payload, validation_comment, is_valid, created_at, updated_at
		FROM verification_requests
		WHERE account_id = $1 AND level = $2 AND status = 'created'`,
		accountID.String(), int(level))
	request, err := scanRequest(row)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("active request for (account %s, level %d): %w", accountID, level, sentinel.ErrNotFound)
	}
	return request, err
}

func (s *PostgresStore) ListActive(ctx context.Context, accountID id.AccountID) ([]*models.VerificationRequest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, level, status, payload, validation_comment, is_valid, created_at, updated_at
		FROM verification_requests
		WHERE account_id = $1 AND status = 'created'
		ORDER BY level`, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	var active []*models.VerificationRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		active = append(active, request)
	}
	return active, rows.Err()
}

func (s *PostgresStore) Save(ctx context.Context, request *models.VerificationRequest) error {
	payload, err := models.MarshalPayload(request.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE verification_requests
		SET status = $2, payload = $3, validation_comment = $4, is_valid = $5, updated_at = $6
		WHERE id = $1`,
		request.ID.String(), string(request.Status), payload,
		request.ValidationComment, request.IsValid, request.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("request %s: %w", request.ID, sentinel.ErrNotFound)
	}
	return nil
}

func scanRequest(row pgx.Row) (*models.VerificationRequest, error) {
	var (
		request      models.VerificationRequest
		rawID        string
		rawAccountID string
		level        int
		status       string
		payload      []byte
	)
	err := row.Scan(&rawID, &rawAccountID, &level, &status, &payload,
		&request.ValidationComment, &request.IsValid, &request.CreatedAt, &request.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan request: %w", err)
	}

	requestID, err := id.ParseRequestID(rawID)
	if err != nil {
		return nil, fmt.Errorf("corrupt request row: %w", err)
	}
	accountID, err := id.ParseAccountID(rawAccountID)
	if err != nil {
		return nil, fmt.Errorf("corrupt request row: %w", err)
	}
	request.ID = requestID
	request.AccountID = accountID
	request.Level = models.Level(level)
	request.Status = models.Status(status)

	request.Payload, err = models.UnmarshalPayload(request.Level, payload)
	if err != nil {
		return nil, fmt.Errorf("corrupt request payload: %w", err)
	}
	return &request, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
