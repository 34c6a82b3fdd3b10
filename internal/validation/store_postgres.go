package validation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"stilltrue/internal/validator"
	id "stilltrue/pkg/domain"
	"stilltrue/pkg/platform/sentinel"
)

// dbtx abstracts *sql.DB and *sql.Tx so the same store serves plain reads
// and transaction-bound workflow mutations.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists validation requests and responses in PostgreSQL.
//
// The one-open-request invariant is enforced by the partial unique index
//
//	CREATE UNIQUE INDEX validation_requests_one_open
//	    ON validation_requests (claim_id) WHERE status = 'open';
//
// and response uniqueness by the (request_id, responder_profile_id)
// primary key. Both surface as sentinel.ErrConflict here.
type PostgresStore struct {
	db dbtx
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx binds the store to an open transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

func (s *PostgresStore) CreateOpenRequest(ctx context.Context, r *Request) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO validation_requests (id, claim_id, claim_text_version_id, kind, status, attempt_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID.String(), r.ClaimID.String(), r.TextVersionID.String(),
		r.Kind.String(), r.Status.String(), r.AttemptCount, r.CreatedAt)
	if err != nil {
		return mapPqError(err, "insert validation request")
	}
	return nil
}

func (s *PostgresStore) FindRequest(ctx context.Context, requestID id.RequestID) (*Request, error) {
	row := s.db.QueryRowContext(ctx, selectRequest+` WHERE id = $1`, requestID.String())
	return scanRequest(row)
}

func (s *PostgresStore) FindRequestForUpdate(ctx context.Context, requestID id.RequestID) (*Request, error) {
	row := s.db.QueryRowContext(ctx, selectRequest+` WHERE id = $1 FOR UPDATE`, requestID.String())
	return scanRequest(row)
}

func (s *PostgresStore) OpenRequestForClaim(ctx context.Context, claimID id.ClaimID) (*Request, error) {
	row := s.db.QueryRowContext(ctx,
		selectRequest+` WHERE claim_id = $1 AND status = 'open'`, claimID.String())
	return scanRequest(row)
}

func (s *PostgresStore) IncrementAttempt(ctx context.Context, requestID id.RequestID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`UPDATE validation_requests SET attempt_count = attempt_count + 1
		 WHERE id = $1 AND status = 'open'
		 RETURNING attempt_count`, requestID.String()).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Missing or closed; distinguish for the caller.
			if _, findErr := s.FindRequest(ctx, requestID); errors.Is(findErr, sentinel.ErrNotFound) {
				return 0, sentinel.ErrNotFound
			}
			return 0, sentinel.ErrInvalidState
		}
		return 0, fmt.Errorf("increment attempt: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) AddResponse(ctx context.Context, resp *Response) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO validation_responses (request_id, responder_profile_id, answer, context, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		resp.RequestID.String(), resp.ResponderProfileID.String(),
		resp.Answer.String(), resp.Context, resp.CreatedAt)
	if err != nil {
		return mapPqError(err, "insert validation response")
	}
	return nil
}

func (s *PostgresStore) ListResponses(ctx context.Context, requestID id.RequestID) ([]*Response, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT request_id, responder_profile_id, answer, context, created_at
		 FROM validation_responses WHERE request_id = $1 ORDER BY created_at`, requestID.String())
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var out []*Response
	for rows.Next() {
		var (
			resp            Response
			rawReq, rawProf string
			answer          string
			responseContext sql.NullString
		)
		if err := rows.Scan(&rawReq, &rawProf, &answer, &responseContext, &resp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		reqID, err := id.ParseRequestID(rawReq)
		if err != nil {
			return nil, fmt.Errorf("scan response request id: %w", err)
		}
		profID, err := id.ParseProfileID(rawProf)
		if err != nil {
			return nil, fmt.Errorf("scan response profile id: %w", err)
		}
		resp.RequestID, resp.ResponderProfileID = reqID, profID
		resp.Answer = id.Answer(answer)
		if responseContext.Valid {
			v := responseContext.String
			resp.Context = &v
		}
		out = append(out, &resp)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CloseRequest(ctx context.Context, requestID id.RequestID, closedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE validation_requests SET status = 'closed', closed_at = $2
		 WHERE id = $1 AND status = 'open'`, requestID.String(), closedAt)
	if err != nil {
		return fmt.Errorf("close request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close request affected rows: %w", err)
	}
	if affected == 0 {
		if _, findErr := s.FindRequest(ctx, requestID); errors.Is(findErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) CloseOpenRequestForClaim(ctx context.Context, claimID id.ClaimID, closedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE validation_requests SET status = 'closed', closed_at = $2
		 WHERE claim_id = $1 AND status = 'open'`, claimID.String(), closedAt)
	if err != nil {
		return fmt.Errorf("close open request for claim: %w", err)
	}
	return nil
}

func (s *PostgresStore) RegisterValidator(ctx context.Context, v *validator.Validator) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO claim_validators (claim_id, validator_profile_id, kind, added_at)
		 VALUES ($1, $2, $3, $4)`,
		v.ClaimID.String(), v.ProfileID.String(), v.Kind.String(), v.AddedAt)
	if err != nil {
		return mapPqError(err, "register validator")
	}
	return nil
}

func (s *PostgresStore) ListValidatorProfileIDs(ctx context.Context, claimID id.ClaimID) ([]id.ProfileID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT validator_profile_id FROM claim_validators WHERE claim_id = $1`, claimID.String())
	if err != nil {
		return nil, fmt.Errorf("list validator profile ids: %w", err)
	}
	defer rows.Close()

	var out []id.ProfileID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan validator profile id: %w", err)
		}
		pid, err := id.ParseProfileID(raw)
		if err != nil {
			return nil, fmt.Errorf("parse validator profile id: %w", err)
		}
		out = append(out, pid)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListByClaim(ctx context.Context, claimID id.ClaimID) ([]*Request, error) {
	rows, err := s.db.QueryContext(ctx,
		selectRequest+` WHERE claim_id = $1 ORDER BY created_at DESC`, claimID.String())
	if err != nil {
		return nil, fmt.Errorf("list requests by claim: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (s *PostgresStore) LatestClosedByClaim(ctx context.Context, claimID id.ClaimID) (*Request, error) {
	row := s.db.QueryRowContext(ctx,
		selectRequest+` WHERE claim_id = $1 AND status = 'closed'
		 ORDER BY closed_at DESC LIMIT 1`, claimID.String())
	return scanRequest(row)
}

func (s *PostgresStore) ListForValidatorProfiles(ctx context.Context, profileIDs []id.ProfileID) ([]*Request, error) {
	if len(profileIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(profileIDs))
	for i, pid := range profileIDs {
		ids[i] = pid.String()
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.claim_id, r.claim_text_version_id, r.kind, r.status, r.attempt_count, r.created_at, r.closed_at
		 FROM validation_requests r
		 JOIN claim_validators v ON v.claim_id = r.claim_id
		 WHERE v.validator_profile_id = ANY($1)
		 GROUP BY r.id, r.claim_id, r.claim_text_version_id, r.kind, r.status, r.attempt_count, r.created_at, r.closed_at
		 ORDER BY r.created_at DESC`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list requests for recipient: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

const selectRequest = `SELECT id, claim_id, claim_text_version_id, kind, status, attempt_count, created_at, closed_at
 FROM validation_requests`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var (
		r                           Request
		rawID, rawClaim, rawVersion string
		kind, status                string
		closedAt                    sql.NullTime
	)
	err := row.Scan(&rawID, &rawClaim, &rawVersion, &kind, &status, &r.AttemptCount, &r.CreatedAt, &closedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan request: %w", err)
	}
	reqID, err := id.ParseRequestID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan request id: %w", err)
	}
	claimID, err := id.ParseClaimID(rawClaim)
	if err != nil {
		return nil, fmt.Errorf("scan request claim id: %w", err)
	}
	versionID, err := id.ParseTextVersionID(rawVersion)
	if err != nil {
		return nil, fmt.Errorf("scan request version id: %w", err)
	}
	r.ID, r.ClaimID, r.TextVersionID = reqID, claimID, versionID
	r.Kind = id.RequestKind(kind)
	r.Status = id.RequestStatus(status)
	if closedAt.Valid {
		t := closedAt.Time
		r.ClosedAt = &t
	}
	return &r, nil
}

func scanRequests(rows *sql.Rows) ([]*Request, error) {
	var out []*Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func mapPqError(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return sentinel.ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}
