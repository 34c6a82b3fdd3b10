package claim

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	id "stilltrue/pkg/domain"
	"stilltrue/pkg/platform/sentinel"
)

// PostgresStore persists claims in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateWithText(ctx context.Context, c *Claim, first *TextVersion) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create claim: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO claims (id, workspace_id, owner_profile_id, visibility, review_cadence, validation_mode, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID.String(), c.WorkspaceID.String(), c.OwnerProfileID.String(),
		c.Visibility.String(), c.ReviewCadence.String(), c.ValidationMode.String(), c.CreatedAt)
	if err != nil {
		return mapPqError(err, "insert claim")
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO claim_text_versions (id, claim_id, text, created_at, created_by_profile_id)
		 VALUES ($1, $2, $3, $4, $5)`,
		first.ID.String(), first.ClaimID.String(), first.Text, first.CreatedAt, first.CreatedByProfileID.String())
	if err != nil {
		return mapPqError(err, "insert first text version")
	}

	return tx.Commit()
}

func (s *PostgresStore) FindByID(ctx context.Context, claimID id.ClaimID) (*Claim, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, workspace_id, owner_profile_id, visibility, review_cadence, validation_mode, created_at, retired_at
		 FROM claims WHERE id = $1`, claimID.String())
	return scanClaim(row)
}

func (s *PostgresStore) AppendText(ctx context.Context, version *TextVersion, visibility id.Visibility) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append text: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Lock the claim row so a concurrent retire cannot slip between the
	// state check and the append.
	var retiredAt sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT retired_at FROM claims WHERE id = $1 FOR UPDATE`,
		version.ClaimID.String()).Scan(&retiredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("lock claim: %w", err)
	}
	if retiredAt.Valid {
		return sentinel.ErrInvalidState
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO claim_text_versions (id, claim_id, text, created_at, created_by_profile_id)
		 VALUES ($1, $2, $3, $4, $5)`,
		version.ID.String(), version.ClaimID.String(), version.Text, version.CreatedAt, version.CreatedByProfileID.String())
	if err != nil {
		return mapPqError(err, "insert text version")
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE claims SET visibility = $2 WHERE id = $1`,
		version.ClaimID.String(), visibility.String())
	if err != nil {
		return fmt.Errorf("update visibility: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresStore) UpdateSettings(ctx context.Context, claimID id.ClaimID, cadence id.ReviewCadence, mode id.ValidationMode) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE claims SET review_cadence = $2, validation_mode = $3
		 WHERE id = $1 AND retired_at IS NULL`,
		claimID.String(), cadence.String(), mode.String())
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update settings affected rows: %w", err)
	}
	if affected == 0 {
		// Distinguish missing from retired for the service layer.
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM claims WHERE id = $1)`, claimID.String()).Scan(&exists); err != nil {
			return fmt.Errorf("check claim exists: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) Retire(ctx context.Context, claimID id.ClaimID, retiredAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin retire: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT retired_at FROM claims WHERE id = $1 FOR UPDATE`, claimID.String()).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("lock claim: %w", err)
	}
	if current.Valid {
		return sentinel.ErrInvalidState
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE claims SET retired_at = $2 WHERE id = $1`, claimID.String(), retiredAt)
	if err != nil {
		return fmt.Errorf("retire claim: %w", err)
	}

	// A retired claim has no open validation activity: close any open
	// request in the same transaction.
	_, err = tx.ExecContext(ctx,
		`UPDATE validation_requests SET status = 'closed', closed_at = $2
		 WHERE claim_id = $1 AND status = 'open'`, claimID.String(), retiredAt)
	if err != nil {
		return fmt.Errorf("close open request on retire: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresStore) ListByWorkspace(ctx context.Context, wsID id.WorkspaceID) ([]*Claim, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workspace_id, owner_profile_id, visibility, review_cadence, validation_mode, created_at, retired_at
		 FROM claims WHERE workspace_id = $1 ORDER BY created_at DESC`, wsID.String())
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var out []*Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListVersions(ctx context.Context, claimID id.ClaimID) ([]*TextVersion, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM claims WHERE id = $1)`, claimID.String()).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check claim exists: %w", err)
	}
	if !exists {
		return nil, sentinel.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, claim_id, text, created_at, created_by_profile_id
		 FROM claim_text_versions WHERE claim_id = $1 ORDER BY created_at DESC`, claimID.String())
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []*TextVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindVersion(ctx context.Context, versionID id.TextVersionID) (*TextVersion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, claim_id, text, created_at, created_by_profile_id
		 FROM claim_text_versions WHERE id = $1`, versionID.String())
	return scanVersion(row)
}

func (s *PostgresStore) LatestVersion(ctx context.Context, claimID id.ClaimID) (*TextVersion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, claim_id, text, created_at, created_by_profile_id
		 FROM claim_text_versions WHERE claim_id = $1
		 ORDER BY created_at DESC LIMIT 1`, claimID.String())
	return scanVersion(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*Claim, error) {
	var (
		c                                         Claim
		rawID, rawWS, rawOwner, vis, cadence, mode string
		retiredAt                                 sql.NullTime
	)
	err := row.Scan(&rawID, &rawWS, &rawOwner, &vis, &cadence, &mode, &c.CreatedAt, &retiredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan claim: %w", err)
	}
	claimID, err := id.ParseClaimID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan claim id: %w", err)
	}
	wsID, err := id.ParseWorkspaceID(rawWS)
	if err != nil {
		return nil, fmt.Errorf("scan claim workspace id: %w", err)
	}
	ownerID, err := id.ParseProfileID(rawOwner)
	if err != nil {
		return nil, fmt.Errorf("scan claim owner id: %w", err)
	}
	c.ID, c.WorkspaceID, c.OwnerProfileID = claimID, wsID, ownerID
	c.Visibility = id.Visibility(vis)
	c.ReviewCadence = id.ReviewCadence(cadence)
	c.ValidationMode = id.ValidationMode(mode)
	if retiredAt.Valid {
		t := retiredAt.Time
		c.RetiredAt = &t
	}
	return &c, nil
}

func scanVersion(row rowScanner) (*TextVersion, error) {
	var (
		v                         TextVersion
		rawID, rawClaim, rawAuthor string
	)
	err := row.Scan(&rawID, &rawClaim, &v.Text, &v.CreatedAt, &rawAuthor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan text version: %w", err)
	}
	versionID, err := id.ParseTextVersionID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan version id: %w", err)
	}
	claimID, err := id.ParseClaimID(rawClaim)
	if err != nil {
		return nil, fmt.Errorf("scan version claim id: %w", err)
	}
	authorID, err := id.ParseProfileID(rawAuthor)
	if err != nil {
		return nil, fmt.Errorf("scan version author id: %w", err)
	}
	v.ID, v.ClaimID, v.CreatedByProfileID = versionID, claimID, authorID
	return &v, nil
}

func mapPqError(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return sentinel.ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}
