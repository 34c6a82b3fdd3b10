package validator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	id "stilltrue/pkg/domain"
	"stilltrue/pkg/platform/sentinel"
)

// PostgresStore persists the registry in PostgreSQL. Duplicate registration
// is rejected by the (claim_id, validator_profile_id) primary key.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Add(ctx context.Context, v *Validator) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO claim_validators (claim_id, validator_profile_id, kind, added_at)
		 VALUES ($1, $2, $3, $4)`,
		v.ClaimID.String(), v.ProfileID.String(), v.Kind.String(), v.AddedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert validator: %w", err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, claimID id.ClaimID, profileID id.ProfileID) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM claim_validators WHERE claim_id = $1 AND validator_profile_id = $2`,
		claimID.String(), profileID.String())
	if err != nil {
		return false, fmt.Errorf("remove validator: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove validator affected rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ListByClaim(ctx context.Context, claimID id.ClaimID) ([]*Validator, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT claim_id, validator_profile_id, kind, added_at
		 FROM claim_validators WHERE claim_id = $1 ORDER BY added_at`, claimID.String())
	if err != nil {
		return nil, fmt.Errorf("list validators: %w", err)
	}
	defer rows.Close()

	var out []*Validator
	for rows.Next() {
		var (
			v                 Validator
			rawClaim, rawProf string
			kind              string
		)
		if err := rows.Scan(&rawClaim, &rawProf, &kind, &v.AddedAt); err != nil {
			return nil, fmt.Errorf("scan validator: %w", err)
		}
		claimID, err := id.ParseClaimID(rawClaim)
		if err != nil {
			return nil, fmt.Errorf("scan validator claim id: %w", err)
		}
		profileID, err := id.ParseProfileID(rawProf)
		if err != nil {
			return nil, fmt.Errorf("scan validator profile id: %w", err)
		}
		v.ClaimID, v.ProfileID = claimID, profileID
		v.Kind = id.ValidatorKind(kind)
		out = append(out, &v)
	}
	return out, rows.Err()
}
