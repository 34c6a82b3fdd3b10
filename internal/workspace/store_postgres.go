package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	id "stilltrue/pkg/domain"
	"stilltrue/pkg/platform/sentinel"
)

// PostgresStore persists workspaces and profiles in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Bootstrap(ctx context.Context, ws *Workspace, owner *Profile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bootstrap: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO workspaces (id, name, status, created_at) VALUES ($1, $2, $3, $4)`,
		ws.ID.String(), ws.Name, string(ws.Status), ws.CreatedAt)
	if err != nil {
		return mapPqError(err, "insert workspace")
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles (id, workspace_id, user_id, email, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		owner.ID.String(), owner.WorkspaceID.String(), owner.UserID.String(), owner.Email, owner.CreatedAt)
	if err != nil {
		return mapPqError(err, "insert owner profile")
	}

	return tx.Commit()
}

func (s *PostgresStore) FindWorkspace(ctx context.Context, wsID id.WorkspaceID) (*Workspace, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, status, created_at FROM workspaces WHERE id = $1`, wsID.String())
	return scanWorkspace(row)
}

func (s *PostgresStore) ListProfilesByUser(ctx context.Context, userID id.UserID) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workspace_id, user_id, email, created_at
		 FROM profiles WHERE user_id = $1 ORDER BY created_at`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list profiles by user: %w", err)
	}
	defer rows.Close()
	return scanProfiles(rows)
}

func (s *PostgresStore) FindProfile(ctx context.Context, profileID id.ProfileID) (*Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, workspace_id, user_id, email, created_at FROM profiles WHERE id = $1`,
		profileID.String())
	return scanProfile(row)
}

func (s *PostgresStore) FindMemberByEmail(ctx context.Context, wsID id.WorkspaceID, email string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, workspace_id, user_id, email, created_at
		 FROM profiles WHERE workspace_id = $1 AND email = $2`,
		wsID.String(), strings.ToLower(strings.TrimSpace(email)))
	return scanProfile(row)
}

func (s *PostgresStore) FindProfiles(ctx context.Context, profileIDs []id.ProfileID) ([]*Profile, error) {
	if len(profileIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(profileIDs))
	for i, pid := range profileIDs {
		ids[i] = pid.String()
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workspace_id, user_id, email, created_at
		 FROM profiles WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("find profiles: %w", err)
	}
	defer rows.Close()
	return scanProfiles(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkspace(row rowScanner) (*Workspace, error) {
	var (
		ws             Workspace
		rawID, rawStat string
	)
	if err := row.Scan(&rawID, &ws.Name, &rawStat, &ws.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan workspace: %w", err)
	}
	wsID, err := id.ParseWorkspaceID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan workspace id: %w", err)
	}
	ws.ID = wsID
	ws.Status = Status(rawStat)
	return &ws, nil
}

func scanProfile(row rowScanner) (*Profile, error) {
	var (
		p                    Profile
		rawID, rawWS, rawUID string
	)
	if err := row.Scan(&rawID, &rawWS, &rawUID, &p.Email, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	pid, err := id.ParseProfileID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan profile id: %w", err)
	}
	wsID, err := id.ParseWorkspaceID(rawWS)
	if err != nil {
		return nil, fmt.Errorf("scan profile workspace id: %w", err)
	}
	uid, err := id.ParseUserID(rawUID)
	if err != nil {
		return nil, fmt.Errorf("scan profile user id: %w", err)
	}
	p.ID, p.WorkspaceID, p.UserID = pid, wsID, uid
	return &p, nil
}

func scanProfiles(rows *sql.Rows) ([]*Profile, error) {
	var out []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// mapPqError translates unique violations to the conflict sentinel so the
// service layer can branch without knowing SQLSTATE codes.
func mapPqError(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return sentinel.ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}
