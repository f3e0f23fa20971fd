package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

// Share mirrors the 'shares' table. diagram_data is a snapshot copy taken
// when the share was created, not a live link to the diagram. A share is
// valid iff is_active is true and expires_at is either NULL (never
// expires) or still in the future; validity is evaluated on every use.
type Share struct {
	Token       string          `json:"token"`
	DiagramID   string          `json:"diagram_id"`
	OwnerID     string          `json:"owner_id"`
	DiagramData json.RawMessage `json:"diagram_data"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   *time.Time      `json:"expires_at"`
	IsActive    bool            `json:"is_active"`
}

type ShareRepo struct{ DB *sql.DB }

func NewShareRepo(db *sql.DB) *ShareRepo { return &ShareRepo{DB: db} }

// Insert stores a share row. A duplicate token maps to ErrTokenExists so
// the registry can retry generated tokens.
func (r *ShareRepo) Insert(ctx context.Context, s Share) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO shares (token, diagram_id, owner_id, diagram_data, created_at, expires_at, is_active) VALUES (?,?,?,?,?,?,?)",
		s.Token, s.DiagramID, s.OwnerID, nullableJSON(s.DiagramData), s.CreatedAt, s.ExpiresAt, s.IsActive)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrTokenExists
	}
	return err
}

// GetByToken fetches the raw share row without applying validity rules;
// expiry and revocation are the registry's concern.
func (r *ShareRepo) GetByToken(ctx context.Context, token string) (Share, error) {
	var s Share
	var data []byte
	err := r.DB.QueryRowContext(ctx,
		"SELECT token,diagram_id,owner_id,diagram_data,created_at,expires_at,is_active FROM shares WHERE token=? LIMIT 1",
		token).Scan(&s.Token, &s.DiagramID, &s.OwnerID, &data, &s.CreatedAt, &s.ExpiresAt, &s.IsActive)
	if err != nil {
		return Share{}, err
	}
	s.DiagramData = json.RawMessage(data)
	return s, nil
}

// Deactivate soft-deletes a share.
func (r *ShareRepo) Deactivate(ctx context.Context, token string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE shares SET is_active=FALSE WHERE token=?", token)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
