package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Project mirrors the 'projects' table. The owner is immutable after
// creation; deleting a project cascades to its diagrams.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ProjectRepo struct{ DB *sql.DB }

func NewProjectRepo(db *sql.DB) *ProjectRepo { return &ProjectRepo{DB: db} }

// Create inserts a new project owned by ownerID.
func (r *ProjectRepo) Create(ctx context.Context, name, ownerID string) (Project, error) {
	now := time.Now().UTC()
	p := Project{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO projects (id, name, owner_id, created_at, updated_at) VALUES (?,?,?,?,?)",
		p.ID, p.Name, p.OwnerID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return Project{}, err
	}
	return p, nil
}

// GetByID fetches one project.
func (r *ProjectRepo) GetByID(ctx context.Context, id string) (Project, error) {
	var p Project
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,owner_id,created_at,updated_at FROM projects WHERE id=? LIMIT 1",
		id).Scan(&p.ID, &p.Name, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListByOwner returns all projects owned by a user, newest first.
func (r *ProjectRepo) ListByOwner(ctx context.Context, ownerID string) ([]Project, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,name,owner_id,created_at,updated_at FROM projects WHERE owner_id=? ORDER BY created_at DESC",
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Project{}
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// VerifyOwner reports whether userID owns the project.
func (r *ProjectRepo) VerifyOwner(ctx context.Context, projectID, userID string) (bool, error) {
	var ownerID string
	err := r.DB.QueryRowContext(ctx,
		"SELECT owner_id FROM projects WHERE id=? LIMIT 1", projectID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ownerID == userID, nil
}

// Delete removes a project row. Diagram cleanup happens first through
// DiagramRepo.DeleteByProject; ownership must already be verified.
func (r *ProjectRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM projects WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
