package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Diagram mirrors the 'diagrams' table. diagram_data is an opaque JSON
// document whose schema is owned by the editor frontend; the backend
// never inspects it. version starts at 1 and moves up by exactly one on
// every successful update.
type Diagram struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id"`
	DiagramData json.RawMessage `json:"diagram_data"`
	Version     uint64          `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type DiagramRepo struct{ DB *sql.DB }

func NewDiagramRepo(db *sql.DB) *DiagramRepo { return &DiagramRepo{DB: db} }

// Create inserts a diagram at version 1.
func (r *DiagramRepo) Create(ctx context.Context, projectID string, data json.RawMessage) (Diagram, error) {
	now := time.Now().UTC()
	d := Diagram{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		DiagramData: data,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO diagrams (id, project_id, diagram_data, version, created_at, updated_at) VALUES (?,?,?,?,?,?)",
		d.ID, d.ProjectID, nullableJSON(d.DiagramData), d.Version, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return Diagram{}, err
	}
	return d, nil
}

// GetByID fetches one diagram.
func (r *DiagramRepo) GetByID(ctx context.Context, id string) (Diagram, error) {
	var d Diagram
	var data []byte
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,project_id,diagram_data,version,created_at,updated_at FROM diagrams WHERE id=? LIMIT 1",
		id).Scan(&d.ID, &d.ProjectID, &data, &d.Version, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Diagram{}, err
	}
	d.DiagramData = json.RawMessage(data)
	return d, nil
}

// ProjectID returns the owning project of a diagram, or ErrNotFound.
func (r *DiagramRepo) ProjectID(ctx context.Context, id string) (string, error) {
	var projectID string
	err := r.DB.QueryRowContext(ctx,
		"SELECT project_id FROM diagrams WHERE id=? LIMIT 1", id).Scan(&projectID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return projectID, nil
}

// ListByProject returns all diagrams of a project, newest first.
func (r *DiagramRepo) ListByProject(ctx context.Context, projectID string) ([]Diagram, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,project_id,diagram_data,version,created_at,updated_at FROM diagrams WHERE project_id=? ORDER BY created_at DESC",
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Diagram{}
	for rows.Next() {
		var d Diagram
		var data []byte
		if err := rows.Scan(&d.ID, &d.ProjectID, &data, &d.Version, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.DiagramData = json.RawMessage(data)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Save writes the data/version/updated_at triple produced by the version
// manager. The row must exist; zero affected rows maps to ErrNotFound.
func (r *DiagramRepo) Save(ctx context.Context, id string, data json.RawMessage, version uint64, updatedAt time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE diagrams SET diagram_data=?, version=?, updated_at=? WHERE id=?",
		nullableJSON(data), version, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one diagram.
func (r *DiagramRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM diagrams WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByProject removes every diagram under a project (cascade path of
// project deletion).
func (r *DiagramRepo) DeleteByProject(ctx context.Context, projectID string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM diagrams WHERE project_id=?", projectID)
	return err
}

// nullableJSON stores empty documents as SQL NULL instead of an empty blob.
func nullableJSON(data json.RawMessage) interface{} {
	if len(data) == 0 {
		return nil
	}
	return []byte(data)
}
