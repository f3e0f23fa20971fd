package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/uml-editor-backend/internal/repository"
)

// DiagramStore is the persistence surface the version manager needs.
type DiagramStore interface {
	GetByID(ctx context.Context, id string) (repository.Diagram, error)
	Save(ctx context.Context, id string, data json.RawMessage, version uint64, updatedAt time.Time) error
}

// DiagramVersions applies updates to diagram state with monotonic
// versioning. The read-then-write sequence is not guarded by an
// optimistic-concurrency token: two concurrent writers race and the last
// write wins, which is the accepted behavior for this editor.
type DiagramVersions struct {
	store DiagramStore
	now   func() time.Time
}

func NewDiagramVersions(store DiagramStore) *DiagramVersions {
	return &DiagramVersions{store: store, now: time.Now}
}

// Update bumps the version by exactly one and persists the new data. An
// empty or null payload keeps the stored diagram_data unchanged but still
// consumes a version slot; clients rely on the version moving even for
// no-op writes, so this is not short-circuited.
func (v *DiagramVersions) Update(ctx context.Context, id string, data json.RawMessage) (repository.Diagram, error) {
	cur, err := v.store.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.Diagram{}, repository.ErrNotFound
	}
	if err != nil {
		return repository.Diagram{}, err
	}

	next := cur
	next.Version = cur.Version + 1
	next.UpdatedAt = v.now().UTC()
	if !emptyPayload(data) {
		next.DiagramData = data
	}
	if err := v.store.Save(ctx, id, next.DiagramData, next.Version, next.UpdatedAt); err != nil {
		return repository.Diagram{}, err
	}
	return next, nil
}

// emptyPayload reports whether the client sent no document at all.
func emptyPayload(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
