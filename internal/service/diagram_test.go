package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/uml-editor-backend/internal/repository"
)

type mockDiagramStore struct {
	diagrams map[string]repository.Diagram
	saves    int
}

func newMockDiagramStore(seed ...repository.Diagram) *mockDiagramStore {
	m := &mockDiagramStore{diagrams: map[string]repository.Diagram{}}
	for _, d := range seed {
		m.diagrams[d.ID] = d
	}
	return m
}

func (m *mockDiagramStore) GetByID(ctx context.Context, id string) (repository.Diagram, error) {
	d, ok := m.diagrams[id]
	if !ok {
		return repository.Diagram{}, sql.ErrNoRows
	}
	return d, nil
}

func (m *mockDiagramStore) Save(ctx context.Context, id string, data json.RawMessage, version uint64, updatedAt time.Time) error {
	m.saves++
	d := m.diagrams[id]
	d.DiagramData = data
	d.Version = version
	d.UpdatedAt = updatedAt
	m.diagrams[id] = d
	return nil
}

func seedDiagram() repository.Diagram {
	return repository.Diagram{
		ID:          "d-1",
		ProjectID:   "p-1",
		DiagramData: json.RawMessage(`{"classes":[]}`),
		Version:     1,
	}
}

func TestUpdateBumpsVersionByOne(t *testing.T) {
	store := newMockDiagramStore(seedDiagram())
	v := NewDiagramVersions(store)

	got, err := v.Update(context.Background(), "d-1", json.RawMessage(`{"classes":[{"name":"A"}]}`))
	require.NoError(t, err)
	require.Equal(t, uint64(2), got.Version)
	require.JSONEq(t, `{"classes":[{"name":"A"}]}`, string(store.diagrams["d-1"].DiagramData))
}

func TestUpdateVersionsAreStrictlySequential(t *testing.T) {
	store := newMockDiagramStore(seedDiagram())
	v := NewDiagramVersions(store)

	for i := 0; i < 5; i++ {
		_, err := v.Update(context.Background(), "d-1", json.RawMessage(`{"classes":[]}`))
		require.NoError(t, err)
	}
	require.Equal(t, uint64(6), store.diagrams["d-1"].Version)
	require.Equal(t, 5, store.saves)
}

func TestUpdateEmptyPayloadKeepsDataButConsumesVersion(t *testing.T) {
	store := newMockDiagramStore(seedDiagram())
	v := NewDiagramVersions(store)

	for _, payload := range []json.RawMessage{nil, json.RawMessage("  "), json.RawMessage("null")} {
		before := store.diagrams["d-1"].Version
		got, err := v.Update(context.Background(), "d-1", payload)
		require.NoError(t, err)
		require.Equal(t, before+1, got.Version)
		require.JSONEq(t, `{"classes":[]}`, string(got.DiagramData))
	}
}

func TestUpdateMissingDiagramIsNotFound(t *testing.T) {
	v := NewDiagramVersions(newMockDiagramStore())

	_, err := v.Update(context.Background(), "missing", json.RawMessage(`{}`))
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateStampsUTCTime(t *testing.T) {
	store := newMockDiagramStore(seedDiagram())
	v := NewDiagramVersions(store)
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	v.now = func() time.Time { return fixed }

	got, err := v.Update(context.Background(), "d-1", json.RawMessage(`{}`))
	require.NoError(t, err)
	require.Equal(t, fixed.UTC(), got.UpdatedAt)
	require.Equal(t, time.UTC, got.UpdatedAt.Location())
}
