package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/uml-editor-backend/internal/access"
	"github.com/iliyamo/uml-editor-backend/internal/config"
	"github.com/iliyamo/uml-editor-backend/internal/handler"
	"github.com/iliyamo/uml-editor-backend/internal/realtime"
	"github.com/iliyamo/uml-editor-backend/internal/repository"
	"github.com/iliyamo/uml-editor-backend/internal/router"
	"github.com/iliyamo/uml-editor-backend/internal/service"
	"github.com/iliyamo/uml-editor-backend/internal/utils"
)

// In-memory stores backing the full HTTP pipeline. They return the same
// sentinel errors as the SQL repositories so every layer above them is
// exercised unchanged.

type memUsers struct {
	mu    sync.Mutex
	users map[string]repository.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]repository.User{}} }

func (m *memUsers) Create(ctx context.Context, email, username, password string, cost int) (repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return repository.User{}, repository.ErrEmailExists
		}
		if u.Username == username {
			return repository.User{}, repository.ErrUsernameExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return repository.User{}, err
	}
	u := repository.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return repository.User{}, sql.ErrNoRows
}

func (m *memUsers) GetByID(ctx context.Context, id string) (repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (m *memUsers) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

type memProjects struct {
	mu       sync.Mutex
	projects map[string]repository.Project
}

func newMemProjects() *memProjects { return &memProjects{projects: map[string]repository.Project{}} }

func (m *memProjects) Create(ctx context.Context, name, ownerID string) (repository.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	p := repository.Project{ID: uuid.NewString(), Name: name, OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}
	m.projects[p.ID] = p
	return p, nil
}

func (m *memProjects) GetByID(ctx context.Context, id string) (repository.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return repository.Project{}, sql.ErrNoRows
	}
	return p, nil
}

func (m *memProjects) ListByOwner(ctx context.Context, ownerID string) ([]repository.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []repository.Project{}
	for _, p := range m.projects {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProjects) VerifyOwner(ctx context.Context, projectID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	return ok && p.OwnerID == userID, nil
}

func (m *memProjects) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

type memDiagrams struct {
	mu       sync.Mutex
	diagrams map[string]repository.Diagram
}

func newMemDiagrams() *memDiagrams { return &memDiagrams{diagrams: map[string]repository.Diagram{}} }

func (m *memDiagrams) Create(ctx context.Context, projectID string, data json.RawMessage) (repository.Diagram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	d := repository.Diagram{ID: uuid.NewString(), ProjectID: projectID, DiagramData: data, Version: 1, CreatedAt: now, UpdatedAt: now}
	m.diagrams[d.ID] = d
	return d, nil
}

func (m *memDiagrams) GetByID(ctx context.Context, id string) (repository.Diagram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.diagrams[id]
	if !ok {
		return repository.Diagram{}, sql.ErrNoRows
	}
	return d, nil
}

func (m *memDiagrams) ProjectID(ctx context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.diagrams[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	return d.ProjectID, nil
}

func (m *memDiagrams) ListByProject(ctx context.Context, projectID string) ([]repository.Diagram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []repository.Diagram{}
	for _, d := range m.diagrams {
		if d.ProjectID == projectID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDiagrams) Save(ctx context.Context, id string, data json.RawMessage, version uint64, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.diagrams[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.DiagramData = data
	d.Version = version
	d.UpdatedAt = updatedAt
	m.diagrams[id] = d
	return nil
}

func (m *memDiagrams) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.diagrams[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.diagrams, id)
	return nil
}

func (m *memDiagrams) DeleteByProject(ctx context.Context, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, d := range m.diagrams {
		if d.ProjectID == projectID {
			delete(m.diagrams, id)
		}
	}
	return nil
}

type memShares struct {
	mu     sync.Mutex
	shares map[string]repository.Share
}

func newMemShares() *memShares { return &memShares{shares: map[string]repository.Share{}} }

func (m *memShares) Insert(ctx context.Context, s repository.Share) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shares[s.Token]; ok {
		return repository.ErrTokenExists
	}
	m.shares[s.Token] = s
	return nil
}

func (m *memShares) GetByToken(ctx context.Context, token string) (repository.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shares[token]
	if !ok {
		return repository.Share{}, sql.ErrNoRows
	}
	return s, nil
}

func (m *memShares) Deactivate(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shares[token]
	if !ok {
		return repository.ErrNotFound
	}
	s.IsActive = false
	m.shares[token] = s
	return nil
}

// expire backdates a share so validation sees it as already lapsed.
func (m *memShares) expire(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.shares[token]
	past := time.Now().UTC().Add(-time.Minute)
	s.ExpiresAt = &past
	m.shares[token] = s
}

// app wires the real routes, middleware and services over the in-memory
// stores, so requests travel the same path they do in production.
type app struct {
	e        *echo.Echo
	users    *memUsers
	projects *memProjects
	diagrams *memDiagrams
	shares   *memShares
	hub      *realtime.Hub
}

func newTestApp() *app {
	cfg := config.Config{
		Env:          "test",
		JWTSecret:    "handler-test-secret",
		JWTAlg:       "HS256",
		AccessTTLMin: 15,
		BcryptCost:   bcrypt.MinCost,
		KeepaliveSec: 30,
	}
	users := newMemUsers()
	projects := newMemProjects()
	diagrams := newMemDiagrams()
	shares := newMemShares()

	registry := service.NewShareRegistry(shares)
	versions := service.NewDiagramVersions(diagrams)
	resolver := access.NewResolver(registry)
	gate := access.NewGate(diagrams, projects, registry)
	hub := realtime.NewHub()

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users), cfg.JWTSecret)
	router.RegisterProjects(e, handler.NewProjectHandler(projects, diagrams), cfg.JWTSecret)
	router.RegisterDiagrams(e,
		handler.NewDiagramHandler(projects, diagrams, versions, resolver, gate, hub),
		handler.NewStreamHandler(diagrams, resolver, gate, hub, time.Duration(cfg.KeepaliveSec)*time.Second),
		cfg.JWTSecret)
	router.RegisterShares(e, handler.NewShareHandler(diagrams, registry), cfg.JWTSecret)

	return &app{e: e, users: users, projects: projects, diagrams: diagrams, shares: shares, hub: hub}
}

func (a *app) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// signUp registers a user, logs in, creates a project and returns the
// bearer token, the user id and the project's default diagram id.
func (a *app) signUp(t *testing.T, email, username string) (token, userID, diagramID string) {
	t.Helper()

	rec := a.do(http.MethodPost, "/register", "", map[string]any{
		"email": email, "username": username, "password": "s3cret!",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(http.MethodPost, "/login", "", map[string]any{
		"email": email, "password": "s3cret!",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	token = login.AccessToken

	rec = a.do(http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	userID = me.ID

	rec = a.do(http.MethodPost, "/projects", token, map[string]any{"name": "Design docs"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var project repository.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &project))

	rec = a.do(http.MethodGet, "/projects/"+project.ID+"/diagrams", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []repository.Diagram
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1, "a new project comes with its default diagram")

	return token, userID, list[0].ID
}

func TestShareLinkLifecycleOverHTTP(t *testing.T) {
	a := newTestApp()
	token, _, diagramID := a.signUp(t, "owner@example.com", "owner")

	rec := a.do(http.MethodPost, "/shares", token, map[string]any{
		"diagram_id": diagramID, "expires_hours": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var share repository.Share
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &share))
	require.Len(t, share.Token, 8)

	// Anonymous read through the share link.
	rec = a.do(http.MethodGet, "/diagrams/shared-"+share.Token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got repository.Diagram
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, diagramID, got.ID)

	// Anonymous update through the share link bumps the version.
	rec = a.do(http.MethodPut, "/diagrams/shared-"+share.Token, "", map[string]any{
		"diagram_data": map[string]any{"classes": []any{map[string]any{"name": "Order"}}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, uint64(2), got.Version)

	// A share never grants delete, even though it grants update.
	rec = a.do(http.MethodDelete, "/diagrams/shared-"+share.Token, "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Once lapsed, the same link stops working everywhere.
	a.shares.expire(share.Token)
	rec = a.do(http.MethodGet, "/diagrams/shared-"+share.Token, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(http.MethodGet, "/shares/"+share.Token, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// The owner still reaches the diagram by its native id.
	rec = a.do(http.MethodGet, "/diagrams/"+diagramID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateShareRejectsNegativeExpiry(t *testing.T) {
	a := newTestApp()
	token, _, diagramID := a.signUp(t, "owner@example.com", "owner")

	rec := a.do(http.MethodPost, "/shares", token, map[string]any{
		"diagram_id": diagramID, "expires_hours": -1,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidBearerIsRejectedNotDowngraded(t *testing.T) {
	a := newTestApp()
	token, _, diagramID := a.signUp(t, "owner@example.com", "owner")

	rec := a.do(http.MethodPost, "/shares", token, map[string]any{"diagram_id": diagramID})
	require.Equal(t, http.StatusCreated, rec.Code)
	var share repository.Share
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &share))

	// A forged bearer must yield 401 even where anonymous access via the
	// share link would have succeeded.
	rec = a.do(http.MethodGet, "/diagrams/shared-"+share.Token, "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(http.MethodGet, "/diagrams/"+diagramID, "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForeignDiagramIsForbidden(t *testing.T) {
	a := newTestApp()
	_, _, diagramID := a.signUp(t, "owner@example.com", "owner")
	intruder, _, _ := a.signUp(t, "intruder@example.com", "intruder")

	rec := a.do(http.MethodGet, "/diagrams/"+diagramID, intruder, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
