package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/uml-editor-backend/internal/repository"
)

// ShareStore is the persistence surface the registry needs.
type ShareStore interface {
	Insert(ctx context.Context, s repository.Share) error
	GetByToken(ctx context.Context, token string) (repository.Share, error)
	Deactivate(ctx context.Context, token string) error
}

// defaultShareTTLHours applies when the request does not specify a TTL.
const defaultShareTTLHours = 24

// tokenAttempts bounds the retry loop for generated tokens. The 8-char
// token space makes collisions improbable at this service's share volume,
// but a duplicate-key insert is retried a few times anyway.
const tokenAttempts = 3

// ShareRegistry creates and validates time-limited, revocable share
// tokens, each bound to a snapshot of the diagram taken at creation time.
type ShareRegistry struct {
	store ShareStore
	now   func() time.Time
}

func NewShareRegistry(store ShareStore) *ShareRegistry {
	return &ShareRegistry{store: store, now: time.Now}
}

// Create stores a new share. When token is empty a short human-shareable
// token is generated. expiresHours semantics: nil means the 24h default,
// zero means the share never expires; the HTTP layer rejects negatives.
func (r *ShareRegistry) Create(ctx context.Context, token, diagramID, ownerID string, snapshot json.RawMessage, expiresHours *int) (repository.Share, error) {
	now := r.now().UTC()
	s := repository.Share{
		DiagramID:   diagramID,
		OwnerID:     ownerID,
		DiagramData: snapshot,
		CreatedAt:   now,
		IsActive:    true,
	}
	ttl := defaultShareTTLHours
	if expiresHours != nil {
		ttl = *expiresHours
	}
	if ttl > 0 {
		exp := now.Add(time.Duration(ttl) * time.Hour)
		s.ExpiresAt = &exp
	}

	if token != "" {
		s.Token = token
		if err := r.store.Insert(ctx, s); err != nil {
			return repository.Share{}, err
		}
		return s, nil
	}
	var err error
	for i := 0; i < tokenAttempts; i++ {
		s.Token = newShareToken()
		err = r.store.Insert(ctx, s)
		if !errors.Is(err, repository.ErrTokenExists) {
			break
		}
	}
	if err != nil {
		return repository.Share{}, err
	}
	return s, nil
}

// Validate returns the share bound to token if it is currently valid.
// Revocation and expiry are evaluated here, at call time; a revoked share
// and an expired one are indistinguishable to the caller.
func (r *ShareRegistry) Validate(ctx context.Context, token string) (repository.Share, error) {
	s, err := r.store.GetByToken(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.Share{}, repository.ErrNotFound
	}
	if err != nil {
		return repository.Share{}, err
	}
	if !s.IsActive {
		return repository.Share{}, repository.ErrNotFound
	}
	if s.ExpiresAt != nil && !s.ExpiresAt.After(r.now().UTC()) {
		return repository.Share{}, repository.ErrNotFound
	}
	return s, nil
}

// ValidateToken adapts Validate for the access package: it returns only
// the bound diagram id.
func (r *ShareRegistry) ValidateToken(ctx context.Context, token string) (string, error) {
	s, err := r.Validate(ctx, token)
	if err != nil {
		return "", err
	}
	return s.DiagramID, nil
}

// Revoke soft-deletes a share so the token stops resolving immediately.
func (r *ShareRegistry) Revoke(ctx context.Context, token string) error {
	return r.store.Deactivate(ctx, token)
}

// newShareToken produces an 8-character uppercase token, short enough to
// read over a call and paste into a URL.
func newShareToken() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
}
