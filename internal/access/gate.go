package access

import (
	"context"
	"strings"

	"github.com/iliyamo/uml-editor-backend/internal/repository"
)

// Action is the operation the principal wants to perform on a diagram.
type Action int

const (
	ActionRead Action = iota
	ActionUpdate
	ActionDelete
)

// DiagramLookup resolves a diagram to its owning project. Implementations
// return repository.ErrNotFound when the diagram does not exist.
type DiagramLookup interface {
	ProjectID(ctx context.Context, diagramID string) (string, error)
}

// ProjectOwnership reports whether a user owns a project.
type ProjectOwnership interface {
	VerifyOwner(ctx context.Context, projectID, userID string) (bool, error)
}

// Gate decides whether a principal may act on a resolved diagram. The
// original client-supplied reference is required as well, because share
// validity is keyed off the token the client sent, not the resolved id.
type Gate struct {
	diagrams DiagramLookup
	projects ProjectOwnership
	shares   ShareValidator
}

func NewGate(diagrams DiagramLookup, projects ProjectOwnership, shares ShareValidator) *Gate {
	return &Gate{diagrams: diagrams, projects: projects, shares: shares}
}

// Authorize evaluates the access policy:
//
//  1. An authenticated owner of the diagram's project may do anything.
//  2. An authenticated non-owner whose original reference validates as a
//     share bound to this diagram may read and update, never delete.
//  3. A caller that supplied an invalid bearer token is rejected with
//     repository.ErrUnauthorized before shares are even considered.
//  4. An anonymous caller needs a valid share bound to this diagram for
//     read and update; deletes are owner-only on every path.
func (g *Gate) Authorize(ctx context.Context, diagramID, originalRef string, p Principal, action Action) error {
	if p.IsInvalid() {
		// An invalid credential is always an error. Downgrading it to
		// anonymous would let an attacker probe shares with a forged token.
		return repository.ErrUnauthorized
	}

	if userID, ok := p.UserID(); ok {
		projectID, err := g.diagrams.ProjectID(ctx, diagramID)
		if err != nil {
			return err
		}
		owner, err := g.projects.VerifyOwner(ctx, projectID, userID)
		if err != nil {
			return err
		}
		if owner {
			return nil
		}
		if action != ActionDelete && g.shareGrants(ctx, originalRef, diagramID) {
			return nil
		}
		return repository.ErrForbidden
	}

	// Anonymous path.
	if action == ActionDelete {
		if g.shareGrants(ctx, originalRef, diagramID) {
			return repository.ErrForbidden
		}
		return repository.ErrUnauthorized
	}
	if g.shareGrants(ctx, originalRef, diagramID) {
		return nil
	}
	return repository.ErrUnauthorized
}

// shareGrants reports whether the original reference validates as a share
// bound to the resolved diagram id.
func (g *Gate) shareGrants(ctx context.Context, originalRef, diagramID string) bool {
	token := strings.TrimPrefix(originalRef, SharedPrefix)
	boundID, err := g.shares.ValidateToken(ctx, token)
	return err == nil && boundID == diagramID
}
