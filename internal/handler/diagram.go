package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/uml-editor-backend/internal/access"
	"github.com/iliyamo/uml-editor-backend/internal/middleware"
	"github.com/iliyamo/uml-editor-backend/internal/queue"
	"github.com/iliyamo/uml-editor-backend/internal/realtime"
	"github.com/iliyamo/uml-editor-backend/internal/repository"
	"github.com/iliyamo/uml-editor-backend/internal/service"
)

// DiagramStore is the persistence surface the diagram-facing endpoints
// need; it is shared with the project, share and stream handlers.
type DiagramStore interface {
	Create(ctx context.Context, projectID string, data json.RawMessage) (repository.Diagram, error)
	GetByID(ctx context.Context, id string) (repository.Diagram, error)
	ListByProject(ctx context.Context, projectID string) ([]repository.Diagram, error)
	Delete(ctx context.Context, id string) error
	DeleteByProject(ctx context.Context, projectID string) error
}

// DiagramHandler serves the diagram-scoped endpoints. The :ref parameter
// may be a canonical diagram id, "shared-<token>", or a bare share token;
// every operation first resolves it and then runs the authorization gate
// before touching the diagram itself.
type DiagramHandler struct {
	Projects ProjectStore
	Diagrams DiagramStore
	Versions *service.DiagramVersions
	Resolver *access.Resolver
	Gate     *access.Gate
	Hub      *realtime.Hub
}

func NewDiagramHandler(p ProjectStore, d DiagramStore, v *service.DiagramVersions, r *access.Resolver, g *access.Gate, hub *realtime.Hub) *DiagramHandler {
	return &DiagramHandler{Projects: p, Diagrams: d, Versions: v, Resolver: r, Gate: g, Hub: hub}
}

// Create handles POST /diagrams (bearer required). The caller must own
// the target project; a missing project and a foreign one both read as
// denial.
func (h *DiagramHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		ProjectID   string          `json:"project_id"`
		DiagramData json.RawMessage `json:"diagram_data"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ProjectID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "project_id is required"})
	}

	ctx := c.Request().Context()
	owner, err := h.Projects.VerifyOwner(ctx, body.ProjectID, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !owner {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied: you don't own this project"})
	}
	d, err := h.Diagrams.Create(ctx, body.ProjectID, body.DiagramData)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create diagram"})
	}
	return c.JSON(http.StatusCreated, d)
}

// Get handles GET /diagrams/:ref with an optional bearer.
func (h *DiagramHandler) Get(c echo.Context) error {
	ref := c.Param("ref")
	ctx := c.Request().Context()

	resolved, err := h.Resolver.Resolve(ctx, ref)
	if err != nil {
		return accessError(c, err)
	}
	p := middleware.CurrentPrincipal(c)
	if err := h.Gate.Authorize(ctx, resolved, ref, p, access.ActionRead); err != nil {
		return accessError(c, err)
	}
	d, err := h.Diagrams.GetByID(ctx, resolved)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "diagram not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, d)
}

// Update handles PUT /diagrams/:ref: version bump, live broadcast to
// every open stream, and a best-effort audit event to the broker.
func (h *DiagramHandler) Update(c echo.Context) error {
	ref := c.Param("ref")
	var body struct {
		DiagramData json.RawMessage `json:"diagram_data"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	resolved, err := h.Resolver.Resolve(ctx, ref)
	if err != nil {
		return accessError(c, err)
	}
	p := middleware.CurrentPrincipal(c)
	if err := h.Gate.Authorize(ctx, resolved, ref, p, access.ActionUpdate); err != nil {
		return accessError(c, err)
	}

	updated, err := h.Versions.Update(ctx, resolved, body.DiagramData)
	if err != nil {
		return accessError(c, err)
	}

	var userID *string
	if uid, ok := p.UserID(); ok {
		userID = &uid
	}
	h.Hub.Publish(resolved, realtime.NewUpdateEvent(resolved, updated.DiagramData, updated.Version, userID))

	// Audit trail is fire-and-forget; the broker must not slow the write path.
	ev := queue.DiagramUpdatedEvent{
		DiagramID: updated.ID,
		ProjectID: updated.ProjectID,
		UserID:    userID,
		Version:   updated.Version,
		UpdatedAt: updated.UpdatedAt.Format(time.RFC3339),
	}
	go func() {
		pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = service.PublishDiagramUpdated(pctx, ev)
	}()

	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /diagrams/:ref. Only the verified project owner
// may delete; a valid share still gets 403 here.
func (h *DiagramHandler) Delete(c echo.Context) error {
	ref := c.Param("ref")
	ctx := c.Request().Context()

	resolved, err := h.Resolver.Resolve(ctx, ref)
	if err != nil {
		return accessError(c, err)
	}
	p := middleware.CurrentPrincipal(c)
	if err := h.Gate.Authorize(ctx, resolved, ref, p, access.ActionDelete); err != nil {
		return accessError(c, err)
	}
	if err := h.Diagrams.Delete(ctx, resolved); err != nil {
		return accessError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "diagram deleted successfully"})
}
