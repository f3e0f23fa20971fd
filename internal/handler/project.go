package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/uml-editor-backend/internal/repository"
)

// ProjectStore is the persistence surface the project endpoints need.
type ProjectStore interface {
	Create(ctx context.Context, name, ownerID string) (repository.Project, error)
	GetByID(ctx context.Context, id string) (repository.Project, error)
	ListByOwner(ctx context.Context, ownerID string) ([]repository.Project, error)
	VerifyOwner(ctx context.Context, projectID, userID string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// ProjectHandler serves the project CRUD surface. Every endpoint here
// requires a bearer token; ownership is the only access model at the
// project level.
type ProjectHandler struct {
	Projects ProjectStore
	Diagrams DiagramStore
}

func NewProjectHandler(p ProjectStore, d DiagramStore) *ProjectHandler {
	return &ProjectHandler{Projects: p, Diagrams: d}
}

// defaultDiagramData seeds the diagram created alongside every project.
var defaultDiagramData = json.RawMessage(`{"classes":[],"associations":[],"metadata":{"created":"auto","description":"Default diagram for project"}}`)

// Create handles POST /projects: a new project plus its default diagram.
func (h *ProjectHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	ctx := c.Request().Context()
	p, err := h.Projects.Create(ctx, name, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create project"})
	}
	if _, err := h.Diagrams.Create(ctx, p.ID, defaultDiagramData); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create default diagram"})
	}
	return c.JSON(http.StatusCreated, p)
}

// List handles GET /projects and returns the caller's projects.
func (h *ProjectHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Projects.ListByOwner(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, items)
}

// Get handles GET /projects/:id. Non-owners get 403, absent ids 404.
func (h *ProjectHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	p, err := h.Projects.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if p.OwnerID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}
	return c.JSON(http.StatusOK, p)
}

// Delete handles DELETE /projects/:id: diagrams first, then the project.
// Absent and not-owned look the same to the caller (404), so project ids
// cannot be probed.
func (h *ProjectHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	ctx := c.Request().Context()

	owner, err := h.Projects.VerifyOwner(ctx, id, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !owner {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found or access denied"})
	}
	if err := h.Diagrams.DeleteByProject(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	if err := h.Projects.Delete(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found or access denied"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "project deleted successfully"})
}

// ListDiagrams handles GET /projects/:id/diagrams. A non-owner receives
// an empty list rather than 403; the frontend renders both the same way.
func (h *ProjectHandler) ListDiagrams(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	ctx := c.Request().Context()

	owner, err := h.Projects.VerifyOwner(ctx, id, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !owner {
		return c.JSON(http.StatusOK, []repository.Diagram{})
	}
	items, err := h.Diagrams.ListByProject(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, items)
}
