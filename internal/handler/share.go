package handler

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/uml-editor-backend/internal/repository"
	"github.com/iliyamo/uml-editor-backend/internal/service"
)

// ShareHandler serves share creation, lookup and revocation.
type ShareHandler struct {
	Diagrams DiagramStore
	Registry *service.ShareRegistry
}

func NewShareHandler(d DiagramStore, r *service.ShareRegistry) *ShareHandler {
	return &ShareHandler{Diagrams: d, Registry: r}
}

// Create handles POST /shares (bearer required). The share snapshots the
// diagram's current data; later edits to the diagram do not flow into the
// share record.
func (h *ShareHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Token        string `json:"token"`
		DiagramID    string `json:"diagram_id"`
		ExpiresHours *int   `json:"expires_hours"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.DiagramID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "diagram_id is required"})
	}
	if body.ExpiresHours != nil && *body.ExpiresHours < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "expires_hours must be zero or positive"})
	}

	ctx := c.Request().Context()
	d, err := h.Diagrams.GetByID(ctx, body.DiagramID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "diagram not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	s, err := h.Registry.Create(ctx, strings.TrimSpace(body.Token), d.ID, uid, d.DiagramData, body.ExpiresHours)
	if err != nil {
		if err == repository.ErrTokenExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "share token already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create share"})
	}
	return c.JSON(http.StatusCreated, s)
}

// Get handles GET /shares/:token (public). Invalid, revoked and expired
// tokens are indistinguishable: all 404.
func (h *ShareHandler) Get(c echo.Context) error {
	s, err := h.Registry.Validate(c.Request().Context(), c.Param("token"))
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "share token not found or expired"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, s)
}

// Revoke handles DELETE /shares/:token (bearer required). Only the share's
// creator may revoke it.
func (h *ShareHandler) Revoke(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	s, err := h.Registry.Validate(ctx, c.Param("token"))
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "share token not found or expired"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if s.OwnerID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}
	if err := h.Registry.Revoke(ctx, s.Token); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
