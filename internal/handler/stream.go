package handler

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/uml-editor-backend/internal/access"
	"github.com/iliyamo/uml-editor-backend/internal/middleware"
	"github.com/iliyamo/uml-editor-backend/internal/realtime"
)

// StreamHandler serves GET /diagrams/:ref/stream as Server-Sent Events.
// EventSource cannot set headers, so the bearer token arrives in the
// `token` query parameter (handled by the principal middleware).
type StreamHandler struct {
	Diagrams  DiagramStore
	Resolver  *access.Resolver
	Gate      *access.Gate
	Hub       *realtime.Hub
	Keepalive time.Duration
}

func NewStreamHandler(d DiagramStore, r *access.Resolver, g *access.Gate, hub *realtime.Hub, keepalive time.Duration) *StreamHandler {
	return &StreamHandler{Diagrams: d, Resolver: r, Gate: g, Hub: hub, Keepalive: keepalive}
}

// Stream resolves and authorizes the reference like a read, subscribes to
// the hub under the canonical id (share-link viewers and the owner join
// the same stream), and forwards update frames until the client goes
// away. Unsubscription is deferred so it runs on every exit path.
func (h *StreamHandler) Stream(c echo.Context) error {
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
	if _, err := h.Diagrams.GetByID(ctx, resolved); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "diagram not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no") // disable buffering in nginx
	res.WriteHeader(http.StatusOK)

	ch := h.Hub.Subscribe(resolved)
	defer h.Hub.Unsubscribe(resolved, ch)

	connected, _ := json.Marshal(realtime.ConnectedEvent{
		Type:       "connected",
		DiagramID:  resolved,
		OriginalID: ref,
	})
	fmt.Fprintf(res, "data: %s\n\n", connected)
	res.Flush()

	keep := time.NewTimer(h.Keepalive)
	defer keep.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				// Dropped by the hub (slow consumer); let the client reconnect.
				return nil
			}
			fmt.Fprintf(res, "data: %s\n\n", msg)
			res.Flush()
		case <-keep.C:
			// Comment frame keeps intermediaries from reaping the
			// connection and lets us notice a vanished client on write.
			fmt.Fprint(res, ": keepalive\n\n")
			res.Flush()
		}
		if !keep.Stop() {
			select {
			case <-keep.C:
			default:
			}
		}
		keep.Reset(h.Keepalive)
	}
}
