package realtime

import (
	"encoding/json"
	"time"
)

// UpdateEvent is the frame pushed to every live viewer of a diagram when
// it changes. DiagramData is the full document, not a diff; UserID is the
// originating user or nil for anonymous share edits, so clients can
// suppress echoing their own changes.
type UpdateEvent struct {
	Type        string          `json:"type"`
	DiagramID   string          `json:"diagram_id"`
	DiagramData json.RawMessage `json:"diagram_data"`
	Version     uint64          `json:"version"`
	Timestamp   string          `json:"timestamp"`
	UserID      *string         `json:"user_id"`
}

// NewUpdateEvent stamps an update frame with the current UTC time.
func NewUpdateEvent(diagramID string, data json.RawMessage, version uint64, userID *string) UpdateEvent {
	return UpdateEvent{
		Type:        "update",
		DiagramID:   diagramID,
		DiagramData: data,
		Version:     version,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		UserID:      userID,
	}
}

// ConnectedEvent is sent once per stream, right after subscription. It
// carries both the canonical diagram id and the reference the client
// actually used, so share-link viewers learn the real id they joined.
type ConnectedEvent struct {
	Type       string `json:"type"`
	DiagramID  string `json:"diagram_id"`
	OriginalID string `json:"original_id"`
}
