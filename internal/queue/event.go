// Package queue defines message payloads exchanged over the message broker.
package queue

// DiagramQueueName is the durable queue diagram activity is published to.
const DiagramQueueName = "diagram.updated"

// DiagramUpdatedEvent is published after a diagram write succeeds. It
// carries enough information for downstream consumers to log, notify, or
// feed analytics without querying the primary database. This is an audit
// side channel; live viewers get their updates from the in-process hub.
type DiagramUpdatedEvent struct {
	DiagramID string  `json:"diagram_id"`
	ProjectID string  `json:"project_id"`
	UserID    *string `json:"user_id"`
	Version   uint64  `json:"version"`
	UpdatedAt string  `json:"updated_at"`
}
