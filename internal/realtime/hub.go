// Package realtime fans diagram-update events out to live viewers. It is
// deliberately single-process and in-memory: events are fire-and-forget,
// nothing is buffered for subscribers that are not connected at publish
// time.
package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// subscriberBuffer is the per-connection queue depth. Publishes never
// block: a subscriber that falls this far behind is dropped.
const subscriberBuffer = 8

// Hub maintains the per-diagram sets of subscriber channels. All mutation
// of the map goes through Subscribe/Unsubscribe/Publish under one mutex;
// the raw map is never exposed.
type Hub struct {
	mu        sync.Mutex
	listeners map[string]map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{listeners: make(map[string]map[chan []byte]struct{})}
}

// Subscribe registers a new delivery channel for a diagram and returns
// it. The entry for the diagram is created lazily on first subscribe.
func (h *Hub) Subscribe(diagramID string) chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.listeners[diagramID]
	if !ok {
		set = make(map[chan []byte]struct{})
		h.listeners[diagramID] = set
	}
	set[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a channel and closes it. When the last channel for
// a diagram goes away the diagram's entry is removed entirely, so an idle
// hub holds no residual empty sets.
func (h *Hub) Unsubscribe(diagramID string, ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.listeners[diagramID]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(h.listeners, diagramID)
	}
}

// Publish fans an update out to every open channel for the diagram. With
// zero subscribers it is a no-op; a viewer that connects later never sees
// this event. Sends are non-blocking; channels that cannot accept the
// event are collected during the pass and removed only after iteration
// completes.
func (h *Hub) Publish(diagramID string, ev UpdateEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("realtime: marshal update for %s failed: %v", diagramID, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.listeners[diagramID]
	if !ok {
		return
	}
	var stalled []chan []byte
	for ch := range set {
		select {
		case ch <- payload:
		default:
			stalled = append(stalled, ch)
		}
	}
	for _, ch := range stalled {
		delete(set, ch)
		close(ch)
		log.Printf("realtime: dropped slow subscriber for diagram %s", diagramID)
	}
	if len(set) == 0 {
		delete(h.listeners, diagramID)
	}
}

// Subscribers reports how many channels are currently open for a diagram.
func (h *Hub) Subscribers(diagramID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[diagramID])
}
