package client

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pesio-ai/be-approval-chains/internal/approval"
)

// NotificationEvent is the payload handed to the delivery channel.
type NotificationEvent struct {
	EventType    string                 `json:"event_type"`
	Recipient    string                 `json:"recipient"`
	RequestID    string                 `json:"request_id"`
	RequestType  string                 `json:"request_type"`
	Status       string                 `json:"status"`
	IsActionable bool                   `json:"is_actionable"`
	Chain        approval.ApprovalChain `json:"chain"`
}

// LogNotificationDispatcher records approval notifications in the structured
// log and keeps the last events in memory for inspection.
//
// Dispatch never fails the caller: notification problems must not interrupt
// approval operations.
type LogNotificationDispatcher struct {
	log zerolog.Logger

	mu     sync.Mutex
	events []NotificationEvent
	limit  int
}

// NewLogNotificationDispatcher keeps up to limit recent events (default 100).
func NewLogNotificationDispatcher(log zerolog.Logger, limit int) *LogNotificationDispatcher {
	if limit <= 0 {
		limit = 100
	}
	return &LogNotificationDispatcher{
		log:   log.With().Str("component", "notifications").Logger(),
		limit: limit,
	}
}

// Dispatch implements service.NotificationDispatcher.
func (d *LogNotificationDispatcher) Dispatch(ctx context.Context, recipient string, status approval.RequestStatus, req *approval.Request) {
	if recipient == "" || req == nil {
		return
	}
	event := NotificationEvent{
		EventType:    eventType(status),
		Recipient:    recipient,
		RequestID:    req.ID,
		RequestType:  string(req.Type),
		Status:       string(status),
		IsActionable: !status.IsTerminal(),
		Chain:        req.Chain.Clone(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		d.log.Warn().Err(err).Str("event_type", event.EventType).Msg("notification: failed to marshal event")
		return
	}

	d.mu.Lock()
	d.events = append(d.events, event)
	if len(d.events) > d.limit {
		d.events = d.events[len(d.events)-d.limit:]
	}
	d.mu.Unlock()

	d.log.Debug().
		Str("event_type", event.EventType).
		Str("recipient", recipient).
		Str("request_id", req.ID).
		RawJSON("event", data).
		Msg("notification: event dispatched")
}

// Events returns the retained events, oldest first.
func (d *LogNotificationDispatcher) Events() []NotificationEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]NotificationEvent(nil), d.events...)
}

func eventType(status approval.RequestStatus) string {
	switch status {
	case approval.StatusApproved:
		return "request_approved"
	case approval.StatusRejected:
		return "request_rejected"
	default:
		return "request_approval_required"
	}
}
