package service

import (
	"encoding/json"
	"log"
	"time"

	ws "backend/internal/websocket"

	"github.com/google/uuid"
)

// Notification is a workflow event addressed to a role or a single user.
type Notification struct {
	TargetRole   string     `json:"target_role,omitempty"`
	TargetUserID *uuid.UUID `json:"target_user_id,omitempty"`
	Event        string     `json:"event"`
	RequestID    uuid.UUID  `json:"request_id"`
	RequestTitle string     `json:"request_title"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

// NotificationService delivers workflow notifications. Delivery is
// fire-and-forget: failures are logged, never propagated, and never roll
// back the transition that produced them.
type NotificationService interface {
	Notify(n Notification)
}

type hubNotifier struct {
	hub *ws.Hub
}

// NewNotificationService returns a NotificationService that broadcasts over
// the websocket hub.
func NewNotificationService(hub *ws.Hub) NotificationService {
	return &hubNotifier{hub: hub}
}

func (s *hubNotifier) Notify(n Notification) {
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now()
	}

	payload, err := json.Marshal(n)
	if err != nil {
		log.Printf("notification marshal failed: %v", err)
		return
	}

	msg := ws.Message{TargetRole: n.TargetRole, Data: payload}
	if n.TargetUserID != nil {
		msg.TargetUserID = n.TargetUserID.String()
	}

	// Non-blocking: if no subscriber is draining the hub, drop rather than
	// stall the caller.
	select {
	case s.hub.Broadcast <- msg:
	default:
		log.Printf("notification dropped (no active subscribers): %s", n.Event)
	}
}
