package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeClaimCreated Type = "claim.created"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actor_id,omitempty"`
}

// ClaimCreated is the payload of TypeClaimCreated.
type ClaimCreated struct {
	ClaimID         string
	PackID          string
	PackTitle       string
	DiscordUserID   string
	DiscordUsername string
}

func New(t Type, actorID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		ActorID:   actorID,
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
