package farcaster

import (
	"encoding/json"
	"fmt"

	"github.com/velvetdaemon/daemon-bot/internal/models"
)

// EventCastCreated is the only webhook event type the bot handles
const EventCastCreated = "cast.created"

type webhookEnvelope struct {
	Type      string  `json:"type"`
	ID        string  `json:"id"`
	CreatedAt int64   `json:"created_at"`
	Data      apiCast `json:"data"`
}

// ParseWebhookEvent decodes the raw webhook body into an InboundEvent
func ParseWebhookEvent(raw []byte) (*models.InboundEvent, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("error decoding webhook event: %w", err)
	}
	if envelope.Type == "" {
		return nil, fmt.Errorf("webhook event has no type")
	}

	return &models.InboundEvent{
		Type:      envelope.Type,
		ID:        envelope.ID,
		CreatedAt: envelope.CreatedAt,
		Cast:      envelope.Data.toCast(),
	}, nil
}
