package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/tutti/core"
	"github.com/layer-3/tutti/ports"
)

// DefaultTopic is used when no topic is configured
const DefaultTopic = "tutti.auth"

const (
	TypeSignedUp        = "user.signed_up"
	TypePasswordChanged = "user.password_changed"
)

// AuthEvent is the payload of every account event
type AuthEvent struct {
	Type    string `json:"type"`
	Subject string `json:"subject"`
	Email   string `json:"email"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher for topic
func NewWatermillPublisher(publisher message.Publisher, topic string) ports.EventPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillPublisher{
		publisher: publisher,
		topic:     topic,
	}
}

// PublishSignedUp announces a new account
func (p *WatermillPublisher) PublishSignedUp(ctx context.Context, id core.Identity) error {
	return p.publish(ctx, TypeSignedUp, id)
}

// PublishPasswordChanged announces a credential change
func (p *WatermillPublisher) PublishPasswordChanged(ctx context.Context, id core.Identity) error {
	return p.publish(ctx, TypePasswordChanged, id)
}

func (p *WatermillPublisher) publish(ctx context.Context, eventType string, id core.Identity) error {
	payload, err := json.Marshal(AuthEvent{
		Type:    eventType,
		Subject: id.Subject,
		Email:   id.Email,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", eventType)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
