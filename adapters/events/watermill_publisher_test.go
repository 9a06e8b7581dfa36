package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/tutti/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIdentity = core.Identity{Subject: "7d0c3a9e-8c3f-4a55-9b8e-0f4f1f6b1c2d", Email: "a@b.com"}

func TestWatermillPublisher_Publish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(ctx, "accounts")
	require.NoError(t, err)

	pub := NewWatermillPublisher(pubSub, "accounts")

	tests := []struct {
		name     string
		publish  func() error
		expected string
	}{
		{"signed up", func() error { return pub.PublishSignedUp(ctx, testIdentity) }, TypeSignedUp},
		{"password changed", func() error { return pub.PublishPasswordChanged(ctx, testIdentity) }, TypePasswordChanged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.publish())

			select {
			case msg := <-messages:
				msg.Ack()

				var event AuthEvent
				require.NoError(t, json.Unmarshal(msg.Payload, &event))
				assert.Equal(t, tt.expected, event.Type)
				assert.Equal(t, testIdentity.Subject, event.Subject)
				assert.Equal(t, testIdentity.Email, event.Email)
				assert.Equal(t, tt.expected, msg.Metadata.Get("type"))
				assert.NotEmpty(t, msg.UUID)
			case <-ctx.Done():
				t.Fatal("event was not delivered")
			}
		})
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(string, ...*message.Message) error { return errors.New("broker down") }
func (failingPublisher) Close() error                               { return nil }

func TestWatermillPublisher_PublishFailure(t *testing.T) {
	pub := NewWatermillPublisher(failingPublisher{}, "")

	err := pub.PublishSignedUp(context.Background(), testIdentity)
	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, DefaultTopic, pub.(*WatermillPublisher).topic)
}
