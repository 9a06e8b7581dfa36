package ports

import (
	"context"

	"github.com/layer-3/tutti/core"
)

// EventPublisher notifies other services about account changes
type EventPublisher interface {
	PublishSignedUp(ctx context.Context, id core.Identity) error
	PublishPasswordChanged(ctx context.Context, id core.Identity) error
}

// AuthRecorder counts guard decisions and flow outcomes
type AuthRecorder interface {
	RecordDecision(result core.AuthResult)
	RecordFlow(flow string, err error)
}
