package bus

import (
	"context"

	"github.com/yungbote/upwise-backend/internal/realtime"
)

// Bus carries SSE messages between API instances so a mutation served by one
// replica reaches a stream held open by another.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
