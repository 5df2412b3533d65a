package realtime

import "github.com/google/uuid"

type SSEEvent string

const (
	SSEEventProgressUpdated SSEEvent = "progress.updated"
	SSEEventPurchaseUpdated SSEEvent = "purchase.updated"
	SSEEventQuizSubmitted   SSEEvent = "quiz.submitted"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// UserChannel is the channel every learner's stream subscribes to.
func UserChannel(userID uuid.UUID) string {
	return userID.String()
}
