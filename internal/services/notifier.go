package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/realtime"
)

// LedgerNotifier tells a learner's open streams that their ledger changed.
type LedgerNotifier interface {
	ProgressUpdated(ctx context.Context, userID uuid.UUID, rec *types.ProgressRecord)
	PurchaseUpdated(ctx context.Context, userID uuid.UUID, p *types.Purchase, rec *types.ProgressRecord)
	QuizSubmitted(ctx context.Context, userID uuid.UUID, sub *types.QuizSubmission, rec *types.ProgressRecord)
}

type ledgerNotifier struct {
	emit SSEEmitter
}

// NewLedgerNotifier returns a notifier that drops everything when emit is nil.
func NewLedgerNotifier(emit SSEEmitter) LedgerNotifier {
	return &ledgerNotifier{emit: emit}
}

func (n *ledgerNotifier) send(ctx context.Context, userID uuid.UUID, event realtime.SSEEvent, data map[string]any) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(userID),
		Event:   event,
		Data:    data,
	})
}

func (n *ledgerNotifier) ProgressUpdated(ctx context.Context, userID uuid.UUID, rec *types.ProgressRecord) {
	n.send(ctx, userID, realtime.SSEEventProgressUpdated, map[string]any{"progress": rec})
}

func (n *ledgerNotifier) PurchaseUpdated(ctx context.Context, userID uuid.UUID, p *types.Purchase, rec *types.ProgressRecord) {
	n.send(ctx, userID, realtime.SSEEventPurchaseUpdated, map[string]any{"purchase": p, "progress": rec})
}

func (n *ledgerNotifier) QuizSubmitted(ctx context.Context, userID uuid.UUID, sub *types.QuizSubmission, rec *types.ProgressRecord) {
	n.send(ctx, userID, realtime.SSEEventQuizSubmitted, map[string]any{"submission": sub, "progress": rec})
}
