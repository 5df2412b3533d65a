package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubOrderingAndReconnect(t *testing.T) {
	hub := NewSSEHub(logger.NewNop())
	userID := uuid.New()
	channel := UserChannel(userID)

	clientA := hub.NewSSEClient(userID)
	hub.AddChannel(clientA, channel)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventPurchaseUpdated, Data: map[string]any{"seq": 1}})
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventProgressUpdated, Data: map[string]any{"seq": 2}})

	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventPurchaseUpdated {
		t.Fatalf("first event: want=%s got=%s", SSEEventPurchaseUpdated, got.Event)
	}
	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventProgressUpdated {
		t.Fatalf("second event: want=%s got=%s", SSEEventProgressUpdated, got.Event)
	}

	hub.CloseClient(clientA)
	hub.CloseClient(clientA)
	if _, ok := <-clientA.Outbound; ok {
		t.Fatalf("clientA outbound should be closed after disconnect")
	}
	if n := hub.Subscribers(channel); n != 0 {
		t.Fatalf("subscribers after close: want=0 got=%d", n)
	}

	clientB := hub.NewSSEClient(userID)
	hub.AddChannel(clientB, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventQuizSubmitted})
	if got := recvMessage(t, clientB.Outbound, time.Second); got.Event != SSEEventQuizSubmitted {
		t.Fatalf("reconnect event: want=%s got=%s", SSEEventQuizSubmitted, got.Event)
	}
}

func TestSSEHubChannelsAreIsolated(t *testing.T) {
	hub := NewSSEHub(logger.NewNop())
	a := hub.NewSSEClient(uuid.New())
	b := hub.NewSSEClient(uuid.New())
	hub.AddChannel(a, UserChannel(a.UserID))
	hub.AddChannel(b, UserChannel(b.UserID))

	hub.Broadcast(SSEMessage{Channel: UserChannel(a.UserID), Event: SSEEventProgressUpdated})
	recvMessage(t, a.Outbound, time.Second)
	select {
	case msg := <-b.Outbound:
		t.Fatalf("client b received a foreign message: %+v", msg)
	default:
	}
}

func TestSSEHubDropsWhenBufferFull(t *testing.T) {
	hub := NewSSEHub(logger.NewNop())
	c := hub.NewSSEClient(uuid.New())
	hub.AddChannel(c, "ch")
	for i := 0; i < outboundBuffer+5; i++ {
		hub.Broadcast(SSEMessage{Channel: "ch", Event: SSEEventProgressUpdated})
	}
	if got := len(c.Outbound); got != outboundBuffer {
		t.Fatalf("buffered: want=%d got=%d", outboundBuffer, got)
	}
}

func TestSSEHubServeHTTPWritesEvents(t *testing.T) {
	hub := NewSSEHub(logger.NewNop())
	c := hub.NewSSEClient(uuid.New())
	hub.AddChannel(c, "ch")
	hub.Broadcast(SSEMessage{Channel: "ch", Event: SSEEventQuizSubmitted, Data: map[string]any{"passed": true}})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/me/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, req, c)

	body := rec.Body.String()
	if !strings.Contains(body, "event: quiz.submitted") {
		t.Fatalf("body missing event line: %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: want=text/event-stream got=%q", ct)
	}
}
