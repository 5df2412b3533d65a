package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/yungbote/upwise-backend/internal/platform/ctxutil"
)

const limiterIdleTTL = 10 * time.Minute

type userLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// HeartbeatLimiter is a per-user token bucket. Over-limit heartbeats are
// answered 202 and dropped so clients keep their retry-free cadence.
type HeartbeatLimiter struct {
	mu       sync.Mutex
	limiters map[uuid.UUID]*userLimiter
	every    rate.Limit
	burst    int
	now      func() time.Time
	lastGC   time.Time
}

// NewHeartbeatLimiter allows perMinute reports per user with a burst of the
// same size. perMinute <= 0 disables limiting.
func NewHeartbeatLimiter(perMinute int) *HeartbeatLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &HeartbeatLimiter{
		limiters: map[uuid.UUID]*userLimiter{},
		every:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		now:      time.Now,
	}
}

func (l *HeartbeatLimiter) allow(userID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastGC) > limiterIdleTTL {
		for id, ul := range l.limiters {
			if now.Sub(ul.lastSeen) > limiterIdleTTL {
				delete(l.limiters, id)
			}
		}
		l.lastGC = now
	}
	ul, ok := l.limiters[userID]
	if !ok {
		ul = &userLimiter{lim: rate.NewLimiter(l.every, l.burst)}
		l.limiters[userID] = ul
	}
	ul.lastSeen = now
	return ul.lim.AllowN(now, 1)
}

func (l *HeartbeatLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		userID := ctxutil.UserID(c.Request.Context())
		if userID == uuid.Nil || l.allow(userID) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusAccepted, gin.H{"accepted": true, "dropped": true})
	}
}
