package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/upwise-backend/internal/data/repos/testutil"
	"github.com/yungbote/upwise-backend/internal/platform/apierr"
	"github.com/yungbote/upwise-backend/internal/platform/clock"
	"github.com/yungbote/upwise-backend/internal/platform/ctxutil"
)

func TestTokenRoundTrip(t *testing.T) {
	clk := clock.NewFake(testStart)
	auth := NewAuthService(testutil.Logger(t), "test-secret", clk)
	user := uuid.New()

	token, err := auth.IssueToken(user, time.Hour)
	require.NoError(t, err)

	ctx, err := auth.SetContextFromToken(t.Context(), token)
	require.NoError(t, err)
	assert.Equal(t, user, ctxutil.UserID(ctx))

	clk.Advance(2 * time.Hour)
	_, err = auth.SetContextFromToken(t.Context(), token)
	assert.Equal(t, apierr.CodeUnauthorized, apierr.CodeOf(err), "expired")
}

func TestTokenRejections(t *testing.T) {
	log := testutil.Logger(t)
	clk := clock.NewFake(testStart)
	other := NewAuthService(log, "other-secret", clk)
	token, err := other.IssueToken(uuid.New(), time.Hour)
	require.NoError(t, err)

	auth := NewAuthService(log, "test-secret", clk)
	for name, tok := range map[string]string{
		"wrong key": token,
		"empty":     "",
		"garbage":   "not.a.jwt",
	} {
		_, err := auth.SetContextFromToken(t.Context(), tok)
		assert.Equal(t, apierr.CodeUnauthorized, apierr.CodeOf(err), name)
	}

	_, err = NewAuthService(log, "", clk).IssueToken(uuid.New(), time.Hour)
	assert.Error(t, err)
}
