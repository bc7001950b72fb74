package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-go/internal/models"
	"social-go/internal/storage"
)

// stalledPublisher waits until its context ends, like a producer whose
// brokers never answer.
type stalledPublisher struct {
	calls chan error
}

func (p *stalledPublisher) Publish(ctx context.Context, _ SocialEvent) error {
	<-ctx.Done()
	p.calls <- ctx.Err()
	return ctx.Err()
}

func TestStalledBusDoesNotHoldRequests(t *testing.T) {
	prev := eventPublishTimeout
	eventPublishTimeout = 50 * time.Millisecond
	t.Cleanup(func() { eventPublishTimeout = prev })

	e := newEnv(t)
	alice, bob := e.user(t, "alice"), e.user(t, "bob")
	bus := &stalledPublisher{calls: make(chan error, 1)}
	friends := NewFriendRequestService(e.db, e.users, e.friendReqRepo, storage.NewGormFollowRepository(e.db), bus)

	start := time.Now()
	req, err := friends.SendFriendRequest(context.Background(), alice.ID, bob.ID, "")
	require.NoError(t, err, "publish failures never fail the request")
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, models.FriendRequestStatusPending, req.Status)
	assert.ErrorIs(t, <-bus.calls, context.DeadlineExceeded)
}

func TestPublishOutlivesCanceledRequest(t *testing.T) {
	var got context.Context
	p := publisherFunc(func(ctx context.Context, _ SocialEvent) error {
		got = ctx
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	publish(ctx, p, models.NotificationPostLiked, 1, 2, 3)

	require.NotNil(t, got)
	assert.NoError(t, got.Err())
	_, hasDeadline := got.Deadline()
	assert.True(t, hasDeadline)
}

type publisherFunc func(ctx context.Context, event SocialEvent) error

func (f publisherFunc) Publish(ctx context.Context, event SocialEvent) error {
	return f(ctx, event)
}
