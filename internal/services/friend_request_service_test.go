package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-go/internal/models"
)

func TestSendAcceptAndDuplicate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")

	req, err := e.friends.SendFriendRequest(ctx, alice.ID, bob.ID, "  hi bob ")
	require.NoError(t, err)
	assert.Equal(t, models.FriendRequestStatusPending, req.Status)
	assert.Equal(t, "hi bob", req.Message)

	accepted, err := e.friends.AcceptFriendRequest(ctx, bob.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FriendRequestStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.RespondedAt)

	bobProfile, err := e.userSvc.GetUserProfile(ctx, bob.ID)
	require.NoError(t, err)
	aliceProfile, err := e.userSvc.GetUserProfile(ctx, alice.ID)
	require.NoError(t, err)
	assert.Contains(t, bobProfile.Followers, alice.ID)
	assert.Contains(t, aliceProfile.Following, bob.ID)
	assert.Equal(t, 1, bobProfile.FollowerCount)

	_, err = e.friends.SendFriendRequest(ctx, alice.ID, bob.ID, "")
	assert.ErrorIs(t, err, ErrDuplicatePending)
	assert.Equal(t, KindConflict, KindOf(err))
	_, err = e.friends.SendFriendRequest(ctx, bob.ID, alice.ID, "")
	assert.ErrorIs(t, err, ErrDuplicatePending, "the pair is unordered")

	assert.Equal(t, []models.NotificationType{models.NotificationFriendRequest, models.NotificationFriendAccepted}, e.events.types())
}

func TestSendRejectsSelfAndUnknownReceiver(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")

	_, err := e.friends.SendFriendRequest(ctx, alice.ID, alice.ID, "")
	assert.ErrorIs(t, err, ErrFriendRequestSelf)
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = e.friends.SendFriendRequest(ctx, alice.ID, 9999, "")
	assert.ErrorIs(t, err, ErrReceiverNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestRespondOnResolvedRequestDoesNotMutate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")

	req, err := e.friends.SendFriendRequest(ctx, alice.ID, bob.ID, "")
	require.NoError(t, err)
	_, err = e.friends.AcceptFriendRequest(ctx, bob.ID, req.ID)
	require.NoError(t, err)

	_, err = e.friends.RejectFriendRequest(ctx, bob.ID, req.ID)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	_, err = e.friends.AcceptFriendRequest(ctx, bob.ID, req.ID)
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	stored, err := e.friendReqRepo.GetRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FriendRequestStatusAccepted, stored.Status)

	other := e.user(t, "carol")
	rejected, err := e.friends.SendFriendRequest(ctx, other.ID, bob.ID, "")
	require.NoError(t, err)
	_, err = e.friends.RejectFriendRequest(ctx, bob.ID, rejected.ID)
	require.NoError(t, err)
	_, err = e.friends.AcceptFriendRequest(ctx, bob.ID, rejected.ID)
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	profile, err := e.userSvc.GetUserProfile(ctx, bob.ID)
	require.NoError(t, err)
	assert.NotContains(t, profile.Followers, other.ID)
}

func TestRespondChecksReceiverAndExistence(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob, carol := e.user(t, "alice"), e.user(t, "bob"), e.user(t, "carol")

	req, err := e.friends.SendFriendRequest(ctx, alice.ID, bob.ID, "")
	require.NoError(t, err)

	_, err = e.friends.AcceptFriendRequest(ctx, carol.ID, req.ID)
	assert.ErrorIs(t, err, ErrNotReceiver)
	assert.Equal(t, KindForbidden, KindOf(err))
	_, err = e.friends.AcceptFriendRequest(ctx, alice.ID, req.ID)
	assert.ErrorIs(t, err, ErrNotReceiver, "the sender cannot accept their own request")

	_, err = e.friends.AcceptFriendRequest(ctx, bob.ID, 424242)
	assert.ErrorIs(t, err, ErrFriendRequestNotFound)
}

func TestCancelFreesThePair(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")

	req, err := e.friends.SendFriendRequest(ctx, alice.ID, bob.ID, "")
	require.NoError(t, err)

	assert.ErrorIs(t, e.friends.CancelFriendRequest(ctx, bob.ID, req.ID), ErrNotSender)
	require.NoError(t, e.friends.CancelFriendRequest(ctx, alice.ID, req.ID))
	assert.ErrorIs(t, e.friends.CancelFriendRequest(ctx, alice.ID, req.ID), ErrAlreadyResolved)

	_, err = e.friends.SendFriendRequest(ctx, bob.ID, alice.ID, "")
	assert.NoError(t, err)
}

func TestUnfriendRemovesBothDirections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")

	assert.ErrorIs(t, e.friends.Unfriend(ctx, alice.ID, bob.ID), ErrNotFriends)

	req, err := e.friends.SendFriendRequest(ctx, alice.ID, bob.ID, "")
	require.NoError(t, err)
	assert.ErrorIs(t, e.friends.Unfriend(ctx, alice.ID, bob.ID), ErrNotFriends, "pending is not a friendship")
	_, err = e.friends.AcceptFriendRequest(ctx, bob.ID, req.ID)
	require.NoError(t, err)

	friends, err := e.friends.GetFriendsList(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "alice", friends[0].Username)

	require.NoError(t, e.friends.Unfriend(ctx, bob.ID, alice.ID))

	friends, err = e.friends.GetFriendsList(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, friends)
	profile, err := e.userSvc.GetUserProfile(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, profile.Following)

	_, err = e.friends.SendFriendRequest(ctx, alice.ID, bob.ID, "")
	assert.NoError(t, err, "the pair is free again")
}

func TestListPendingAndSent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob, carol := e.user(t, "alice"), e.user(t, "bob"), e.user(t, "carol")

	first, err := e.friends.SendFriendRequest(ctx, alice.ID, bob.ID, "")
	require.NoError(t, err)
	second, err := e.friends.SendFriendRequest(ctx, carol.ID, bob.ID, "")
	require.NoError(t, err)

	pending, err := e.friends.ListPendingRequests(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, second.ID, pending[0].ID, "newest first")
	assert.Equal(t, first.ID, pending[1].ID)
	require.NotNil(t, pending[0].User)
	assert.Equal(t, "carol", pending[0].User.Username)

	sent, err := e.friends.ListSentRequests(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "bob", sent[0].User.Username)

	none, err := e.friends.ListPendingRequests(ctx, alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestSeedFriendshipSkipsOccupiedPairs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")

	created, err := e.friends.SeedFriendship(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = e.friends.SeedFriendship(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, created)

	profile, err := e.userSvc.GetUserProfile(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice.ID}, profile.Followers)
	assert.Empty(t, e.events.types(), "seeding publishes nothing")
}
