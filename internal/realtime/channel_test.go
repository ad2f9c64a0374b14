package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchchat/internal/app/apptest"
	"github.com/oggyb/matchchat/internal/db"
	"github.com/oggyb/matchchat/internal/db/dbtest"
	svcErr "github.com/oggyb/matchchat/internal/errors"
	"github.com/oggyb/matchchat/internal/logger"
	"github.com/oggyb/matchchat/internal/service/chat"
	"github.com/oggyb/matchchat/internal/service/match"
)

type channelEnv struct {
	env     *apptest.Env
	channel *Channel
	match   db.Match
}

// setupChannel seeds users 1..3 with a match between 1 and 2 and wires a
// Channel over a LocalBroker.
func setupChannel(t *testing.T) channelEnv {
	t.Helper()

	env := apptest.New(t)
	dbtest.SeedUsers(t, env.App.DB, 3)
	m := dbtest.CreateMatch(t, env.App.DB, 1, 2)

	hub := NewHub(logger.Discard())
	ch := NewChannel(hub, NewLocalBroker(hub), chat.NewService(env.App), env.App.Tokens, logger.Discard())
	return channelEnv{env: env, channel: ch, match: m}
}

func lastError(t *testing.T, c *fakeConn) ErrorPayload {
	t.Helper()
	errs := c.Named(EventError)
	require.NotEmpty(t, errs)
	p, ok := errs[len(errs)-1].(ErrorPayload)
	require.True(t, ok)
	return p
}

func TestAuthenticate(t *testing.T) {
	ce := setupChannel(t)

	_, err := ce.channel.Authenticate("")
	assert.ErrorIs(t, err, svcErr.ErrUnauthenticated)
	_, err = ce.channel.Authenticate("garbage")
	assert.ErrorIs(t, err, svcErr.ErrUnauthenticated)

	token, err := ce.env.App.Tokens.Issue(2)
	require.NoError(t, err)
	userID, err := ce.channel.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), userID)
}

// TestRoomFlow: users 1 and 2 join their match room, user 3 is refused,
// user 1 says "hi" and only room members receive it.
func TestRoomFlow(t *testing.T) {
	ctx := context.Background()
	ce := setupChannel(t)
	c1, c2, c3 := newFakeConn(1), newFakeConn(2), newFakeConn(3)

	require.NoError(t, ce.channel.Join(ctx, c1, ce.match.ID))
	require.NoError(t, ce.channel.Join(ctx, c2, ce.match.ID))
	assert.Len(t, c1.Named(EventJoined), 1)

	err := ce.channel.Join(ctx, c3, ce.match.ID)
	assert.ErrorIs(t, err, svcErr.ErrForbidden)
	assert.False(t, ce.channel.Hub().IsMember(ce.match.ID, c3))
	e := lastError(t, c3)
	assert.Equal(t, "forbidden", e.Code)
	assert.Equal(t, EventJoinRoom, e.Event)
	assert.Equal(t, ce.match.ID, e.MatchID)

	err = ce.channel.Join(ctx, c1, 999)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
	assert.Equal(t, "not_found", lastError(t, c1).Code)

	require.NoError(t, ce.channel.SendMessage(ctx, c1, ce.match.ID, "hi"))

	for _, c := range []*fakeConn{c1, c2} {
		got := c.Named(EventReceiveMessage)
		require.Len(t, got, 1)
		msg := got[0].(MessagePayload)
		assert.Equal(t, "hi", msg.Content)
		assert.Equal(t, uint64(1), msg.SenderID)
		assert.Equal(t, ce.match.ID, msg.MatchID)
	}
	assert.Empty(t, c3.Named(EventReceiveMessage))

	// the message was persisted before delivery
	var stored db.Message
	require.NoError(t, ce.env.App.DB.First(&stored, "match_id = ?", ce.match.ID).Error)
	assert.Equal(t, "hi", stored.Content)
}

func TestSendMessageByOutsiderIsScoped(t *testing.T) {
	ctx := context.Background()
	ce := setupChannel(t)
	c1, c3 := newFakeConn(1), newFakeConn(3)
	require.NoError(t, ce.channel.Join(ctx, c1, ce.match.ID))

	err := ce.channel.SendMessage(ctx, c3, ce.match.ID, "let me in")
	assert.ErrorIs(t, err, svcErr.ErrForbidden)
	assert.Equal(t, EventSendMessage, lastError(t, c3).Event)

	err = ce.channel.SendMessage(ctx, c1, ce.match.ID, "   ")
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	assert.Empty(t, c1.Named(EventReceiveMessage))
	assert.Empty(t, c3.Named(EventReceiveMessage))
}

func TestRelayRevalidatesMembership(t *testing.T) {
	ctx := context.Background()
	ce := setupChannel(t)
	c2 := newFakeConn(2)
	require.NoError(t, ce.channel.Join(ctx, c2, ce.match.ID))

	msg, err := chat.NewService(ce.env.App).Send(ctx, 1, ce.match.ID, "before unmatch")
	require.NoError(t, err)

	forged := *msg
	forged.SenderID = 3
	assert.ErrorIs(t, ce.channel.Relay(ctx, 3, ce.match.ID, &forged), svcErr.ErrForbidden)

	assert.ErrorIs(t, ce.channel.Relay(ctx, 1, ce.match.ID+1, msg), svcErr.ErrInvalidArgument)

	require.NoError(t, match.NewService(ce.env.App).Unmatch(ctx, ce.match.ID, 2))
	assert.ErrorIs(t, ce.channel.Relay(ctx, 1, ce.match.ID, msg), svcErr.ErrNotFound)
	assert.Empty(t, c2.Named(EventReceiveMessage))
}

func TestNoBacklogForLateJoiners(t *testing.T) {
	ctx := context.Background()
	ce := setupChannel(t)
	c1, c2 := newFakeConn(1), newFakeConn(2)

	require.NoError(t, ce.channel.Join(ctx, c1, ce.match.ID))
	require.NoError(t, ce.channel.SendMessage(ctx, c1, ce.match.ID, "early"))

	require.NoError(t, ce.channel.Join(ctx, c2, ce.match.ID))
	assert.Empty(t, c2.Named(EventReceiveMessage))

	require.NoError(t, ce.channel.SendMessage(ctx, c2, ce.match.ID, "late"))
	assert.Len(t, c1.Named(EventReceiveMessage), 2)
	assert.Len(t, c2.Named(EventReceiveMessage), 1)
}

func TestLeaveDisconnectAndCloseRoom(t *testing.T) {
	ctx := context.Background()
	ce := setupChannel(t)
	c1, c2 := newFakeConn(1), newFakeConn(2)
	require.NoError(t, ce.channel.Join(ctx, c1, ce.match.ID))
	require.NoError(t, ce.channel.Join(ctx, c2, ce.match.ID))

	ce.channel.Leave(c1, ce.match.ID)
	assert.Len(t, c1.Named(EventLeft), 1)
	ce.channel.Leave(c1, ce.match.ID)
	assert.Len(t, c1.Named(EventLeft), 1)

	require.NoError(t, ce.channel.Join(ctx, c1, ce.match.ID))
	ce.channel.Disconnect(c1)
	assert.False(t, ce.channel.Hub().IsMember(ce.match.ID, c1))

	require.NoError(t, ce.channel.CloseRoom(ctx, ce.match.ID))
	assert.Len(t, c2.Named(EventMatchRemoved), 1)
	assert.Empty(t, c1.Named(EventMatchRemoved))
	assert.Empty(t, ce.channel.Hub().Members(ce.match.ID))
}
