package support

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averill/parlor/internal/profile"
	"github.com/averill/parlor/server/auth"
	"github.com/averill/parlor/server/realtime"
	"github.com/averill/parlor/store"
	"github.com/averill/parlor/store/db/sqlite"
)

type emittedEvent struct {
	Room    realtime.Room
	Event   string
	Payload any
}

type recordingEmitter struct {
	events []emittedEvent
}

func (r *recordingEmitter) Emit(room realtime.Room, event string, payload any) {
	r.events = append(r.events, emittedEvent{Room: room, Event: event, Payload: payload})
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "parlor_test.db"),
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	require.NoError(t, driver.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = driver.Close()
	})
	return store.New(driver)
}

func newTestService(t *testing.T) (*Service, *store.Store, *recordingEmitter) {
	t.Helper()
	ts := newTestStore(t)
	emitter := &recordingEmitter{}
	return NewService(ts, emitter, nil), ts, emitter
}

func TestUserToAgentBroadcastsAndPersists(t *testing.T) {
	ctx := context.Background()
	service, ts, emitter := newTestService(t)

	service.UserToAgent(ctx, 10, "please help")

	require.Len(t, emitter.events, 1)
	assert.Equal(t, realtime.AgentPool, emitter.events[0].Room)
	assert.Equal(t, realtime.EventSupportRequest, emitter.events[0].Event)
	assert.Equal(t, RelayPayload{From: 10, Text: "please help"}, emitter.events[0].Payload)

	thread, err := ts.GetSupportThreadByUser(ctx, 10)
	require.NoError(t, err)
	require.Len(t, thread.Events, 1)
	assert.Equal(t, int32(10), thread.Events[0].SenderID)
	assert.Equal(t, "please help", thread.Events[0].Text)
}

func TestAgentToUserWithoutThreadRelaysOnly(t *testing.T) {
	ctx := context.Background()
	service, ts, emitter := newTestService(t)

	service.AgentToUser(ctx, 200, 10, "how can I help?")

	require.Len(t, emitter.events, 1)
	assert.Equal(t, realtime.UserInbox(10), emitter.events[0].Room)
	assert.Equal(t, realtime.EventAgentReply, emitter.events[0].Event)

	// The reply is live-only: no thread exists and none is created.
	_, err := ts.GetSupportThreadByUser(ctx, 10)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAgentToUserWithThreadPersists(t *testing.T) {
	ctx := context.Background()
	service, ts, _ := newTestService(t)

	service.UserToAgent(ctx, 10, "please help")
	service.AgentToUser(ctx, 200, 10, "on it")

	thread, err := ts.GetSupportThreadByUser(ctx, 10)
	require.NoError(t, err)
	require.Len(t, thread.Events, 2)
	assert.Equal(t, int32(200), thread.Events[1].SenderID)
	require.NotNil(t, thread.Events[1].ReceiverID)
	assert.Equal(t, int32(10), *thread.Events[1].ReceiverID)
}

func TestAgentToAdminIsEphemeral(t *testing.T) {
	ctx := context.Background()
	service, ts, emitter := newTestService(t)

	service.AgentToAdmin(ctx, 200, "user 10 is asking about refunds")

	require.Len(t, emitter.events, 1)
	assert.Equal(t, realtime.AdminPool, emitter.events[0].Room)
	assert.Equal(t, realtime.EventAdminSupportRequest, emitter.events[0].Event)

	threads, err := ts.ListSupportThreads(ctx, &store.FindSupportThread{})
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestAdminToAgentTargetsAgentInbox(t *testing.T) {
	ctx := context.Background()
	service, _, emitter := newTestService(t)

	service.AdminToAgent(ctx, 300, 200, "approve the refund")

	require.Len(t, emitter.events, 1)
	assert.Equal(t, realtime.UserInbox(200), emitter.events[0].Room)
	assert.Equal(t, realtime.EventAdminReply, emitter.events[0].Event)
}

func TestAdminToUserMirrorsToAdminPool(t *testing.T) {
	ctx := context.Background()
	service, _, emitter := newTestService(t)

	service.AdminToUser(ctx, 300, 10, "we are looking into it")

	require.Len(t, emitter.events, 2)
	assert.Equal(t, realtime.UserInbox(10), emitter.events[0].Room)
	assert.Equal(t, realtime.EventAdminNewMessage, emitter.events[0].Event)
	assert.Equal(t, realtime.AdminPool, emitter.events[1].Room)
	assert.Equal(t, realtime.EventAdminNewMessage, emitter.events[1].Event)
}

func TestDispatchEnforcesRoles(t *testing.T) {
	ctx := context.Background()

	user := auth.Identity{UserID: 10, Role: auth.RoleUser}
	agent := auth.Identity{UserID: 200, Role: auth.RoleAgent}
	admin := auth.Identity{UserID: 300, Role: auth.RoleAdmin}

	tests := []struct {
		name    string
		sender  auth.Identity
		event   realtime.InboundEvent
		emitted int
	}{
		{"user may request support", user, realtime.InboundEvent{Event: realtime.InboundUserToAgent, Text: "help"}, 1},
		{"agent may not request support", agent, realtime.InboundEvent{Event: realtime.InboundUserToAgent, Text: "help"}, 0},
		{"agent may reply to user", agent, realtime.InboundEvent{Event: realtime.InboundAgentToUser, UserID: 10, Text: "hi"}, 1},
		{"user may not impersonate agent", user, realtime.InboundEvent{Event: realtime.InboundAgentToUser, UserID: 11, Text: "hi"}, 0},
		{"agent may escalate to admin", agent, realtime.InboundEvent{Event: realtime.InboundAgentToAdmin, Text: "q"}, 1},
		{"admin may reply to agent", admin, realtime.InboundEvent{Event: realtime.InboundAdminToAgent, AgentID: 200, Text: "a"}, 1},
		{"agent may not use admin relay", agent, realtime.InboundEvent{Event: realtime.InboundAdminToUser, UserID: 10, Text: "x"}, 0},
		{"admin may message user", admin, realtime.InboundEvent{Event: realtime.InboundAdminToUser, UserID: 10, Text: "x"}, 2},
		{"unknown event is dropped", user, realtime.InboundEvent{Event: "bogus"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _, emitter := newTestService(t)
			service.Dispatch(ctx, tt.sender, tt.event)
			assert.Len(t, emitter.events, tt.emitted)
		})
	}
}

func TestDispatchSenderComesFromSession(t *testing.T) {
	ctx := context.Background()
	service, _, emitter := newTestService(t)

	// The inbound payload cannot spoof the sender id.
	service.Dispatch(ctx, auth.Identity{UserID: 10, Role: auth.RoleUser}, realtime.InboundEvent{
		Event:  realtime.InboundUserToAgent,
		UserID: 999,
		Text:   "help",
	})

	require.Len(t, emitter.events, 1)
	payload, ok := emitter.events[0].Payload.(RelayPayload)
	require.True(t, ok)
	assert.Equal(t, int32(10), payload.From)
}

func TestResolveAndClaim(t *testing.T) {
	ctx := context.Background()
	service, ts, _ := newTestService(t)

	service.UserToAgent(ctx, 10, "help")
	thread, err := ts.GetSupportThreadByUser(ctx, 10)
	require.NoError(t, err)

	require.NoError(t, service.Claim(ctx, thread.UID, 200))
	require.NoError(t, service.Resolve(ctx, thread.UID))

	fetched, err := service.Thread(ctx, thread.UID)
	require.NoError(t, err)
	require.NotNil(t, fetched.AgentID)
	assert.Equal(t, int32(200), *fetched.AgentID)
	assert.True(t, fetched.Resolved)

	_, err = service.Thread(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}
