package realtime

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averill/parlor/server/auth"
)

func newTestSession(h *Hub, userID int32, role auth.Role) *Session {
	return &Session{
		hub:      h,
		send:     make(chan []byte, sendBufferSize),
		identity: auth.Identity{UserID: userID, Role: role},
	}
}

func receivedFrame(t *testing.T, s *Session) Frame {
	t.Helper()
	select {
	case data := <-s.send:
		var frame Frame
		require.NoError(t, json.Unmarshal(data, &frame))
		return frame
	default:
		t.Fatal("expected a frame, send buffer is empty")
		return Frame{}
	}
}

func TestJoinRoomsByRole(t *testing.T) {
	h := NewHub(nil)

	user := newTestSession(h, 1, auth.RoleUser)
	agent := newTestSession(h, 2, auth.RoleAgent)
	admin := newTestSession(h, 3, auth.RoleAdmin)
	h.Join(user)
	h.Join(agent)
	h.Join(admin)

	assert.Equal(t, []Room{UserInbox(1)}, h.members[user])
	assert.Equal(t, []Room{UserInbox(2), AgentPool}, h.members[agent])
	assert.Equal(t, []Room{UserInbox(3), AdminPool}, h.members[admin])

	// Joining twice must not duplicate membership.
	h.Join(user)
	assert.Len(t, h.rooms[UserInbox(1)], 1)
}

func TestEmitReachesOnlyRoomMembers(t *testing.T) {
	h := NewHub(nil)

	user := newTestSession(h, 1, auth.RoleUser)
	otherUser := newTestSession(h, 2, auth.RoleUser)
	agent := newTestSession(h, 3, auth.RoleAgent)
	admin := newTestSession(h, 4, auth.RoleAdmin)
	for _, s := range []*Session{user, otherUser, agent, admin} {
		h.Join(s)
	}

	h.Emit(UserInbox(1), EventNewMessage, map[string]string{"text": "hi"})

	frame := receivedFrame(t, user)
	assert.Equal(t, EventNewMessage, frame.Event)
	assert.Empty(t, otherUser.send)
	assert.Empty(t, agent.send)
	assert.Empty(t, admin.send)

	h.Emit(AgentPool, EventSupportRequest, map[string]string{"text": "help"})
	frame = receivedFrame(t, agent)
	assert.Equal(t, EventSupportRequest, frame.Event)
	assert.Empty(t, user.send)
	assert.Empty(t, admin.send)
}

func TestEmitToEmptyRoomIsNoop(t *testing.T) {
	h := NewHub(nil)
	h.Emit(AdminPool, EventAdminNewMessage, nil)
}

func TestLeaveRemovesAllMemberships(t *testing.T) {
	h := NewHub(nil)

	agent := newTestSession(h, 5, auth.RoleAgent)
	h.Join(agent)
	require.Len(t, h.rooms[AgentPool], 1)

	h.Leave(agent)
	assert.Empty(t, h.rooms)
	assert.Empty(t, h.members)

	// Leave is idempotent.
	h.Leave(agent)

	h.Emit(AgentPool, EventSupportRequest, nil)
	assert.Empty(t, agent.send)
}

func TestEmitDropsFrameForSlowSession(t *testing.T) {
	h := NewHub(nil)

	user := newTestSession(h, 6, auth.RoleUser)
	user.send = make(chan []byte, 1)
	h.Join(user)

	h.Emit(UserInbox(6), EventNewMessage, "first")
	h.Emit(UserInbox(6), EventNewMessage, "dropped")

	require.Len(t, user.send, 1)
	frame := receivedFrame(t, user)
	assert.Equal(t, "first", frame.Payload)
}

func TestConcurrentJoinEmitLeave(t *testing.T) {
	h := NewHub(nil)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := newTestSession(h, int32(i), auth.RoleAgent)
			h.Join(s)
			h.Emit(AgentPool, EventSupportRequest, i)
			h.Leave(s)
		}()
	}
	wg.Wait()

	assert.Empty(t, h.members)
}
