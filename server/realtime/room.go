package realtime

import "strconv"

// Room is a named, ephemeral fan-out group of live sessions. The set of
// rooms is a closed enumeration: per-identity inboxes plus the two role
// pools.
type Room struct {
	name string
}

var (
	// AdminPool receives admin-facing broadcasts.
	AdminPool = Room{name: "admins"}
	// AgentPool receives support requests awaiting an agent.
	AgentPool = Room{name: "agents"}
)

// UserInbox is the individual room every session joins under its own
// identity. Staff identities get an inbox too: admin→agent replies are
// delivered to the agent's inbox.
func UserInbox(userID int32) Room {
	return Room{name: strconv.FormatInt(int64(userID), 10)}
}

func (r Room) String() string {
	return r.name
}

// Outbound event names.
const (
	EventNewMessage          = "new_message"
	EventAdminNewMessage     = "admin_new_message"
	EventSupportRequest      = "support_request"
	EventAgentReply          = "agent_reply"
	EventAdminReply          = "admin_reply"
	EventAdminSupportRequest = "admin_support_request"
)

// Inbound event names (support escalation relay).
const (
	InboundUserToAgent  = "user_to_agent"
	InboundAgentToUser  = "agent_to_user"
	InboundAgentToAdmin = "agent_to_admin"
	InboundAdminToAgent = "admin_to_agent"
	InboundAdminToUser  = "admin_to_user"
)
