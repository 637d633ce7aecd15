package store

// SupportThread is one user's escalation channel to human staff. It is not
// part of the AI dialogue and has its own persistence.
type SupportThread struct {
	UID       string
	AgentID   *int32 // unset until an agent claims the thread
	Events    []SupportEvent
	CreatedTs int64
	ID        int32
	UserID    int32
	Resolved  bool
}

// SupportEvent is a single relayed support message. ReceiverID is unset when
// the message was broadcast to the agent pool before one agent claimed it.
type SupportEvent struct {
	ReceiverID *int32 `json:"receiver_id,omitempty"`
	Text       string `json:"text"`
	CreatedTs  int64  `json:"created_ts"`
	SenderID   int32  `json:"sender_id"`
}

type FindSupportThread struct {
	ID       *int32
	UID      *string
	UserID   *int32
	Resolved *bool
}

type UpdateSupportThread struct {
	Events   *[]SupportEvent
	AgentID  *int32
	Resolved *bool
	ID       int32
}
