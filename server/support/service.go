// Package support relays live human-support messages between users, agents,
// and admins. The relay is the product: persistence here is best-effort, so
// a storage failure is logged and never surfaced to the emitting session.
package support

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/averill/parlor/internal/metrics"
	"github.com/averill/parlor/server/auth"
	"github.com/averill/parlor/server/realtime"
	"github.com/averill/parlor/store"
)

type Service struct {
	store   *store.Store
	emitter realtime.Emitter
	metrics *metrics.Metrics
}

func NewService(st *store.Store, emitter realtime.Emitter, m *metrics.Metrics) *Service {
	return &Service{store: st, emitter: emitter, metrics: m}
}

// RelayPayload is the outbound shape for all support relay events.
type RelayPayload struct {
	From int32  `json:"from"`
	To   int32  `json:"to,omitempty"`
	Text string `json:"text"`
}

// UserToAgent broadcasts a help request to the agent pool and records it on
// the user's support thread, creating the thread on first contact.
func (s *Service) UserToAgent(ctx context.Context, userID int32, text string) {
	s.emitter.Emit(realtime.AgentPool, realtime.EventSupportRequest, RelayPayload{From: userID, Text: text})
	s.metrics.SupportEvent(realtime.InboundUserToAgent)

	event := store.SupportEvent{SenderID: userID, Text: text, CreatedTs: time.Now().Unix()}
	if _, err := s.store.AppendSupportEvent(ctx, userID, event, true); err != nil {
		slog.Error("failed to persist support request", "user_id", userID, "error", err)
	}
}

// AgentToUser relays an agent reply to the user's inbox. Persistence is
// conditional on the thread existing: a support conversation is defined as
// user-initiated, so a reply without a thread is relayed live only.
func (s *Service) AgentToUser(ctx context.Context, agentID, userID int32, text string) {
	s.emitter.Emit(realtime.UserInbox(userID), realtime.EventAgentReply, RelayPayload{From: agentID, To: userID, Text: text})
	s.metrics.SupportEvent(realtime.InboundAgentToUser)

	s.appendIfThreadExists(ctx, userID, store.SupportEvent{
		SenderID:   agentID,
		ReceiverID: &userID,
		Text:       text,
		CreatedTs:  time.Now().Unix(),
	})
}

// AgentToAdmin broadcasts an agent's question to the admin pool. Purely
// ephemeral routing, nothing is persisted.
func (s *Service) AgentToAdmin(_ context.Context, agentID int32, text string) {
	s.emitter.Emit(realtime.AdminPool, realtime.EventAdminSupportRequest, RelayPayload{From: agentID, Text: text})
	s.metrics.SupportEvent(realtime.InboundAgentToAdmin)
}

// AdminToAgent relays an admin answer to one agent's inbox. Not persisted.
func (s *Service) AdminToAgent(_ context.Context, adminID, agentID int32, text string) {
	s.emitter.Emit(realtime.UserInbox(agentID), realtime.EventAdminReply, RelayPayload{From: adminID, To: agentID, Text: text})
	s.metrics.SupportEvent(realtime.InboundAdminToAgent)
}

// AdminToUser relays an admin message to the user's inbox and mirrors it to
// the admin pool so other admins see the intervention.
func (s *Service) AdminToUser(ctx context.Context, adminID, userID int32, text string) {
	payload := RelayPayload{From: adminID, To: userID, Text: text}
	s.emitter.Emit(realtime.UserInbox(userID), realtime.EventAdminNewMessage, payload)
	s.emitter.Emit(realtime.AdminPool, realtime.EventAdminNewMessage, payload)
	s.metrics.SupportEvent(realtime.InboundAdminToUser)

	s.appendIfThreadExists(ctx, userID, store.SupportEvent{
		SenderID:   adminID,
		ReceiverID: &userID,
		Text:       text,
		CreatedTs:  time.Now().Unix(),
	})
}

func (s *Service) appendIfThreadExists(ctx context.Context, userID int32, event store.SupportEvent) {
	_, err := s.store.AppendSupportEvent(ctx, userID, event, false)
	switch {
	case errors.Is(err, store.ErrNotFound):
		slog.Warn("staff reply dropped from persistence: no support thread", "user_id", userID, "sender_id", event.SenderID)
	case err != nil:
		slog.Error("failed to persist support reply", "user_id", userID, "error", err)
	}
}

// Dispatch routes an inbound socket event to the matching relay operation,
// enforcing that the sender's role may perform it. The sender identity comes
// from the authenticated session.
func (s *Service) Dispatch(ctx context.Context, sender auth.Identity, event realtime.InboundEvent) {
	switch event.Event {
	case realtime.InboundUserToAgent:
		if sender.Role != auth.RoleUser {
			break
		}
		s.UserToAgent(ctx, sender.UserID, event.Text)
		return
	case realtime.InboundAgentToUser:
		if sender.Role != auth.RoleAgent {
			break
		}
		s.AgentToUser(ctx, sender.UserID, event.UserID, event.Text)
		return
	case realtime.InboundAgentToAdmin:
		if sender.Role != auth.RoleAgent {
			break
		}
		s.AgentToAdmin(ctx, sender.UserID, event.Text)
		return
	case realtime.InboundAdminToAgent:
		if sender.Role != auth.RoleAdmin {
			break
		}
		s.AdminToAgent(ctx, sender.UserID, event.AgentID, event.Text)
		return
	case realtime.InboundAdminToUser:
		if sender.Role != auth.RoleAdmin {
			break
		}
		s.AdminToUser(ctx, sender.UserID, event.UserID, event.Text)
		return
	default:
		slog.Debug("unknown inbound event", "event", event.Event, "user_id", sender.UserID)
		return
	}
	slog.Warn("inbound event rejected for role",
		"event", event.Event,
		"user_id", sender.UserID,
		"role", string(sender.Role),
	)
}

// Threads lists support threads for the staff dashboards, newest first.
func (s *Service) Threads(ctx context.Context, resolved *bool) ([]*store.SupportThread, error) {
	return s.store.ListSupportThreads(ctx, &store.FindSupportThread{Resolved: resolved})
}

// Thread returns one support thread by uid.
func (s *Service) Thread(ctx context.Context, uid string) (*store.SupportThread, error) {
	threads, err := s.store.ListSupportThreads(ctx, &store.FindSupportThread{UID: &uid})
	if err != nil {
		return nil, err
	}
	if len(threads) == 0 {
		return nil, errors.Wrapf(store.ErrNotFound, "support thread %s", uid)
	}
	return threads[0], nil
}

// Resolve marks a thread handled.
func (s *Service) Resolve(ctx context.Context, uid string) error {
	return s.store.SetSupportThreadResolved(ctx, uid, true)
}

// Claim records the agent now handling a thread.
func (s *Service) Claim(ctx context.Context, uid string, agentID int32) error {
	return s.store.SetSupportThreadAgent(ctx, uid, agentID)
}
