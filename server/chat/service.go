// Package chat owns the lifecycle of one AI conversation turn: resolve or
// create the conversation, append the user turn, invoke the completion
// service, persist, and fan out the resulting events.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/averill/parlor/ai"
	"github.com/averill/parlor/internal/metrics"
	"github.com/averill/parlor/server/auth"
	"github.com/averill/parlor/server/realtime"
	"github.com/averill/parlor/store"
)

var (
	// ErrValidation marks a request rejected before any side effect.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden marks an edit attempt against a non-user message.
	ErrForbidden = errors.New("forbidden")
)

// maxConcurrentCompletions bounds in-flight completion calls so a burst of
// turns cannot exhaust the upstream quota or the connection pool.
const maxConcurrentCompletions = 8

type Service struct {
	store   *store.Store
	llm     ai.CompletionService
	emitter realtime.Emitter
	metrics *metrics.Metrics
	sem     *semaphore.Weighted
}

func NewService(st *store.Store, llm ai.CompletionService, emitter realtime.Emitter, m *metrics.Metrics) *Service {
	return &Service{
		store:   st,
		llm:     llm,
		emitter: emitter,
		metrics: m,
		sem:     semaphore.NewWeighted(maxConcurrentCompletions),
	}
}

// SendRequest is one user turn. ConversationUID empty means "start a new
// conversation with the given use case". Attachments are descriptors from
// the attachment store collaborator; the files are already persisted.
type SendRequest struct {
	ConversationUID string
	Text            string
	UseCase         string
	Attachments     []store.Attachment
}

type SendResult struct {
	Conversation *store.Conversation
	Reply        string
}

// NewMessagePayload is emitted to the sender's inbox room.
type NewMessagePayload struct {
	ConversationUID string        `json:"conversationId"`
	Message         store.Message `json:"message"`
}

// AdminNewMessagePayload is emitted to the admin pool for live dashboards.
type AdminNewMessagePayload struct {
	UserID          int32         `json:"userId"`
	ConversationUID string        `json:"conversationId"`
	Message         store.Message `json:"message"`
	UseCase         store.UseCase `json:"useCase"`
}

// Send appends a user turn, obtains the assistant reply, and persists both
// messages together. On completion failure nothing is persisted: the user
// message existed only in memory, so the stored transcript is untouched.
func (s *Service) Send(ctx context.Context, identity auth.Identity, req SendRequest) (*SendResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" && len(req.Attachments) == 0 {
		return nil, errors.Wrap(ErrValidation, "message content or file attachment is required")
	}

	var conversation *store.Conversation
	if req.ConversationUID != "" {
		existing, err := s.store.GetConversation(ctx, req.ConversationUID, identity.UserID)
		if err != nil {
			return nil, err
		}
		conversation = existing
	} else {
		// Deferred creation: the row is written only after the completion
		// succeeds, together with the first turn.
		conversation = &store.Conversation{
			CreatorID: identity.UserID,
			UseCase:   store.UseCaseFromString(req.UseCase),
		}
	}

	content := text
	if content == "" {
		content = "Attached file(s): " + joinOriginalNames(req.Attachments)
	}
	userMessage := store.NewMessage(store.RoleUser, content, req.Attachments)

	contextMessages := buildCompletionContext(append(conversation.Messages, userMessage))
	reply, err := s.complete(ctx, contextMessages, conversation.UseCase)
	if err != nil {
		return nil, err
	}
	assistantMessage := store.NewMessage(store.RoleAssistant, reply, nil)

	if conversation.ID == 0 {
		conversation, err = s.store.CreateConversation(ctx, identity.UserID, conversation.UseCase, userMessage, assistantMessage)
	} else {
		conversation, err = s.store.AppendMessages(ctx, conversation.UID, identity.UserID, userMessage, assistantMessage)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.ChatTurn("send", string(conversation.UseCase))
	s.emitUserMessage(identity.UserID, conversation, userMessage)

	slog.Info("conversation turn completed",
		"user_id", identity.UserID,
		"conversation", conversation.UID,
		"messages", len(conversation.Messages),
	)
	return &SendResult{Conversation: conversation, Reply: reply}, nil
}

// Edit rewrites an earlier user message, discards everything after it, and
// regenerates the assistant reply against the truncated history. The stored
// transcript is replaced only after the completion succeeds; on any failure
// it remains at its pre-edit state.
func (s *Service) Edit(ctx context.Context, identity auth.Identity, conversationUID, messageID, newContent string) (*store.Conversation, error) {
	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return nil, errors.Wrap(ErrValidation, "new message content is required")
	}

	conversation, err := s.store.GetConversation(ctx, conversationUID, identity.UserID)
	if err != nil {
		return nil, err
	}

	index := -1
	for i, m := range conversation.Messages {
		if m.ID == messageID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, errors.Wrapf(store.ErrNotFound, "message %s", messageID)
	}
	if conversation.Messages[index].Role != store.RoleUser {
		return nil, errors.Wrap(ErrForbidden, "cannot edit AI responses")
	}

	// Work on a copy of the history; the stored transcript must stay intact
	// until the regenerated reply is in hand.
	edited := conversation.Messages[index]
	edited.Content = newContent
	history := make([]store.Message, 0, index+1)
	history = append(history, conversation.Messages[:index]...)
	history = append(history, edited)

	reply, err := s.complete(ctx, buildCompletionContext(history), conversation.UseCase)
	if err != nil {
		return nil, err
	}
	assistantMessage := store.NewMessage(store.RoleAssistant, reply, nil)

	updated, err := s.store.TruncateAndAppend(ctx, conversationUID, identity.UserID, index, edited, assistantMessage)
	if err != nil {
		return nil, err
	}

	s.metrics.ChatTurn("edit", string(updated.UseCase))
	s.emitUserMessage(identity.UserID, updated, edited)

	slog.Info("conversation turn regenerated",
		"user_id", identity.UserID,
		"conversation", updated.UID,
		"edited_message", messageID,
	)
	return updated, nil
}

// GetConversation returns the full transcript, ownership-scoped.
func (s *Service) GetConversation(ctx context.Context, identity auth.Identity, conversationUID string) (*store.Conversation, error) {
	return s.store.GetConversation(ctx, conversationUID, identity.UserID)
}

// ListSummaries returns the caller's conversation list projections.
func (s *Service) ListSummaries(ctx context.Context, identity auth.Identity) ([]*store.ConversationSummary, error) {
	return s.store.ListConversationSummaries(ctx, identity.UserID)
}

// DeleteConversation removes a conversation owned by the caller.
func (s *Service) DeleteConversation(ctx context.Context, identity auth.Identity, conversationUID string) error {
	deleted, err := s.store.DeleteConversation(ctx, conversationUID, identity.UserID)
	if err != nil {
		return err
	}
	if !deleted {
		return errors.Wrapf(store.ErrNotFound, "conversation %s", conversationUID)
	}
	return nil
}

func (s *Service) complete(ctx context.Context, messages []ai.Message, useCase store.UseCase) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", errors.Wrapf(ai.ErrService, "completion slot: %v", err)
	}
	defer s.sem.Release(1)

	start := time.Now()
	reply, err := s.llm.Complete(ctx, messages, useCase)
	s.metrics.CompletionSeconds(time.Since(start).Seconds())
	if err != nil {
		s.metrics.CompletionFailure()
		return "", err
	}
	return reply, nil
}

// emitUserMessage fans out the user turn to the sender's inbox and the admin
// pool. The assistant reply is not broadcast; dashboards refetch the
// transcript, which is the system of record.
func (s *Service) emitUserMessage(userID int32, conversation *store.Conversation, message store.Message) {
	s.emitter.Emit(realtime.UserInbox(userID), realtime.EventNewMessage, NewMessagePayload{
		ConversationUID: conversation.UID,
		Message:         message,
	})
	s.emitter.Emit(realtime.AdminPool, realtime.EventAdminNewMessage, AdminNewMessagePayload{
		UserID:          userID,
		ConversationUID: conversation.UID,
		Message:         message,
		UseCase:         conversation.UseCase,
	})
}
