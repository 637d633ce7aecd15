package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a row does not exist or is not owned by the
// caller. Ownership is always checked together with the id, so a cross-tenant
// lookup is indistinguishable from a missing row.
var ErrNotFound = errors.New("not found")

// Driver is the interface for database drivers.
type Driver interface {
	GetDB() *sql.DB
	Close() error
	Migrate(ctx context.Context) error

	CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	UpdateConversationMessages(ctx context.Context, update *UpdateConversationMessages) (int64, error)
	DeleteConversation(ctx context.Context, delete *DeleteConversation) (int64, error)

	CreateSupportThread(ctx context.Context, create *SupportThread) (*SupportThread, error)
	ListSupportThreads(ctx context.Context, find *FindSupportThread) ([]*SupportThread, error)
	UpdateSupportThread(ctx context.Context, update *UpdateSupportThread) (int64, error)
}

// Store provides database access to all raw objects.
type Store struct {
	driver Driver
}

// New creates a new instance of Store.
func New(driver Driver) *Store {
	return &Store{driver: driver}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// CreateConversation creates an empty conversation for the given creator.
// The initial messages slice may be non-empty when the first turn is persisted
// together with the creation (send into a brand-new conversation).
func (s *Store) CreateConversation(ctx context.Context, creatorID int32, useCase UseCase, messages ...Message) (*Conversation, error) {
	now := time.Now().Unix()
	create := &Conversation{
		UID:       shortuuid.New(),
		CreatorID: creatorID,
		UseCase:   useCase,
		Messages:  messages,
		CreatedTs: now,
		UpdatedTs: now,
	}
	conversation, err := s.driver.CreateConversation(ctx, create)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create conversation")
	}
	return conversation, nil
}

// GetConversation fetches a conversation scoped to (uid, creator).
func (s *Store) GetConversation(ctx context.Context, uid string, creatorID int32) (*Conversation, error) {
	list, err := s.driver.ListConversations(ctx, &FindConversation{UID: &uid, CreatorID: &creatorID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get conversation")
	}
	if len(list) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "conversation %s", uid)
	}
	return list[0], nil
}

// AppendMessages appends messages to the end of a conversation transcript and
// advances UpdatedTs. The write replaces the whole message column of one row,
// so the append is atomic per conversation.
func (s *Store) AppendMessages(ctx context.Context, uid string, creatorID int32, messages ...Message) (*Conversation, error) {
	conversation, err := s.GetConversation(ctx, uid, creatorID)
	if err != nil {
		return nil, err
	}
	next := make([]Message, 0, len(conversation.Messages)+len(messages))
	next = append(next, conversation.Messages...)
	next = append(next, messages...)
	return s.replaceMessages(ctx, conversation, next)
}

// TruncateAndAppend atomically replaces the message sequence with
// messages[:keep] followed by the given messages. Used by edit/regenerate.
func (s *Store) TruncateAndAppend(ctx context.Context, uid string, creatorID int32, keep int, messages ...Message) (*Conversation, error) {
	conversation, err := s.GetConversation(ctx, uid, creatorID)
	if err != nil {
		return nil, err
	}
	if keep < 0 || keep > len(conversation.Messages) {
		return nil, errors.Errorf("truncation point %d out of range [0,%d]", keep, len(conversation.Messages))
	}
	next := make([]Message, 0, keep+len(messages))
	next = append(next, conversation.Messages[:keep]...)
	next = append(next, messages...)
	return s.replaceMessages(ctx, conversation, next)
}

func (s *Store) replaceMessages(ctx context.Context, conversation *Conversation, messages []Message) (*Conversation, error) {
	updatedTs := time.Now().Unix()
	rows, err := s.driver.UpdateConversationMessages(ctx, &UpdateConversationMessages{
		ID:        conversation.ID,
		CreatorID: conversation.CreatorID,
		Messages:  messages,
		UpdatedTs: updatedTs,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to update conversation messages")
	}
	if rows == 0 {
		// Deleted between the read and the write.
		return nil, errors.Wrapf(ErrNotFound, "conversation %s", conversation.UID)
	}
	conversation.Messages = messages
	conversation.UpdatedTs = updatedTs
	return conversation, nil
}

// ListConversationSummaries returns list-view projections of the creator's
// conversations, ordered by UpdatedTs descending.
func (s *Store) ListConversationSummaries(ctx context.Context, creatorID int32) ([]*ConversationSummary, error) {
	list, err := s.driver.ListConversations(ctx, &FindConversation{CreatorID: &creatorID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}
	summaries := make([]*ConversationSummary, 0, len(list))
	for _, conversation := range list {
		lastMessage := "No messages yet"
		if n := len(conversation.Messages); n > 0 {
			lastMessage = preview(conversation.Messages[n-1].Content)
		}
		summaries = append(summaries, &ConversationSummary{
			UID:                conversation.UID,
			UseCase:            conversation.UseCase,
			LastMessagePreview: lastMessage,
			UpdatedTs:          conversation.UpdatedTs,
			MessageCount:       len(conversation.Messages),
		})
	}
	return summaries, nil
}

// DeleteConversation removes a conversation scoped to (uid, creator).
// Returns true iff a matching row existed and was removed.
func (s *Store) DeleteConversation(ctx context.Context, uid string, creatorID int32) (bool, error) {
	rows, err := s.driver.DeleteConversation(ctx, &DeleteConversation{UID: uid, CreatorID: creatorID})
	if err != nil {
		return false, errors.Wrap(err, "failed to delete conversation")
	}
	return rows > 0, nil
}

// GetSupportThreadByUser fetches the support thread keyed by user id.
func (s *Store) GetSupportThreadByUser(ctx context.Context, userID int32) (*SupportThread, error) {
	list, err := s.driver.ListSupportThreads(ctx, &FindSupportThread{UserID: &userID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get support thread")
	}
	if len(list) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "support thread for user %d", userID)
	}
	return list[0], nil
}

// AppendSupportEvent appends one event to the user's support thread. When
// createIfAbsent is set a missing thread is created first; otherwise a
// missing thread yields ErrNotFound and the event is dropped from
// persistence (the live relay has already happened).
func (s *Store) AppendSupportEvent(ctx context.Context, userID int32, event SupportEvent, createIfAbsent bool) (*SupportThread, error) {
	thread, err := s.GetSupportThreadByUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		if !createIfAbsent {
			return nil, err
		}
		thread, err = s.driver.CreateSupportThread(ctx, &SupportThread{
			UID:       shortuuid.New(),
			UserID:    userID,
			CreatedTs: time.Now().Unix(),
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create support thread")
		}
	} else if err != nil {
		return nil, err
	}

	events := make([]SupportEvent, 0, len(thread.Events)+1)
	events = append(events, thread.Events...)
	events = append(events, event)
	rows, err := s.driver.UpdateSupportThread(ctx, &UpdateSupportThread{ID: thread.ID, Events: &events})
	if err != nil {
		return nil, errors.Wrap(err, "failed to append support event")
	}
	if rows == 0 {
		return nil, errors.Wrapf(ErrNotFound, "support thread for user %d", userID)
	}
	thread.Events = events
	return thread, nil
}

// ListSupportThreads lists threads for the staff dashboards.
func (s *Store) ListSupportThreads(ctx context.Context, find *FindSupportThread) ([]*SupportThread, error) {
	list, err := s.driver.ListSupportThreads(ctx, find)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list support threads")
	}
	return list, nil
}

// SetSupportThreadResolved flips the resolved flag on a thread.
func (s *Store) SetSupportThreadResolved(ctx context.Context, uid string, resolved bool) error {
	thread, err := s.getSupportThreadByUID(ctx, uid)
	if err != nil {
		return err
	}
	rows, err := s.driver.UpdateSupportThread(ctx, &UpdateSupportThread{ID: thread.ID, Resolved: &resolved})
	if err != nil {
		return errors.Wrap(err, "failed to update support thread")
	}
	if rows == 0 {
		return errors.Wrapf(ErrNotFound, "support thread %s", uid)
	}
	return nil
}

// SetSupportThreadAgent records the agent that claimed a thread.
func (s *Store) SetSupportThreadAgent(ctx context.Context, uid string, agentID int32) error {
	thread, err := s.getSupportThreadByUID(ctx, uid)
	if err != nil {
		return err
	}
	rows, err := s.driver.UpdateSupportThread(ctx, &UpdateSupportThread{ID: thread.ID, AgentID: &agentID})
	if err != nil {
		return errors.Wrap(err, "failed to update support thread")
	}
	if rows == 0 {
		return errors.Wrapf(ErrNotFound, "support thread %s", uid)
	}
	return nil
}

func (s *Store) getSupportThreadByUID(ctx context.Context, uid string) (*SupportThread, error) {
	list, err := s.driver.ListSupportThreads(ctx, &FindSupportThread{UID: &uid})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get support thread")
	}
	if len(list) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "support thread %s", uid)
	}
	return list[0], nil
}
