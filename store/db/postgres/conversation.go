package postgres

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/averill/parlor/store"
)

func (d *DB) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	messages, err := json.Marshal(create.Messages)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal messages")
	}

	stmt := `INSERT INTO conversation (uid, creator_id, use_case, messages, created_ts, updated_ts)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.CreatorID, string(create.UseCase), string(messages), create.CreatedTs, create.UpdatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create conversation")
	}

	return create, nil
}

func (d *DB) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.CreatorID != nil {
		where, args = append(where, "creator_id = "+placeholder(len(args)+1)), append(args, *find.CreatorID)
	}

	query := `SELECT id, uid, creator_id, use_case, messages, created_ts, updated_ts
		FROM conversation
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY updated_ts DESC, id DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}
	defer rows.Close()

	list := make([]*store.Conversation, 0)
	for rows.Next() {
		conversation := &store.Conversation{}
		var useCase string
		var messages []byte
		if err := rows.Scan(
			&conversation.ID,
			&conversation.UID,
			&conversation.CreatorID,
			&useCase,
			&messages,
			&conversation.CreatedTs,
			&conversation.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan conversation")
		}
		conversation.UseCase = store.UseCase(useCase)
		if err := json.Unmarshal(messages, &conversation.Messages); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal messages of conversation %s", conversation.UID)
		}
		list = append(list, conversation)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate conversations")
	}

	return list, nil
}

func (d *DB) UpdateConversationMessages(ctx context.Context, update *store.UpdateConversationMessages) (int64, error) {
	messages, err := json.Marshal(update.Messages)
	if err != nil {
		return 0, errors.Wrap(err, "failed to marshal messages")
	}

	stmt := `UPDATE conversation SET messages = $1, updated_ts = $2 WHERE id = $3 AND creator_id = $4`
	result, err := d.db.ExecContext(ctx, stmt, string(messages), update.UpdatedTs, update.ID, update.CreatorID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to update conversation messages")
	}
	return result.RowsAffected()
}

func (d *DB) DeleteConversation(ctx context.Context, delete *store.DeleteConversation) (int64, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM conversation WHERE uid = $1 AND creator_id = $2`, delete.UID, delete.CreatorID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete conversation")
	}
	return result.RowsAffected()
}
