package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/averill/parlor/store"
)

func (d *DB) CreateSupportThread(ctx context.Context, create *store.SupportThread) (*store.SupportThread, error) {
	events, err := json.Marshal(create.Events)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal events")
	}

	stmt := `INSERT INTO support_thread (uid, user_id, agent_id, events, resolved, created_ts)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.UserID, create.AgentID, string(events), create.Resolved, create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create support thread")
	}

	return create, nil
}

func (d *DB) ListSupportThreads(ctx context.Context, find *store.FindSupportThread) ([]*store.SupportThread, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.Resolved != nil {
		where, args = append(where, "resolved = ?"), append(args, *find.Resolved)
	}

	query := `SELECT id, uid, user_id, agent_id, events, resolved, created_ts
		FROM support_thread
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list support threads")
	}
	defer rows.Close()

	list := make([]*store.SupportThread, 0)
	for rows.Next() {
		thread := &store.SupportThread{}
		var agentID sql.NullInt32
		var events string
		if err := rows.Scan(
			&thread.ID,
			&thread.UID,
			&thread.UserID,
			&agentID,
			&events,
			&thread.Resolved,
			&thread.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan support thread")
		}
		if agentID.Valid {
			id := agentID.Int32
			thread.AgentID = &id
		}
		if err := json.Unmarshal([]byte(events), &thread.Events); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal events of support thread %s", thread.UID)
		}
		list = append(list, thread)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate support threads")
	}

	return list, nil
}

func (d *DB) UpdateSupportThread(ctx context.Context, update *store.UpdateSupportThread) (int64, error) {
	set, args := []string{}, []any{}

	if update.Events != nil {
		events, err := json.Marshal(*update.Events)
		if err != nil {
			return 0, errors.Wrap(err, "failed to marshal events")
		}
		set, args = append(set, "events = ?"), append(args, string(events))
	}
	if update.AgentID != nil {
		set, args = append(set, "agent_id = ?"), append(args, *update.AgentID)
	}
	if update.Resolved != nil {
		set, args = append(set, "resolved = ?"), append(args, *update.Resolved)
	}

	if len(set) == 0 {
		return 0, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE support_thread SET ` + strings.Join(set, ", ") + ` WHERE id = ?`
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, errors.Wrap(err, "failed to update support thread")
	}
	return result.RowsAffected()
}
