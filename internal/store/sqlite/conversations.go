package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/n0madic/stridecoach/internal/store"
)

func (s *Store) ListConversations(ctx context.Context) ([]store.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, model, created_ns, updated_ns
		FROM conversations ORDER BY updated_ns DESC`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := []store.Conversation{}
	for rows.Next() {
		var c store.Conversation
		var created, updated int64
		if err := rows.Scan(&c.ID, &c.Title, &c.Model, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		c.CreatedAt, c.UpdatedAt = fromNS(created), fromNS(updated)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CreateConversation(ctx context.Context, title, model string) (*store.Conversation, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: model is required", store.ErrInvalid)
	}
	if strings.TrimSpace(title) == "" {
		title = store.DefaultConversationTitle
	}
	now := s.nowNS()
	c := &store.Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		Model:     model,
		CreatedAt: fromNS(now),
		UpdatedAt: fromNS(now),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations(id, title, model, created_ns, updated_ns) VALUES(?,?,?,?,?)`,
		c.ID, c.Title, c.Model, now, now,
	); err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return c, nil
}

// GetConversation returns the conversation and its messages, oldest first.
func (s *Store) GetConversation(ctx context.Context, id string) (*store.Conversation, []store.Message, error) {
	c, err := getConversation(ctx, s.db, id)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, created_ns
		FROM messages WHERE conversation_id = ? ORDER BY created_ns ASC, rowid ASC`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := []store.Message{}
	for rows.Next() {
		var m store.Message
		var created int64
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &created); err != nil {
			return nil, nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = fromNS(created)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return c, msgs, nil
}

func (s *Store) RenameConversation(ctx context.Context, id, title string) (*store.Conversation, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is required", store.ErrInvalid)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET title = ?, updated_ns = ? WHERE id = ?`,
		title, s.nowNS(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("rename conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, store.ErrNotFound
	}
	return getConversation(ctx, s.db, id)
}

// DeleteConversation removes the conversation; its messages cascade.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AppendMessage stores a message and bumps the conversation's updated time.
func (s *Store) AppendMessage(ctx context.Context, conversationID, role, content string) (*store.Message, error) {
	if strings.TrimSpace(role) == "" {
		return nil, fmt.Errorf("%w: role is required", store.ErrInvalid)
	}
	var out *store.Message
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		now := s.nowNS()
		res, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_ns = ? WHERE id = ?`, now, conversationID)
		if err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		m := &store.Message{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			Role:           role,
			Content:        content,
			CreatedAt:      fromNS(now),
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages(id, conversation_id, role, content, created_ns) VALUES(?,?,?,?,?)`,
			m.ID, m.ConversationID, m.Role, m.Content, now,
		); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		out = m
		return nil
	})
	return out, err
}

func getConversation(ctx context.Context, q querier, id string) (*store.Conversation, error) {
	var c store.Conversation
	var created, updated int64
	err := q.QueryRowContext(ctx,
		`SELECT id, title, model, created_ns, updated_ns FROM conversations WHERE id = ?`, id,
	).Scan(&c.ID, &c.Title, &c.Model, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	c.CreatedAt, c.UpdatedAt = fromNS(created), fromNS(updated)
	return &c, nil
}
