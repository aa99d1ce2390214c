package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"ragchat-api/internal/domain/entity"
	"ragchat-api/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type chatRepository struct {
	db *sqlx.DB
}

func NewChatRepository(db *sqlx.DB) repository.ChatRepository {
	return &chatRepository{db: db}
}

// AppendTurn commits the lazy session create (or the ownership-checked
// append), both messages and the session counters in one transaction. The row
// lock on the session serializes concurrent turns at the storage level; the
// per-chat seq taken under that lock keeps History chronological even when
// turns commit within the same clock tick.
func (r *chatRepository) AppendTurn(ctx context.Context, params repository.AppendTurnParams) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	now := time.Now()
	chatID := params.ChatID
	seqBase := 0

	if chatID == "" {
		chatID = uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO chat_sessions (id, owner_id, title, created_at, last_message_at, message_count)
			VALUES ($1, $2, $3, $4, $4, 0)
		`, chatID, params.OwnerID, entity.SessionTitle(params.UserMessage.Content), now)
		if err != nil {
			return "", err
		}
	} else {
		var session struct {
			OwnerID      string `db:"owner_id"`
			MessageCount int    `db:"message_count"`
		}
		err = tx.GetContext(ctx, &session,
			`SELECT owner_id, message_count FROM chat_sessions WHERE id = $1 FOR UPDATE`, chatID)
		if errors.Is(err, sql.ErrNoRows) {
			return "", entity.ErrNotFound
		}
		if err != nil {
			return "", err
		}
		if session.OwnerID != params.OwnerID {
			return "", entity.ErrNotFound
		}
		seqBase = session.MessageCount
	}

	userTime := now
	assistantTime := now.Add(time.Millisecond)

	if err := insertMessage(ctx, tx, chatID, seqBase+1, entity.RoleUser, params.UserMessage, userTime); err != nil {
		return "", err
	}
	if err := insertMessage(ctx, tx, chatID, seqBase+2, entity.RoleAssistant, params.AssistantMessage, assistantTime); err != nil {
		return "", err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE chat_sessions SET last_message_at = $1, message_count = message_count + 2 WHERE id = $2
	`, assistantTime, chatID)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return chatID, nil
}

func insertMessage(ctx context.Context, tx *sqlx.Tx, chatID string, seq int, role entity.MessageRole, msg entity.ChatMessage, at time.Time) error {
	sources := msg.Sources
	if sources == nil {
		sources = []entity.MessageSource{}
	}
	payload, err := json.Marshal(sources)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chat_messages (id, chat_id, seq, role, content, sources, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New().String(), chatID, seq, role, msg.Content, payload, at)
	return err
}

func (r *chatRepository) History(ctx context.Context, chatID, ownerID string) ([]entity.ChatMessage, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM chat_sessions WHERE id = $1 AND owner_id = $2)`, chatID, ownerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, entity.ErrNotFound
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chat_id, role, content, sources, created_at
		FROM chat_messages WHERE chat_id = $1 ORDER BY seq ASC
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []entity.ChatMessage
	for rows.Next() {
		var msg entity.ChatMessage
		var sources []byte
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Role, &msg.Content, &sources, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(sources, &msg.Sources); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (r *chatRepository) ListSessions(ctx context.Context, ownerID string) ([]entity.ChatSession, error) {
	var sessions []entity.ChatSession
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM chat_sessions WHERE owner_id = $1 ORDER BY last_message_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *chatRepository) Delete(ctx context.Context, chatID, ownerID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM chat_sessions WHERE id = $1 AND owner_id = $2`, chatID, ownerID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return entity.ErrNotFound
	}
	return nil
}
