package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/etkin-ai/webchat/internal/agent/model"
	errx "github.com/etkin-ai/webchat/internal/core/error"
	logx "github.com/etkin-ai/webchat/pkg/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	sender          TEXT NOT NULL,
	content         TEXT NOT NULL,
	metadata        TEXT,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
`

// SQLConversationRepository stores conversations in two tables of a SQLite database.
type SQLConversationRepository struct {
	db *sql.DB
}

// NewSQLConversationRepository creates the schema if needed.
func NewSQLConversationRepository(ctx context.Context, db *sql.DB) (*SQLConversationRepository, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		logx.Error().Err(err).Msg("failed to initialize conversation schema")
		return nil, errx.WrapSQL(err)
	}
	return &SQLConversationRepository{db: db}, nil
}

func (r *SQLConversationRepository) FindOrCreateConversation(ctx context.Context, sessionID string) (*model.Conversation, error) {
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO conversations (id, session_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		uuid.NewString(), sessionID, now.Format(time.RFC3339Nano),
	); err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to insert conversation")
		return nil, errx.WrapSQL(err)
	}

	var (
		conv    = &model.Conversation{SessionID: sessionID}
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM conversations WHERE session_id = ?`, sessionID,
	).Scan(&conv.ID, &created)
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to load conversation")
		return nil, errx.WrapSQL(err)
	}
	conv.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return conv, nil
}

func (r *SQLConversationRepository) AppendMessage(ctx context.Context, conversationID string, sender model.Sender, content string, metadata map[string]any) (*model.Message, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM conversations WHERE id = ?`, conversationID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrConversationNotFound, conversationID)
	}
	if err != nil {
		return nil, errx.WrapSQL(err)
	}

	var meta []byte
	if metadata != nil {
		if meta, err = json.Marshal(metadata); err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
	}

	msg := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		Metadata:       metadata,
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender, content, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, conversationID, string(sender), content, nullableText(meta), msg.CreatedAt.Format(time.RFC3339Nano),
	); err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to insert message")
		return nil, errx.WrapSQL(err)
	}
	return msg, nil
}

func (r *SQLConversationRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]*model.Message, error) {
	query := `SELECT id, sender, content, metadata, created_at FROM (
		SELECT rowid, id, sender, content, metadata, created_at FROM messages
		WHERE conversation_id = ? ORDER BY rowid DESC LIMIT ?
	) ORDER BY rowid ASC`
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to query messages")
		return nil, errx.WrapSQL(err)
	}
	defer rows.Close()

	msgs := []*model.Message{}
	for rows.Next() {
		var (
			m       = &model.Message{ConversationID: conversationID}
			sender  string
			meta    sql.NullString
			created string
		)
		if err := rows.Scan(&m.ID, &sender, &m.Content, &meta, &created); err != nil {
			return nil, errx.WrapSQL(err)
		}
		m.Sender = model.Sender(sender)
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &m.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata of message %s: %w", m.ID, err)
			}
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapSQL(err)
	}
	return msgs, nil
}

func nullableText(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

var _ model.ConversationRepository = (*SQLConversationRepository)(nil)
