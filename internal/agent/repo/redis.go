package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/etkin-ai/webchat/internal/agent/model"
	errx "github.com/etkin-ai/webchat/internal/core/error"
	logx "github.com/etkin-ai/webchat/pkg/logger"
)

// RedisConversationRepository stores each conversation as a hash plus a
// JSON message list. A ttl of 0 keeps keys forever.
type RedisConversationRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisConversationRepository(rdb redis.Cmdable, ttl time.Duration) *RedisConversationRepository {
	return &RedisConversationRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisConversationRepository) sessionKey(sessionID string) string {
	return fmt.Sprintf("conversation:session:%s", sessionID)
}

func (r *RedisConversationRepository) conversationKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s", conversationID)
}

func (r *RedisConversationRepository) messagesKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:messages", conversationID)
}

func (r *RedisConversationRepository) FindOrCreateConversation(ctx context.Context, sessionID string) (*model.Conversation, error) {
	sKey := r.sessionKey(sessionID)
	conv := &model.Conversation{ID: uuid.NewString(), SessionID: sessionID, CreatedAt: time.Now().UTC()}
	cKey := r.conversationKey(conv.ID)

	// The hash is written before the session key is claimed, so whoever reads
	// the winning id back always finds its conversation.
	if err := r.rdb.HSet(ctx, cKey,
		"session_id", sessionID,
		"created_at", conv.CreatedAt.Format(time.RFC3339Nano),
	).Err(); err != nil {
		logx.Error().Err(err).Str("key", cKey).Msg("failed to write conversation")
		return nil, errx.WrapRedis(err)
	}
	if err := r.touch(ctx, cKey); err != nil {
		return nil, err
	}

	// SETNX makes the first writer win; everyone else reads the winner back.
	created, err := r.rdb.SetNX(ctx, sKey, conv.ID, r.ttl).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", sKey).Msg("failed to claim session key")
		r.discard(ctx, cKey)
		return nil, errx.WrapRedis(err)
	}
	if created {
		return conv, nil
	}
	r.discard(ctx, cKey)

	id, err := r.rdb.Get(ctx, sKey).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", sKey).Msg("failed to read session key")
		return nil, errx.WrapRedis(err)
	}
	// Every turn passes through here, keep the session index alive with it.
	if err := r.touch(ctx, sKey, r.conversationKey(id)); err != nil {
		return nil, err
	}
	return r.loadConversation(ctx, id, sessionID)
}

func (r *RedisConversationRepository) discard(ctx context.Context, key string) {
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Warn().Err(err).Str("key", key).Msg("failed to discard candidate conversation")
	}
}

func (r *RedisConversationRepository) loadConversation(ctx context.Context, id, sessionID string) (*model.Conversation, error) {
	cKey := r.conversationKey(id)
	fields, err := r.rdb.HGetAll(ctx, cKey).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", cKey).Msg("failed to load conversation")
		return nil, errx.WrapRedis(err)
	}
	conv := &model.Conversation{ID: id, SessionID: sessionID}
	if ts, ok := fields["created_at"]; ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			conv.CreatedAt = t
		}
	}
	return conv, nil
}

func (r *RedisConversationRepository) AppendMessage(ctx context.Context, conversationID string, sender model.Sender, content string, metadata map[string]any) (*model.Message, error) {
	msg := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		Metadata:       metadata,
		CreatedAt:      time.Now().UTC(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to marshal message")
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	cKey := r.conversationKey(conversationID)
	n, err := r.rdb.Exists(ctx, cKey).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", cKey).Msg("failed to check conversation")
		return nil, errx.WrapRedis(err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrConversationNotFound, conversationID)
	}
	key := r.messagesKey(conversationID)

	// append message
	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push message to redis")
		return nil, errx.WrapRedis(err)
	}
	// extend TTL on touch
	if err := r.touch(ctx, key, cKey); err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *RedisConversationRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]*model.Message, error) {
	key := r.messagesKey(conversationID)
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}

	rows, err := r.rdb.LRange(ctx, key, start, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*model.Message{}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation history from redis")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*model.Message, 0, len(rows))
	for i, s := range rows {
		var m model.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("conversation_id", conversationID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, nil
}

func (r *RedisConversationRepository) touch(ctx context.Context, keys ...string) error {
	if r.ttl <= 0 {
		return nil
	}
	for _, key := range keys {
		if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
			return errx.WrapRedis(err)
		} else if !ok {
			logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on conversation key")
		}
	}
	return nil
}

var _ model.ConversationRepository = (*RedisConversationRepository)(nil)
