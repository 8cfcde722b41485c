package memory

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"answerhub-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "conversation:"
	redisTTL       = 1 * time.Hour
)

// RedisConversationRepository is the shared-cache variant for multi-instance
// deployments. Failures degrade to cache misses; the database reload path
// covers them.
type RedisConversationRepository struct {
	client *redis.Client
	logger *log.Logger
}

func NewRedisConversationRepository(redisURL string, logger *log.Logger) (*RedisConversationRepository, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisConversationRepository{
		client: redis.NewClient(opts),
		logger: logger,
	}, nil
}

func (r *RedisConversationRepository) Save(conversation *store.Conversation) {
	payload, err := json.Marshal(conversation)
	if err != nil {
		r.logger.Printf("[CACHE] Failed to marshal conversation %s: %v", conversation.ID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Set(ctx, redisKeyPrefix+conversation.ID, payload, redisTTL).Err(); err != nil {
		r.logger.Printf("[CACHE] Failed to save conversation %s: %v", conversation.ID, err)
	}
}

func (r *RedisConversationRepository) Get(sessionID string) (*store.Conversation, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	payload, err := r.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Printf("[CACHE] Failed to load conversation %s: %v", sessionID, err)
		}
		return nil, false
	}

	var conversation store.Conversation
	if err := json.Unmarshal(payload, &conversation); err != nil {
		r.logger.Printf("[CACHE] Corrupt conversation payload for %s: %v", sessionID, err)
		return nil, false
	}
	return &conversation, true
}

func (r *RedisConversationRepository) AppendTurn(sessionID string, turn store.Turn) {
	conversation, found := r.Get(sessionID)
	if !found {
		conversation = &store.Conversation{ID: sessionID}
	}
	conversation.Turns = append(conversation.Turns, turn)
	if turn.Role == store.TurnRoleUser {
		conversation.LastQuery = turn.Content
	}
	r.Save(conversation)
}

func (r *RedisConversationRepository) Delete(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		r.logger.Printf("[CACHE] Failed to delete conversation %s: %v", sessionID, err)
	}
}

var _ ConversationCache = &ConversationRepository{}
var _ ConversationCache = &RedisConversationRepository{}
