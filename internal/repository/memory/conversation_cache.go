package memory

import (
	"time"

	"answerhub-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// ConversationCache keeps the active chat history close to the process so a
// turn does not need a database round trip. The database stays the source of
// truth; a miss here just means a reload.
type ConversationCache interface {
	Save(conversation *store.Conversation)
	Get(sessionID string) (*store.Conversation, bool)
	AppendTurn(sessionID string, turn store.Turn)
	Delete(sessionID string)
}

type ConversationRepository struct {
	cache *cache.Cache
}

func NewConversationRepository() *ConversationRepository {
	// Default expiration of 1 hour, purge sweep every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &ConversationRepository{
		cache: c,
	}
}

func (r *ConversationRepository) Save(conversation *store.Conversation) {
	r.cache.Set(conversation.ID, conversation, cache.DefaultExpiration)
}

func (r *ConversationRepository) Get(sessionID string) (*store.Conversation, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Conversation), true
	}
	return nil, false
}

func (r *ConversationRepository) AppendTurn(sessionID string, turn store.Turn) {
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

func (r *ConversationRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
