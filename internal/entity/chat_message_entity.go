package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID
	Chat          string
	Role          string
	Domain        string // classification that produced an assistant message
	ChatSessionId uuid.UUID
	Sources       []MessageSource
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}

// MessageSource is one citation attached to an assistant message.
type MessageSource struct {
	Id            uuid.UUID
	ChatMessageId uuid.UUID
	Title         string
	URL           string
	Hierarchy     string
	CreatedAt     time.Time
}
