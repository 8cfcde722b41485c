package model

import (
	"time"

	"github.com/google/uuid"
)

// MessageSource links an assistant message to one cited document.
type MessageSource struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatMessageId uuid.UUID `gorm:"type:uuid;not null;index"`
	Title         string    `gorm:"type:text"`
	URL           string    `gorm:"type:text"`
	Hierarchy     string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (MessageSource) TableName() string {
	return "message_sources"
}
