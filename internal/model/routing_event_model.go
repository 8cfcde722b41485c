package model

import (
	"time"

	"github.com/google/uuid"
)

type RoutingEvent struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatSessionId uuid.UUID `gorm:"type:uuid;index"`
	Query         string    `gorm:"type:text;not null"`
	Domain        string    `gorm:"type:varchar(50);not null;index"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (RoutingEvent) TableName() string {
	return "routing_events"
}
