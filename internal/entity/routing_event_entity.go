package entity

import (
	"time"

	"github.com/google/uuid"
)

// RoutingEvent records one classification decision for analytics.
type RoutingEvent struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Query         string
	Domain        string
	CreatedAt     time.Time
}
