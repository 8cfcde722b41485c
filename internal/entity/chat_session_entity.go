package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatSession is one stored conversation owned by a user. The title is
// derived from the first user message unless the client supplied one.
type ChatSession struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Title     string
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
