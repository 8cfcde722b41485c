package mapper

import (
	"time"

	"answerhub-be/internal/entity"
	"answerhub-be/internal/model"

	"gorm.io/gorm"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatSession{
		Id:        s.Id,
		UserId:    s.UserId,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
		IsDeleted: s.DeletedAt.Valid,
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	} else if s.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ChatSession{
		Id:        s.Id,
		UserId:    s.UserId,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}
}

// Message Mappers

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}

	var deletedAt *time.Time
	if msg.DeletedAt.Valid {
		t := msg.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !msg.UpdatedAt.IsZero() {
		t := msg.UpdatedAt
		updatedAt = &t
	}

	sources := make([]entity.MessageSource, 0, len(msg.Sources))
	for i := range msg.Sources {
		sources = append(sources, *m.MessageSourceToEntity(&msg.Sources[i]))
	}

	return &entity.ChatMessage{
		Id:            msg.Id,
		Chat:          msg.Chat,
		Role:          msg.Role,
		Domain:        msg.Domain,
		ChatSessionId: msg.ChatSessionId,
		Sources:       sources,
		CreatedAt:     msg.CreatedAt,
		UpdatedAt:     updatedAt,
		DeletedAt:     deletedAt,
		IsDeleted:     msg.DeletedAt.Valid,
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if msg.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *msg.DeletedAt, Valid: true}
	} else if msg.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if msg.UpdatedAt != nil {
		updatedAt = *msg.UpdatedAt
	}

	sources := make([]model.MessageSource, 0, len(msg.Sources))
	for i := range msg.Sources {
		sources = append(sources, *m.MessageSourceToModel(&msg.Sources[i]))
	}

	return &model.ChatMessage{
		Id:            msg.Id,
		Chat:          msg.Chat,
		Role:          msg.Role,
		Domain:        msg.Domain,
		ChatSessionId: msg.ChatSessionId,
		Sources:       sources,
		CreatedAt:     msg.CreatedAt,
		UpdatedAt:     updatedAt,
		DeletedAt:     deletedAt,
	}
}

// Source Mappers

func (m *ChatMapper) MessageSourceToEntity(s *model.MessageSource) *entity.MessageSource {
	if s == nil {
		return nil
	}
	return &entity.MessageSource{
		Id:            s.Id,
		ChatMessageId: s.ChatMessageId,
		Title:         s.Title,
		URL:           s.URL,
		Hierarchy:     s.Hierarchy,
		CreatedAt:     s.CreatedAt,
	}
}

func (m *ChatMapper) MessageSourceToModel(s *entity.MessageSource) *model.MessageSource {
	if s == nil {
		return nil
	}
	return &model.MessageSource{
		Id:            s.Id,
		ChatMessageId: s.ChatMessageId,
		Title:         s.Title,
		URL:           s.URL,
		Hierarchy:     s.Hierarchy,
		CreatedAt:     s.CreatedAt,
	}
}

// Routing Event Mappers

func (m *ChatMapper) RoutingEventToEntity(e *model.RoutingEvent) *entity.RoutingEvent {
	if e == nil {
		return nil
	}
	return &entity.RoutingEvent{
		Id:            e.Id,
		ChatSessionId: e.ChatSessionId,
		Query:         e.Query,
		Domain:        e.Domain,
		CreatedAt:     e.CreatedAt,
	}
}

func (m *ChatMapper) RoutingEventToModel(e *entity.RoutingEvent) *model.RoutingEvent {
	if e == nil {
		return nil
	}
	return &model.RoutingEvent{
		Id:            e.Id,
		ChatSessionId: e.ChatSessionId,
		Query:         e.Query,
		Domain:        e.Domain,
		CreatedAt:     e.CreatedAt,
	}
}
