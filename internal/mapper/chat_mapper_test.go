package mapper

import (
	"testing"
	"time"

	"answerhub-be/internal/entity"
	"answerhub-be/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func TestChatSessionRoundTrip(t *testing.T) {
	m := NewChatMapper()
	now := time.Now()

	src := &model.ChatSession{
		Id:        uuid.New(),
		UserId:    uuid.New(),
		Title:     "lodgement questions",
		CreatedAt: now,
		UpdatedAt: now,
	}

	e := m.ChatSessionToEntity(src)
	if e.Id != src.Id || e.Title != src.Title {
		t.Errorf("entity mismatch: %+v", e)
	}
	if e.IsDeleted {
		t.Error("live session should not be marked deleted")
	}
	if e.UpdatedAt == nil {
		t.Error("UpdatedAt should survive the mapping")
	}

	back := m.ChatSessionToModel(e)
	if back.Id != src.Id || back.Title != src.Title || back.DeletedAt.Valid {
		t.Errorf("model mismatch: %+v", back)
	}
}

func TestChatSessionSoftDelete(t *testing.T) {
	m := NewChatMapper()
	deletedAt := time.Now()

	e := m.ChatSessionToEntity(&model.ChatSession{
		Id:        uuid.New(),
		DeletedAt: gorm.DeletedAt{Time: deletedAt, Valid: true},
	})
	if !e.IsDeleted || e.DeletedAt == nil {
		t.Errorf("deleted session should map both flags: %+v", e)
	}

	// IsDeleted alone still produces a valid tombstone
	back := m.ChatSessionToModel(&entity.ChatSession{Id: e.Id, IsDeleted: true})
	if !back.DeletedAt.Valid {
		t.Error("IsDeleted should produce a valid DeletedAt")
	}
}

func TestChatMessageCarriesSources(t *testing.T) {
	m := NewChatMapper()
	msgId := uuid.New()

	src := &model.ChatMessage{
		Id:     msgId,
		Chat:   "here is the answer",
		Role:   "assistant",
		Domain: "help_guides",
		Sources: []model.MessageSource{
			{Id: uuid.New(), ChatMessageId: msgId, Title: "Doc", URL: "https://example.org", Hierarchy: "Individuals"},
		},
	}

	e := m.ChatMessageToEntity(src)
	if e.Domain != "help_guides" {
		t.Errorf("domain lost: %q", e.Domain)
	}
	if len(e.Sources) != 1 || e.Sources[0].URL != "https://example.org" {
		t.Errorf("sources lost: %+v", e.Sources)
	}

	back := m.ChatMessageToModel(e)
	if len(back.Sources) != 1 || back.Sources[0].ChatMessageId != msgId {
		t.Errorf("sources not mapped back: %+v", back.Sources)
	}
}

func TestRoutingEventRoundTrip(t *testing.T) {
	m := NewChatMapper()

	src := &model.RoutingEvent{
		Id:            uuid.New(),
		ChatSessionId: uuid.New(),
		Query:         "how much is the Standard plan",
		Domain:        "pricing",
		CreatedAt:     time.Now(),
	}

	e := m.RoutingEventToEntity(src)
	if e.Domain != "pricing" || e.Query != src.Query {
		t.Errorf("entity mismatch: %+v", e)
	}

	back := m.RoutingEventToModel(e)
	if back.Id != src.Id || back.Domain != src.Domain {
		t.Errorf("model mismatch: %+v", back)
	}
}

func TestNilInputs(t *testing.T) {
	m := NewChatMapper()
	if m.ChatSessionToEntity(nil) != nil || m.ChatSessionToModel(nil) != nil {
		t.Error("nil session should map to nil")
	}
	if m.ChatMessageToEntity(nil) != nil || m.ChatMessageToModel(nil) != nil {
		t.Error("nil message should map to nil")
	}
}
