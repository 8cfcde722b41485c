package dto

import (
	"time"

	"answerhub-be/pkg/store"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	Title string `json:"title,omitempty"`
}

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type GetAllSessionsResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// GetSessionsPageResponse is one page of the user's sessions, newest first.
type GetSessionsPageResponse struct {
	Items []*GetAllSessionsResponse `json:"items"`
	Total int64                     `json:"total"`
	Page  int                       `json:"page"`
	Size  int                       `json:"size"`
}

type GetChatHistoryResponse struct {
	Id        uuid.UUID   `json:"id"`
	Role      string      `json:"role"`
	Chat      string      `json:"chat"`
	Domain    string      `json:"domain,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	Sources   []SourceDTO `json:"sources,omitempty"`
}

// SourceDTO is one citation shown alongside an assistant message.
type SourceDTO struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Hierarchy string `json:"hierarchy,omitempty"`
}

type SendChatRequest struct {
	ChatSessionId    uuid.UUID `json:"chat_session_id"`
	Message          string    `json:"message" validate:"required"`
	HierarchyFilters []string  `json:"hierarchy_filters,omitempty"`
	Limit            int       `json:"limit,omitempty" validate:"omitempty,min=1,max=20"`
	Stream           bool      `json:"stream"`
}

// WidgetChatRequest is the unauthenticated embed-widget variant. History is
// supplied by the caller instead of being loaded from a stored session.
type WidgetChatRequest struct {
	Message          string       `json:"message" validate:"required"`
	History          []store.Turn `json:"history,omitempty" validate:"max=20,dive"`
	HierarchyFilters []string     `json:"hierarchy_filters,omitempty"`
	Limit            int          `json:"limit,omitempty" validate:"omitempty,min=1,max=20"`
	Stream           bool         `json:"stream"`
}

type SendChatResponse struct {
	Response          string               `json:"response"`
	RelevantDocuments []store.EvidenceItem `json:"relevant_documents"`
	ClassifiedIndex   string               `json:"classified_index"`
}

type DeleteSessionRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id"`
}

type RoutingStatsResponse struct {
	Counts map[string]int64 `json:"counts"`
}

// PublishQueryRoutedMessage is the broker payload emitted after each
// classification so analytics persistence stays off the request path.
type PublishQueryRoutedMessage struct {
	ChatSessionId uuid.UUID `json:"chat_session_id"`
	Query         string    `json:"query"`
	Domain        string    `json:"domain"`
}
