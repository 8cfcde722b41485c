package store

// EvidenceItem represents a retrieved document/snippet used to ground an answer
type EvidenceItem struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Hierarchy string  `json:"hierarchy"`
	Content   string  `json:"content"`
	Score     float64 `json:"score,omitempty"`
}

// Turn is one conversation exchange entry
type Turn struct {
	Role    string `json:"role"` // "user" | "assistant"
	Content string `json:"content"`
}

// Conversation represents the active chat state kept in memory for fast
// history lookup between turns (the database stays the source of truth)
type Conversation struct {
	ID        string `json:"id"` // ChatSessionID
	UserID    string `json:"user_id"`
	Turns     []Turn `json:"turns"`
	LastQuery string `json:"last_query"`
}

const (
	TurnRoleUser      = "user"
	TurnRoleAssistant = "assistant"
)
