package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	// Session titles are derived from the first user message.
	ChatSessionTitleMaxLen = 50

	// Watermill topic for routing analytics events.
	QueryRoutedTopicName = "QUERY_ROUTED"

	// JetStream subject and durable consumer name used when NATS_URL is set.
	QueryRoutedSubject     = "events.query_routed"
	QueryRoutedDurableName = "routing-analytics"
)
