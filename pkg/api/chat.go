package api

// Wire types for the chat endpoints. Field names follow the JSON contract
// expected by the web client, hence the camelCase tags.

type ChatMessage struct {
	ID             string `json:"id"`
	Content        string `json:"content"`
	Role           string `json:"role"` // "user" or "assistant"
	Timestamp      string `json:"timestamp"`
	ConversationID string `json:"conversationId"`
}

type SendMessageRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
}

type SendMessageResponse struct {
	Message        ChatMessage `json:"message"`
	ConversationID string      `json:"conversationId"`
}

type ConversationSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
	MessageCount int    `json:"messageCount"`
}

type ChatHistoryResponse struct {
	Messages       []ChatMessage `json:"messages"`
	ConversationID string        `json:"conversationId"`
}

type ListConversationsParams struct {
	Limit  int `schema:"limit"`
	Offset int `schema:"offset"`
}

type DeleteConversationResponse struct {
	Message string `json:"message"`
}
