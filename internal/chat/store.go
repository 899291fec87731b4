package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"chat-backend/internal/database"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrEmptyMessage         = errors.New("message must not be empty")
)

const (
	RoleUser      = database.RoleUser
	RoleAssistant = database.RoleAssistant
)

const titleMaxLen = 60

type Message struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	Timestamp      time.Time
}

type Conversation struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ConversationSummary struct {
	ID           string
	Title        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// Page bounds list reads. A zero value gets the store's defaults.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultConversationPageSize = 50
	MaxConversationPageSize     = 200
	DefaultMessagePageSize      = 200
)

func (p Page) normalize(defaultLimit, maxLimit int) Page {
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Store holds per-user conversation state. Implementations must be safe for
// concurrent use; MemoryStore backs tests and the database-less mode, SQLStore
// is the persistent implementation.
type Store interface {
	// EnsureConversation returns the existing conversation when the id is
	// known for that user, otherwise creates a new one titled after
	// firstMessage.
	EnsureConversation(ctx context.Context, userID, conversationID, firstMessage string) (Conversation, error)

	// AppendMessage appends an immutable message and bumps the conversation's
	// UpdatedAt. A user message also sets the title when it is still the
	// placeholder.
	AppendMessage(ctx context.Context, userID, conversationID, role, content string) (Message, error)

	// ListConversations returns summaries ordered newest-updated first.
	ListConversations(ctx context.Context, userID string, page Page) ([]ConversationSummary, error)

	// GetMessages returns messages in chronological order.
	GetMessages(ctx context.Context, userID, conversationID string, page Page) ([]Message, error)

	// RecentMessages returns the last n messages, still in chronological
	// order. This is the history window read used by prompt assembly.
	RecentMessages(ctx context.Context, userID, conversationID string, n int) ([]Message, error)

	DeleteConversation(ctx context.Context, userID, conversationID string) error

	// ClearMessages empties the message list but keeps the conversation and
	// refreshes its UpdatedAt.
	ClearMessages(ctx context.Context, userID, conversationID string) error
}

// DeriveTitle builds a conversation title from its first user message: the
// trimmed text capped at 60 characters, with "..." appended when truncated.
func DeriveTitle(text string) string {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return database.DefaultTitle
	}
	runes := []rune(cleaned)
	if len(runes) <= titleMaxLen {
		return cleaned
	}
	return string(runes[:titleMaxLen]) + "..."
}

// bumpTime keeps UpdatedAt strictly advancing even when the clock reports the
// same instant twice.
func bumpTime(prev time.Time) time.Time {
	now := time.Now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}
