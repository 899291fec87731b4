package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-backend/internal/database"
)

type memoryConversation struct {
	meta     Conversation
	messages []Message
}

// MemoryStore keeps all conversation state in process memory. Used by tests
// and as the fallback when no database is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]map[string]*memoryConversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]map[string]*memoryConversation)}
}

func (s *MemoryStore) userConversations(userID string) map[string]*memoryConversation {
	conversations, ok := s.users[userID]
	if !ok {
		conversations = make(map[string]*memoryConversation)
		s.users[userID] = conversations
	}
	return conversations
}

func (s *MemoryStore) EnsureConversation(ctx context.Context, userID, conversationID, firstMessage string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := s.userConversations(userID)
	if conversationID != "" {
		if conv, ok := conversations[conversationID]; ok {
			return conv.meta, nil
		}
	}

	now := time.Now().UTC()
	meta := Conversation{
		ID:        uuid.NewString(),
		Title:     DeriveTitle(firstMessage),
		CreatedAt: now,
		UpdatedAt: now,
	}
	conversations[meta.ID] = &memoryConversation{meta: meta}
	return meta, nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, userID, conversationID, role, content string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.userConversations(userID)[conversationID]
	if !ok {
		return Message{}, ErrConversationNotFound
	}

	now := bumpTime(conv.meta.UpdatedAt)
	message := Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Timestamp:      now,
	}
	conv.messages = append(conv.messages, message)
	conv.meta.UpdatedAt = now

	if role == RoleUser && (conv.meta.Title == "" || conv.meta.Title == database.DefaultTitle) {
		conv.meta.Title = DeriveTitle(content)
	}

	return message, nil
}

func (s *MemoryStore) ListConversations(ctx context.Context, userID string, page Page) ([]ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	page = page.normalize(DefaultConversationPageSize, MaxConversationPageSize)

	summaries := make([]ConversationSummary, 0, len(s.users[userID]))
	for _, conv := range s.users[userID] {
		summaries = append(summaries, ConversationSummary{
			ID:           conv.meta.ID,
			Title:        conv.meta.Title,
			CreatedAt:    conv.meta.CreatedAt,
			UpdatedAt:    conv.meta.UpdatedAt,
			MessageCount: len(conv.messages),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})

	if page.Offset >= len(summaries) {
		return []ConversationSummary{}, nil
	}
	summaries = summaries[page.Offset:]
	if len(summaries) > page.Limit {
		summaries = summaries[:page.Limit]
	}
	return summaries, nil
}

func (s *MemoryStore) GetMessages(ctx context.Context, userID, conversationID string, page Page) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.users[userID][conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}

	page = page.normalize(DefaultMessagePageSize, 0)
	if page.Offset >= len(conv.messages) {
		return []Message{}, nil
	}
	messages := conv.messages[page.Offset:]
	if len(messages) > page.Limit {
		messages = messages[:page.Limit]
	}

	out := make([]Message, len(messages))
	copy(out, messages)
	return out, nil
}

func (s *MemoryStore) RecentMessages(ctx context.Context, userID, conversationID string, n int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.users[userID][conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}

	messages := conv.messages
	if n > 0 && len(messages) > n {
		messages = messages[len(messages)-n:]
	}
	out := make([]Message, len(messages))
	copy(out, messages)
	return out, nil
}

func (s *MemoryStore) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := s.users[userID]
	if _, ok := conversations[conversationID]; !ok {
		return ErrConversationNotFound
	}
	delete(conversations, conversationID)
	return nil
}

func (s *MemoryStore) ClearMessages(ctx context.Context, userID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.users[userID][conversationID]
	if !ok {
		return ErrConversationNotFound
	}
	conv.messages = nil
	conv.meta.UpdatedAt = bumpTime(conv.meta.UpdatedAt)
	return nil
}
