package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chat-backend/internal/database"
)

// SQLStore persists conversations through gorm. SQLite only supports one
// writer at a time, so writes are serialized behind a mutex.
type SQLStore struct {
	db      *gorm.DB
	writeMu sync.Mutex
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) findConversation(ctx context.Context, userID, conversationID string) (database.Conversation, error) {
	id, err := uuid.Parse(conversationID)
	if err != nil {
		return database.Conversation{}, ErrConversationNotFound
	}

	var conv database.Conversation
	err = s.db.WithContext(ctx).First(&conv, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return database.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return database.Conversation{}, fmt.Errorf("error querying conversation: %w", err)
	}
	return conv, nil
}

func (s *SQLStore) EnsureConversation(ctx context.Context, userID, conversationID, firstMessage string) (Conversation, error) {
	if conversationID != "" {
		conv, err := s.findConversation(ctx, userID, conversationID)
		if err == nil {
			return toConversation(conv), nil
		}
		if !errors.Is(err, ErrConversationNotFound) {
			return Conversation{}, err
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := time.Now().UTC()
	conv := database.Conversation{
		Id:        uuid.New(),
		UserId:    userID,
		Title:     DeriveTitle(firstMessage),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return Conversation{}, fmt.Errorf("error creating conversation: %w", err)
	}
	return toConversation(conv), nil
}

func (s *SQLStore) AppendMessage(ctx context.Context, userID, conversationID, role, content string) (Message, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	conv, err := s.findConversation(ctx, userID, conversationID)
	if err != nil {
		return Message{}, err
	}

	now := bumpTime(conv.UpdatedAt)
	message := database.Message{
		Id:             uuid.New(),
		ConversationId: conv.Id,
		Role:           role,
		Content:        content,
		Timestamp:      now,
	}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return Message{}, fmt.Errorf("error saving message: %w", err)
	}

	updates := map[string]any{"updated_at": now}
	if role == RoleUser && (conv.Title == "" || conv.Title == database.DefaultTitle) {
		updates["title"] = DeriveTitle(content)
	}
	if err := s.db.WithContext(ctx).Model(&database.Conversation{Id: conv.Id}).Updates(updates).Error; err != nil {
		return Message{}, fmt.Errorf("error updating conversation: %w", err)
	}

	return toMessage(message), nil
}

func (s *SQLStore) ListConversations(ctx context.Context, userID string, page Page) ([]ConversationSummary, error) {
	page = page.normalize(DefaultConversationPageSize, MaxConversationPageSize)

	var conversations []database.Conversation
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&conversations).Error
	if err != nil {
		return nil, fmt.Errorf("error listing conversations: %w", err)
	}

	counts, err := s.messageCounts(ctx, conversations)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, len(conversations))
	for i, conv := range conversations {
		summaries[i] = ConversationSummary{
			ID:           conv.Id.String(),
			Title:        conv.Title,
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
			MessageCount: counts[conv.Id],
		}
	}
	return summaries, nil
}

func (s *SQLStore) messageCounts(ctx context.Context, conversations []database.Conversation) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(conversations))
	if len(conversations) == 0 {
		return counts, nil
	}

	ids := make([]uuid.UUID, len(conversations))
	for i, conv := range conversations {
		ids[i] = conv.Id
	}

	var rows []struct {
		ConversationId uuid.UUID
		N              int
	}
	err := s.db.WithContext(ctx).
		Model(&database.Message{}).
		Select("conversation_id, COUNT(*) AS n").
		Where("conversation_id IN ?", ids).
		Group("conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error counting messages: %w", err)
	}

	for _, row := range rows {
		counts[row.ConversationId] = row.N
	}
	return counts, nil
}

func (s *SQLStore) GetMessages(ctx context.Context, userID, conversationID string, page Page) ([]Message, error) {
	conv, err := s.findConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	page = page.normalize(DefaultMessagePageSize, 0)

	var messages []database.Message
	err = s.db.WithContext(ctx).
		Where("conversation_id = ?", conv.Id).
		Order("timestamp ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("error loading messages: %w", err)
	}

	return toMessages(messages), nil
}

func (s *SQLStore) RecentMessages(ctx context.Context, userID, conversationID string, n int) ([]Message, error) {
	conv, err := s.findConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Where("conversation_id = ?", conv.Id).
		Order("timestamp DESC")
	if n > 0 {
		query = query.Limit(n)
	}

	var messages []database.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("error loading recent messages: %w", err)
	}

	// Restore chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return toMessages(messages), nil
}

func (s *SQLStore) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	conv, err := s.findConversation(ctx, userID, conversationID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&database.Message{}, "conversation_id = ?", conv.Id).Error; err != nil {
		return fmt.Errorf("error deleting messages: %w", err)
	}
	if err := s.db.WithContext(ctx).Delete(&database.Conversation{}, "id = ?", conv.Id).Error; err != nil {
		return fmt.Errorf("error deleting conversation: %w", err)
	}
	return nil
}

func (s *SQLStore) ClearMessages(ctx context.Context, userID, conversationID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	conv, err := s.findConversation(ctx, userID, conversationID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&database.Message{}, "conversation_id = ?", conv.Id).Error; err != nil {
		return fmt.Errorf("error clearing messages: %w", err)
	}

	now := bumpTime(conv.UpdatedAt)
	if err := s.db.WithContext(ctx).Model(&database.Conversation{Id: conv.Id}).Update("updated_at", now).Error; err != nil {
		return fmt.Errorf("error updating conversation: %w", err)
	}
	return nil
}

func toConversation(conv database.Conversation) Conversation {
	return Conversation{
		ID:        conv.Id.String(),
		Title:     conv.Title,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}
}

func toMessage(message database.Message) Message {
	return Message{
		ID:             message.Id.String(),
		ConversationID: message.ConversationId.String(),
		Role:           message.Role,
		Content:        message.Content,
		Timestamp:      message.Timestamp,
	}
}

func toMessages(messages []database.Message) []Message {
	out := make([]Message, len(messages))
	for i, message := range messages {
		out[i] = toMessage(message)
	}
	return out
}
