package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chat-backend/internal/auth"
	"chat-backend/internal/chat"
	"chat-backend/internal/llm"
	"chat-backend/pkg/api"
)

type ChatService struct {
	store    chat.Store
	pipeline *chat.Pipeline
	auth     *auth.Service
}

func NewChatService(store chat.Store, pipeline *chat.Pipeline, authService *auth.Service) *ChatService {
	return &ChatService{store: store, pipeline: pipeline, auth: authService}
}

func (s *ChatService) AddRoutes(r chi.Router) {
	r.Route("/chat", func(r chi.Router) {
		r.Get("/conversations", RestHandler(s.ListConversations))
		r.Get("/conversations/{conversation_id}", RestHandler(s.GetConversation))
		r.Post("/message", RestHandler(s.SendMessage))
		r.Delete("/conversations/{conversation_id}", RestHandler(s.DeleteConversation))
		r.Delete("/conversations/{conversation_id}/messages", RestHandler(s.ClearMessages))
	})
}

// userID resolves the caller identity. A bearer token wins when present so
// chat identity and auth identity stay unified; the X-User-Id header remains
// as the fallback contract for clients that have not logged in.
func (s *ChatService) userID(r *http.Request) (string, error) {
	if r.Header.Get("Authorization") != "" {
		return bearerSubject(r, s.auth)
	}
	if id := r.Header.Get("X-User-Id"); id != "" {
		return id, nil
	}
	return "", CodedErrorf(http.StatusBadRequest, "missing X-User-Id header")
}

func (s *ChatService) ListConversations(r *http.Request) (any, error) {
	userID, err := s.userID(r)
	if err != nil {
		return nil, err
	}

	params, err := ParseRequestQueryParams[api.ListConversationsParams](r)
	if err != nil {
		return nil, err
	}

	summaries, err := s.store.ListConversations(r.Context(), userID, chat.Page{Limit: params.Limit, Offset: params.Offset})
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing conversations: %v", err)
	}

	out := make([]api.ConversationSummary, len(summaries))
	for i, summary := range summaries {
		out[i] = api.ConversationSummary{
			ID:           summary.ID,
			Title:        summary.Title,
			CreatedAt:    summary.CreatedAt.UTC().Format(time.RFC3339Nano),
			UpdatedAt:    summary.UpdatedAt.UTC().Format(time.RFC3339Nano),
			MessageCount: summary.MessageCount,
		}
	}
	return out, nil
}

func (s *ChatService) GetConversation(r *http.Request) (any, error) {
	userID, err := s.userID(r)
	if err != nil {
		return nil, err
	}
	conversationID, err := URLParam(r, "conversation_id")
	if err != nil {
		return nil, err
	}

	messages, err := s.store.GetMessages(r.Context(), userID, conversationID, chat.Page{})
	if err != nil {
		return nil, chatError(err)
	}

	out := make([]api.ChatMessage, len(messages))
	for i, message := range messages {
		out[i] = toAPIMessage(message)
	}
	return api.ChatHistoryResponse{Messages: out, ConversationID: conversationID}, nil
}

func (s *ChatService) SendMessage(r *http.Request) (any, error) {
	userID, err := s.userID(r)
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.SendMessageRequest](r)
	if err != nil {
		return nil, err
	}

	message, conversationID, err := s.pipeline.Send(r.Context(), userID, req.ConversationID, req.Message)
	if err != nil {
		return nil, chatError(err)
	}

	return api.SendMessageResponse{Message: toAPIMessage(message), ConversationID: conversationID}, nil
}

func (s *ChatService) DeleteConversation(r *http.Request) (any, error) {
	userID, err := s.userID(r)
	if err != nil {
		return nil, err
	}
	conversationID, err := URLParam(r, "conversation_id")
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteConversation(r.Context(), userID, conversationID); err != nil {
		return nil, chatError(err)
	}
	return api.DeleteConversationResponse{Message: "Conversation deleted."}, nil
}

func (s *ChatService) ClearMessages(r *http.Request) (any, error) {
	userID, err := s.userID(r)
	if err != nil {
		return nil, err
	}
	conversationID, err := URLParam(r, "conversation_id")
	if err != nil {
		return nil, err
	}

	if err := s.store.ClearMessages(r.Context(), userID, conversationID); err != nil {
		return nil, chatError(err)
	}
	return api.DeleteConversationResponse{Message: "Conversation messages cleared."}, nil
}

// chatError maps domain errors onto HTTP statuses.
func chatError(err error) error {
	var genErr *llm.GenerationError
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return CodedErrorf(http.StatusBadRequest, "message must not be empty")
	case errors.Is(err, llm.ErrEmptyPrompt):
		return CodedErrorf(http.StatusBadRequest, "prompt must not be empty")
	case errors.Is(err, chat.ErrConversationNotFound):
		return CodedErrorf(http.StatusNotFound, "conversation not found")
	case errors.As(err, &genErr):
		return CodedErrorf(http.StatusInternalServerError, "LLM generation failed: %v", genErr)
	default:
		return CodedError(http.StatusInternalServerError, err)
	}
}

func toAPIMessage(message chat.Message) api.ChatMessage {
	return api.ChatMessage{
		ID:             message.ID,
		Content:        message.Content,
		Role:           message.Role,
		Timestamp:      message.Timestamp.UTC().Format(time.RFC3339Nano),
		ConversationID: message.ConversationID,
	}
}
