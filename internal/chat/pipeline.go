package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"chat-backend/internal/faq"
	"chat-backend/internal/llm"
)

var sendOptions = llm.Options{
	MaxTokens:   80,
	Temperature: 0.2,
	TopP:        0.8,
	WrapPrompt:  false, // the assembled prompt is already complete
	StripAfter:  "Answer:",
}

// Pipeline turns a raw user message into a generated assistant reply:
// ensure conversation, persist the user message, assemble the bounded
// FAQ-augmented prompt, call the generation backend, persist the reply.
type Pipeline struct {
	store     Store
	retriever faq.Retriever
	generator llm.Generator

	// Serializes sends per conversation so concurrent requests to the same
	// conversation cannot interleave history reads and appends.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPipeline wires the pipeline. retriever may be nil, in which case prompts
// are never augmented.
func NewPipeline(store Store, retriever faq.Retriever, generator llm.Generator) *Pipeline {
	return &Pipeline{
		store:     store,
		retriever: retriever,
		generator: generator,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (p *Pipeline) conversationLock(conversationID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[conversationID] = lock
	}
	return lock
}

// Send processes one chat message and returns the stored assistant reply
// along with the conversation id (newly created when conversationID was
// empty or unknown). A generation failure leaves the user message persisted
// with no assistant message appended.
func (p *Pipeline) Send(ctx context.Context, userID, conversationID, message string) (Message, string, error) {
	text := strings.TrimSpace(message)
	if text == "" {
		return Message{}, "", ErrEmptyMessage
	}

	conv, err := p.store.EnsureConversation(ctx, userID, conversationID, text)
	if err != nil {
		return Message{}, "", err
	}

	lock := p.conversationLock(conv.ID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := p.store.AppendMessage(ctx, userID, conv.ID, RoleUser, text); err != nil {
		return Message{}, conv.ID, err
	}

	history, err := p.store.RecentMessages(ctx, userID, conv.ID, HistoryWindow)
	if err != nil {
		return Message{}, conv.ID, err
	}

	prompt := p.assemblePrompt(ctx, history)

	reply, err := p.generator.Generate(ctx, prompt, sendOptions)
	if err != nil {
		return Message{}, conv.ID, fmt.Errorf("generating reply: %w", err)
	}

	assistantMessage, err := p.store.AppendMessage(ctx, userID, conv.ID, RoleAssistant, reply)
	if err != nil {
		return Message{}, conv.ID, err
	}

	return assistantMessage, conv.ID, nil
}

// assemblePrompt augments the conversation context with FAQ records matched
// against the latest question. Retrieval failure is non-fatal: the prompt
// falls back to the unaugmented context.
func (p *Pipeline) assemblePrompt(ctx context.Context, history []Message) string {
	var records []faq.Record
	if p.retriever != nil {
		var err error
		records, err = p.retriever.Search(ctx, LatestQuestion(history), faq.DefaultLimit)
		if err != nil {
			slog.Warn("faq retrieval failed, continuing without context", "error", err)
			records = nil
		}
	}
	return BuildPrompt(history, records)
}
