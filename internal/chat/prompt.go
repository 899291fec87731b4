package chat

import (
	"fmt"
	"strings"

	"chat-backend/internal/faq"
)

// HistoryWindow caps how many recent messages enter a prompt. This bounds
// prompt size without real token counting.
const HistoryWindow = 10

const systemInstruction = "You are a helpful assistant for the Opportunity Center. " +
	"Provide a single concise answer to the most recent user question. " +
	"Do not invent or ask questions. Reply with only the answer text, no prefixes or labels. " +
	"Keep replies under 80 words."

const contextHeader = "Relevant information from the Opportunity Center:\n"

// window returns the last HistoryWindow messages in original order.
func window(history []Message) []Message {
	if len(history) > HistoryWindow {
		return history[len(history)-HistoryWindow:]
	}
	return history
}

// LatestQuestion returns the content of the most recent user message inside
// the history window, or "" when the window has none.
func LatestQuestion(history []Message) string {
	recent := window(history)
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Role == RoleUser {
			return recent[i].Content
		}
	}
	return ""
}

func historyBlock(recent []Message) string {
	lines := make([]string, len(recent))
	for i, message := range recent {
		role := "Assistant"
		if message.Role == RoleUser {
			role = "User"
		}
		lines[i] = fmt.Sprintf("%s: %s", role, message.Content)
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt assembles the final generation prompt: a fixed system
// instruction, an optional FAQ context block, the recent history, and the
// latest question ending in an "Answer:" cue. Deterministic for a given
// history and FAQ result.
func BuildPrompt(history []Message, records []faq.Record) string {
	recent := window(history)

	conversationContext := fmt.Sprintf(
		"Recent conversation:\n%s\n\nAnswer the latest user question once. Do not add new questions.\nLatest question: %s\nAnswer:",
		historyBlock(recent), LatestQuestion(history),
	)

	if len(records) > 0 {
		var b strings.Builder
		b.WriteString(contextHeader)
		for _, record := range records {
			fmt.Fprintf(&b, "- %s: %s\n", record.Question, record.Answer)
		}
		b.WriteString("\n")
		b.WriteString(conversationContext)
		conversationContext = b.String()
	}

	return systemInstruction + "\n\n" + conversationContext
}
