// Package llm wraps the text-generation backends behind a single Generator
// interface. The chat pipeline hands it a fully assembled prompt; standalone
// callers can enable WrapPrompt to get a generic Question/Answer scaffold.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrEmptyPrompt = errors.New("prompt must not be empty")

// GenerationError reports a failed backend call, carrying whatever detail the
// backend returned.
type GenerationError struct {
	Detail string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failed: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("generation failed: %s", e.Detail)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

type Options struct {
	MaxTokens   int
	Temperature float64
	TopP        float64

	// WrapPrompt wraps the prompt in a generic instruction plus a
	// Question/Answer scaffold before sending.
	WrapPrompt bool

	// StripAfter discards everything in the reply up to and including the
	// first occurrence of this marker, removing echoed scaffold text.
	StripAfter string
}

type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

const wrapInstruction = "You are a helpful, knowledgeable AI assistant for the Opportunity Center. " +
	"Answer the following question clearly and concisely."

const answerCue = "Answer:"

func wrapPrompt(prompt string) string {
	return wrapInstruction + "\n\nQuestion:\n" + strings.TrimSpace(prompt) + "\n\n" + answerCue
}

// cleanReply trims the raw model output and strips echoed scaffold text: the
// configured marker first, falling back to the wrap scaffold's own cue when
// wrapping was enabled.
func cleanReply(raw string, opts Options) string {
	reply := strings.TrimSpace(raw)
	if opts.StripAfter != "" && strings.Contains(reply, opts.StripAfter) {
		_, after, _ := strings.Cut(reply, opts.StripAfter)
		return strings.TrimSpace(after)
	}
	if opts.WrapPrompt {
		if _, after, ok := strings.Cut(reply, answerCue); ok {
			return strings.TrimSpace(after)
		}
	}
	return reply
}
