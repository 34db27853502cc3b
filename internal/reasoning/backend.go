// Package reasoning answers conversational queries with GPT-4o over
// retrieved memory chunks and the recent question/answer history.
package reasoning

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/openai/openai-go"

	"github.com/plugmemory/plugmem/internal/hybrid"
	"github.com/plugmemory/plugmem/internal/storage"
)

// DefaultMaxTokens is the maximum evidence length before truncation (in tokens).
const DefaultMaxTokens = 16000

const systemPrompt = `You are a memory assistant. You answer questions using excerpts
retrieved from the user's past conversations. Ground every claim in the provided
excerpts; when they do not contain the answer, say so plainly instead of guessing.
Keep answers concise.`

// Backend produces conversational answers using GPT-4o.
type Backend struct {
	client    *openai.Client
	maxTokens int
}

// NewBackend creates a reasoning backend with the given OpenAI client.
// Optional maxTokens parameter sets the evidence truncation limit
// (defaults to DefaultMaxTokens).
func NewBackend(client *openai.Client, maxTokens ...int) *Backend {
	max := DefaultMaxTokens
	if len(maxTokens) > 0 && maxTokens[0] > 0 {
		max = maxTokens[0]
	}
	return &Backend{
		client:    client,
		maxTokens: max,
	}
}

// Answer responds to a question using the retrieved evidence and the bounded
// conversation history, oldest turn first.
func (b *Backend) Answer(ctx context.Context, question string, evidence []storage.ScoredRecord, history []hybrid.Turn) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
	}
	for _, turn := range history {
		messages = append(messages,
			openai.UserMessage(turn.Question),
			openai.AssistantMessage(turn.Answer),
		)
	}

	prompt := fmt.Sprintf(`Conversation excerpts retrieved from memory:

%s

Question: %s`, b.formatEvidence(evidence), question)
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModelGPT4o,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// formatEvidence renders the retrieved chunks as a numbered list with their
// provenance, truncated to fit within the token budget.
func (b *Backend) formatEvidence(evidence []storage.ScoredRecord) string {
	if len(evidence) == 0 {
		return "(no matching excerpts were found)"
	}

	var sb strings.Builder
	for i, m := range evidence {
		rec := m.Record
		fmt.Fprintf(&sb, "[%d] source=%s role=%s", i+1, rec.Source, rec.Role)
		if rec.Timestamp != nil {
			fmt.Fprintf(&sb, " time=%s", rec.Timestamp.Format("2006-01-02 15:04"))
		}
		sb.WriteString("\n")
		sb.WriteString(rec.Content)
		sb.WriteString("\n\n")
	}
	return b.truncate(sb.String())
}

// truncate trims evidence text to fit within token limits.
// Uses rough estimate of 4 characters per token.
func (b *Backend) truncate(text string) string {
	maxChars := b.maxTokens * 4
	if len(text) <= maxChars {
		return text
	}

	log.Printf("Warning: Truncating evidence from %d to %d characters (estimated %d tokens)",
		len(text), maxChars, b.maxTokens)

	return text[:maxChars]
}
