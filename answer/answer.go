// Package answer composes chat replies from retrieved resume context using
// an LLM, with a deterministic fallback when generation is unavailable.
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/jobtalk/jobtalk/llm"
	"github.com/jobtalk/jobtalk/logging"
)

// systemPrompt keeps the model grounded in the retrieved chunks.
const systemPrompt = "You are a helpful assistant answering questions about a candidate's resume. " +
	"Answer strictly from the provided resume context. " +
	"If the answer is not in the context, say that the resume does not mention it. " +
	"Keep answers concise."

// answerTemperature keeps replies factual rather than creative.
const answerTemperature = 0.2

// Composer turns a question and retrieved context into a reply.
type Composer struct {
	provider llm.Provider
	log      *logging.Logger
}

// NewComposer creates a composer over the given provider. A nil provider is
// allowed; every turn then takes the degraded path.
func NewComposer(provider llm.Provider, log *logging.Logger) *Composer {
	return &Composer{
		provider: provider,
		log:      log.WithComponent("answer"),
	}
}

// Answer generates a reply to the question using the retrieved context.
// Generation failures never fail the turn: the reply degrades to a canned
// response built from the context, and degraded reports that it did.
func (c *Composer) Answer(ctx context.Context, question, contextText string) (reply string, degraded bool) {
	if c.provider == nil {
		return fallbackReply(question, contextText), true
	}

	var user strings.Builder
	if contextText != "" {
		user.WriteString("Resume context:\n")
		user.WriteString(contextText)
		user.WriteString("\n\n")
	} else {
		user.WriteString("No resume context was retrieved for this question.\n\n")
	}
	user.WriteString("Question: ")
	user.WriteString(question)

	resp, err := c.provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: user.String()},
		},
		Temperature: answerTemperature,
	})
	if err != nil {
		c.log.Warn("generation_failed", map[string]interface{}{"error": err.Error()})
		return fallbackReply(question, contextText), true
	}
	reply = strings.TrimSpace(resp.Content)
	if reply == "" {
		c.log.Warn("generation_empty", nil)
		return fallbackReply(question, contextText), true
	}

	return reply, false
}

// fallbackReply builds a reply without the LLM. With context it surfaces the
// retrieved chunks directly; without, it says so and restates the question.
func fallbackReply(question, contextText string) string {
	if contextText != "" {
		return fmt.Sprintf(
			"I couldn't generate a full answer right now. Here is what the resume says that may relate to %q:\n\n%s",
			question, contextText)
	}
	return fmt.Sprintf(
		"I couldn't generate an answer right now and no resume context is available for %q. "+
			"Try uploading a resume first.", question)
}
