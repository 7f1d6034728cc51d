package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/suPer8Hu/ai-assistant/internal/common"
)

const (
	FallbackReply = "I'm sorry, I'm having trouble processing your request right now. Please try again later."
	EmptyReply    = "Sorry, I couldn't generate a response."

	summarySystemPrompt = "You are an email summarization assistant. Extract the key information from the provided email " +
		"and return it as a JSON object with the fields subject (string), keyInfo (string), actionItems (array of strings), " +
		"deadline (string, optional) and sender (string, optional)."
)

type EmailSummary struct {
	Subject     string   `json:"subject"`
	KeyInfo     string   `json:"keyInfo"`
	ActionItems []string `json:"actionItems"`
	Deadline    *string  `json:"deadline,omitempty"`
	Sender      *string  `json:"sender,omitempty"`
}

// PlaceholderSummary is returned when the provider fails or its output
// cannot be parsed.
func PlaceholderSummary() EmailSummary {
	return EmailSummary{
		Subject:     "Summary unavailable",
		KeyInfo:     "We couldn't summarize this email right now. The AI service did not return a usable summary.",
		ActionItems: []string{"Please try again later."},
	}
}

// Assistant is the only thing callers use to reach the LLM. Its public
// methods always return a value; provider failures become fallbacks.
type Assistant struct {
	provider Provider
	timeout  time.Duration
	logger   *log.Logger
}

func NewAssistant(provider Provider, timeout time.Duration) *Assistant {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Assistant{
		provider: provider,
		timeout:  timeout,
		logger:   log.Default().WithPrefix("ai"),
	}
}

// GenerateReply answers the conversation history (oldest first).
func (a *Assistant) GenerateReply(ctx context.Context, history []Message) string {
	reply, err := a.reply(ctx, history)
	if err != nil {
		a.logger.Error("generate reply failed, using fallback", "err", err, "history", len(history))
		return FallbackReply
	}
	return reply
}

func (a *Assistant) reply(ctx context.Context, history []Message) (string, error) {
	if a.provider == nil {
		return "", common.UpstreamProviderError(errors.New("no provider configured"))
	}
	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	out, err := a.provider.Chat(cctx, history)
	if err != nil {
		return "", common.UpstreamProviderError(err)
	}
	if strings.TrimSpace(out) == "" {
		return EmptyReply, nil
	}
	return out, nil
}

// SummarizeEmail extracts subject, key information and action items.
func (a *Assistant) SummarizeEmail(ctx context.Context, raw string) EmailSummary {
	s, err := a.summarize(ctx, raw)
	if err != nil {
		a.logger.Error("summarize email failed, using placeholder", "err", err, "bytes", len(raw))
		return PlaceholderSummary()
	}
	return s
}

func (a *Assistant) summarize(ctx context.Context, raw string) (EmailSummary, error) {
	if a.provider == nil {
		return EmailSummary{}, common.UpstreamProviderError(errors.New("no provider configured"))
	}
	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	msgs := []Message{
		{Role: RoleSystem, Content: summarySystemPrompt},
		{Role: RoleUser, Content: "Summarize this email: " + raw},
	}

	var (
		out string
		err error
	)
	if jp, ok := a.provider.(JSONProvider); ok {
		out, err = jp.ChatJSON(cctx, msgs)
	} else {
		out, err = a.provider.Chat(cctx, msgs)
	}
	if err != nil {
		return EmailSummary{}, common.UpstreamProviderError(err)
	}
	return ParseSummary(out)
}

type rawSummary struct {
	Subject          string   `json:"subject"`
	KeyInfo          string   `json:"keyInfo"`
	KeyInfoSnake     string   `json:"key_info"`
	ActionItems      []string `json:"actionItems"`
	ActionItemsSnake []string `json:"action_items"`
	Deadline         *string  `json:"deadline"`
	Sender           *string  `json:"sender"`
}

// ParseSummary decodes a provider reply. Both camelCase and snake_case keys
// are accepted and missing fields get defaults.
func ParseSummary(out string) (EmailSummary, error) {
	body := stripCodeFence(out)
	if body == "" {
		body = "{}"
	}
	var r rawSummary
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return EmailSummary{}, err
	}

	s := EmailSummary{
		Subject:     r.Subject,
		KeyInfo:     r.KeyInfo,
		ActionItems: r.ActionItems,
		Deadline:    nonEmpty(r.Deadline),
		Sender:      nonEmpty(r.Sender),
	}
	if s.Subject == "" {
		s.Subject = "Unknown Subject"
	}
	if s.KeyInfo == "" {
		s.KeyInfo = r.KeyInfoSnake
	}
	if s.KeyInfo == "" {
		s.KeyInfo = "No key information found"
	}
	if s.ActionItems == nil {
		s.ActionItems = r.ActionItemsSnake
	}
	if s.ActionItems == nil {
		s.ActionItems = []string{}
	}
	return s, nil
}

func nonEmpty(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	return p
}

// stripCodeFence removes a ```json ... ``` wrapper some models add outside JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
