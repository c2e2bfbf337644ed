// Package advisor asks a chat-completion model for marketing advice and
// motivation. It never fails: every error turns into fixed fallback text.
package advisor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/susu3304/bizbot/internal/observability"
)

const (
	DefaultModel   = openai.GPT4oMini
	DefaultTimeout = 30 * time.Second

	MarketingFallback  = "Couldn't get advice right now. Please try again later."
	MotivationFallback = "Today is a great day for success! 💪"

	marketingSystem  = "You are an experienced marketer. Help briefly and clearly."
	motivationSystem = "You are a sales coach. Give a short motivating phrase."
	motivationPrompt = "Motivate me to succeed in sales."
)

var errNoChoices = errors.New("completion returned no choices")

// completer is the slice of the OpenAI client the advisor needs.
type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

type Advisor struct {
	client  completer
	model   string
	timeout time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New returns an advisor. Without an API key every call returns the fallback.
func New(cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Advisor {
	var client completer
	if cfg.APIKey != "" {
		client = openai.NewClient(cfg.APIKey)
	}
	return newAdvisor(client, cfg, logger, metrics)
}

func newAdvisor(client completer, cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Advisor {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Advisor{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
		metrics: metrics,
	}
}

func (a *Advisor) MarketingAdvice(ctx context.Context, problem string) string {
	return a.ask(ctx, "marketing", marketingSystem, problem, 0.7, MarketingFallback)
}

func (a *Advisor) Motivation(ctx context.Context) string {
	return a.ask(ctx, "motivation", motivationSystem, motivationPrompt, 0.9, MotivationFallback)
}

func (a *Advisor) ask(ctx context.Context, op, system, user string, temperature float32, fallback string) string {
	if a.client == nil {
		a.metrics.AdvisorFailure(op)
		a.logger.Warn("advisor disabled, using fallback", "op", op)
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
	})
	if err == nil && len(resp.Choices) == 0 {
		err = errNoChoices
	}
	var text string
	if err == nil {
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
		if text == "" {
			err = errNoChoices
		}
	}
	if err != nil {
		a.metrics.AdvisorFailure(op)
		a.logger.Error("advisor call failed", "op", op, "error", err)
		return fallback
	}
	a.logger.Info("advisor reply generated", "op", op)
	return text
}
