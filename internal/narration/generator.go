// Package narration generates per-slide narration text through a chain of
// language models with independent retry and backoff policy, and normalizes
// generated scripts for speech synthesis.
package narration

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/logger"
	openai "github.com/sashabaranov/go-openai"
)

// Default policy values. These are policy, not structure; override them
// through Config.
const (
	DefaultBackoffBase = 30 * time.Second
	DefaultBackoffStep = 10 * time.Second
	DefaultMinLength   = 10
)

// Log formats.
const (
	logFmtTryingModel      = "Trying model %s (max %d attempts)"
	logFmtShortOutput      = "Model %s returned %d chars, below minimum %d; retrying"
	logFmtRateLimited      = "Model %s rate limited on attempt %d/%d, backing off %s"
	logFmtBadCredentials   = "Model %s rejected credentials, skipping to next model"
	logFmtAttemptFailed    = "Attempt %d/%d with model %s failed: %v"
	logFmtModelExhausted   = "Model %s exhausted, advancing to next model"
	logFmtGenerated        = "Generated %d chars of narration with model %s"
	logFmtChainExhausted   = "All models exhausted, using fallback narration text"
)

// failureKind classifies one failed generation attempt.
type failureKind int

const (
	failureOther failureKind = iota
	failureRateLimited
	failureBadCredentials
)

// ModelPolicy pairs a model identifier with its retry budget.
type ModelPolicy struct {
	Name        string
	MaxAttempts int
}

// ChatCompleter is the slice of the generation API the generator needs.
// *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(
		ctx context.Context,
		request openai.ChatCompletionRequest,
	) (openai.ChatCompletionResponse, error)
}

// Config holds the fallback chain policy: the ordered model list and the
// backoff constants. Zero-valued fields fall back to the package defaults.
type Config struct {
	Models      []ModelPolicy
	BackoffBase time.Duration
	BackoffStep time.Duration
	MinLength   int
}

// Generator tries an ordered list of models until one produces a usable
// narration script. Rate-limit errors back off and retry, credential errors
// skip to the next model, and a fully exhausted chain degrades to canned
// text; Generate itself never fails.
type Generator struct {
	client      ChatCompleter
	models      []ModelPolicy
	backoffBase time.Duration
	backoffStep time.Duration
	minLength   int
	log         *logger.Logger
	sleep       func(time.Duration)
}

// New creates a narration generator with blocking backoff sleeps.
func New(client ChatCompleter, cfg Config, log *logger.Logger) *Generator {
	return NewWithSleep(client, cfg, log, time.Sleep)
}

// NewWithSleep creates a narration generator with an injectable sleep
// function. This constructor is primarily for testing backoff behavior
// without real delays.
func NewWithSleep(
	client ChatCompleter,
	cfg Config,
	log *logger.Logger,
	sleep func(time.Duration),
) *Generator {
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}

	if cfg.BackoffStep <= 0 {
		cfg.BackoffStep = DefaultBackoffStep
	}

	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultMinLength
	}

	return &Generator{
		client:      client,
		models:      cfg.Models,
		backoffBase: cfg.BackoffBase,
		backoffStep: cfg.BackoffStep,
		minLength:   cfg.MinLength,
		log:         log,
		sleep:       sleep,
	}
}

// Generate produces narration text for the prompt, trying each configured
// model in order with its own retry budget. The sole success exit is a
// response longer than the minimum length; when every model is exhausted the
// caller-supplied fallback text is returned.
func (g *Generator) Generate(ctx context.Context, prompt, fallbackText string) string {
	for _, model := range g.models {
		g.log.Info(logFmtTryingModel, model.Name, model.MaxAttempts)

		script, found := g.tryModel(ctx, model, prompt)
		if found {
			return script
		}
	}

	g.log.Warn(logFmtChainExhausted)

	return fallbackText
}

// tryModel runs the per-model attempt loop. It reports the script and true on
// a qualifying success, or false once the model's attempts are exhausted or a
// credential failure abandons it.
func (g *Generator) tryModel(
	ctx context.Context,
	model ModelPolicy,
	prompt string,
) (string, bool) {
	for attempt := 1; attempt <= model.MaxAttempts; attempt++ {
		script, generateErr := g.generateOnce(ctx, model.Name, prompt)
		if generateErr == nil {
			if len(script) > g.minLength {
				g.log.Info(logFmtGenerated, len(script), model.Name)

				return script, true
			}

			// Empty or too-short output is retryable on the same model.
			g.log.Warn(logFmtShortOutput, model.Name, len(script), g.minLength)

			continue
		}

		switch classifyFailure(generateErr) {
		case failureRateLimited:
			wait := g.backoffBase +
				time.Duration(attempt-1)*g.backoffStep
			g.log.Warn(
				logFmtRateLimited,
				model.Name,
				attempt,
				model.MaxAttempts,
				wait,
			)
			g.sleep(wait)
		case failureBadCredentials:
			g.log.Error(logFmtBadCredentials, model.Name)

			return "", false
		case failureOther:
			// Retry immediately, no sleep.
			g.log.Warn(
				logFmtAttemptFailed,
				attempt,
				model.MaxAttempts,
				model.Name,
				generateErr,
			)
		}
	}

	g.log.Warn(logFmtModelExhausted, model.Name)

	return "", false
}

// generateOnce issues a single generation call against one model.
func (g *Generator) generateOnce(
	ctx context.Context,
	modelName, prompt string,
) (string, error) {
	response, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", err
	}

	if len(response.Choices) == 0 {
		return "", nil
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

// classifyFailure sorts a generation error into the three policy buckets:
// rate limiting (backoff and retry), bad credentials (skip to next model),
// and everything else (retry immediately).
func classifyFailure(err error) failureKind {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return failureRateLimited
		case http.StatusUnauthorized, http.StatusForbidden:
			return failureBadCredentials
		}
	}

	message := strings.ToLower(err.Error())
	if strings.Contains(message, "429") || strings.Contains(message, "quota") {
		return failureRateLimited
	}

	if strings.Contains(message, "api_key_invalid") ||
		strings.Contains(message, "invalid api key") {
		return failureBadCredentials
	}

	return failureOther
}
