package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"doc-assistant/internal/shared/metrics"
	"doc-assistant/internal/shared/telemetry"
	"doc-assistant/internal/shared/util"
)

const (
	// MaxOutputTokens bounds every generated response.
	MaxOutputTokens = 4096
	// Temperature is the fixed sampling temperature for every request.
	Temperature = 0.7

	documentHeader = "\n\nDocument Content:\n"
)

// ErrGenerationFailed classifies every failure of the remote generation call.
var ErrGenerationFailed = errors.New("generation failed")

// Provider submits one combined prompt to a remote text-generation service.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// GenerationError carries the provider's message for a failed call.
type GenerationError struct {
	Provider string
	Cause    error
}

func (e *GenerationError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("%s: %v", ErrGenerationFailed, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %v", ErrGenerationFailed, e.Provider, e.Cause)
}

// Message is the underlying provider message shown to the user.
func (e *GenerationError) Message() string {
	if e.Cause == nil {
		return ErrGenerationFailed.Error()
	}
	return e.Cause.Error()
}

func (e *GenerationError) Unwrap() []error {
	return []error{ErrGenerationFailed, e.Cause}
}

// Result is either generated text or a classified failure.
type Result struct {
	Text string
	Err  *GenerationError
}

// OK reports whether generation produced text.
func (r Result) OK() bool {
	return r.Err == nil
}

// BuildPrompt joins the instruction and the document text under a fixed header.
func BuildPrompt(instruction, documentText string) string {
	return instruction + documentHeader + documentText
}

// Client turns provider calls into typed results.
type Client struct {
	Provider Provider
}

// NewClient wraps a provider.
func NewClient(p Provider) *Client {
	return &Client{Provider: p}
}

// Generate issues exactly one blocking provider call for the instruction and document.
func (c *Client) Generate(ctx context.Context, instruction, documentText string) Result {
	if c == nil || c.Provider == nil {
		return Result{Err: &GenerationError{Cause: errors.New("generation provider not configured")}}
	}
	prompt := BuildPrompt(instruction, documentText)
	name := c.Provider.Name()

	metrics.IncGenerationStarted()
	start := time.Now()
	text, err := c.Provider.Complete(ctx, prompt)
	metrics.ObserveGenerationDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty response")
	}

	fields := map[string]any{
		"provider":      name,
		"prompt_sha256": util.HashKey(prompt),
		"prompt_chars":  len(prompt),
		"duration_ms":   float64(time.Since(start).Microseconds()) / 1000.0,
	}
	if err != nil {
		metrics.IncGenerationFailed()
		fields["error"] = err.Error()
		telemetry.Error("llm.generate.failed", fields)
		return Result{Err: &GenerationError{Provider: name, Cause: err}}
	}
	metrics.IncGenerationCompleted()
	fields["output_chars"] = len(text)
	telemetry.Info("llm.generate", fields)
	return Result{Text: text}
}
