package openai

import (
	"context"
	"encoding/json"
	"fmt"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"telegramRiskBot/internal/risk"
)

const systemPrompt = `You are a risk analyst explaining a parametric Value-at-Risk report to a non-specialist.

You will receive the report as JSON. Write at most five short sentences:
- what the one-day VaR figure means in plain money terms at the given confidence
- how it grows with the holding period (square-root-of-time scaling)
- which holding drives the risk, judging by weights and the covariance matrix
- one caveat about the normal-distribution assumption

Do not give trading advice. Do not invent numbers that are not in the report.`

// Commentator produces a short plain-language reading of a VaR report.
type Commentator struct {
	cli   oa.Client
	model string
}

func NewCommentator(apiKey, model string, opts ...option.RequestOption) *Commentator {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Commentator{cli: oa.NewClient(opts...), model: model}
}

func (c *Commentator) Explain(ctx context.Context, r *risk.Report) (string, error) {
	if r == nil {
		return "", fmt.Errorf("no report to explain")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: c.model,
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage(fmt.Sprintf("VaR report:\n%s", payload)),
		},
		MaxTokens: oa.Int(400), // keep it caption sized
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}
