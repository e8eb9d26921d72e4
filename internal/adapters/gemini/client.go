// Package gemini talks to the Gemini API: generateContent over REST and the
// Live bidirectional audio session over a websocket.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nexusflow/nexusflow-client/internal/ports/out/model"
)

const apiKeyHeader = "x-goog-api-key"

type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client implements model.Generator.
type Client struct {
	http  *resty.Client
	model string
}

func NewClient(opts Options) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader(apiKeyHeader, opts.APIKey)
	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}
	return &Client{http: c, model: opts.Model}
}

var _ model.Generator = (*Client)(nil)

// Generate sends req as a single user turn constrained to JSON output and
// returns the text of the first candidate.
func (c *Client) Generate(ctx context.Context, req model.Request) (string, error) {
	body := GenerateContentRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: req.Prompt}}}},
	}
	if req.Schema != nil {
		body.GenerationConfig = &GenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   req.Schema,
		}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("model", c.model).
		SetBody(&body).
		Post("/v1beta/models/{model}:generateContent")
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	if resp.IsError() {
		var ae APIError
		if json.Unmarshal(resp.Body(), &ae) == nil && ae.Error.Message != "" {
			return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode(), ae.Error.Message)
		}
		return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode(), resp.String())
	}

	var out GenerateContentResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked prompt: %s", out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	return out.Text(), nil
}
