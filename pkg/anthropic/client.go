// Package anthropic wraps the Anthropic SDK behind the single call the
// field classifier makes: one system prompt, one JSON payload in, one JSON
// document out.
package anthropic

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Client is satisfied by the SDK-backed client and by test doubles.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

type MessageRequest struct {
	Model       string
	MaxTokens   int64
	System      []SystemBlock
	Messages    []Message
	Temperature *float64
}

type SystemBlock struct {
	Text         string
	CacheControl *CacheControl
}

// CacheControl marks a system block as a prompt cache breakpoint.
type CacheControl struct {
	TTL string
}

type Message struct {
	Role    string
	Content string
}

// MessageResponse carries the text blocks and usage of one model answer.
type MessageResponse struct {
	ID         string
	Model      string
	Content    []ContentBlock
	StopReason string
	Usage      TokenUsage
}

// Text joins the text blocks. Other block types are ignored.
func (r *MessageResponse) Text() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range r.Content {
		if c.Type == "text" || c.Type == "" {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

// Truncated reports whether the answer hit the token ceiling, in which case
// any JSON it carries is incomplete.
func (r *MessageResponse) Truncated() bool {
	return r != nil && r.StopReason == stopMaxTokens
}

const stopMaxTokens = "max_tokens"

type ContentBlock struct {
	Type string
	Text string
}

type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// modelPricing is {input, output} USD per million tokens.
var modelPricing = map[string][2]float64{
	"claude-haiku-4-5-20251001":  {0.80, 4.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
}

// EstimateCost returns the USD cost of u for model, or 0 for unknown models.
// Cache writes bill at 1.25x input and cache reads at 0.1x.
func (u TokenUsage) EstimateCost(model string) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		return 0
	}
	in := float64(u.InputTokens) + 1.25*float64(u.CacheCreationInputTokens) + 0.1*float64(u.CacheReadInputTokens)
	return (in*pricing[0] + float64(u.OutputTokens)*pricing[1]) / 1e6
}

// LogCost logs the usage of one classifier call. phase is "classify" or
// "transform:<agent>".
func (u TokenUsage) LogCost(model, phase string) {
	zap.L().Debug("anthropic: usage",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_read_tokens", u.CacheReadInputTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	)
}

type sdkClient struct {
	client sdk.Client
}

// NewClient returns a Client for apiKey. opts are passed to the SDK, which
// is how tests point it at an httptest server.
func NewClient(apiKey string, opts ...option.RequestOption) Client {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &sdkClient{client: sdk.NewClient(opts...)}
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	msg, err := c.client.Messages.New(ctx, newParams(req))
	if err != nil {
		return nil, eris.Wrapf(err, "anthropic: create message (model %s)", req.Model)
	}
	return fromSDKMessage(msg), nil
}

func newParams(req MessageRequest) sdk.MessageNewParams {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  toSDKMessages(req.Messages),
	}
	if len(req.System) > 0 {
		params.System = toSDKSystemBlocks(req.System)
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	return params
}

// toSDKMessages maps any role other than "assistant" to a user turn.
func toSDKMessages(msgs []Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == "assistant" {
			out = append(out, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
			continue
		}
		out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
	}
	return out
}

func toSDKSystemBlocks(blocks []SystemBlock) []sdk.TextBlockParam {
	out := make([]sdk.TextBlockParam, 0, len(blocks))
	for _, b := range blocks {
		block := sdk.TextBlockParam{Text: b.Text}
		if b.CacheControl != nil {
			block.CacheControl = sdk.NewCacheControlEphemeralParam()
			if b.CacheControl.TTL != "" {
				block.CacheControl.TTL = sdk.CacheControlEphemeralTTL(b.CacheControl.TTL)
			}
		}
		out = append(out, block)
	}
	return out
}

func fromSDKMessage(msg *sdk.Message) *MessageResponse {
	resp := &MessageResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Content:    make([]ContentBlock, 0, len(msg.Content)),
		StopReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:              msg.Usage.InputTokens,
			OutputTokens:             msg.Usage.OutputTokens,
			CacheCreationInputTokens: msg.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     msg.Usage.CacheReadInputTokens,
		},
	}
	for _, b := range msg.Content {
		resp.Content = append(resp.Content, ContentBlock{Type: b.Type, Text: b.Text})
	}
	return resp
}

// StatusCode returns the HTTP status of an API error, or 0 when err did not
// come from an API response.
func StatusCode(err error) int {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
