package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bertel/migration-tool/internal/config"
	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/resilience"
	"github.com/bertel/migration-tool/pkg/anthropic"
)

const classifyPrompt = `You route fields of a tourism establishment record to specialised ingestion agents.
Each agent owns one slice of the destination schema. Assign every field to at most one agent, or leave it out when no agent fits.
Use the attribute name the agent expects when you can; otherwise reuse the field name in lowercase snake_case.

Respond with ONLY valid JSON, no other text:
{"assignments": [{"field": "...", "agent": "...", "attribute": "...", "rationale": "..."}]}`

const transformPrompt = `You convert noisy establishment data into rows for a relational tourism database.
Follow the expected JSON shape exactly. Never invent values that are not in the payload; omit unknown fields.
Codes are lowercase snake_case without accents. Days are English lowercase day names.

Respond with ONLY valid JSON matching the expected shape, no other text.`

// AnthropicService classifies and extracts with Claude.
type AnthropicService struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
	guidance  *Guidance
	policy    resilience.Policy
}

// NewAnthropicService builds the Claude-backed service. guidance may be nil.
func NewAnthropicService(client anthropic.Client, cfg config.AnthropicConfig, guidance *Guidance) *AnthropicService {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &AnthropicService{
		client:    client,
		model:     cfg.Model,
		maxTokens: maxTokens,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		guidance:  guidance,
		policy: resilience.Policy{
			Service: "anthropic",
			Retry:   resilience.DefaultRetryConfig(),
		},
	}
}

// WithPolicy replaces the retry/breaker policy around API calls.
func (s *AnthropicService) WithPolicy(p resilience.Policy) *AnthropicService {
	s.policy = p
	return s
}

func (s *AnthropicService) Name() string { return "anthropic" }

type classifyResponse struct {
	Assignments []model.FieldAssignment `json:"assignments"`
}

func (s *AnthropicService) ClassifyFields(ctx context.Context, fields map[string]any, descriptors []model.AgentDescriptor) (*model.RoutingDecision, error) {
	var agents strings.Builder
	for _, d := range descriptors {
		fmt.Fprintf(&agents, "- %s: %s (accepts: %s)\n", d.Name, d.Description, strings.Join(d.AcceptedFields, ", "))
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, eris.Wrap(err, "classify: marshal fields")
	}
	user := fmt.Sprintf("Agents:\n%s\nRecord fields:\n%s", agents.String(), payload)

	text, err := s.complete(ctx, "classify", classifyPrompt, user)
	if err != nil {
		return nil, err
	}

	var resp classifyResponse
	if err := json.Unmarshal([]byte(cleanJSON(text)), &resp); err != nil {
		return nil, eris.Wrap(err, "classify: parse classification")
	}

	decision := model.NewRoutingDecision()
	for _, a := range resp.Assignments {
		value, ok := fields[a.Field]
		if !ok || decision.AssignedTo(a.Field) != "" {
			continue
		}
		decision.Assign(a, value)
	}
	for _, field := range model.SortedKeys(fields) {
		if decision.AssignedTo(field) == "" {
			decision.Leftovers[field] = fields[field]
		}
	}
	return decision, nil
}

func (s *AnthropicService) TransformFragment(ctx context.Context, agent string, payload map[string]any, out any, snapshot map[string]any) error {
	shape, err := json.Marshal(out)
	if err != nil {
		return eris.Wrap(err, "classify: marshal expected shape")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "classify: marshal payload")
	}
	ctxJSON, err := json.Marshal(snapshot)
	if err != nil {
		return eris.Wrap(err, "classify: marshal context")
	}

	system := transformPrompt
	if g := s.guidance.For(agent); g != "" {
		system += "\n\n" + g
	}
	user := fmt.Sprintf("Agent: %s\nExpected shape: %s\nRun context: %s\nPayload: %s", agent, shape, ctxJSON, body)

	text, err := s.complete(ctx, "transform:"+agent, system, user)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(cleanJSON(text)), out); err != nil {
		return eris.Wrapf(err, "classify: parse %s transformation", agent)
	}
	return nil
}

func (s *AnthropicService) complete(ctx context.Context, phase, system, user string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "classify: rate limit wait")
	}

	resp, err := resilience.Call(ctx, s.policy, phase, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		resp, err := s.client.CreateMessage(ctx, anthropic.JSONRequest(s.model, s.maxTokens, system, user))
		if err != nil {
			if code := anthropic.StatusCode(err); resilience.IsTransientHTTPStatus(code) {
				return nil, resilience.NewTransientError(err, code)
			}
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		return "", eris.Wrapf(err, "classify: %s", phase)
	}

	resp.Usage.LogCost(s.model, phase)
	if resp.Truncated() {
		return "", eris.Errorf("classify: %s: response truncated at %d tokens", phase, s.maxTokens)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		zap.L().Warn("classify: empty model response", zap.String("phase", phase))
		return "", eris.Errorf("classify: %s: empty response", phase)
	}
	return text, nil
}

// cleanJSON extracts a JSON object from text that may contain markdown code
// fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
