package agent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/bertel/migration-tool/internal/classify"
	"github.com/bertel/migration-tool/internal/model"
)

// DefaultVerificationThreshold is the error count that triggers guidance.
const DefaultVerificationThreshold = 3

// Adjustment is one guidance change made by a review.
type Adjustment struct {
	Agent    string   `json:"agent"`
	Guidance string   `json:"guidance"`
	Errors   int      `json:"errors"`
	Messages []string `json:"messages"`
}

// Review is the verification result of one run.
type Review struct {
	Status         string         `json:"status"`
	ObservedAgents []string       `json:"observed_agents"`
	Leftovers      map[string]any `json:"leftovers,omitempty"`
	Adjustments    []Adjustment   `json:"adjustments,omitempty"`
}

// Verification turns recurring agent errors into extraction guidance.
type Verification struct {
	guidance  *classify.Guidance
	threshold int
}

// NewVerification returns a verifier over guidance. A threshold below 1
// uses the default.
func NewVerification(guidance *classify.Guidance, threshold int) *Verification {
	if threshold < 1 {
		threshold = DefaultVerificationThreshold
	}
	return &Verification{guidance: guidance, threshold: threshold}
}

// Review inspects the run's fragments. Agents that failed in this run and
// reached the threshold get guidance built from their last three distinct
// messages, and their counters are reset. Review never fails.
func (v *Verification) Review(_ context.Context, fragments []model.RoutedFragment, leftovers map[string]any, c *Context) Review {
	review := Review{Status: model.OutcomeOK, Leftovers: leftovers}
	seen := make(map[string]bool)
	for _, f := range fragments {
		if f.Status != model.FragmentError || seen[f.Agent] {
			continue
		}
		seen[f.Agent] = true
		review.ObservedAgents = append(review.ObservedAgents, f.Agent)

		count, messages := v.guidance.ErrorSummary(f.Agent)
		if count < v.threshold || len(messages) == 0 {
			continue
		}
		text := "Focus on resolving these recurring validation issues: " +
			strings.Join(lastDistinct(messages, 3), "; ") +
			". Ensure emitted rows respect table relations and constraints."
		v.guidance.Set(f.Agent, text)
		v.guidance.Reset(f.Agent)

		review.Adjustments = append(review.Adjustments, Adjustment{
			Agent:    f.Agent,
			Guidance: text,
			Errors:   count,
			Messages: messages,
		})
		zap.L().Info("verification: guidance adjusted",
			zap.String("run_id", c.RunID),
			zap.String("agent", f.Agent),
			zap.Int("errors", count),
		)
	}

	c.Share("verification", map[string]any{
		"observed_agents": review.ObservedAgents,
		"adjustments":     review.Adjustments,
	})
	c.Record(Event{Agent: "verification", Kind: "review", Data: map[string]any{"adjustments": len(review.Adjustments)}})
	return review
}

// lastDistinct returns up to n distinct messages, most recent last.
func lastDistinct(messages []string, n int) []string {
	seen := make(map[string]bool)
	var rev []string
	for i := len(messages) - 1; i >= 0 && len(rev) < n; i-- {
		if seen[messages[i]] {
			continue
		}
		seen[messages[i]] = true
		rev = append(rev, messages[i])
	}
	out := make([]string, len(rev))
	for i, m := range rev {
		out[len(rev)-1-i] = m
	}
	return out
}
