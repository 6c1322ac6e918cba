package anthropic

// instructionsTTL keeps the routing and extraction instructions in the
// prompt cache across a batch of envelopes.
const instructionsTTL = "1h"

// CachedInstructions returns the system blocks for a fixed instruction
// text, marked as a cache breakpoint.
func CachedInstructions(text string) []SystemBlock {
	return []SystemBlock{{Text: text, CacheControl: &CacheControl{TTL: instructionsTTL}}}
}

// JSONRequest builds a single-turn request whose answer is expected to be a
// JSON document. Temperature is pinned to zero so that the same record
// routes the same way on every run.
func JSONRequest(model string, maxTokens int64, instructions, input string) MessageRequest {
	zero := 0.0
	return MessageRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      CachedInstructions(instructions),
		Messages:    []Message{{Role: "user", Content: input}},
		Temperature: &zero,
	}
}
