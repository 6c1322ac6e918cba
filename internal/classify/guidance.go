package classify

import "sync"

// Guidance tracks validation errors per agent and holds the steering text
// appended to that agent's extraction prompt.
type Guidance struct {
	mu       sync.Mutex
	counts   map[string]int
	messages map[string][]string
	text     map[string]string
}

// NewGuidance returns an empty tracker.
func NewGuidance() *Guidance {
	return &Guidance{
		counts:   make(map[string]int),
		messages: make(map[string][]string),
		text:     make(map[string]string),
	}
}

// maxMessages bounds the messages kept per agent.
const maxMessages = 20

// RecordError counts one failure for agent.
func (g *Guidance) RecordError(agent, message string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counts[agent]++
	if message == "" {
		return
	}
	msgs := append(g.messages[agent], message)
	if len(msgs) > maxMessages {
		msgs = msgs[len(msgs)-maxMessages:]
	}
	g.messages[agent] = msgs
}

// ErrorSummary returns the failure count and recorded messages for agent.
func (g *Guidance) ErrorSummary(agent string) (int, []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts[agent], append([]string(nil), g.messages[agent]...)
}

// Reset clears the counters for agent. Steering text is kept.
func (g *Guidance) Reset(agent string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.counts, agent)
	delete(g.messages, agent)
}

// Set replaces the steering text for agent.
func (g *Guidance) Set(agent, text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.text[agent] = text
}

// For returns the steering text for agent, if any.
func (g *Guidance) For(agent string) string {
	if g == nil {
		return ""
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.text[agent]
}

// All returns a copy of every agent's steering text.
func (g *Guidance) All() map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]string, len(g.text))
	for k, v := range g.text {
		out[k] = v
	}
	return out
}
