package coordinator

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/bertel/migration-tool/internal/agent"
	"github.com/bertel/migration-tool/internal/model"
)

// --- Notifier Mock ---

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, payload map[string]any) {
	m.Called(ctx, payload)
}

// --- Classifier stub ---

// stubService assigns fields through a fixed field -> agent table.
type stubService struct {
	routes map[string]string
}

func (s *stubService) Name() string { return "stub" }

func (s *stubService) ClassifyFields(_ context.Context, fields map[string]any, _ []model.AgentDescriptor) (*model.RoutingDecision, error) {
	d := model.NewRoutingDecision()
	for _, f := range model.SortedKeys(fields) {
		if a, ok := s.routes[f]; ok {
			d.Assign(model.FieldAssignment{Field: f, Agent: a, Attribute: f}, fields[f])
			continue
		}
		d.Leftovers[f] = fields[f]
	}
	return d, nil
}

func (s *stubService) TransformFragment(context.Context, string, map[string]any, any, map[string]any) error {
	return nil
}

// --- Agent fake ---

type fakeAgent struct {
	name   string
	fields []string
	handle func(fragment map[string]any, c *agent.Context) (*model.AgentOutcome, error)

	mu    sync.Mutex
	calls []map[string]any
}

func newFake(name string, fields ...string) *fakeAgent {
	return &fakeAgent{name: name, fields: append([]string{"object_id"}, fields...)}
}

func (f *fakeAgent) Descriptor() model.AgentDescriptor {
	return model.AgentDescriptor{Name: f.name, Description: f.name, AcceptedFields: f.fields}
}

func (f *fakeAgent) Handle(_ context.Context, fragment map[string]any, c *agent.Context) (*model.AgentOutcome, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fragment)
	f.mu.Unlock()
	if f.handle != nil {
		return f.handle(fragment, c)
	}
	return model.NewOutcome(f.name, f.name), nil
}

func (f *fakeAgent) received() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.calls...)
}
