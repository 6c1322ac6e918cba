package classify

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/pkg/anthropic"
)

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 20},
	}
}

// --- Service Mock ---

type mockService struct {
	mock.Mock
}

func (m *mockService) Name() string { return "mock" }

func (m *mockService) ClassifyFields(ctx context.Context, fields map[string]any, descriptors []model.AgentDescriptor) (*model.RoutingDecision, error) {
	args := m.Called(ctx, fields, descriptors)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RoutingDecision), args.Error(1)
}

func (m *mockService) TransformFragment(ctx context.Context, agent string, payload map[string]any, out any, snapshot map[string]any) error {
	args := m.Called(ctx, agent, payload, out, snapshot)
	return args.Error(0)
}
