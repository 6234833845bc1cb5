// Package langchain adapts langchaingo chat models to models.AIProvider.
package langchain

import (
	"context"
	"errors"
	"fmt"

	"github.com/jobsuitex/autoapply/pkg/models"
	"github.com/tmc/langchaingo/llms"
)

var ErrEmptyResponse = errors.New("model returned no choices")

// Provider implements models.AIProvider on top of any llms.Model.
type Provider struct {
	name  string
	model llms.Model
	// inlineSystem folds the system prompt into the human turn for models
	// that reject a system role.
	inlineSystem bool
	opts         []llms.CallOption
}

type Option func(*Provider)

// WithInlineSystem sends the system prompt as a prefix of the user message.
func WithInlineSystem() Option {
	return func(p *Provider) { p.inlineSystem = true }
}

// WithCallOptions applies opts to every GenerateContent call.
func WithCallOptions(opts ...llms.CallOption) Option {
	return func(p *Provider) { p.opts = append(p.opts, opts...) }
}

func New(name string, model llms.Model, opts ...Option) *Provider {
	p := &Provider{name: name, model: model}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	resp, err := p.model.GenerateContent(ctx, p.messages(req), p.opts...)
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", p.name, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s generate: %w", p.name, ErrEmptyResponse)
	}
	return resp.Choices[0].Content, nil
}

func (p *Provider) messages(req models.CompletionRequest) []llms.MessageContent {
	if req.System == "" {
		return []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt)}
	}
	if p.inlineSystem {
		return []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeHuman, req.System+"\n\n"+req.Prompt),
		}
	}
	return []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.System),
		llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt),
	}
}

var _ models.AIProvider = (*Provider)(nil)
