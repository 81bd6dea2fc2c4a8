// Package gemini wraps the Google Generative AI SDK behind a narrow client.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
)

// DefaultModel is used when a request does not name a model.
const DefaultModel = "gemini-2.5-flash"

// Client generates text with a Gemini model.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	Close() error
}

// GenerateRequest is a single-turn generation request.
type GenerateRequest struct {
	Model             string
	SystemInstruction string
	Prompt            string
	Temperature       *float32
	JSON              bool
}

// GenerateResponse holds the generated text and token usage.
type GenerateResponse struct {
	Text         string
	InputTokens  int32
	OutputTokens int32
}

// Option configures the client.
type Option func(*[]option.ClientOption)

// WithEndpoint overrides the API endpoint.
func WithEndpoint(endpoint string) Option {
	return func(opts *[]option.ClientOption) {
		*opts = append(*opts, option.WithEndpoint(endpoint))
	}
}

type sdkClient struct {
	client *genai.Client
}

// NewClient creates a Gemini client authenticated with apiKey.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (Client, error) {
	clientOpts := []option.ClientOption{option.WithAPIKey(apiKey)}
	for _, o := range opts {
		o(&clientOpts)
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &sdkClient{client: client}, nil
}

func (c *sdkClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	name := req.Model
	if name == "" {
		name = DefaultModel
	}
	model := c.client.GenerativeModel(name)
	if req.SystemInstruction != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemInstruction))
	}
	if req.Temperature != nil {
		model.SetTemperature(*req.Temperature)
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, eris.New("gemini: no content generated")
	}

	out := &GenerateResponse{Text: candidateText(resp.Candidates[0])}
	if resp.UsageMetadata != nil {
		out.InputTokens = resp.UsageMetadata.PromptTokenCount
		out.OutputTokens = resp.UsageMetadata.CandidatesTokenCount
	}
	return out, nil
}

func (c *sdkClient) Close() error {
	return c.client.Close()
}

func candidateText(cand *genai.Candidate) string {
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
			continue
		}
		fmt.Fprintf(&b, "%v", part)
	}
	return b.String()
}
