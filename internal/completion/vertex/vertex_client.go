// Package vertex implements the completion client on Vertex AI Gemini models.
package vertex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rxscan/internal/completion"
	"rxscan/internal/config"
	"rxscan/internal/port"
)

// Client implements port.CompletionClient on a Vertex AI genai client.
type Client struct {
	client *genai.Client
	model  string
	http   *http.Client
}

// NewClient connects to Vertex AI in cfg.Project and cfg.Location.
func NewClient(ctx context.Context, cfg *config.ProviderConfig) (*Client, error) {
	if cfg.Project == "" {
		return nil, errors.New("vertex provider requires a project")
	}
	location := cfg.Location
	if location == "" {
		location = "us-central1"
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	c, err := genai.NewClient(ctx, cfg.Project, location)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &Client{
		client: c,
		model:  model,
		http:   &http.Client{Timeout: timeout},
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	name := req.Model
	if !strings.HasPrefix(name, "gemini") {
		name = c.model
	}

	model := c.client.GenerativeModel(name)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
	if req.Temperature > 0 {
		model.GenerationConfig.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		model.GenerationConfig.MaxOutputTokens = genai.Ptr(int32(req.MaxTokens))
	}

	var parts []genai.Part
	if req.ImageURL != "" {
		part, err := imagePart(ctx, c.http, req.ImageURL)
		if err != nil {
			return "", fmt.Errorf("resolving image: %w", err)
		}
		parts = append(parts, part)
	}
	parts = append(parts, genai.Text(req.Prompt))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		baseErr := fmt.Errorf("calling vertex AI: %w", err)
		if status.Code(err) == codes.ResourceExhausted {
			return "", completion.NewRateLimitError("vertex", baseErr, 0)
		}
		return "", baseErr
	}

	text := textOf(resp)
	if strings.TrimSpace(text) == "" {
		return "", completion.ErrEmptyCompletion
	}
	return text, nil
}

// imagePart passes gs:// references through by URI and inlines everything else.
func imagePart(ctx context.Context, client *http.Client, ref string) (genai.Part, error) {
	if strings.HasPrefix(ref, "gs://") {
		return genai.FileData{MIMEType: completion.MediaTypeFromPath(ref), FileURI: ref}, nil
	}
	img, err := completion.ResolveImage(ctx, client, ref)
	if err != nil {
		return nil, err
	}
	return genai.Blob{MIMEType: img.MediaType, Data: img.Data}, nil
}

func textOf(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}
