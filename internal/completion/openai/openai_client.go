package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rxscan/internal/completion"
	"rxscan/internal/config"
	"rxscan/internal/port"
)

const (
	openAIURL   = "https://api.openai.com/v1/chat/completions"
	togetherURL = "https://api.together.xyz/v1/chat/completions"
)

// Client implements port.CompletionClient against any OpenAI-compatible
// Chat Completions API (OpenAI, Together AI).
type Client struct {
	provider string
	apiKey   string
	model    string
	endpoint string
	stream   bool
	client   *http.Client
}

// NewClient creates a client for the provider named in cfg ("openai" or
// "together"). cfg.Endpoint overrides the provider's default URL.
func NewClient(cfg *config.ProviderConfig) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = openAIURL
		if cfg.Provider == "together" {
			endpoint = togetherURL
		}
	}
	return newClient(cfg, endpoint)
}

// NewClientWithEndpoint creates a client pointing at a custom API endpoint (for testing).
func NewClientWithEndpoint(cfg *config.ProviderConfig, endpoint string) *Client {
	return newClient(cfg, endpoint)
}

func newClient(cfg *config.ProviderConfig, endpoint string) *Client {
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "gpt-4o"
		if provider == "together" {
			model = "meta-llama/Llama-Vision-Free"
		}
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		provider: provider,
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		stream:   cfg.Stream,
		client:   &http.Client{Timeout: timeout},
	}
}

var openAIModelPrefixes = []string{"gpt-", "chatgpt-", "o1", "o3", "o4"}

// servesModel reports whether model belongs to this endpoint. OpenAI only
// serves its own families; Together serves any hosted model except other
// vendors' proprietary ones.
func (c *Client) servesModel(model string) bool {
	if model == "" {
		return false
	}
	isOpenAI := false
	for _, p := range openAIModelPrefixes {
		if strings.HasPrefix(model, p) {
			isOpenAI = true
			break
		}
	}
	if c.provider == "openai" {
		return isOpenAI
	}
	return !isOpenAI && !strings.HasPrefix(model, "claude") && !strings.HasPrefix(model, "gemini")
}

func (c *Client) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	model := req.Model
	if !c.servesModel(model) {
		model = c.model
	}

	reqBody := map[string]interface{}{
		"model":    model,
		"messages": buildMessages(req),
		"stream":   c.stream,
	}
	if req.Temperature > 0 {
		reqBody["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		reqBody["max_tokens"] = req.MaxTokens
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling %s API: %w", c.provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		baseErr := fmt.Errorf("%s API error (status %d): %s", c.provider, resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := completion.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return "", completion.NewRateLimitError(c.provider, baseErr, retryAfter)
		}
		return "", baseErr
	}

	var text string
	if c.stream && strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		text, err = readStream(resp.Body)
	} else {
		var respBody []byte
		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("reading response: %w", err)
		}
		text, err = parseResponse(respBody)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", completion.ErrEmptyCompletion
	}
	return text, nil
}

func buildMessages(req port.CompletionRequest) []map[string]interface{} {
	var messages []map[string]interface{}
	if req.System != "" {
		messages = append(messages, map[string]interface{}{
			"role":    "system",
			"content": req.System,
		})
	}

	if req.ImageURL == "" {
		return append(messages, map[string]interface{}{
			"role":    "user",
			"content": req.Prompt,
		})
	}

	return append(messages, map[string]interface{}{
		"role": "user",
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": req.Prompt,
			},
			{
				"type": "image_url",
				"image_url": map[string]interface{}{
					"url": req.ImageURL,
				},
			},
		},
	})
}

// apiResponse models the Chat Completions API response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func parseResponse(body []byte) (string, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w (raw: %s)", err, completion.Truncate(string(body), 500))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", completion.ErrEmptyCompletion)
	}
	return resp.Choices[0].Message.Content, nil
}

// streamChunk models one server-sent event of a streamed completion.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// readStream concatenates the delta contents of an SSE stream until [DONE].
func readStream(r io.Reader) (string, error) {
	var sb strings.Builder
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			break
		}
		if data == "" {
			continue
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", fmt.Errorf("decoding stream chunk: %w", err)
		}
		if chunk.Error != nil {
			return "", fmt.Errorf("stream error: %s", chunk.Error.Message)
		}
		for _, choice := range chunk.Choices {
			sb.WriteString(choice.Delta.Content)
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("reading stream: %w", err)
	}
	return sb.String(), nil
}
