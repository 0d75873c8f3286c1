package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Compile-time interface check.
var _ ModelClient = (*OpenAIClient)(nil)

const openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// ModelClient sends a prompt to one named model and returns its text output.
type ModelClient interface {
	Generate(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
}

// APIError is a non-2xx response from a model endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// isFallbackWorthy reports whether err indicates a transient provider
// problem a different model might not share: timeouts, rate limits and
// server-side failures. Bad requests and auth errors are not worth
// retrying on another model.
func isFallbackWorthy(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// OpenAIClient implements ModelClient using the OpenAI Chat Completions API.
type OpenAIClient struct {
	apiKey string
	client *http.Client
}

// NewOpenAIClient creates an OpenAIClient. Per-call deadlines come from the
// context, so the underlying HTTP client carries only a generous ceiling.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey: apiKey,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// chatRequest is the request body for the OpenAI Chat Completions API.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// chatMessage is a single message in the request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the response body from the OpenAI Chat Completions API.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the prompts to the given model and returns the text content
// of the first choice.
func (c *OpenAIClient) Generate(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiAPIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("calling OpenAI API", "model", model)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", &APIError{StatusCode: resp.StatusCode}
		}
		return "", fmt.Errorf("parsing response: %w", err)
	}

	if apiResp.Error != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Message: apiResp.Error.Message}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode}
	}

	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("empty response: no choices returned")
	}

	return apiResp.Choices[0].Message.Content, nil
}
