package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"
)

// OpenAIClient calls an OpenAI-compatible chat completions endpoint,
// either on api.openai.com (bearer key) or on an Azure OpenAI deployment (api-key header).
type OpenAIClient struct {
	httpClient *resty.Client
	path       string
	model      string
	logger     zerolog.Logger
}

// AzureConfig locates an Azure OpenAI deployment.
type AzureConfig struct {
	Endpoint   string
	Deployment string
	APIVersion string
	APIKey     string
	Timeout    time.Duration
}

// OpenAIConfig locates an OpenAI-compatible API.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

const defaultTimeout = 30 * time.Second

// NewAzureClient builds a client for {endpoint}/openai/deployments/{deployment}.
func NewAzureClient(cfg AzureConfig, logger zerolog.Logger) *OpenAIClient {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.Endpoint, "/")).
		SetHeader("api-key", cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("api-version", cfg.APIVersion).
		SetTimeout(timeoutOrDefault(cfg.Timeout))

	return &OpenAIClient{
		httpClient: client,
		path:       "/openai/deployments/" + cfg.Deployment + "/chat/completions",
		logger:     logger.With().Str("component", "llm_azure").Str("deployment", cfg.Deployment).Logger(),
	}
}

// NewOpenAIClient builds a client for {baseURL}/chat/completions.
func NewOpenAIClient(cfg OpenAIConfig, logger zerolog.Logger) *OpenAIClient {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeoutOrDefault(cfg.Timeout))

	return &OpenAIClient{
		httpClient: client,
		path:       "/chat/completions",
		model:      cfg.Model,
		logger:     logger.With().Str("component", "llm_openai").Str("model", cfg.Model).Logger(),
	}
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultTimeout
	}
	return d
}

// Close releases idle connections.
func (c *OpenAIClient) Close() error {
	return c.httpClient.Close()
}

type chatCompletionRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    Role   `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// StatusError reports a non-2xx answer from the completion endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("response error %d: %s", e.Code, e.Body)
}

func (c *OpenAIClient) body(req Request, stream bool) chatCompletionRequest {
	return chatCompletionRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
}

// Complete requests a whole completion.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	response, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(c.body(req, false)).
		SetResult(&chatCompletionResponse{}).
		Post(c.path)
	if err != nil {
		return "", fmt.Errorf("post chat completion: %w", err)
	}
	if response.IsError() {
		return "", &StatusError{Code: response.StatusCode(), Body: response.String()}
	}

	result, ok := response.Result().(*chatCompletionResponse)
	if !ok || result == nil || len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyCompletion, response.String())
	}
	content := result.Choices[0].Message.Content
	if content == "" {
		return "", ErrEmptyCompletion
	}

	c.logger.Debug().
		Dur("elapsed", time.Since(start)).
		Str("finish_reason", result.Choices[0].FinishReason).
		Msg("completion received")
	return content, nil
}

// Stream requests a server-sent event stream and forwards every content delta.
func (c *OpenAIClient) Stream(ctx context.Context, req Request, onDelta DeltaFunc) (string, error) {
	start := time.Now()
	response, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(c.body(req, true)).
		SetHeader("Accept", "text/event-stream").
		SetDoNotParseResponse(true).
		Post(c.path)
	if err != nil {
		return "", fmt.Errorf("post chat completion: %w", err)
	}
	body := response.RawResponse.Body
	defer body.Close()

	if response.IsError() {
		data, _ := io.ReadAll(io.LimitReader(body, 4096))
		return "", &StatusError{Code: response.StatusCode(), Body: string(data)}
	}

	text, err := readEventStream(body, onDelta)
	if err != nil {
		return text, err
	}
	if text == "" {
		return "", ErrEmptyCompletion
	}

	c.logger.Debug().Dur("elapsed", time.Since(start)).Int("chars", len(text)).Msg("stream completed")
	return text, nil
}

// readEventStream consumes "data: {...}" lines until "data: [DONE]" or EOF.
func readEventStream(r io.Reader, onDelta DeltaFunc) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var sb strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return sb.String(), fmt.Errorf("decode stream chunk: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return sb.String(), err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return sb.String(), fmt.Errorf("read stream: %w", err)
	}
	return sb.String(), nil
}
