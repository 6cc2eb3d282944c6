package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"shadowrun-gm-dashboard/backend/pkg/config"
	"shadowrun-gm-dashboard/backend/pkg/logger"
	"shadowrun-gm-dashboard/backend/pkg/resilience"
	"shadowrun-gm-dashboard/backend/pkg/secrets"
)

// Provider chat endpoints
const (
	openAIChatURL     = "https://api.openai.com/v1/chat/completions"
	deepseekChatURL   = "https://api.deepseek.com/v1/chat/completions"
	anthropicChatURL  = "https://api.anthropic.com/v1/messages"
	mistralChatURL    = "https://api.mistral.ai/v1/chat/completions"
	openRouterChatURL = "https://openrouter.ai/api/v1/chat/completions"
)

// Default model identifiers per provider
const (
	openAIDefaultModel     = "gpt-4o"
	deepseekDefaultModel   = "deepseek-chat"
	anthropicDefaultModel  = "claude-3-opus-20240229"
	mistralDefaultModel    = "mistral-large-latest"
	openRouterDefaultModel = "openai/gpt-4o"
)

// Gateway is a chat-completions client over the supported LLM providers.
// Each provider gets its own circuit breaker so one flaky upstream doesn't
// block the rest, and API keys are read through the secrets manager.
type Gateway struct {
	client   *http.Client
	log      *logger.Logger
	mu       sync.Mutex
	breakers map[string]*resilience.CircuitBreaker
}

// NewGateway creates a gateway using the configured LLM timeout
func NewGateway(log *logger.Logger) *Gateway {
	cfg := config.Get()
	return &Gateway{
		client:   &http.Client{Timeout: cfg.LLM.Timeout},
		log:      log,
		breakers: make(map[string]*resilience.CircuitBreaker),
	}
}

// Generate produces a single completion from the requested provider
func (g *Gateway) Generate(ctx context.Context, req Request) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}

	model := req.Model
	if model == "" {
		model = config.Get().LLM.DefaultModel
	}

	var result string
	call := func() error {
		var err error
		switch model {
		case "openai":
			result, err = g.callOpenAICompatible(ctx, openAIChatURL, "openai_api_key", openAIDefaultModel, req)
		case "deepseek":
			result, err = g.callOpenAICompatible(ctx, deepseekChatURL, "deepseek_api_key", deepseekDefaultModel, req)
		case "mistral":
			result, err = g.callOpenAICompatible(ctx, mistralChatURL, "mistral_api_key", mistralDefaultModel, req)
		case "openrouter":
			modelName := req.ModelName
			if modelName == "" {
				modelName = openRouterDefaultModel
			}
			result, err = g.callOpenAICompatible(ctx, openRouterChatURL, "openrouter_api_key", modelName, req)
		case "anthropic":
			result, err = g.callAnthropic(ctx, req)
		default:
			return fmt.Errorf("unknown model: %s", model)
		}
		return err
	}

	if err := g.breaker(model).Execute(call); err != nil {
		return "", err
	}

	return result, nil
}

// breaker returns the circuit breaker for a provider, creating it on first use
func (g *Gateway) breaker(provider string) *resilience.CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	cb, ok := g.breakers[provider]
	if !ok {
		cb = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("llm-"+provider), g.log)
		g.breakers[provider] = cb
	}
	return cb
}

// chatCompletionResponse is the OpenAI-compatible response shape, shared by
// openai, deepseek, mistral and openrouter
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *Gateway) callOpenAICompatible(ctx context.Context, url, keyName, modelName string, req Request) (string, error) {
	apiKey, err := secrets.GetSecret(ctx, keyName)
	if err != nil {
		return "", fmt.Errorf("missing credential %s: %w", keyName, err)
	}

	payload := map[string]interface{}{
		"model":    modelName,
		"messages": req.Messages,
		"stream":   false,
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}

	body, err := g.post(ctx, url, payload, map[string]string{
		"Authorization": "Bearer " + apiKey,
	})
	if err != nil {
		return "", err
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("provider error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("provider returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

func (g *Gateway) callAnthropic(ctx context.Context, req Request) (string, error) {
	apiKey, err := secrets.GetSecret(ctx, "anthropic_api_key")
	if err != nil {
		return "", fmt.Errorf("missing credential anthropic_api_key: %w", err)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = config.Get().LLM.MaxTokens
	}

	payload := map[string]interface{}{
		"model":      anthropicDefaultModel,
		"max_tokens": maxTokens,
		"messages":   req.Messages,
		"stream":     false,
	}

	body, err := g.post(ctx, anthropicChatURL, payload, map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": "2023-06-01",
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("provider error: %s", resp.Error.Message)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("provider returned no content")
	}

	return resp.Content[0].Text, nil
}

// post sends a JSON payload and returns the raw response body
func (g *Gateway) post(ctx context.Context, url string, payload interface{}, headers map[string]string) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		g.log.Warn("LLM request failed", "url", url, "error", err.Error())
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		g.log.Warn("LLM request returned error status",
			"url", url,
			"status", httpResp.StatusCode,
		)
		return nil, fmt.Errorf("provider returned status %d", httpResp.StatusCode)
	}

	return body, nil
}
