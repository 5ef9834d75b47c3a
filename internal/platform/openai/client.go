package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/brightloop/geoscore-backend/internal/pkg/envutil"
	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
)

// Client is the slice of the OpenAI API the pipeline needs: embeddings for
// the embed stage, chat completions for the sample stage.
type Client interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, float64, error)
	GenerateText(ctx context.Context, model, system, user string) (string, error)
	EmbedModel() string
}

type httpClient struct {
	log           *logger.Logger
	http          *http.Client
	apiKey        string
	baseURL       string
	embedModel    string
	costPer1K     float64
	maxRetries    int
	retryBaseWait time.Duration
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := strings.TrimSpace(envutil.Str("OPENAI_API_KEY", ""))
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	c := &httpClient{
		log:           log.With("client", "openai"),
		http:          &http.Client{Timeout: envutil.Duration("OPENAI_HTTP_TIMEOUT", 120*time.Second)},
		apiKey:        apiKey,
		baseURL:       strings.TrimRight(envutil.Str("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/"),
		embedModel:    envutil.Str("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		costPer1K:     envFloat("OPENAI_EMBED_COST_PER_1K", 0.00002),
		maxRetries:    envutil.Int("OPENAI_MAX_RETRIES", 3),
		retryBaseWait: envutil.Duration("OPENAI_RETRY_BASE_WAIT", 1*time.Second),
	}
	return c, nil
}

func (c *httpClient) EmbedModel() string { return c.embedModel }

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed returns one vector per input, in input order, plus the dollar cost
// of the call derived from reported token usage.
func (c *httpClient) Embed(ctx context.Context, inputs []string) ([][]float32, float64, error) {
	if len(inputs) == 0 {
		return nil, 0, nil
	}
	body, err := json.Marshal(embeddingsRequest{Model: c.embedModel, Input: inputs})
	if err != nil {
		return nil, 0, fmt.Errorf("marshal embeddings request: %w", err)
	}
	raw, err := c.do(ctx, "/embeddings", body)
	if err != nil {
		return nil, 0, err
	}
	var resp embeddingsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, 0, fmt.Errorf("decode embeddings response: %w", err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, 0, fmt.Errorf("embeddings response: got %d vectors for %d inputs", len(resp.Data), len(inputs))
	}
	vectors := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, 0, fmt.Errorf("embeddings response: index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	cost := float64(resp.Usage.TotalTokens) / 1000 * c.costPer1K
	return vectors, cost, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *httpClient) GenerateText(ctx context.Context, model, system, user string) (string, error) {
	msgs := make([]chatMessage, 0, 2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: user})
	body, err := json.Marshal(chatRequest{Model: model, Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}
	raw, err := c.do(ctx, "/chat/completions", body)
	if err != nil {
		return "", err
	}
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat response: no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// do posts JSON to the given path, retrying 429s, 5xx and transport errors
// with doubling backoff. Retry-After overrides the computed wait when present.
func (c *httpClient) do(ctx context.Context, path string, body []byte) ([]byte, error) {
	var lastErr error
	wait := c.retryBaseWait
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("openai %s: %w", path, err)
			c.log.Warn("openai request failed, retrying", "path", path, "attempt", attempt+1, "error", err)
			continue
		}
		raw, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("openai %s: read body: %w", path, readErr)
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return raw, nil
		}
		lastErr = fmt.Errorf("openai %s: status %d: %s", path, resp.StatusCode, truncate(string(raw), 300))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			if ra := parseRetryAfter(resp.Header.Get("Retry-After")); ra > 0 {
				wait = ra
			}
			c.log.Warn("openai retryable status", "path", path, "status", resp.StatusCode, "attempt", attempt+1)
			continue
		}
		return nil, lastErr
	}
	return nil, fmt.Errorf("openai %s: retries exhausted: %w", path, lastErr)
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(envutil.Str(key, ""))
	if v == "" {
		return fallback
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return fallback
}
