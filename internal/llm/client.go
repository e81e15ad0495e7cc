// Package llm implements the Ollama chat client the runner generates
// through. The runner only depends on the Generator interface so tests
// can script replies.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/lucasnoah/worksplit/internal/config"
	"github.com/lucasnoah/worksplit/internal/wserr"
)

// Generator is the minimal generation interface the core consumes.
type Generator interface {
	// Generate sends one prompt and returns the full reply text.
	Generate(ctx context.Context, systemPrompt, userPrompt string, stream bool) (string, error)
	// GenerateWithRetry retries transport errors with backoff; policy
	// failures are not retried here.
	GenerateWithRetry(ctx context.Context, systemPrompt, userPrompt string, stream bool) (string, error)
}

// Client talks to the Ollama chat API.
type Client struct {
	httpClient *http.Client
	cfg        config.OllamaConfig
	log        *zap.Logger
	// stdout receives streamed tokens when streaming is requested.
	stdout io.Writer

	retryAttempts int
	retryBase     time.Duration
}

// NewClient builds a client from the [ollama] config section.
func NewClient(cfg config.OllamaConfig, log *zap.Logger) *Client {
	return &Client{
		httpClient:    &http.Client{},
		cfg:           cfg,
		log:           log,
		stdout:        os.Stdout,
		retryAttempts: 3,
		retryBase:     time.Second,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message *struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done          bool   `json:"done"`
	TotalDuration uint64 `json:"total_duration"`
	EvalCount     int    `json:"eval_count"`
}

// stallTimeout fails a generation when no tokens arrive for this long.
const stallTimeout = 2 * time.Minute

// Generate sends one chat request and decodes the NDJSON stream.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string, stream bool) (string, error) {
	timeout := time.Duration(c.cfg.TimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var messages []chatMessage
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	body, err := json.Marshal(chatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return "", &wserr.LLMError{Msg: "encode request", Err: err}
	}

	url := c.cfg.URL + "/api/chat"
	c.log.Debug("sending chat request",
		zap.String("url", url), zap.String("model", c.cfg.Model),
		zap.Int("prompt_chars", len(userPrompt)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &wserr.LLMError{Msg: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return "", &wserr.TimeoutError{Seconds: c.cfg.TimeoutSeconds}
		}
		return "", &wserr.LLMError{
			Msg: fmt.Sprintf("could not connect to Ollama at %s (is Ollama running?)", c.cfg.URL),
			Err: err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &wserr.LLMError{
			Msg: fmt.Sprintf("HTTP %d from Ollama: %s", resp.StatusCode, string(msg)),
		}
	}

	var full bytes.Buffer
	lastToken := time.Now()
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if time.Since(lastToken) > stallTimeout {
			return "", &wserr.TimeoutError{Seconds: int(stallTimeout.Seconds())}
		}

		var parsed chatResponse
		if err := json.Unmarshal(line, &parsed); err != nil {
			// A garbled final chunk after content arrived is ignorable.
			if full.Len() > 0 {
				c.log.Debug("ignoring parse error on trailing chunk", zap.Error(err))
				continue
			}
			return "", &wserr.LLMError{Msg: "parse stream chunk", Err: err}
		}

		if parsed.Message != nil && parsed.Message.Content != "" {
			full.WriteString(parsed.Message.Content)
			lastToken = time.Now()
			if stream {
				fmt.Fprint(c.stdout, parsed.Message.Content)
			}
		}

		if parsed.Done {
			if stream {
				fmt.Fprintln(c.stdout)
			}
			c.log.Debug("generation complete",
				zap.Uint64("duration_ns", parsed.TotalDuration),
				zap.Int("eval_count", parsed.EvalCount))
			break
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", &wserr.TimeoutError{Seconds: c.cfg.TimeoutSeconds}
		}
		return "", &wserr.LLMError{Msg: "stream read", Err: err}
	}

	c.log.Info("generated reply", zap.Int("chars", full.Len()))
	return full.String(), nil
}

// GenerateWithRetry retries transport errors with exponential backoff.
// Timeouts and HTTP-level policy errors pass straight through.
func (c *Client) GenerateWithRetry(ctx context.Context, systemPrompt, userPrompt string, stream bool) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			delay := c.retryBase << (attempt - 1)
			c.log.Warn("retrying LLM call",
				zap.Int("attempt", attempt+1), zap.Duration("backoff", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		reply, err := c.Generate(ctx, systemPrompt, userPrompt, stream)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		var timeoutErr *wserr.TimeoutError
		if errors.As(err, &timeoutErr) {
			return "", err
		}
		var llmErr *wserr.LLMError
		if errors.As(err, &llmErr) && llmErr.Err == nil {
			// HTTP status errors are not transient transport failures.
			return "", err
		}
	}
	return "", lastErr
}

// HealthCheck reports whether the Ollama endpoint responds.
func (c *Client) HealthCheck(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"/api/tags", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, &wserr.LLMError{
			Msg: fmt.Sprintf("could not connect to Ollama at %s", c.cfg.URL), Err: err}
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// CheckModel reports whether the configured model is available.
func (c *Client) CheckModel(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"/api/tags", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, &wserr.LLMError{Msg: "list models", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, nil
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false, &wserr.LLMError{Msg: "parse model list", Err: err}
	}

	for _, m := range tags.Models {
		if m.Name == c.cfg.Model || m.Name == c.cfg.Model+":latest" {
			return true, nil
		}
	}
	c.log.Warn("configured model not found on server", zap.String("model", c.cfg.Model))
	return false, nil
}
