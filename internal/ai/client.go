package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/config"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
)

// Client talks to the prompt/response service.
type Client struct {
	baseURL    string
	persona    string
	enabled    bool
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates an AI proxy client from config.
func NewClient(cfg config.AIConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.URL,
		persona: cfg.Persona,
		enabled: cfg.Enabled,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// Chat sends one prompt to the service with the persona prepended and returns
// the assistant's reply.
func (c *Client) Chat(ctx context.Context, message string) (*ChatReply, error) {
	if !c.enabled {
		return nil, errors.Unavailable("ai assistant", nil)
	}

	prompt := message
	if c.persona != "" {
		prompt = c.persona + "\n\n" + message
	}

	body, err := json.Marshal(proxyRequest{Prompt: prompt})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal prompt")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build chat request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Unavailable("ai assistant", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("ai service returned non-200",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", payload))
		return nil, errors.Unavailable("ai assistant", fmt.Errorf("status %d", resp.StatusCode))
	}

	var parsed proxyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(err, "failed to decode ai response")
	}

	return &ChatReply{
		Reply:      parsed.Reply,
		Confidence: parsed.Confidence,
		Sources:    parsed.Sources,
		Actions:    parsed.Actions,
	}, nil
}

// Health checks the prompt service.
func (c *Client) Health(ctx context.Context) error {
	if !c.enabled {
		return errors.Unavailable("ai assistant", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return errors.Wrap(err, "failed to build health request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Unavailable("ai assistant", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Unavailable("ai assistant", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}
