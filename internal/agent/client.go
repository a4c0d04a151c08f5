// Package agent orchestrates risk analysis of incidents through a hosted
// conversational agent. Analyze never fails: any transport error, bad status,
// or unparseable output degrades to the deterministic severity fallback.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const httpTimeout = 120 * time.Second

// Client talks to the agent-builder converse endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	agentID    string
	httpClient *http.Client
}

// NewClient creates a converse client. kibanaURL may be empty, in which case
// every Converse call fails and callers degrade to the fallback policy.
func NewClient(kibanaURL, apiKey, agentID string) *Client {
	endpoint := ""
	if kibanaURL != "" {
		endpoint = kibanaURL + "/api/agent_builder/converse"
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		agentID:  agentID,
		httpClient: &http.Client{
			Timeout: httpTimeout,
		},
	}
}

// converseRequest is the payload sent to the agent endpoint.
type converseRequest struct {
	Input   string `json:"input"`
	AgentID string `json:"agent_id"`
}

// responseText normalizes the agent's response envelope into plain text. The
// response field arrives in one of three shapes: an object carrying a message
// field, a bare string, or some other JSON value rendered verbatim.
type responseText struct {
	text string
}

func (r *responseText) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		r.text = ""
		return nil
	}
	switch trimmed[0] {
	case '{':
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}
		r.text = obj.Message
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		r.text = s
	default:
		r.text = string(trimmed)
	}
	return nil
}

// Converse sends the prompt to the agent and returns the normalized text of
// its reply.
func (c *Client) Converse(ctx context.Context, input string) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("agent endpoint not configured")
	}

	body, err := json.Marshal(converseRequest{Input: input, AgentID: c.agentID})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "ApiKey "+c.apiKey)
	req.Header.Set("kbn-xsrf", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("agent api error %d: %s", resp.StatusCode, truncateForLog(respBody))
	}

	var envelope struct {
		Response responseText `json:"response"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	return envelope.Response.text, nil
}

func truncateForLog(b []byte) string {
	const limit = 500
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit])
}
