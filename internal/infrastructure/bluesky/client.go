package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ExecOrdersMonitor/internal/config"
	"ExecOrdersMonitor/internal/domain"
)

// Client posts to Bluesky over the XRPC API using an app password. The
// session from the first login is reused for the rest of the run.
type Client struct {
	service    string
	handle     string
	password   string
	httpClient *http.Client
	now        func() time.Time

	sess *session
}

type session struct {
	AccessJwt string `json:"accessJwt"`
	DID       string `json:"did"`
}

// NewClient builds a client from configuration.
func NewClient(cfg config.AnnounceConfig) *Client {
	return &Client{
		service:  strings.TrimRight(cfg.ServiceURL, "/"),
		handle:   cfg.Handle,
		password: cfg.AppPassword,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		now: time.Now,
	}
}

// Post publishes one post and returns its AT URI.
func (c *Client) Post(ctx context.Context, text string) (string, error) {
	if c.handle == "" || c.password == "" {
		return "", fmt.Errorf("bluesky client misconfigured: missing credentials")
	}

	sess, err := c.currentSession(ctx)
	if err != nil {
		return "", err
	}
	return c.createRecord(ctx, sess, text)
}

func (c *Client) currentSession(ctx context.Context) (*session, error) {
	if c.sess != nil {
		return c.sess, nil
	}

	payload := map[string]string{
		"identifier": c.handle,
		"password":   c.password,
	}

	var sess session
	if err := c.postXRPC(ctx, "com.atproto.server.createSession", "", payload, &sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if sess.AccessJwt == "" || sess.DID == "" {
		return nil, fmt.Errorf("create session: response is missing credentials")
	}

	c.sess = &sess
	return c.sess, nil
}

func (c *Client) createRecord(ctx context.Context, sess *session, text string) (string, error) {
	payload := map[string]any{
		"repo":       sess.DID,
		"collection": "app.bsky.feed.post",
		"record": map[string]any{
			"$type":     "app.bsky.feed.post",
			"text":      text,
			"createdAt": c.now().UTC().Format(time.RFC3339),
		},
	}

	var record struct {
		URI string `json:"uri"`
	}
	if err := c.postXRPC(ctx, "com.atproto.repo.createRecord", sess.AccessJwt, payload, &record); err != nil {
		return "", fmt.Errorf("create record: %w", err)
	}
	return record.URI, nil
}

func (c *Client) postXRPC(ctx context.Context, method, token string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.service+"/xrpc/"+method, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		cause := fmt.Errorf("%s error %s: %s", method, resp.Status, strings.TrimSpace(string(body)))
		return domain.NewStageError(domain.StageAnnounce, domain.PermanentStatus(resp.StatusCode), cause)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
