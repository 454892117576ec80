package documentcloud

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
	"ExecOrdersMonitor/internal/ports"
)

// Client talks to the DocumentCloud API. It is the primary sink and also
// schedules add-on runs for the archive and decentralized stages.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ ports.PrimarySink = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.DocumentCloudConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type createDocumentRequest struct {
	Title       string            `json:"title"`
	Source      string            `json:"source"`
	Description string            `json:"description"`
	Language    string            `json:"language"`
	Access      string            `json:"access"`
	Data        map[string]string `json:"data"`
}

type createDocumentResponse struct {
	ID           json.Number `json:"id"`
	PresignedURL string      `json:"presigned_url"`
	CanonicalURL string      `json:"canonical_url"`
}

// Upload pushes an artifact through the three-step direct upload: create the
// document record, PUT the file to the returned presigned URL, then trigger
// processing. The returned reference is usable before processing finishes.
func (c *Client) Upload(ctx context.Context, artifact domain.Artifact) (domain.DocumentRef, error) {
	if c.token == "" {
		return domain.DocumentRef{}, fmt.Errorf("documentcloud client misconfigured: missing token")
	}

	created, err := c.createDocument(ctx, artifact.Meta)
	if err != nil {
		return domain.DocumentRef{}, err
	}
	if err := c.putFile(ctx, created.PresignedURL, artifact); err != nil {
		return domain.DocumentRef{}, err
	}
	if err := c.process(ctx, created.ID.String()); err != nil {
		return domain.DocumentRef{}, err
	}

	return domain.DocumentRef{
		ID:           created.ID.String(),
		CanonicalURL: created.CanonicalURL,
	}, nil
}

func (c *Client) createDocument(ctx context.Context, meta domain.Metadata) (createDocumentResponse, error) {
	data := map[string]string{
		"order_id":     meta.OrderID,
		"order_type":   string(meta.OrderType),
		"original_url": meta.SourceURL,
		"scrape_date":  meta.CapturedAt.UTC().Format(time.RFC3339),
	}
	if meta.OrderNumber != "" {
		data["order_number"] = meta.OrderNumber
	}

	payload := createDocumentRequest{
		Title:       meta.Title,
		Source:      meta.Source,
		Description: meta.Description,
		Language:    meta.Language,
		Access:      "public",
		Data:        data,
	}

	var created createDocumentResponse
	if err := c.postJSON(ctx, domain.StagePrimary, c.baseURL+"/api/documents/", payload, &created); err != nil {
		return createDocumentResponse{}, fmt.Errorf("create document: %w", err)
	}
	if created.PresignedURL == "" {
		return createDocumentResponse{}, fmt.Errorf("create document: response is missing the upload URL")
	}
	return created, nil
}

// putFile uploads the raw bytes. The URL is presigned, so no auth header.
func (c *Client) putFile(ctx context.Context, uploadURL string, artifact domain.Artifact) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(artifact.Content))
	if err != nil {
		return fmt.Errorf("new upload request: %w", err)
	}
	req.Header.Set("Content-Type", artifact.ContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.statusError(domain.StagePrimary, "upload file", resp)
	}
	return nil
}

func (c *Client) process(ctx context.Context, id string) error {
	url := fmt.Sprintf("%s/api/documents/%s/process/", c.baseURL, id)
	if err := c.postJSON(ctx, domain.StagePrimary, url, nil, nil); err != nil {
		return fmt.Errorf("process document %s: %w", id, err)
	}
	return nil
}

// RunAddon schedules a DocumentCloud add-on run and returns its run id.
// HTTP failures are classified for the given stage.
func (c *Client) RunAddon(ctx context.Context, stage domain.StageName, addon string, parameters map[string]any) (string, error) {
	payload := map[string]any{
		"addon":      addon,
		"parameters": parameters,
	}

	var run struct {
		UUID string `json:"uuid"`
	}
	if err := c.postJSON(ctx, stage, c.baseURL+"/api/addon_runs/", payload, &run); err != nil {
		return "", fmt.Errorf("schedule %s run: %w", addon, err)
	}
	return run.UUID, nil
}

func (c *Client) postJSON(ctx context.Context, stage domain.StageName, url string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.statusError(stage, "documentcloud", resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) statusError(stage domain.StageName, op string, resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	cause := fmt.Errorf("%s error %s: %s", op, resp.Status, strings.TrimSpace(string(payload)))
	return domain.NewStageError(stage, domain.PermanentStatus(resp.StatusCode), cause)
}
