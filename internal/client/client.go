// Package client talks to the hugopub HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/hugopub/internal/apperr"
	"github.com/starford/hugopub/internal/models"
)

// Client is an API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken sends token as a Bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// New creates a client for the API rooted at baseURL, e.g.
// "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VerifyPassword checks the publish password. A rejected password is
// (false, nil); errors are reserved for transport and server failures.
func (c *Client) VerifyPassword(ctx context.Context, password string) (bool, error) {
	var resp models.Envelope
	err := c.doJSON(ctx, http.MethodPost, "/api/verify-password", models.VerifyPasswordRequest{Password: password}, &resp)
	if err == nil {
		return true, nil
	}
	var remote *apperr.RemoteError
	if errors.As(err, &remote) && remote.Status == http.StatusUnauthorized {
		return false, nil
	}
	return false, err
}

// Format sends content to the remote formatter.
func (c *Client) Format(ctx context.Context, req models.FormatRequest) (*models.FormatResponse, error) {
	var resp models.FormatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/format", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Preview asks the server for the front matter it would generate.
func (c *Client) Preview(ctx context.Context, req models.PreviewRequest) (*models.PreviewResponse, error) {
	var resp models.PreviewResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/preview", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Publish queues a publish job and returns its id.
func (c *Client) Publish(ctx context.Context, req models.PublishRequest) (string, error) {
	var resp models.PublishResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/publish", req, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("%w: publish response without job id", apperr.ErrTransport)
	}
	return resp.JobID, nil
}

// JobStatus fetches a snapshot of a publish job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*models.PublishJob, error) {
	var resp models.StatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/status/"+url.PathEscape(jobID), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Job == nil {
		return nil, fmt.Errorf("%w: status response without job", apperr.ErrTransport)
	}
	return resp.Job, nil
}

// ListFiles lists a directory of the content repository.
func (c *Client) ListFiles(ctx context.Context, dir string, fetchMetadata bool) ([]models.FileEntry, error) {
	q := url.Values{}
	q.Set("path", dir)
	if fetchMetadata {
		q.Set("fetch_metadata", "true")
	}
	var resp models.FilesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/files?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// ListArticles returns the Markdown files of dir, dates included.
func (c *Client) ListArticles(ctx context.Context, dir string) ([]models.ArticleSummary, error) {
	files, err := c.ListFiles(ctx, dir, true)
	if err != nil {
		return nil, err
	}
	out := make([]models.ArticleSummary, 0, len(files))
	for _, f := range files {
		if f.Type != "file" || !strings.HasSuffix(f.Name, ".md") {
			continue
		}
		s := models.ArticleSummary{Name: f.Name, Path: f.Path, Directory: strings.Trim(dir, "/")}
		if f.UpdatedAt != nil {
			if ts, ok := models.ParseTimestamp(*f.UpdatedAt); ok {
				s.UpdatedAt = &ts
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// File fetches a stored file. Content is already decoded text.
func (c *Client) File(ctx context.Context, filePath string) (*models.FileResponse, error) {
	var resp models.FileResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/file?path="+url.QueryEscape(filePath), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReadArticle returns the raw text of the article at filePath.
func (c *Client) ReadArticle(ctx context.Context, filePath string) (string, error) {
	f, err := c.File(ctx, filePath)
	if err != nil {
		return "", err
	}
	return f.Content, nil
}

// DeleteFile removes a file from the content repository.
func (c *Client) DeleteFile(ctx context.Context, filePath string) error {
	var resp models.DeleteResponse
	return c.doJSON(ctx, http.MethodDelete, "/api/file?path="+url.QueryEscape(filePath), nil, &resp)
}

// UploadImage uploads an image. customName may be empty.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader, customName string) (*models.UploadImageResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("client: create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("client: copy image: %w", err)
	}
	if customName != "" {
		if err := mw.WriteField("custom_name", customName); err != nil {
			return nil, fmt.Errorf("client: write field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("client: close multipart: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload-image", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp models.UploadImageResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks that the API is reachable.
func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrTransport, err)
	}
	defer resp.Body.Close()

	var health models.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("%w: decode health: %v", apperr.ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &apperr.RemoteError{Status: resp.StatusCode, Message: "unhealthy: " + health.Status}
	}
	return &health, nil
}

func (c *Client) newRequest(ctx context.Context, method, p string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+p, body)
	if err != nil {
		return nil, fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, p string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, p, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

// do sends req and decodes the envelope. A response with success false
// becomes a RemoteError carrying the server message verbatim.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", apperr.ErrTransport, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", apperr.ErrTransport, err)
	}

	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %s %s: HTTP %d: undecodable response", apperr.ErrTransport, req.Method, req.URL.Path, resp.StatusCode)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &apperr.RemoteError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", apperr.ErrTransport, err)
	}
	return nil
}
