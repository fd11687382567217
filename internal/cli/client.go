package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/oncovec/internal/models"
)

const defaultClientTimeout = 60 * time.Second

// Client talks to a running oncovec server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient returns a client for the server at baseURL (e.g. http://localhost:8000).
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultClientTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known statuses back to model errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusServiceUnavailable:
		return models.ErrStoreNotReady
	case http.StatusNotFound:
		return models.ErrNotFound
	case http.StatusUnprocessableEntity:
		return models.ErrExtractionFailure
	}
	return nil
}

type addResponse struct {
	Message     string   `json:"message"`
	DocumentID  string   `json:"document_id"`
	DocumentIDs []string `json:"document_ids"`
}

func (r addResponse) ids() []string {
	if len(r.DocumentIDs) > 0 {
		return r.DocumentIDs
	}
	if r.DocumentID != "" {
		return []string{r.DocumentID}
	}
	return nil
}

// Query runs a similarity query.
func (c *Client) Query(ctx context.Context, query string, topK int) (*models.QueryResponse, error) {
	var resp models.QueryResponse
	req := models.QueryRequest{Query: query, TopK: topK}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/query", req, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddDocument adds one document and returns its id.
func (c *Client) AddDocument(ctx context.Context, title, body string) (string, error) {
	var resp addResponse
	in := models.DocumentInput{Title: title, Body: body}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/documents", in, http.StatusCreated, &resp); err != nil {
		return "", err
	}
	ids := resp.ids()
	if len(ids) == 0 {
		return "", errors.New("server response carried no document id")
	}
	return ids[0], nil
}

// UploadFile uploads a file for server-side extraction and returns the new document ids.
func (c *Client) UploadFile(ctx context.Context, path, title string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if title != "" {
		if err := mw.WriteField("title", title); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var resp addResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/documents/pdf", mw.FormDataContentType(), &buf, http.StatusCreated, &resp); err != nil {
		return nil, err
	}
	return resp.ids(), nil
}

// Status fetches the server status report.
func (c *Client) Status(ctx context.Context) (*models.StatusReport, error) {
	var report models.StatusReport
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", "", nil, http.StatusOK, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, want int, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, "application/json", bytes.NewReader(body), want, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
