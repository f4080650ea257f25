// Package api is the replica's HTTP client for the authoritative server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang/snappy"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/pkg/api"
)

// DefaultTimeout таймаут одного HTTP запроса
const DefaultTimeout = 30 * time.Second

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	compress   bool
}

// Option настраивает Client
type Option func(*Client)

// WithToken sets the bearer token sent with every request
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithCompression enables snappy request bodies
func WithCompression(enabled bool) Option {
	return func(c *Client) {
		c.compress = enabled
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient создает новый API клиент
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sync отправляет локальные изменения коллекции и получает изменения сервера.
// Ответ 403, в котором сервер отклонил все документы, возвращается как
// обычный SyncResponse: реплике нужны серверные версии отклоненных документов.
func (c *Client) Sync(ctx context.Context, collection string, req api.SyncRequest) (*api.SyncResponse, error) {
	var resp api.SyncResponse
	status, body, err := c.do(ctx, http.MethodPost, "/api/v1/sync/"+url.PathEscape(collection), req)
	if err != nil {
		if status == http.StatusForbidden && json.Unmarshal(body, &resp) == nil && resp.Docs != nil {
			return &resp, nil
		}
		return nil, fmt.Errorf("sync request failed: %w", err)
	}
	if err := decodeResponse(body, &resp); err != nil {
		return nil, fmt.Errorf("sync request failed: %w", err)
	}
	return &resp, nil
}

// ListConflicts возвращает конфликты текущего актора, ожидающие ручного разрешения
func (c *Client) ListConflicts(ctx context.Context, collection string) ([]api.ConflictResponse, error) {
	var resp []api.ConflictResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/conflicts/"+url.PathEscape(collection), nil, &resp); err != nil {
		return nil, fmt.Errorf("list conflicts request failed: %w", err)
	}
	return resp, nil
}

// ResolveConflict отправляет выбранную версию. nil выбирает клиентскую версию.
func (c *Client) ResolveConflict(ctx context.Context, collection, documentID string, chosen *models.Document) (*models.Document, error) {
	var resp api.ResolveConflictResponse
	path := "/api/v1/conflicts/" + url.PathEscape(collection) + "/" + url.PathEscape(documentID)
	if err := c.doRequest(ctx, http.MethodPost, path, api.ResolveConflictRequest{Document: chosen}, &resp); err != nil {
		return nil, fmt.Errorf("resolve conflict request failed: %w", err)
	}
	return resp.Document, nil
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", nil, &resp); err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос и декодирует успешный ответ в result
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	_, respBody, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decodeResponse(respBody, result)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var bodyReader io.Reader
	compressed := false
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		if c.compress {
			jsonData = snappy.Encode(nil, jsonData)
			compressed = true
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if compressed {
		req.Header.Set("Content-Encoding", "snappy")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, respBody, statusError(resp, respBody)
	}
	return resp.StatusCode, respBody, nil
}

func decodeResponse(body []byte, result any) error {
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response, body []byte) error {
	se := &StatusError{StatusCode: resp.StatusCode}

	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		se.Message = errResp.Error
		se.Stage = errResp.Stage
		se.RetryAfter = time.Duration(errResp.RetryAfter) * time.Second
	} else {
		se.Message = strings.TrimSpace(string(body))
	}
	if se.Message == "" {
		se.Message = http.StatusText(resp.StatusCode)
	}

	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			se.RetryAfter = max(se.RetryAfter, time.Duration(secs)*time.Second)
		}
	}
	return se
}
