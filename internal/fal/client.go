package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultRunURL     = "https://fal.run"
	defaultQueueURL   = "https://queue.fal.run"
	defaultStorageURL = "https://rest.alpha.fal.ai"

	// DefaultMaxSourceSize caps a fetched source before re-upload.
	DefaultMaxSourceSize int64 = 256 << 20
)

// ErrSourceTooLarge is returned when a fetched source exceeds the size cap.
var ErrSourceTooLarge = errors.New("source exceeds size limit")

// Client is a fal.ai API client for synchronous runs, queue subscriptions
// and storage uploads.
type Client struct {
	apiKey     string
	httpClient *http.Client
	mu         sync.RWMutex

	runURL       string
	queueURL     string
	storageURL   string
	publicURL    string
	pollInterval time.Duration
	maxSource    int64
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs points the client at alternative run, queue and storage hosts.
func WithBaseURLs(run, queue, storage string) Option {
	return func(c *Client) {
		c.runURL = strings.TrimRight(run, "/")
		c.queueURL = strings.TrimRight(queue, "/")
		c.storageURL = strings.TrimRight(storage, "/")
	}
}

// WithPollInterval sets how often queue status is polled.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithPublicURL sets the root used to absolutize relative asset URLs before
// they are fetched for re-upload.
func WithPublicURL(u string) Option {
	return func(c *Client) { c.publicURL = strings.TrimRight(u, "/") }
}

// WithMaxSourceSize sets the largest body UploadFromURL will fetch.
func WithMaxSourceSize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxSource = n
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new fal client with the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		runURL:       defaultRunURL,
		queueURL:     defaultQueueURL,
		storageURL:   defaultStorageURL,
		pollInterval: time.Second,
		maxSource:    DefaultMaxSourceSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UpdateAPIKey hot-reloads the API key.
func (c *Client) UpdateAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = key
}

// IsConfigured returns true if an API key is set.
func (c *Client) IsConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey != ""
}

func (c *Client) key() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.apiKey == "" {
		return "", fmt.Errorf("FAL API key not configured")
	}
	return c.apiKey, nil
}

// Run calls a model synchronously. The response is wrapped as {"data": body}
// to match the queue result shape.
func (c *Client) Run(ctx context.Context, modelID string, input map[string]any) (map[string]any, error) {
	var body map[string]any
	if err := c.doJSON(ctx, http.MethodPost, c.runURL+"/"+modelID, input, &body); err != nil {
		return nil, err
	}
	return map[string]any{"data": body}, nil
}

// Subscribe submits input to the model's queue, waits for completion and
// returns {"data": result, "requestId": id}.
func (c *Client) Subscribe(ctx context.Context, modelID string, input map[string]any) (map[string]any, error) {
	sub, err := c.Submit(ctx, modelID, input)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		st, err := c.Status(ctx, sub)
		if err != nil {
			return nil, err
		}
		switch st.Status {
		case StatusCompleted:
			if st.Error != "" {
				return nil, fmt.Errorf("fal request %s failed: %s", sub.RequestID, st.Error)
			}
			data, err := c.Result(ctx, sub)
			if err != nil {
				return nil, err
			}
			return map[string]any{"data": data, "requestId": sub.RequestID}, nil
		case StatusInQueue, StatusInProgress:
		default:
			return nil, fmt.Errorf("fal request %s: unexpected status %q", sub.RequestID, st.Status)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Submit enqueues a request without waiting for it.
func (c *Client) Submit(ctx context.Context, modelID string, input map[string]any) (*QueueSubmission, error) {
	var sub QueueSubmission
	if err := c.doJSON(ctx, http.MethodPost, c.queueURL+"/"+modelID, input, &sub); err != nil {
		return nil, fmt.Errorf("queue submit: %w", err)
	}
	if sub.RequestID == "" {
		return nil, fmt.Errorf("queue submit: no request id returned")
	}
	if sub.StatusURL == "" {
		sub.StatusURL = fmt.Sprintf("%s/%s/requests/%s/status", c.queueURL, modelID, sub.RequestID)
	}
	if sub.ResponseURL == "" {
		sub.ResponseURL = fmt.Sprintf("%s/%s/requests/%s", c.queueURL, modelID, sub.RequestID)
	}
	return &sub, nil
}

// Status fetches the current queue status of a submitted request.
func (c *Client) Status(ctx context.Context, sub *QueueSubmission) (*QueueStatus, error) {
	var st QueueStatus
	if err := c.doJSON(ctx, http.MethodGet, sub.StatusURL, nil, &st); err != nil {
		return nil, fmt.Errorf("queue status: %w", err)
	}
	return &st, nil
}

// Result fetches the output of a completed request.
func (c *Client) Result(ctx context.Context, sub *QueueSubmission) (map[string]any, error) {
	var data map[string]any
	if err := c.doJSON(ctx, http.MethodGet, sub.ResponseURL, nil, &data); err != nil {
		return nil, fmt.Errorf("queue result: %w", err)
	}
	return data, nil
}

// Upload stores data on fal's CDN and returns its public URL.
func (c *Client) Upload(ctx context.Context, data []byte, contentType, fileName string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	var init uploadInitResponse
	err := c.doJSON(ctx, http.MethodPost,
		c.storageURL+"/storage/upload/initiate?storage_type=fal-cdn-v3",
		uploadInitRequest{ContentType: contentType, FileName: fileName}, &init)
	if err != nil {
		return "", fmt.Errorf("initiate upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, init.UploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("upload error (status %d): %s", resp.StatusCode, string(body))
	}
	return init.FileURL, nil
}

// UploadFromURL downloads url, resolving relative paths against the public
// URL, and re-uploads it to fal storage.
func (c *Client) UploadFromURL(ctx context.Context, url string) (string, error) {
	abs := c.absoluteURL(url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, abs, nil)
	if err != nil {
		return "", fmt.Errorf("create fetch request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch source: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch source %s: status %d", abs, resp.StatusCode)
	}
	if resp.ContentLength > c.maxSource {
		return "", fmt.Errorf("%w: %s is %d bytes", ErrSourceTooLarge, abs, resp.ContentLength)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSource+1))
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	if int64(len(data)) > c.maxSource {
		return "", fmt.Errorf("%w: %s", ErrSourceTooLarge, abs)
	}
	return c.Upload(ctx, data, resp.Header.Get("Content-Type"), fileNameFromURL(abs))
}

func (c *Client) absoluteURL(url string) string {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	if strings.HasPrefix(url, "/") {
		return c.publicURL + url
	}
	return c.publicURL + "/" + url
}

func fileNameFromURL(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	name := u[strings.LastIndex(u, "/")+1:]
	if name == "" {
		return "upload.bin"
	}
	return name
}

func (c *Client) doJSON(ctx context.Context, method, url string, in, out any) error {
	key, err := c.key()
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+key)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("FAL API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
