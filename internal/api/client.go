// Package api is the resilient request layer every screen talks
// through: cache-first reads, offline capture for mutating calls,
// retry with error classification, and a uniform result shape.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/domain"
	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/netmon"
	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/offline"
	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/store"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "MealManager/1.0"

	headerIdempotencyKey = "X-Idempotency-Key"
)

// Client is the request dispatcher. Construct one per process and hand
// it to the domain services; it owns no global state.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     domain.TokenProvider
	store      *store.Store
	queue      *offline.Queue
	monitor    *netmon.Monitor
	retry      RetryPolicy
	timeout    time.Duration
	logger     *slog.Logger
}

// NewClient creates a dispatcher against baseURL. The store backs the
// response cache; queue and monitor are attached afterwards because the
// queue replays through this client.
func NewClient(baseURL string, tokens domain.TokenProvider, st *store.Store, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		tokens:     tokens,
		store:      st,
		retry:      DefaultRetryPolicy,
		timeout:    defaultTimeout,
		logger:     logger,
	}
}

// AttachQueue wires the offline write queue. Until attached, mutating
// calls have no offline fallback.
func (c *Client) AttachQueue(q *offline.Queue) { c.queue = q }

// AttachMonitor wires the connectivity monitor used for fail-fast
// offline detection.
func (c *Client) AttachMonitor(m *netmon.Monitor) { c.monitor = m }

// SetRetryPolicy overrides the default retry behavior.
func (c *Client) SetRetryPolicy(p RetryPolicy) { c.retry = p }

// SetTimeout overrides the per-attempt timeout. Individual calls can
// still override it via RequestOptions.Timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
		c.httpClient.Timeout = d
	}
}

// Get performs a read. With opts.Cache set, a fresh cached payload is
// served without touching the network; a miss fetches and populates the
// cache. Reads never fall back to the offline queue: a failed read is
// just a failed result.
func (c *Client) Get(ctx context.Context, endpoint string, opts *domain.RequestOptions) domain.Result {
	if opts == nil {
		opts = &domain.RequestOptions{}
	}

	if opts.Cache && opts.CacheKey != "" {
		if payload, ok := c.store.GetResponse(opts.CacheKey); ok {
			c.logger.Debug("cache hit", "key", opts.CacheKey)
			r := domain.OK(payload)
			r.FromCache = true
			return r
		}
	}

	if err := c.failFast(opts); err != nil {
		return domain.Fail(err)
	}

	payload, err := c.dispatch(ctx, http.MethodGet, endpoint, nil, "", opts)
	if err != nil {
		c.logger.Error("get failed", "endpoint", endpoint, "error", err)
		return domain.Fail(err)
	}

	if opts.Cache && opts.CacheKey != "" {
		if err := c.store.SaveResponse(opts.CacheKey, payload, opts.CacheTTL); err != nil {
			c.logger.Warn("failed to cache response", "key", opts.CacheKey, "error", err)
		}
	}
	return domain.OK(payload)
}

// Post submits a create/submit action.
func (c *Client) Post(ctx context.Context, endpoint string, body any, opts *domain.RequestOptions) domain.Result {
	return c.mutate(ctx, http.MethodPost, endpoint, body, opts)
}

// Patch submits a partial update.
func (c *Client) Patch(ctx context.Context, endpoint string, body any, opts *domain.RequestOptions) domain.Result {
	return c.mutate(ctx, http.MethodPatch, endpoint, body, opts)
}

// Delete removes a resource.
func (c *Client) Delete(ctx context.Context, endpoint string, opts *domain.RequestOptions) domain.Result {
	return c.mutate(ctx, http.MethodDelete, endpoint, nil, opts)
}

// UploadFile sends file as multipart/form-data under fileField,
// alongside any extra form fields. Behaves as a mutating call,
// including offline fallback: the encoded form body is captured
// whole so a replay reproduces the identical upload.
func (c *Client) UploadFile(ctx context.Context, endpoint, fileField, fileName string, file io.Reader, fields map[string]string, opts *domain.RequestOptions) domain.Result {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(fileField, fileName)
	if err != nil {
		return domain.Fail(domain.NewError(domain.KindValidation, 0, "invalid upload", err))
	}
	if _, err := io.Copy(part, file); err != nil {
		return domain.Fail(domain.NewError(domain.KindValidation, 0, "failed to read upload", err))
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return domain.Fail(domain.NewError(domain.KindValidation, 0, "failed to encode upload", err))
		}
	}
	if err := w.Close(); err != nil {
		return domain.Fail(domain.NewError(domain.KindValidation, 0, "failed to encode upload", err))
	}

	return c.send(ctx, http.MethodPost, endpoint, buf.Bytes(), w.FormDataContentType(), opts)
}

func (c *Client) mutate(ctx context.Context, method, endpoint string, body any, opts *domain.RequestOptions) domain.Result {
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return domain.Fail(domain.NewError(domain.KindValidation, 0, "unencodable request body", err))
		}
	}
	return c.send(ctx, method, endpoint, raw, "application/json", opts)
}

// send runs one mutating call through fail-fast, the classifier, the
// offline fallback, and cache invalidation.
func (c *Client) send(ctx context.Context, method, endpoint string, body []byte, contentType string, opts *domain.RequestOptions) domain.Result {
	if opts == nil {
		opts = &domain.RequestOptions{}
	}

	// Known-offline: skip the doomed attempt instead of waiting out a
	// timeout.
	if c.monitor != nil && !c.monitor.IsOnline() {
		if opts.OfflineFallback && c.queue != nil {
			return c.enqueueOffline(method, endpoint, body, contentType, opts)
		}
		return domain.Fail(domain.NewError(domain.KindOffline, 0, "device is offline", nil))
	}

	payload, err := c.dispatch(ctx, method, endpoint, body, contentType, opts)
	if err != nil {
		// Only network-class failures are safe to queue; validation and
		// auth errors must reach the user unchanged.
		if opts.OfflineFallback && c.queue != nil && domain.IsNetwork(err) {
			return c.enqueueOffline(method, endpoint, body, contentType, opts)
		}
		c.logger.Error("mutation failed", "method", method, "endpoint", endpoint, "error", err)
		return domain.Fail(err)
	}

	c.invalidateAfterMutation(endpoint, opts)
	return domain.OK(payload)
}

func (c *Client) enqueueOffline(method, endpoint string, body []byte, contentType string, opts *domain.RequestOptions) domain.Result {
	headers := map[string]string{}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}
	if _, err := c.queue.Enqueue(method, endpoint, body, headers, opts.InvalidatePrefixes); err != nil {
		c.logger.Error("failed to queue offline request", "endpoint", endpoint, "error", err)
		return domain.Fail(domain.NewError(domain.KindNetwork, 0, "offline and could not queue request", err))
	}
	return domain.Result{Success: true, Offline: true}
}

// invalidateAfterMutation wipes cached reads touching the mutated
// resource. Callers name exact prefixes via options; absent that, the
// endpoint's first path segment is used. Narrower than "clear all", at
// the cost of the caller having to know its read keys.
func (c *Client) invalidateAfterMutation(endpoint string, opts *domain.RequestOptions) {
	prefixes := opts.InvalidatePrefixes
	if len(prefixes) == 0 {
		if seg := firstPathSegment(endpoint); seg != "" {
			prefixes = []string{seg}
		}
	}
	for _, p := range prefixes {
		c.store.InvalidateResponses(p)
	}
}

func firstPathSegment(endpoint string) string {
	trimmed := strings.TrimPrefix(endpoint, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i]
	}
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}

// failFast rejects reads attempted while known-offline, sparing the
// caller a timeout. Cache hits have already been served by this point.
func (c *Client) failFast(_ *domain.RequestOptions) error {
	if c.monitor != nil && !c.monitor.IsOnline() {
		return domain.NewError(domain.KindOffline, 0, "device is offline", nil)
	}
	return nil
}

// Replay delivers one queued request. Used as the queue's sender: a
// single classified attempt, no local retry loop, since the drain owns
// attempt accounting. The request's ID travels as the idempotency key,
// and the prefixes captured at enqueue time are invalidated on landing,
// same as the online call would have done.
func (c *Client) Replay(ctx context.Context, req domain.QueuedRequest) error {
	headers := map[string]string{headerIdempotencyKey: req.ID}
	for k, v := range req.Headers {
		headers[k] = v
	}
	opts := &domain.RequestOptions{InvalidatePrefixes: req.InvalidatePrefixes}
	_, err := c.attempt(ctx, req.Method, req.Endpoint, req.Body, headers, opts)
	if err != nil {
		return err
	}
	c.invalidateAfterMutation(req.Endpoint, opts)
	return nil
}

// ClearCache wipes every cached response, for a manual pull-to-refresh.
func (c *Client) ClearCache() { c.store.ClearResponses() }

// InvalidateCache wipes cached responses under prefix.
func (c *Client) InvalidateCache(prefix string) { c.store.InvalidateResponses(prefix) }

// dispatch wraps attempt in the retry policy.
func (c *Client) dispatch(ctx context.Context, method, endpoint string, body []byte, contentType string, opts *domain.RequestOptions) (json.RawMessage, error) {
	headers := map[string]string{}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}

	var out json.RawMessage
	err := c.retry.Do(ctx, c.logger, func() error {
		payload, err := c.attempt(ctx, method, endpoint, body, headers, opts)
		if err != nil {
			return err
		}
		out = payload
		return nil
	})
	return out, err
}

// attempt performs exactly one HTTP round-trip and classifies the
// outcome.
func (c *Client) attempt(ctx context.Context, method, endpoint string, body []byte, headers map[string]string, opts *domain.RequestOptions) (json.RawMessage, error) {
	timeout := c.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, domain.NewError(domain.KindValidation, 0, "failed to create request", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if !opts.SkipAuth && c.tokens != nil {
		if token, ok := c.tokens.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.logger.Debug("api request", "method", method, "endpoint", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewError(domain.KindNetwork, resp.StatusCode, "failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("api request error", "status", resp.StatusCode, "endpoint", endpoint)
		return nil, classifyStatus(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// serverMessage pulls a human-readable error out of a JSON error body.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
