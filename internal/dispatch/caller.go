package dispatch

//go:generate mockgen -source=caller.go -destination=mocks/mock_caller.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"marketplace/gateway/internal/registry"
)

const (
	maxBackendBodyBytes = 4 << 20 // 4 MiB
	errorSnippetBytes   = 512

	// Fixed outbound payload attributes expected by the content backends.
	defaultPlatform  = "instagram"
	defaultFollowers = 10000

	RequestIDHeader = "X-Request-Id"
)

var ErrBackendUnavailable = errors.New("backend unavailable")

// BackendRequest is the body POSTed to a real backend.
type BackendRequest struct {
	Content            string `json:"content"`
	Platform           string `json:"platform"`
	InstagramFollowers int    `json:"instagram_followers"`
}

func newBackendRequest(input string) BackendRequest {
	return BackendRequest{
		Content:            input,
		Platform:           defaultPlatform,
		InstagramFollowers: defaultFollowers,
	}
}

// Caller performs the outbound call for a real backend and returns the
// decoded response object.
type Caller interface {
	Call(ctx context.Context, d registry.ServiceDescriptor, payload BackendRequest) (map[string]any, error)
}

type HTTPCaller struct {
	client *http.Client
}

func NewHTTPCaller(timeout time.Duration) *HTTPCaller {
	return &HTTPCaller{client: &http.Client{Timeout: timeout}}
}

// Call returns an error wrapping ErrBackendUnavailable on transport failure,
// timeout, a non-2xx status, or a body that is not a JSON object.
func (c *HTTPCaller) Call(ctx context.Context, d registry.ServiceDescriptor, payload BackendRequest) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode backend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, d.HTTPMethod, d.URL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrBackendUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := RequestID(ctx); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorSnippetBytes))
		return nil, fmt.Errorf("%w: status %d: %s", ErrBackendUnavailable, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var fields map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBackendBodyBytes)).Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrBackendUnavailable, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: empty response object", ErrBackendUnavailable)
	}
	return fields, nil
}

type requestIDKey struct{}

// WithRequestID attaches a correlation id that is forwarded to backends.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
