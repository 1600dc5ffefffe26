package provider

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Response is the raw result of one outbound GET.
type Response struct {
	Status  int
	Body    []byte
	Latency time.Duration
}

// Transport performs a single outbound GET. It carries no retry or business logic.
type Transport interface {
	Get(ctx context.Context, url string) (*Response, error)
}

type HTTPTransport struct {
	client *http.Client
}

func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{client: &http.Client{Timeout: timeout}}
}

func (t *HTTPTransport) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{
		Status:  resp.StatusCode,
		Body:    body,
		Latency: time.Since(start),
	}, nil
}
