package provider

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestHTTPTransportGet(t *testing.T) {
	t.Parallel()

	var accept string
	transport := NewHTTPTransport(0)
	transport.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			accept = req.Header.Get("Accept")
			return &http.Response{
				StatusCode: http.StatusTooManyRequests,
				Body:       io.NopCloser(bytes.NewReader([]byte(`{"status":"ERROR"}`))),
				Header:     make(http.Header),
			}, nil
		}),
	}

	resp, err := transport.Get(context.Background(), "http://example/v2/last/trade/SPY")
	require.NoError(t, err)
	assert.Equal(t, "application/json", accept)
	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
	assert.Equal(t, `{"status":"ERROR"}`, string(resp.Body))
}

func TestHTTPTransportNetworkError(t *testing.T) {
	t.Parallel()

	transport := NewHTTPTransport(0)
	transport.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("dial tcp: refused")
		}),
	}

	_, err := transport.Get(context.Background(), "http://example/x")
	assert.ErrorContains(t, err, "refused")
}
