package eveapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultURL is the Jumps endpoint of the public EVE API.
const DefaultURL = "https://api.eveonline.com/map/Jumps.xml.aspx"

const maxDocumentSize = 16 << 20

const defaultTimeout = 30 * time.Second

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

type Client struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// NewClient returns a client that never routes through an outbound proxy.
// A zero timeout falls back to 30s.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               nil,
				MaxIdleConns:        1,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		timeout:   timeout,
		userAgent: "systemjumps/1",
	}
}

// Fetch GETs url and returns the raw body.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctxTimeout, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/xml, text/xml")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxDocumentSize {
		return nil, fmt.Errorf("read body: document exceeds %d bytes", maxDocumentSize)
	}
	return body, nil
}
