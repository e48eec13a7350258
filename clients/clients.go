package clients

import (
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

// HTTP is the shared client for the remote inference, enhancement and
// speech services.
type HTTP struct{ c *http.Client }

// NewHTTP builds the shared client. A non-empty socksAddr routes every
// request through that SOCKS5 proxy.
func NewHTTP(timeout time.Duration, socksAddr string) (*HTTP, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if socksAddr == "" {
		return &HTTP{c: &http.Client{Timeout: timeout}}, nil
	}
	c, err := NewSocksClient(socksAddr, timeout)
	if err != nil {
		return nil, err
	}
	return &HTTP{c: c}, nil
}

// WithClient wraps an existing client.
func WithClient(c *http.Client) *HTTP {
	if c == nil {
		c = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTP{c: c}
}

// Client exposes the underlying client for SDKs that take one.
func (h *HTTP) Client() *http.Client { return h.c }
