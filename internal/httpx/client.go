// Package httpx builds the shared outbound HTTP client. The process creates
// exactly one of these in the composition root and injects it into every
// service, so all upstream calls share one connection pool with bounded
// limits instead of each service growing its own.
package httpx

import (
	"net"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a whole request including body read.
	DefaultTimeout = 10 * time.Second
	// connectTimeout bounds dialing alone.
	connectTimeout = 5 * time.Second

	maxConns          = 50
	maxIdleConns      = 20
	idleConnTimeout   = 90 * time.Second
	tlsHandshakeLimit = 5 * time.Second
)

// NewClient returns an *http.Client with bounded connect/total timeouts and
// bounded connection-pool limits. A non-positive timeout falls back to
// DefaultTimeout.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: connectTimeout,
			}).DialContext,
			MaxConnsPerHost:     maxConns,
			MaxIdleConns:        maxIdleConns,
			MaxIdleConnsPerHost: maxIdleConns,
			IdleConnTimeout:     idleConnTimeout,
			TLSHandshakeTimeout: tlsHandshakeLimit,
		},
	}
}
