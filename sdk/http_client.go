package serenity

import (
	"net"
	"net/http"
	"time"
)

// HTTPDoer is the minimal HTTP client surface the SDK needs. *http.Client
// satisfies it; hosts with their own transport substitute it via
// WithHTTPClient.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// newDefaultHTTPClient configures transport-level timeouts while leaving the
// overall request lifetime to context deadlines. Client.Timeout stays unset
// because SSE responses are long-lived.
func newDefaultHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ForceAttemptHTTP2:     true,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
	return &http.Client{Transport: transport}
}
