package serenity

import (
	"log/slog"
	"os"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"
)

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the Serenity API key used for every request.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient sets a custom HTTP client. Hosts without a conforming
// default transport inject their own implementation here.
func WithHTTPClient(client HTTPDoer) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithWebSocketDialer sets the dialer used for real-time signaling
// connections.
func WithWebSocketDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *Client) {
		c.wsDialer = dialer
	}
}

// WithLogger sets the logger for the client.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTracer sets the OpenTelemetry tracer for the client.
func WithTracer(t trace.Tracer) ClientOption {
	return func(c *Client) {
		c.tracer = t
	}
}

// FromEnv fills in the API key and base URL from SERENITY_API_KEY and
// SERENITY_BASE_URL. Values set by earlier options win.
func FromEnv() ClientOption {
	return func(c *Client) {
		if c.apiKey == "" {
			c.apiKey = os.Getenv("SERENITY_API_KEY")
		}
		if base := os.Getenv("SERENITY_BASE_URL"); base != "" && c.baseURL == defaultBaseURL {
			c.baseURL = base
		}
	}
}
