// Package serenity provides the Serenity Star agent execution SDK for Go.
//
// The SDK invokes remote agents over HTTP, streams incremental results via
// server-sent events, and drives real-time voice sessions that combine
// WebSocket signaling with a WebRTC media transport.
package serenity

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/serenitystar/serenity-go/pkg/core"
)

const (
	defaultBaseURL = "https://api.serenitystar.ai/api"

	apiKeyHeader = "X-API-KEY"

	tracerName = "github.com/serenitystar/serenity-go"
)

// Client is the main entry point for the SDK. One static API key is supplied
// at construction and used for every request the client issues.
type Client struct {
	// Conversational agent scopes. Assistants and copilots hold multi-turn
	// conversations and real-time voice sessions.
	Assistants *ConversationalScope
	Copilots   *ConversationalScope

	// System agent scopes. These execute without a conversation handshake.
	Activities      *ActivityScope
	ChatCompletions *ChatCompletionScope
	Proxies         *ProxyScope
	Plans           *PlanScope

	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	wsDialer   *websocket.Dialer
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewClient creates a new client. The API key is required, either via
// WithAPIKey or FromEnv.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		baseURL: defaultBaseURL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		return nil, core.NewAuthenticationError("the API key is required")
	}
	if c.httpClient == nil {
		c.httpClient = newDefaultHTTPClient()
	}
	if c.wsDialer == nil {
		c.wsDialer = websocket.DefaultDialer
	}
	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer(tracerName)
	}

	c.Assistants = &ConversationalScope{client: c, agentType: "assistant"}
	c.Copilots = &ConversationalScope{client: c, agentType: "copilot"}
	c.Activities = &ActivityScope{client: c}
	c.ChatCompletions = &ChatCompletionScope{client: c}
	c.Proxies = &ProxyScope{client: c}
	c.Plans = &PlanScope{client: c}
	return c, nil
}

// agentURL builds {base}/v2/agent/{code}/{op}[/{version}].
func (c *Client) agentURL(agentCode, op string, version int) string {
	u := fmt.Sprintf("%s/v2/agent/%s/%s",
		strings.TrimRight(c.baseURL, "/"), url.PathEscape(agentCode), op)
	if version > 0 {
		u = fmt.Sprintf("%s/%d", u, version)
	}
	return u
}

// realtimeURL builds the websocket endpoint for a real-time session,
// switching the base scheme to ws/wss.
func (c *Client) realtimeURL(agentCode string, version int) (string, error) {
	raw := c.agentURL(agentCode, "realtime", version)
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", core.NewInvalidRequestError("invalid base URL")
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", core.NewInvalidRequestError(fmt.Sprintf("unsupported base URL scheme %q", parsed.Scheme))
	}
	return parsed.String(), nil
}
