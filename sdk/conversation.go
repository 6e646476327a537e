package serenity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/serenitystar/serenity-go/pkg/core"
)

// ConversationalScope exposes the operations of a conversational agent
// type: stateful conversations and real-time voice sessions.
type ConversationalScope struct {
	client    *Client
	agentType string
}

// CreateConversation acquires a server-assigned conversation handle and
// returns a ready-to-use Conversation. The handle is immutable for the life
// of the conversation; every message exchanged is bound to it.
func (s *ConversationalScope) CreateConversation(ctx context.Context, agentCode string, opts *ExecutionOptions) (*Conversation, error) {
	conv := &Conversation{client: s.client, agentCode: agentCode}
	if opts != nil {
		conv.opts = *opts
	}
	if err := conv.init(ctx); err != nil {
		return nil, err
	}
	return conv, nil
}

// NewRealtimeSession creates a real-time voice session for the agent. The
// session does not touch the network until Start is called.
func (s *ConversationalScope) NewRealtimeSession(agentCode string, opts *ExecutionOptions, sessionOpts ...RealtimeOption) *RealtimeSession {
	return newRealtimeSession(s.client, agentCode, opts, sessionOpts...)
}

// Conversation is a stateful multi-turn exchange with a conversational
// agent. Create one via CreateConversation; the zero value is unusable and
// every operation on it fails fast.
//
// Streaming events: "start" (no args), "content" (args[0] string chunk),
// "error" (args[0] error), "stop" (args[0] AgentResult).
type Conversation struct {
	EventEmitter

	client    *Client
	agentCode string
	opts      ExecutionOptions

	// ChatID is the server-assigned conversation handle.
	ChatID string
	// Greeting is the agent's opening message from the handshake.
	Greeting string
	// ConversationStarters are suggested first messages, when configured.
	ConversationStarters []string
}

// init performs the conversation handshake.
func (c *Conversation) init(ctx context.Context) error {
	ctx, span := c.client.tracer.Start(ctx, "serenity.conversation.init")
	defer span.End()

	body := initConversationBody{UserIdentifier: c.opts.UserIdentifier}
	if len(c.opts.InputParameters) > 0 {
		body.InputParameters = appendInputParams(nil, c.opts.InputParameters)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	endpoint := c.client.agentURL(c.agentCode, "conversation", c.opts.AgentVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header = c.client.jsonHeaders()

	resp, err := c.client.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: http.MethodPost, URL: endpoint, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp, "failed to initialize conversation")
	}
	defer resp.Body.Close()

	var created initConversationResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	c.ChatID = created.ChatID
	c.Greeting = created.Content
	c.ConversationStarters = created.ConversationStarters

	c.client.logger.Debug("conversation initialized", "agent", c.agentCode, "chat_id", c.ChatID)
	return nil
}

// SendMessage sends one message and waits for the full result.
func (c *Conversation) SendMessage(ctx context.Context, message string, opts *MessageOptions) (*AgentResult, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	body := c.messageBody(message, false, opts)
	return c.client.executeAgent(ctx, c.agentCode, c.opts.AgentVersion, body, "failed to execute message")
}

// StreamMessage sends one message and streams the result incrementally.
// Events fire on the conversation's emitter in order: start, then one
// content per chunk, then stop with the final result (which is also
// returned) or error (which also fails the call).
func (c *Conversation) StreamMessage(ctx context.Context, message string, opts *MessageOptions) (*AgentResult, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	body := c.messageBody(message, true, opts)
	return c.client.streamAgent(ctx, c.agentCode, c.opts.AgentVersion, body, &c.EventEmitter)
}

func (c *Conversation) ensureInitialized() error {
	if c.client == nil || c.ChatID == "" {
		return core.NewInvalidRequestError("conversation is not initialized")
	}
	return nil
}

// messageBody builds the ordered-pair execute body for one message.
func (c *Conversation) messageBody(message string, stream bool, opts *MessageOptions) []Param {
	body := []Param{
		P("chatId", c.ChatID),
		P("message", message),
		P("stream", strconv.FormatBool(stream)),
	}
	if opts != nil {
		body = appendInputParams(body, opts.InputParameters)
		if len(opts.VolatileKnowledgeIDs) > 0 {
			body = append(body, P("volatileKnowledgeIds", opts.VolatileKnowledgeIDs))
		}
	}
	if c.opts.UserIdentifier != "" {
		body = append(body, P("userIdentifier", c.opts.UserIdentifier))
	}
	if c.opts.Channel != "" {
		body = append(body, P("channel", c.opts.Channel))
	}
	return body
}
