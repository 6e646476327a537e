package serenity

import (
	"context"
	"encoding/json"
)

// ChatCompletionScope executes chat-completion agents, where the caller
// controls the full message history.
type ChatCompletionScope struct {
	client *Client
}

// ChatCompletion is one chat-completion invocation, reusable for streaming.
type ChatCompletion struct {
	systemAgent
	opts *ChatCompletionOptions
}

// New creates a chat-completion invocation without executing it.
func (s *ChatCompletionScope) New(agentCode string, opts *ChatCompletionOptions) *ChatCompletion {
	c := &ChatCompletion{opts: opts}
	version := 0
	if opts != nil {
		version = opts.AgentVersion
	}
	c.systemAgent = systemAgent{
		client:    s.client,
		agentCode: agentCode,
		version:   version,
		bodyFor:   c.body,
	}
	return c
}

// Execute creates and runs a chat completion in one call.
func (s *ChatCompletionScope) Execute(ctx context.Context, agentCode string, opts *ChatCompletionOptions) (*AgentResult, error) {
	return s.New(agentCode, opts).Execute(ctx)
}

func (c *ChatCompletion) body(stream bool) any {
	if c.opts == nil {
		return baseExecuteBody(stream, nil)
	}
	body := baseExecuteBody(stream, &c.opts.ExecutionOptions)
	if len(c.opts.Messages) > 0 {
		// The endpoint takes the history as a JSON-encoded string pair.
		if encoded, err := json.Marshal(c.opts.Messages); err == nil {
			body = append(body, P("messages", string(encoded)))
		}
	}
	if c.opts.Message != "" {
		body = append(body, P("message", c.opts.Message))
	}
	return appendInputParams(body, c.opts.InputParameters)
}
