package serenity

import "context"

// systemAgent is the shared base of the stateless execution kinds. No
// handshake is performed: each invocation builds its own request body via
// the kind's body builder.
//
// Streaming events match Conversation: "start", "content", "error", "stop".
type systemAgent struct {
	EventEmitter

	client    *Client
	agentCode string
	version   int

	// bodyFor assembles the kind-specific execute body.
	bodyFor func(stream bool) any
}

// Execute performs one non-streaming invocation and returns the normalized
// result.
func (a *systemAgent) Execute(ctx context.Context) (*AgentResult, error) {
	return a.client.executeAgent(ctx, a.agentCode, a.version, a.bodyFor(false), "failed to execute agent")
}

// Stream performs the SSE invocation, firing events on the agent's emitter
// and returning the final normalized result.
func (a *systemAgent) Stream(ctx context.Context) (*AgentResult, error) {
	return a.client.streamAgent(ctx, a.agentCode, a.version, a.bodyFor(true), &a.EventEmitter)
}
