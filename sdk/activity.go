package serenity

import "context"

// ActivityScope executes activity agents: simple tasks driven by input
// parameters.
type ActivityScope struct {
	client *Client
}

// Activity is one activity invocation, reusable for streaming.
type Activity struct {
	systemAgent
	opts *ExecutionOptions
}

// New creates an activity invocation without executing it.
func (s *ActivityScope) New(agentCode string, opts *ExecutionOptions) *Activity {
	a := &Activity{opts: opts}
	a.systemAgent = systemAgent{
		client:    s.client,
		agentCode: agentCode,
		version:   versionOf(opts),
		bodyFor:   a.body,
	}
	return a
}

// Execute creates and runs an activity in one call.
func (s *ActivityScope) Execute(ctx context.Context, agentCode string, opts *ExecutionOptions) (*AgentResult, error) {
	return s.New(agentCode, opts).Execute(ctx)
}

func (a *Activity) body(stream bool) any {
	body := baseExecuteBody(stream, a.opts)
	if a.opts != nil {
		body = appendInputParams(body, a.opts.InputParameters)
	}
	return body
}

func versionOf(opts *ExecutionOptions) int {
	if opts == nil {
		return 0
	}
	return opts.AgentVersion
}
