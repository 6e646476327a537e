package serenity

import "context"

// PlanScope executes plan agents, which build an execution plan from the
// input and run it.
type PlanScope struct {
	client *Client
}

// Plan is one plan invocation, reusable for streaming.
type Plan struct {
	systemAgent
	opts *ExecutionOptions
}

// New creates a plan invocation without executing it.
func (s *PlanScope) New(agentCode string, opts *ExecutionOptions) *Plan {
	p := &Plan{opts: opts}
	p.systemAgent = systemAgent{
		client:    s.client,
		agentCode: agentCode,
		version:   versionOf(opts),
		bodyFor:   p.body,
	}
	return p
}

// Execute creates and runs a plan in one call.
func (s *PlanScope) Execute(ctx context.Context, agentCode string, opts *ExecutionOptions) (*AgentResult, error) {
	return s.New(agentCode, opts).Execute(ctx)
}

func (p *Plan) body(stream bool) any {
	body := baseExecuteBody(stream, p.opts)
	if p.opts != nil {
		body = appendInputParams(body, p.opts.InputParameters)
	}
	return body
}
