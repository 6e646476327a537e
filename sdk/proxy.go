package serenity

import "context"

// ProxyScope executes model-proxy agents. The proxy endpoint targets a
// heterogeneous-vendor model API, so its body is a flat chat-completion
// object instead of the ordered-pair shape the other kinds use.
type ProxyScope struct {
	client *Client
}

// Proxy is one proxy invocation, reusable for streaming.
type Proxy struct {
	systemAgent
	opts *ProxyOptions
}

// New creates a proxy invocation without executing it.
func (s *ProxyScope) New(agentCode string, opts *ProxyOptions) *Proxy {
	p := &Proxy{opts: opts}
	version := 0
	if opts != nil {
		version = opts.AgentVersion
	}
	p.systemAgent = systemAgent{
		client:    s.client,
		agentCode: agentCode,
		version:   version,
		bodyFor:   p.body,
	}
	return p
}

// Execute creates and runs a proxy invocation in one call.
func (s *ProxyScope) Execute(ctx context.Context, agentCode string, opts *ProxyOptions) (*AgentResult, error) {
	return s.New(agentCode, opts).Execute(ctx)
}

func (p *Proxy) body(stream bool) any {
	body := proxyExecuteBody{Stream: stream}
	if p.opts == nil {
		return body
	}
	body.Model = p.opts.Model
	body.Messages = p.opts.Messages
	body.FrequencyPenalty = p.opts.FrequencyPenalty
	body.MaxTokens = p.opts.MaxTokens
	body.PresencePenalty = p.opts.PresencePenalty
	body.Temperature = p.opts.Temperature
	body.TopP = p.opts.TopP
	body.TopK = p.opts.TopK
	body.Vendor = string(p.opts.Vendor)
	body.UserIdentifier = p.opts.UserIdentifier
	body.GroupIdentifier = p.opts.GroupIdentifier
	body.UseVision = p.opts.UseVision
	return body
}
