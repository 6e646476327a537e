package serenity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/serenitystar/serenity-go/pkg/core"
)

func (c *Client) jsonHeaders() http.Header {
	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	headers.Set(apiKeyHeader, c.apiKey)
	return headers
}

// baseExecuteBody starts an ordered-pair execute body with the shared
// fields: the stream flag always, then the conditional identity fields.
func baseExecuteBody(stream bool, opts *ExecutionOptions) []Param {
	body := []Param{P("stream", strconv.FormatBool(stream))}
	return appendCommonParams(body, opts)
}

func appendCommonParams(body []Param, opts *ExecutionOptions) []Param {
	if opts == nil {
		return body
	}
	if len(opts.VolatileKnowledgeIDs) > 0 {
		body = append(body, P("volatileKnowledgeIds", opts.VolatileKnowledgeIDs))
	}
	if opts.UserIdentifier != "" {
		body = append(body, P("userIdentifier", opts.UserIdentifier))
	}
	if opts.Channel != "" {
		body = append(body, P("channel", opts.Channel))
	}
	return body
}

// appendInputParams expands input parameters to one ordered pair per entry,
// preserving insertion order.
func appendInputParams(body []Param, params []Param) []Param {
	return append(body, params...)
}

// executeAgent performs one non-streaming execute POST and normalizes the
// wire result.
func (c *Client) executeAgent(ctx context.Context, agentCode string, version int, body any, fallback string) (*AgentResult, error) {
	ctx, span := c.tracer.Start(ctx, "serenity.agent.execute")
	defer span.End()

	endpoint := c.agentURL(agentCode, "execute", version)
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header = c.jsonHeaders()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: http.MethodPost, URL: endpoint, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp, fallback)
	}
	defer resp.Body.Close()
	return decodeWireResult(resp.Body)
}

// streamAgent performs the SSE execute variant. Decoded records fan out
// through the emitter: start once the stream opens, content per chunk, then
// a terminal stop or error. A decoded error record and a transport failure
// both emit the error event and fail the call; the two channels always
// agree.
func (c *Client) streamAgent(ctx context.Context, agentCode string, version int, body any, emitter *EventEmitter) (*AgentResult, error) {
	ctx, span := c.tracer.Start(ctx, "serenity.agent.stream")
	defer span.End()

	endpoint := c.agentURL(agentCode, "execute", version)
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	conn := newSSEConnection(c.httpClient)

	var result *AgentResult
	var streamErr error

	conn.on(EventStart, func(string) {
		emitter.Emit(EventStart)
	})
	conn.on(EventError, func(data string) {
		streamErr = decodeStreamError(data)
		emitter.Emit(EventError, streamErr)
	})
	conn.on(EventContent, func(data string) {
		var chunk struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.logger.Debug("discarding malformed content chunk", "agent", agentCode, "error", err)
			return
		}
		emitter.Emit(EventContent, chunk.Text)
	})
	conn.on(EventStop, func(data string) {
		var final struct {
			Result AgentResult `json:"result"`
		}
		if err := json.Unmarshal([]byte(data), &final); err != nil {
			streamErr = core.NewAPIError("malformed final stream record")
			emitter.Emit(EventError, streamErr)
			return
		}
		result = &final.Result
		emitter.Emit(EventStop, final.Result)
	})

	resp, err := conn.start(ctx, endpoint, c.jsonHeaders(), payload)
	if err != nil {
		emitter.Emit(EventError, err)
		return nil, err
	}
	if streamErr != nil {
		return nil, streamErr
	}
	if result != nil {
		return result, nil
	}

	// The server may answer a stream request with a plain JSON result; the
	// decoder hands such responses back unconsumed.
	if resp != nil && !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		defer resp.Body.Close()
		return decodeWireResult(resp.Body)
	}
	return nil, core.NewAPIError("stream ended without a final result")
}

func decodeWireResult(r io.Reader) (*AgentResult, error) {
	var wire agentResultWire
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return mapAgentResult(wire), nil
}

func decodeStreamError(data string) error {
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal([]byte(data), &payload) == nil && strings.TrimSpace(payload.Message) != "" {
		return core.NewAPIError(strings.TrimSpace(payload.Message))
	}
	return core.NewAPIError("stream reported an error")
}
