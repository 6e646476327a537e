package serenity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityExecuteBody(t *testing.T) {
	var gotPath string
	var gotPairs []Param
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPairs = decodePairs(t, r)
		_, _ = w.Write([]byte(`{"content":"done"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.Activities.Execute(context.Background(), "summarize", &ExecutionOptions{
		UserIdentifier:  "user-1",
		InputParameters: []Param{P("text", "lorem"), P("length", "short")},
	})
	require.NoError(t, err)
	assert.Equal(t, "done", result.Content)

	assert.Equal(t, "/v2/agent/summarize/execute", gotPath)
	assert.Equal(t, []string{"stream", "userIdentifier", "text", "length"}, pairKeys(gotPairs))
	assert.Equal(t, "false", gotPairs[0].Value)
}

func TestPlanExecuteVersionedPath(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"content":"plan"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Plans.Execute(context.Background(), "planner", &ExecutionOptions{AgentVersion: 4})
	require.NoError(t, err)
	assert.Equal(t, "/v2/agent/planner/execute/4", gotPath)
}

func TestChatCompletionBodyIncludesHistory(t *testing.T) {
	var gotPairs []Param
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPairs = decodePairs(t, r)
		_, _ = w.Write([]byte(`{"content":"ok"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.ChatCompletions.Execute(context.Background(), "chat", &ChatCompletionOptions{
		Message: "and now?",
		Messages: []ChatMessage{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"stream", "messages", "message"}, pairKeys(gotPairs))

	// History travels as a JSON-encoded string.
	encoded, ok := gotPairs[1].Value.(string)
	require.True(t, ok)
	var history []ChatMessage
	require.NoError(t, json.Unmarshal([]byte(encoded), &history))
	require.Len(t, history, 2)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Equal(t, "and now?", gotPairs[2].Value)
}

func TestProxyExecuteBodyIsFlat(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"content":"ok"}`))
	}))
	defer server.Close()

	temperature := 0.2
	client := newTestClient(t, server.URL)
	_, err := client.Proxies.Execute(context.Background(), "gpt-proxy", &ProxyOptions{
		Model:       "gpt-4o",
		Messages:    []ChatMessage{{Role: "user", Content: "hi"}},
		Temperature: &temperature,
		Vendor:      VendorOpenAI,
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", gotBody["model"])
	assert.Equal(t, 0.2, gotBody["temperature"])
	assert.Equal(t, "OpenAI", gotBody["vendor"])
	// The proxy body carries a real boolean, not the stringified flag the
	// ordered-pair kinds use.
	assert.Equal(t, false, gotBody["stream"])
	assert.NotContains(t, gotBody, "max_tokens")
}

func TestProxyStreamSendsBooleanTrue(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		// Answer with a plain JSON result; the stream path must hand it
		// back normalized.
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":"plain","instanceId":"i-3"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	proxy := client.Proxies.New("gpt-proxy", &ProxyOptions{Model: "gpt-4o"})

	result, err := proxy.Stream(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, gotBody["stream"])
	assert.Equal(t, "plain", result.Content)
	assert.Equal(t, "i-3", result.InstanceID)
}

func TestActivityStreamEmitsEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pairs := decodePairs(t, r)
		assert.Equal(t, "true", pairs[0].Value)

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event: start\ndata: {}\n\n"))
		_, _ = w.Write([]byte("event: content\ndata: {\"text\":\"chunk\"}\n\n"))
		_, _ = w.Write([]byte("event: stop\ndata: {\"result\":{\"content\":\"chunk\"}}\n\n"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	activity := client.Activities.New("summarize", nil)

	var events []string
	activity.On(EventStart, func(args ...any) {
		events = append(events, "start")
	}).On(EventContent, func(args ...any) {
		events = append(events, "content:"+args[0].(string))
	}).On(EventStop, func(args ...any) {
		events = append(events, "stop")
	})

	result, err := activity.Stream(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "chunk", result.Content)
	assert.Equal(t, []string{"start", "content:chunk", "stop"}, events)
}
