package serenity

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairKeys(body []Param) []string {
	keys := make([]string, 0, len(body))
	for _, p := range body {
		keys = append(keys, p.Key)
	}
	return keys
}

func TestBaseExecuteBodyFieldOrder(t *testing.T) {
	body := baseExecuteBody(true, &ExecutionOptions{
		UserIdentifier:       "user-1",
		Channel:              "web",
		VolatileKnowledgeIDs: []string{"vk-1"},
	})

	assert.Equal(t, []string{"stream", "volatileKnowledgeIds", "userIdentifier", "channel"}, pairKeys(body))
	assert.Equal(t, "true", body[0].Value)
}

func TestBaseExecuteBodyOmitsUnsetFields(t *testing.T) {
	body := baseExecuteBody(false, &ExecutionOptions{})
	assert.Equal(t, []string{"stream"}, pairKeys(body))
	assert.Equal(t, "false", body[0].Value)

	body = baseExecuteBody(false, nil)
	assert.Equal(t, []string{"stream"}, pairKeys(body))
}

// Input parameters expand to exactly one pair each, in insertion order.
func TestAppendInputParamsPreservesOrder(t *testing.T) {
	body := appendInputParams(nil, []Param{P("a", "1"), P("b", "2")})
	assert.Equal(t, []string{"a", "b"}, pairKeys(body))

	body = appendInputParams(nil, nil)
	assert.Empty(t, body)
}

func TestParamJSONShape(t *testing.T) {
	encoded, err := json.Marshal([]Param{P("topic", "weather")})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"Key":"topic","Value":"weather"}]`, string(encoded))
}

func TestDecodeStreamError(t *testing.T) {
	for input, want := range map[string]string{
		`{"message":"agent crashed"}`: "agent crashed",
		"not json":                    "stream reported an error",
		`{"message":"  "}`:            "stream reported an error",
	} {
		err := decodeStreamError(input)
		var apiErr *Error
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, want, apiErr.Message)
	}
}
