package serenity

// agentResultWire is the non-streaming execute response, whose field names
// use the API's camelCase convention.
type agentResultWire struct {
	Content          string                      `json:"content"`
	InstanceID       string                      `json:"instanceId"`
	JSONContent      any                         `json:"jsonContent"`
	MetaAnalysis     map[string]any              `json:"metaAnalysis"`
	CompletionUsage  *completionUsageWire        `json:"completionUsage"`
	TimeToFirstToken *float64                    `json:"timeToFirstToken"`
	ExecutorTaskLogs []executorTaskLogWire       `json:"executorTaskLogs"`
	ActionResults    map[string]pluginResultWire `json:"actionResults"`
}

type completionUsageWire struct {
	CompletionTokens int `json:"completionTokens"`
	PromptTokens     int `json:"promptTokens"`
	TotalTokens      int `json:"totalTokens"`
}

type executorTaskLogWire struct {
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
}

type pluginResultWire struct {
	Content      string         `json:"content"`
	FinishReason string         `json:"finishReason"`
	Usage        map[string]any `json:"usage"`
}

// mapAgentResult normalizes a wire result into the public AgentResult
// shape. Pure and total: absent wire fields stay absent.
func mapAgentResult(wire agentResultWire) *AgentResult {
	result := &AgentResult{
		Content:          wire.Content,
		InstanceID:       wire.InstanceID,
		JSONContent:      wire.JSONContent,
		MetaAnalysis:     wire.MetaAnalysis,
		TimeToFirstToken: wire.TimeToFirstToken,
	}
	if wire.CompletionUsage != nil {
		result.CompletionUsage = &CompletionUsage{
			CompletionTokens: wire.CompletionUsage.CompletionTokens,
			PromptTokens:     wire.CompletionUsage.PromptTokens,
			TotalTokens:      wire.CompletionUsage.TotalTokens,
		}
	}
	if wire.ExecutorTaskLogs != nil {
		result.ExecutorTaskLogs = make([]ExecutorTaskLog, 0, len(wire.ExecutorTaskLogs))
		for _, entry := range wire.ExecutorTaskLogs {
			result.ExecutorTaskLogs = append(result.ExecutorTaskLogs, ExecutorTaskLog{
				Description: entry.Description,
				Duration:    entry.Duration,
			})
		}
	}
	if wire.ActionResults != nil {
		result.ActionResults = make(map[string]PluginResult, len(wire.ActionResults))
		for name, action := range wire.ActionResults {
			result.ActionResults[name] = PluginResult{
				Content:      action.Content,
				FinishReason: action.FinishReason,
				Usage:        action.Usage,
			}
		}
	}
	return result
}
