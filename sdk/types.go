package serenity

// AgentResult is the terminal artifact of one agent execution. JSON field
// names use the stable snake_case public convention; the non-streaming wire
// shape (camelCase) is normalized into it by mapAgentResult.
type AgentResult struct {
	Content          string                  `json:"content"`
	InstanceID       string                  `json:"instance_id"`
	JSONContent      any                     `json:"json_content,omitempty"`
	MetaAnalysis     map[string]any          `json:"meta_analysis,omitempty"`
	CompletionUsage  *CompletionUsage        `json:"completion_usage,omitempty"`
	TimeToFirstToken *float64                `json:"time_to_first_token,omitempty"`
	ExecutorTaskLogs []ExecutorTaskLog       `json:"executor_task_logs,omitempty"`
	ActionResults    map[string]PluginResult `json:"action_results,omitempty"`
}

// CompletionUsage reports token accounting for one execution.
type CompletionUsage struct {
	CompletionTokens int `json:"completion_tokens"`
	PromptTokens     int `json:"prompt_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ExecutorTaskLog is one step of the executor's task log.
type ExecutorTaskLog struct {
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
}

// PluginResult is the outcome of a plugin action attached to a result.
type PluginResult struct {
	Content      string         `json:"content"`
	FinishReason string         `json:"finish_reason,omitempty"`
	Usage        map[string]any `json:"usage,omitempty"`
}

// Param is one ordered key/value pair of an execute request body. The
// uniform agent-execution endpoint expects an ordered pair list rather than
// a keyed object, so input parameters are carried as a slice: slice order is
// wire order.
type Param struct {
	Key   string `json:"Key"`
	Value any    `json:"Value"`
}

// P is shorthand for constructing a Param.
func P(key string, value any) Param {
	return Param{Key: key, Value: value}
}

// ExecutionOptions configures an agent invocation. Immutable after the
// session is constructed.
type ExecutionOptions struct {
	// UserIdentifier attributes the execution to an end user.
	UserIdentifier string
	// AgentVersion pins a specific published version; zero means latest.
	AgentVersion int
	// Channel identifies where the execution takes place.
	Channel string
	// VolatileKnowledgeIDs attach previously uploaded volatile knowledge.
	VolatileKnowledgeIDs []string
	// InputParameters are expanded to one ordered pair per entry.
	InputParameters []Param
}

// MessageOptions carries per-message overrides for a conversation turn.
type MessageOptions struct {
	InputParameters      []Param
	VolatileKnowledgeIDs []string
}

// ChatMessage is one turn of a chat history.
type ChatMessage struct {
	Role                 string   `json:"role"`
	Content              string   `json:"content"`
	VolatileKnowledgeIDs []string `json:"volatileKnowledgeIds,omitempty"`
}

// ChatCompletionOptions configures a chat-completion execution.
type ChatCompletionOptions struct {
	ExecutionOptions

	// Message is the current user message.
	Message string
	// Messages is the prior conversation history, oldest first.
	Messages []ChatMessage
}

// Vendor identifies the model provider behind a proxy agent.
type Vendor string

// Vendors accepted by proxy agents.
const (
	VendorOpenAI    Vendor = "OpenAI"
	VendorAzure     Vendor = "Azure"
	VendorMistral   Vendor = "Mistral"
	VendorGroq      Vendor = "Groq"
	VendorAnthropic Vendor = "Anthropic"
	VendorGoogle    Vendor = "Google"
	VendorDeepSeek  Vendor = "DeepSeek"
)

// ProxyOptions configures a model-proxy execution. The proxy endpoint speaks
// a flat chat-completion schema rather than the ordered-pair body used by
// the other kinds.
type ProxyOptions struct {
	Model    string
	Messages []ChatMessage

	FrequencyPenalty *float64
	MaxTokens        *int
	PresencePenalty  *float64
	Temperature      *float64
	TopP             *float64
	TopK             *int

	Vendor          Vendor
	UserIdentifier  string
	GroupIdentifier string
	UseVision       bool

	// AgentVersion pins a specific published version; zero means latest.
	AgentVersion int
}

// proxyExecuteBody mirrors the external chat-completion schema.
type proxyExecuteBody struct {
	Model            string        `json:"model"`
	Messages         []ChatMessage `json:"messages"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
	MaxTokens        *int          `json:"max_tokens,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
	Temperature      *float64      `json:"temperature,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	TopK             *int          `json:"top_k,omitempty"`
	Vendor           string        `json:"vendor,omitempty"`
	UserIdentifier   string        `json:"userIdentifier,omitempty"`
	GroupIdentifier  string        `json:"groupIdentifier,omitempty"`
	UseVision        bool          `json:"useVision,omitempty"`
	Stream           bool          `json:"stream"`
}

// initConversationBody is the conversation handshake request.
type initConversationBody struct {
	UserIdentifier  string  `json:"userIdentifier,omitempty"`
	InputParameters []Param `json:"inputParameters,omitempty"`
}

// initConversationResponse is the conversation handshake response.
type initConversationResponse struct {
	ChatID               string   `json:"chatId"`
	Content              string   `json:"content"`
	ConversationStarters []string `json:"conversationStarters"`
	UseVision            bool     `json:"useVision"`
}
