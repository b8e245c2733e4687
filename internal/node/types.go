package node

// Канонические типы встроенных нод.
const (
	TypeLLM       = "llm"
	TypeHTTP      = "http"
	TypeCondition = "condition"
	TypeLoop      = "loop"
	TypeVariable  = "variable"
	TypeTransform = "transform"
	TypeMerge     = "merge"
	TypeTemplate  = "template"
	TypeRegex     = "regex"
	TypeSplitJoin = "split-join"
	TypeInput     = "input"
	TypeOutput    = "output"
	TypeDelay     = "delay"
	TypeSchedule  = "schedule"
)

// BuiltinTypes — закрытое множество встроенных типов.
var BuiltinTypes = []string{
	TypeLLM,
	TypeHTTP,
	TypeCondition,
	TypeLoop,
	TypeVariable,
	TypeTransform,
	TypeMerge,
	TypeTemplate,
	TypeRegex,
	TypeSplitJoin,
	TypeInput,
	TypeOutput,
	TypeDelay,
	TypeSchedule,
}

// Коды ошибок нод.
const (
	CodeMissingAPIKey     = "MISSING_API_KEY"
	CodeUnsupportedModel  = "UNSUPPORTED_MODEL"
	CodeLLMCallFailed     = "LLM_CALL_FAILED"
	CodeHTTPError         = "HTTP_ERROR"
	CodeHTTPRequestFailed = "HTTP_REQUEST_FAILED"
	CodeInputRequired     = "INPUT_REQUIRED"
	CodeInvalidConfig     = "INVALID_CONFIG"
	CodeConditionFailed   = "CONDITION_FAILED"
	CodeLoopFailed        = "LOOP_FAILED"
	CodeVariableSetFailed = "VARIABLE_SET_FAILED"
	CodeTransformFailed   = "TRANSFORM_FAILED"
	CodeMergeFailed       = "MERGE_FAILED"
	CodeTemplateFailed    = "TEMPLATE_FAILED"
	CodeRegexFailed       = "REGEX_FAILED"
	CodeSplitJoinFailed   = "SPLIT_JOIN_FAILED"
	CodeDelayFailed       = "DELAY_FAILED"
	CodeScheduleFailed    = "SCHEDULE_FAILED"
	CodeUnknownNodeType   = "UNKNOWN_NODE_TYPE"
	CodePanic             = "PANIC"
)
