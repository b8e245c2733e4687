package node

// ChatMessage — сообщение диалога LLM.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

// LLMConfig — конфиг ноды llm.
//
// Длительности задаются в миллисекундах, как их присылает редактор.
type LLMConfig struct {
	Model            string        `json:"model" validate:"required"`
	Provider         string        `json:"provider,omitempty" validate:"omitempty,oneof=openai anthropic local"`
	SystemPrompt     string        `json:"systemPrompt,omitempty"`
	UserPrompt       string        `json:"userPrompt,omitempty"`
	Messages         []ChatMessage `json:"messages,omitempty" validate:"dive"`
	Temperature      *float64      `json:"temperature,omitempty" validate:"omitnil,gte=0,lte=2"`
	MaxTokens        *int          `json:"maxTokens,omitempty" validate:"omitnil,gte=1,lte=128000"`
	TopP             *float64      `json:"topP,omitempty" validate:"omitnil,gte=0,lte=1"`
	FrequencyPenalty *float64      `json:"frequencyPenalty,omitempty" validate:"omitnil,gte=-2,lte=2"`
	PresencePenalty  *float64      `json:"presencePenalty,omitempty" validate:"omitnil,gte=-2,lte=2"`
	Stop             []string      `json:"stop,omitempty" validate:"max=4"`
	Stream           bool          `json:"stream,omitempty"`
	Timeout          int           `json:"timeout,omitempty" validate:"gte=0"`
	RetryCount       int           `json:"retryCount,omitempty" validate:"gte=0,lte=10"`
	RetryDelay       int           `json:"retryDelay,omitempty" validate:"gte=0"`
	APIKey           string        `json:"apiKey,omitempty"`
	BaseURL          string        `json:"baseUrl,omitempty" validate:"omitempty,url"`
}

// HTTPAuth — параметры аутентификации HTTP ноды.
type HTTPAuth struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
	Key      string `json:"key,omitempty"`
	Value    string `json:"value,omitempty"`
	// AddTo — куда класть API ключ: header (по умолчанию) или query.
	AddTo string `json:"addTo,omitempty" validate:"omitempty,oneof=header query"`
}

// HTTPConfig — конфиг ноды http.
type HTTPConfig struct {
	Method          string            `json:"method" validate:"required,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS"`
	URL             string            `json:"url"`
	Headers         map[string]string `json:"headers,omitempty"`
	QueryParams     map[string]string `json:"queryParams,omitempty"`
	Body            any               `json:"body,omitempty"`
	BodyType        string            `json:"bodyType,omitempty" validate:"omitempty,oneof=json form raw none"`
	AuthType        string            `json:"authType,omitempty" validate:"omitempty,oneof=none basic bearer apiKey"`
	Auth            *HTTPAuth         `json:"authConfig,omitempty"`
	Timeout         int               `json:"timeout,omitempty" validate:"omitempty,gte=1000"`
	FollowRedirects *bool             `json:"followRedirects,omitempty"`
	ValidateStatus  *bool             `json:"validateStatus,omitempty"`
	ValidateSSL     *bool             `json:"validateSsl,omitempty"`
}

// Condition — одно сравнение left <operator> right.
type Condition struct {
	ID       string `json:"id,omitempty"`
	Left     any    `json:"left"`
	Operator string `json:"operator" validate:"required"`
	Right    any    `json:"right,omitempty"`
}

// ConditionGroup — группа сравнений, объединённых логикой and/or.
type ConditionGroup struct {
	ID         string      `json:"id,omitempty"`
	Conditions []Condition `json:"conditions" validate:"dive"`
	Logic      string      `json:"logic,omitempty" validate:"omitempty,oneof=and or"`
}

// ConditionConfig — конфиг ноды condition.
type ConditionConfig struct {
	Conditions []ConditionGroup `json:"conditions" validate:"dive"`
	Logic      string           `json:"logic,omitempty" validate:"omitempty,oneof=and or"`
}

// Режимы цикла.
const (
	LoopForEach = "forEach"
	LoopWhile   = "while"
	LoopCount   = "count"
)

// LoopConfig — конфиг ноды loop.
type LoopConfig struct {
	Mode          string `json:"mode,omitempty" validate:"omitempty,oneof=forEach while count"`
	Source        string `json:"source,omitempty"`
	Items         []any  `json:"items,omitempty"`
	Condition     string `json:"condition,omitempty"`
	Count         int    `json:"count,omitempty" validate:"gte=0"`
	MaxIterations int    `json:"maxIterations,omitempty" validate:"gte=0"`
	ItemVariable  string `json:"itemVariable,omitempty" validate:"omitempty,identifier"`
	IndexVariable string `json:"indexVariable,omitempty" validate:"omitempty,identifier"`
}

// VariableConfig — конфиг ноды variable.
type VariableConfig struct {
	VariableName string `json:"variableName" validate:"required,identifier"`
	Value        any    `json:"value"`
	ValueType    string `json:"valueType" validate:"required,oneof=string number boolean object array"`
}

// TransformConfig — конфиг ноды transform.
type TransformConfig struct {
	TransformType string            `json:"transformType,omitempty" validate:"omitempty,oneof=jsonPath expression map filter reduce"`
	Input         string            `json:"input,omitempty"`
	JSONPath      string            `json:"jsonPath,omitempty"`
	Expression    string            `json:"expression,omitempty"`
	Mapping       map[string]string `json:"mapping,omitempty"`
	Filter        *Condition        `json:"filter,omitempty"`
	Reducer       string            `json:"reducer,omitempty" validate:"omitempty,oneof=sum count min max avg join"`
	Field         string            `json:"field,omitempty"`
	Separator     string            `json:"separator,omitempty"`
}

// MergeConfig — конфиг ноды merge.
type MergeConfig struct {
	MergeType string   `json:"mergeType,omitempty" validate:"omitempty,oneof=object array concat"`
	Sources   []string `json:"sources,omitempty"`
}

// TemplateConfig — конфиг ноды template.
type TemplateConfig struct {
	Template string `json:"template" validate:"required"`
}

// RegexConfig — конфиг ноды regex.
type RegexConfig struct {
	Input       string `json:"input,omitempty"`
	Pattern     string `json:"pattern" validate:"required"`
	Flags       string `json:"flags,omitempty"`
	Mode        string `json:"mode,omitempty" validate:"omitempty,oneof=first all groups replace"`
	Replacement string `json:"replacement,omitempty"`
}

// SplitJoinConfig — конфиг ноды split-join.
type SplitJoinConfig struct {
	Operation   string `json:"operation,omitempty" validate:"omitempty,oneof=split join"`
	Input       string `json:"input,omitempty"`
	Delimiter   string `json:"delimiter,omitempty"`
	Trim        bool   `json:"trim,omitempty"`
	RemoveEmpty bool   `json:"removeEmpty,omitempty"`
	Limit       int    `json:"limit,omitempty" validate:"gte=0"`
}

// InputConfig — конфиг ноды input.
type InputConfig struct {
	Name         string `json:"name" validate:"required"`
	Label        string `json:"label,omitempty"`
	Required     bool   `json:"required,omitempty"`
	DefaultValue any    `json:"defaultValue,omitempty"`
}

// OutputConfig — конфиг ноды output.
type OutputConfig struct {
	Type          string `json:"type,omitempty" validate:"omitempty,oneof=text json markdown table"`
	Title         string `json:"title,omitempty"`
	ShowTimestamp bool   `json:"showTimestamp,omitempty"`
	MaxLength     int    `json:"maxLength,omitempty" validate:"gte=0"`
}

// DelayConfig — конфиг ноды delay.
type DelayConfig struct {
	Duration int `json:"duration,omitempty" validate:"gte=0"`
	Seconds  int `json:"durationSec,omitempty" validate:"gte=0"`
}

// ScheduleConfig — конфиг ноды schedule.
type ScheduleConfig struct {
	Cron     string `json:"cron" validate:"required"`
	Timezone string `json:"timezone,omitempty"`
}
