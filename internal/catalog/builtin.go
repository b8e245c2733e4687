package catalog

// builtinEntries — встроенные описания нод. Их идентификаторы зарезервированы.
var builtinEntries = []Entry{
	builtin("webhook", "Webhook Trigger", "Trigger workflow via HTTP request", "webhook", CategoryHTTP, tone("orange")),
	builtin("schedule", "Scheduled Trigger", "Execute workflow by schedule plan", "clock", CategoryUtility, tone("blue")),
	builtin("manual", "Manual Trigger", "Manual click to execute workflow", "mouse-pointer-click", CategoryUI, tone("green")),
	builtin("ai-chat", "AI Conversation", "Call AI model to proceed conversation", "bot", CategoryAI, tone("purple")),
	builtin("ai-agent", "AI Agent", "Call custom AI agent", "sparkles", CategoryAI, tone("violet")),
	builtin("http-request", "HTTP Request", "Send HTTP API Request", "globe", CategoryHTTP, tone("cyan")),
	builtin("email", "Send Email", "Send email notifications", "mail", CategoryHTTP, tone("red")),
	builtin("database", "Database Action", "Read database data", "database", CategoryDB, tone("emerald")),
	builtin("condition", "Condition", "Conditional branch execution based on condition", "git-branch", CategoryUtility, tone("amber")),
	builtin("loop", "Loop", "Re-execute a group of actions", "repeat", CategoryUtility, tone("pink")),
	builtin("filter", "Filter", "Filter and transform data", "filter", CategoryUtility, tone("indigo")),
	builtin("code", "Code Execution", "Execute custom code", "code", CategoryUtility, neutral),
	builtin("transform", "Data Convert", "Convert and process data format", "shuffle", CategoryUtility, neutral),
	builtin("file", "File Action", "Read and process file", "file-text", CategoryUtility, tone("teal")),
	builtin("input", "Form Input", "User input and output", "text-cursor-input", CategoryUI, tone("orange")),
	builtin("output", "Result Output", "Show or return result", "check-circle-2", CategoryUI, tone("emerald")),
}

func builtin(id, name, description, icon string, category Category, style Style) Entry {
	return Entry{
		ID:          id,
		Name:        name,
		Description: description,
		Icon:        icon,
		Category:    category,
		Style:       style,
		Version:     "1.0.0",
		Source:      SourceBuiltin,
	}
}

// builtinIDs — множество зарезервированных идентификаторов.
var builtinIDs = func() map[string]struct{} {
	ids := make(map[string]struct{}, len(builtinEntries))
	for _, e := range builtinEntries {
		ids[e.ID] = struct{}{}
	}
	return ids
}()

// Builtins возвращает копию встроенных описаний.
func Builtins() []Entry {
	out := make([]Entry, len(builtinEntries))
	copy(out, builtinEntries)
	return out
}

// IsBuiltin проверяет, что идентификатор зарезервирован встроенной нодой.
func IsBuiltin(id string) bool {
	_, ok := builtinIDs[id]
	return ok
}
