package versioning

import "fmt"

// DefaultNodeSDKVersion — версия SDK, если контекст её не указал.
const DefaultNodeSDKVersion = "1.0.0"

// Bounds — ограничения ноды на версии SDK и приложения.
// Пустое поле означает отсутствие ограничения.
type Bounds struct {
	MinSDKVersion string `json:"minSdkVersion,omitempty" yaml:"minSdkVersion,omitempty"`
	MaxSDKVersion string `json:"maxSdkVersion,omitempty" yaml:"maxSdkVersion,omitempty"`
	MinAppVersion string `json:"minAppVersion,omitempty" yaml:"minAppVersion,omitempty"`
	MaxAppVersion string `json:"maxAppVersion,omitempty" yaml:"maxAppVersion,omitempty"`
}

// IsZero проверяет, что ограничений нет.
func (b Bounds) IsZero() bool {
	return b == Bounds{}
}

// Context — версии окружения, в котором будет работать нода.
type Context struct {
	SDKVersion string `json:"sdkVersion,omitempty"`
	AppVersion string `json:"appVersion,omitempty"`
}

// Уровни замечаний совместимости.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Измерения проверки совместимости.
const (
	IssueTypeSDK = "sdk"
	IssueTypeApp = "app"
)

// Issue — замечание проверки совместимости.
// Type указывает измерение, по которому нода не прошла проверку.
type Issue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Compatibility — результат проверки.
// Compatible == true тогда и только тогда, когда нет ошибок.
type Compatibility struct {
	Compatible bool    `json:"compatible"`
	Issues     []Issue `json:"issues,omitempty"`
}

// CheckNodeCompatibility проверяет ограничения ноды по двум измерениям: SDK и приложение.
//
// Если ограничение задано, а версия окружения неизвестна, выдаётся предупреждение.
// Выход за границу — ошибка.
func CheckNodeCompatibility(bounds Bounds, ctx Context) Compatibility {
	var issues []Issue
	issues = checkDimension(issues, IssueTypeSDK, "SDK", bounds.MinSDKVersion, bounds.MaxSDKVersion, ctx.SDKVersion)
	issues = checkDimension(issues, IssueTypeApp, "app", bounds.MinAppVersion, bounds.MaxAppVersion, ctx.AppVersion)

	compatible := true
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			compatible = false
			break
		}
	}
	return Compatibility{Compatible: compatible, Issues: issues}
}

func checkDimension(issues []Issue, kind, name, minVersion, maxVersion, current string) []Issue {
	if minVersion == "" && maxVersion == "" {
		return issues
	}

	if current == "" {
		return append(issues, Issue{
			Type:     kind,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("node declares %s version bounds but the %s version is unknown", name, name),
		})
	}

	if minVersion != "" && CompareSemver(current, minVersion) < 0 {
		issues = append(issues, Issue{
			Type:     kind,
			Severity: SeverityError,
			Message:  fmt.Sprintf("node requires %s >= %s, current is %s", name, minVersion, current),
		})
	}
	if maxVersion != "" && CompareSemver(current, maxVersion) > 0 {
		issues = append(issues, Issue{
			Type:     kind,
			Severity: SeverityError,
			Message:  fmt.Sprintf("node requires %s <= %s, current is %s", name, maxVersion, current),
		})
	}
	return issues
}
