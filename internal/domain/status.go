package domain

// CustomNodeStatus — статус пользовательской ноды в маркетплейсе.
//
// Жизненный цикл:
//
//	DRAFT → PENDING → APPROVED → PUBLISHED ⇄ DEPRECATED
//	PENDING → REJECTED → PENDING
//	PUBLISHED, DEPRECATED → REMOVED
type CustomNodeStatus string

const (
	CustomNodeStatusDraft      CustomNodeStatus = "draft"
	CustomNodeStatusPending    CustomNodeStatus = "pending"
	CustomNodeStatusApproved   CustomNodeStatus = "approved"
	CustomNodeStatusRejected   CustomNodeStatus = "rejected"
	CustomNodeStatusPublished  CustomNodeStatus = "published"
	CustomNodeStatusDeprecated CustomNodeStatus = "deprecated"
	CustomNodeStatusRemoved    CustomNodeStatus = "removed"
)

// IsListed возвращает true, если нода должна попадать в каталог.
// Устаревшие ноды остаются видимыми для уже собранных workflow.
func (s CustomNodeStatus) IsListed() bool {
	switch s {
	case CustomNodeStatusPublished, CustomNodeStatusDeprecated:
		return true
	default:
		return false
	}
}

// customNodeTransitions: целевой статус → допустимые исходные.
var customNodeTransitions = map[CustomNodeStatus][]CustomNodeStatus{
	CustomNodeStatusPending:    {CustomNodeStatusDraft, CustomNodeStatusRejected},
	CustomNodeStatusApproved:   {CustomNodeStatusPending},
	CustomNodeStatusRejected:   {CustomNodeStatusPending},
	CustomNodeStatusPublished:  {CustomNodeStatusApproved, CustomNodeStatusDeprecated},
	CustomNodeStatusDeprecated: {CustomNodeStatusPublished},
	CustomNodeStatusRemoved:    {CustomNodeStatusPublished, CustomNodeStatusDeprecated},
}

// SourcesOf возвращает статусы, из которых можно перейти в s.
// В draft перейти нельзя: это только начальный статус.
func (s CustomNodeStatus) SourcesOf() []CustomNodeStatus {
	return customNodeTransitions[s]
}

// CanTransitionTo проверяет переход s → next.
func (s CustomNodeStatus) CanTransitionTo(next CustomNodeStatus) bool {
	for _, from := range customNodeTransitions[next] {
		if from == s {
			return true
		}
	}
	return false
}

// IsValid проверяет, что статус известен.
func (s CustomNodeStatus) IsValid() bool {
	if s == CustomNodeStatusDraft {
		return true
	}
	_, ok := customNodeTransitions[s]
	return ok
}

// ExecutionStatus — итог выполнения ноды воркером.
type ExecutionStatus string

const (
	// ExecutionStatusSucceeded — нода выполнена успешно.
	ExecutionStatusSucceeded ExecutionStatus = "SUCCEEDED"

	// ExecutionStatusFailed — нода вернула ошибку.
	ExecutionStatusFailed ExecutionStatus = "FAILED"
)

// String возвращает строковое представление ExecutionStatus.
func (s ExecutionStatus) String() string {
	return string(s)
}
