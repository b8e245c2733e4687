package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/nodeflow/internal/catalog"
	"github.com/shaiso/nodeflow/internal/domain"
	"github.com/shaiso/nodeflow/internal/node"
	"github.com/shaiso/nodeflow/internal/versioning"
)

// Node DTOs

// ExecuteNodeRequest — запрос на выполнение ноды.
type ExecuteNodeRequest struct {
	NodeID      string            `json:"nodeId,omitempty"`
	Config      map[string]any    `json:"config,omitempty"`
	Variables   map[string]any    `json:"variables,omitempty"`
	Inputs      map[string]any    `json:"inputs,omitempty"`
	Credentials map[string]string `json:"credentials,omitempty"`

	// Async — поставить в очередь и вернуть executionId, не дожидаясь результата.
	Async bool `json:"async,omitempty"`
}

// ToDomain собирает запрос на выполнение для типа nodeType.
func (r ExecuteNodeRequest) ToDomain(nodeType string) *domain.ExecutionRequest {
	nodeID := r.NodeID
	if nodeID == "" {
		nodeID = nodeType
	}
	return &domain.ExecutionRequest{
		ExecutionID: uuid.New(),
		NodeID:      nodeID,
		NodeType:    nodeType,
		Config:      r.Config,
		Variables:   r.Variables,
		Inputs:      r.Inputs,
		Credentials: r.Credentials,
		CreatedAt:   time.Now().UTC(),
	}
}

// ExecutionQueuedResponse — ответ на асинхронное выполнение.
type ExecutionQueuedResponse struct {
	ExecutionID uuid.UUID `json:"executionId"`
	NodeType    string    `json:"nodeType"`
	Status      string    `json:"status"`
}

// ValidateNodeRequest — запрос на проверку конфигурации.
type ValidateNodeRequest struct {
	Config map[string]any `json:"config"`
}

// ExecutorResponse — зарегистрированный исполнитель.
type ExecutorResponse struct {
	Type    string `json:"type"`
	Builtin bool   `json:"builtin"`
}

// Catalog DTOs

// RegisterExtensionRequest — описание ноды расширения.
type RegisterExtensionRequest struct {
	ID          string           `json:"id" validate:"required,max=128"`
	Name        string           `json:"name" validate:"required,max=128"`
	Description string           `json:"description,omitempty"`
	Icon        string           `json:"icon,omitempty"`
	IconGlyph   string           `json:"iconGlyph,omitempty"`
	Category    catalog.Category `json:"category,omitempty"`
	Version     string           `json:"version,omitempty"`
	Tags        []string         `json:"tags,omitempty"`

	versioning.Bounds
}

// ToManifestNode конвертирует запрос в описание манифеста.
func (r RegisterExtensionRequest) ToManifestNode() catalog.ManifestNode {
	return catalog.ManifestNode{
		Entry: catalog.Entry{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Icon:        r.Icon,
			IconGlyph:   r.IconGlyph,
			Category:    r.Category,
			Version:     r.Version,
			Tags:        r.Tags,
		},
		Bounds: r.Bounds,
	}
}

// Custom node DTOs

// CreateCustomNodeRequest — заявка на новую пользовательскую ноду.
// Нода создаётся в статусе draft.
type CreateCustomNodeRequest struct {
	Name        string   `json:"name" validate:"required,max=128"`
	Slug        string   `json:"slug,omitempty" validate:"omitempty,max=128"`
	DisplayName string   `json:"displayName,omitempty" validate:"max=256"`
	Description string   `json:"description,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	IconURL     string   `json:"iconUrl,omitempty" validate:"omitempty,url"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty" validate:"max=20"`
	Version     string   `json:"version,omitempty"`

	versioning.Bounds
}

// ToDomain конвертирует запрос в domain.CustomNode.
func (r CreateCustomNodeRequest) ToDomain() *domain.CustomNode {
	return &domain.CustomNode{
		Name:          r.Name,
		Slug:          r.Slug,
		DisplayName:   r.DisplayName,
		Description:   r.Description,
		Icon:          r.Icon,
		IconURL:       r.IconURL,
		Category:      r.Category,
		Tags:          r.Tags,
		Status:        domain.CustomNodeStatusDraft,
		Version:       r.Version,
		MinSDKVersion: r.MinSDKVersion,
		MaxSDKVersion: r.MaxSDKVersion,
		MinAppVersion: r.MinAppVersion,
		MaxAppVersion: r.MaxAppVersion,
	}
}

// versions возвращает все непустые версии запроса для проверки формата.
func (r CreateCustomNodeRequest) versions() []string {
	var out []string
	for _, v := range []string{r.Version, r.MinSDKVersion, r.MaxSDKVersion, r.MinAppVersion, r.MaxAppVersion} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// UpdateCustomNodeStatusRequest — перевод ноды в новый статус.
type UpdateCustomNodeStatusRequest struct {
	Status domain.CustomNodeStatus `json:"status" validate:"required"`
}

// CustomNodeResponse — пользовательская нода вместе с её записью в каталоге.
type CustomNodeResponse struct {
	ID          uuid.UUID  `json:"id"`
	Slug        string     `json:"slug"`
	Status      string     `json:"status"`
	Version     string     `json:"version"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`

	Entry catalog.Entry `json:"entry"`
}

// CustomNodeFromDomain конвертирует domain.CustomNode в CustomNodeResponse.
func CustomNodeFromDomain(n *domain.CustomNode, vctx versioning.Context) CustomNodeResponse {
	return CustomNodeResponse{
		ID:          n.ID,
		Slug:        n.Slug,
		Status:      string(n.Status),
		Version:     n.CurrentVersion(),
		PublishedAt: n.PublishedAt,
		CreatedAt:   n.CreatedAt,
		Entry:       catalog.MapCustomNode(n, vctx),
	}
}

// Version DTOs

// CompareVersionsResponse — результат сравнения двух версий.
type CompareVersionsResponse struct {
	From        string                 `json:"from"`
	To          string                 `json:"to"`
	Comparison  int                    `json:"comparison"`
	UpgradeType versioning.UpgradeType `json:"upgradeType"`
	AutoUpgrade bool                   `json:"autoUpgrade"`
}

// CompatibilityRequest — ограничения ноды и, опционально, версии окружения.
// Без Context используется окружение сервера.
type CompatibilityRequest struct {
	versioning.Bounds
	Context *versioning.Context `json:"context,omitempty"`
}

// ValidateNodeResponse — результат проверки конфигурации.
type ValidateNodeResponse struct {
	NodeType string `json:"nodeType"`
	node.ValidationResult
}
