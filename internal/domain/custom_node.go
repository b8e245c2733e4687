package domain

import (
	"time"

	"github.com/google/uuid"
)

// CustomNode — пользовательская нода, опубликованная во внешнем хранилище.
//
// Каталог не хранит такие записи, а только читает их и превращает в описания
// (см. catalog.MapCustomNode). Все строковые поля, кроме Name, необязательны:
// записи приходят из разных источников (БД, API, файл) с разной полнотой.
type CustomNode struct {
	// ID — идентификатор записи.
	ID uuid.UUID `json:"id"`

	// Name — машинное имя ноды.
	Name string `json:"name"`

	// Slug — уникальный человекочитаемый идентификатор.
	// Если пуст, используется ID, затем отображаемое имя.
	Slug string `json:"slug,omitempty"`

	// DisplayName — отображаемое название.
	DisplayName string `json:"displayName,omitempty"`

	Description string `json:"description,omitempty"`

	// Icon — эмодзи или имя иконки. IconURL — ссылка на картинку.
	Icon    string `json:"icon,omitempty"`
	IconURL string `json:"iconUrl,omitempty"`

	// Category — категория в терминах маркетплейса (ai, data, integration, ...).
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	Status CustomNodeStatus `json:"status,omitempty"`

	// Version — явная версия; LatestVersion — последняя опубликованная.
	Version       string `json:"version,omitempty"`
	LatestVersion string `json:"latestVersion,omitempty"`

	// Ограничения совместимости. Пустое значение — без ограничения.
	MinSDKVersion string `json:"minSdkVersion,omitempty"`
	MaxSDKVersion string `json:"maxSdkVersion,omitempty"`
	MinAppVersion string `json:"minAppVersion,omitempty"`
	MaxAppVersion string `json:"maxAppVersion,omitempty"`

	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Key возвращает slug ноды: Slug, затем ID, затем Title.
func (n *CustomNode) Key() string {
	switch {
	case n.Slug != "":
		return n.Slug
	case n.ID != uuid.Nil:
		return n.ID.String()
	default:
		return n.Title()
	}
}

// Title возвращает отображаемое имя: DisplayName, затем Name.
func (n *CustomNode) Title() string {
	if n.DisplayName != "" {
		return n.DisplayName
	}
	if n.Name != "" {
		return n.Name
	}
	return "CustomNode"
}

// CurrentVersion возвращает Version, затем LatestVersion, иначе "1.0.0".
func (n *CustomNode) CurrentVersion() string {
	if n.Version != "" {
		return n.Version
	}
	if n.LatestVersion != "" {
		return n.LatestVersion
	}
	return "1.0.0"
}
