package catalog

import "github.com/shaiso/nodeflow/internal/versioning"

// Source — происхождение записи каталога.
type Source string

const (
	SourceBuiltin   Source = "builtin"
	SourceExtension Source = "extension"
	SourceCustom    Source = "custom"
)

// CustomPrefix — пространство имён идентификаторов пользовательских нод.
const CustomPrefix = "custom:"

// DefaultIconGlyph — значок, если у ноды нет своего.
const DefaultIconGlyph = "📦"

// Entry — описание доступного типа ноды. Не связано с исполнителем.
type Entry struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`

	// Icon — имя иконки интерфейса; IconGlyph — эмодзи.
	Icon      string `json:"icon,omitempty" yaml:"icon,omitempty"`
	IconGlyph string `json:"iconGlyph,omitempty" yaml:"iconGlyph,omitempty"`

	Category Category `json:"category" yaml:"category"`
	Style    `yaml:",inline"`

	Version string   `json:"version" yaml:"version"`
	Source  Source   `json:"source" yaml:"source"`
	Tags    []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Compatibility — результат проверки версий. nil — ограничений нет.
	Compatibility *versioning.Compatibility `json:"compatibility,omitempty" yaml:"-"`
}

// CategorySummary — категория и число нод в ней.
type CategorySummary struct {
	CategoryInfo
	Count int `json:"count"`
}

// Listing — собранный каталог.
type Listing struct {
	Nodes      []Entry           `json:"nodes"`
	Categories []CategorySummary `json:"categories"`
}

// normalize заполняет пропуски в записи расширения.
func (e Entry) normalize() Entry {
	if !e.Category.IsValid() {
		e.Category = CategoryUtility
	}
	if e.Style == (Style{}) {
		e.Style = StyleFor(e.Category)
	}
	if e.Version == "" {
		e.Version = "1.0.0"
	}
	if e.Source == "" {
		e.Source = SourceExtension
	}
	return e
}
