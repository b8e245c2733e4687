package catalog

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/shaiso/nodeflow/internal/domain"
	"github.com/shaiso/nodeflow/internal/versioning"
)

// Catalog — каталог нод: встроенные описания плюс расширения.
//
// Встроенные описания неизменяемы. Расширения хранятся в отдельной
// карте, защищённой мьютексом. Catalog безопасен для конкурентного использования.
type Catalog struct {
	mu         sync.RWMutex
	extensions map[string]Entry
	logger     *slog.Logger
}

// New создаёт пустой каталог расширений. logger может быть nil.
func New(logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		extensions: make(map[string]Entry),
		logger:     logger.With("component", "catalog"),
	}
}

// Register добавляет описание расширения.
//
// Описание с идентификатором встроенной ноды или с пустым идентификатором
// игнорируется; в этом случае возвращается false. Повторная регистрация
// того же идентификатора заменяет прежнее описание.
func (c *Catalog) Register(e Entry) bool {
	if e.ID == "" || IsBuiltin(e.ID) {
		c.logger.Debug("extension ignored", "id", e.ID)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.extensions[e.ID] = e.normalize()
	return true
}

// RegisterAll регистрирует описания по порядку и возвращает число принятых.
func (c *Catalog) RegisterAll(entries []Entry) int {
	accepted := 0
	for _, e := range entries {
		if c.Register(e) {
			accepted++
		}
	}
	return accepted
}

// Unregister удаляет расширение. Встроенные описания удалить нельзя.
func (c *Catalog) Unregister(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.extensions, id)
}

// ListOptions — фильтр списка. Нулевое значение включает всё.
type ListOptions struct {
	ExcludeBuiltin    bool
	ExcludeExtensions bool
}

// List возвращает встроенные описания и расширения, отсортированные
// по категории и имени.
func (c *Catalog) List(opts ListOptions) []Entry {
	var nodes []Entry
	if !opts.ExcludeBuiltin {
		nodes = append(nodes, Builtins()...)
	}
	if !opts.ExcludeExtensions {
		c.mu.RLock()
		for _, e := range c.extensions {
			nodes = append(nodes, e)
		}
		c.mu.RUnlock()
	}
	sortEntries(nodes)
	if nodes == nil {
		nodes = []Entry{}
	}
	return nodes
}

// BuildOptions — параметры сборки каталога.
type BuildOptions struct {
	ListOptions

	// CustomNodes — пользовательские ноды из внешнего источника.
	CustomNodes []domain.CustomNode

	// Compatibility — версии окружения для проверки пользовательских нод.
	// Пустая версия SDK заменяется на versioning.DefaultNodeSDKVersion.
	Compatibility versioning.Context
}

// Build собирает каталог: встроенные описания, расширения и пользовательские
// ноды. Дубликаты по идентификатору разрешаются так:
//   - встроенное описание не вытесняется никогда;
//   - среди остальных побеждает последнее (пользовательская нода после расширения).
//
// Результат отсортирован, сводка по категориям содержит все пять категорий.
func (c *Catalog) Build(opts BuildOptions) Listing {
	base := c.List(opts.ListOptions)

	merged := make([]Entry, 0, len(base)+len(opts.CustomNodes))
	index := make(map[string]int, cap(merged))
	add := func(e Entry) {
		i, seen := index[e.ID]
		if !seen {
			index[e.ID] = len(merged)
			merged = append(merged, e)
			return
		}
		prev := merged[i]
		if prev.Source == SourceBuiltin || IsBuiltin(e.ID) {
			c.logger.Warn("entry collides with builtin node, skipped", "id", e.ID, "source", e.Source)
			return
		}
		c.logger.Warn("entry replaced", "id", e.ID, "previous_source", prev.Source, "source", e.Source)
		merged[i] = e
	}

	for _, e := range base {
		add(e)
	}
	for i := range opts.CustomNodes {
		add(MapCustomNode(&opts.CustomNodes[i], opts.Compatibility))
	}

	sortEntries(merged)
	return Listing{Nodes: merged, Categories: Summarize(merged)}
}

// Summarize считает ноды по категориям. Порядок — как в Categories.
func Summarize(nodes []Entry) []CategorySummary {
	out := make([]CategorySummary, len(Categories))
	for i, info := range Categories {
		out[i].CategoryInfo = info
	}
	for _, n := range nodes {
		if pos := n.Category.order(); pos < len(out) {
			out[pos].Count++
		}
	}
	return out
}

// MapCustomNode превращает запись пользовательской ноды в описание каталога.
func MapCustomNode(n *domain.CustomNode, vctx versioning.Context) Entry {
	category := MapCustomCategory(n.Category)

	icon := n.Icon
	if icon == "" {
		icon = n.IconURL
	}

	if vctx.SDKVersion == "" {
		vctx.SDKVersion = versioning.DefaultNodeSDKVersion
	}
	compat := versioning.CheckNodeCompatibility(versioning.Bounds{
		MinSDKVersion: n.MinSDKVersion,
		MaxSDKVersion: n.MaxSDKVersion,
		MinAppVersion: n.MinAppVersion,
		MaxAppVersion: n.MaxAppVersion,
	}, vctx)

	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}

	return Entry{
		ID:            CustomPrefix + n.Key(),
		Name:          n.Title(),
		Description:   n.Description,
		Icon:          "package",
		IconGlyph:     iconGlyph(icon),
		Category:      category,
		Style:         StyleFor(category),
		Version:       n.CurrentVersion(),
		Source:        SourceCustom,
		Tags:          tags,
		Compatibility: &compat,
	}
}

// iconGlyph возвращает значение иконки, если оно похоже на эмодзи
// (содержит не-ASCII символ). Имена иконок и ссылки заменяются на DefaultIconGlyph.
func iconGlyph(value string) string {
	value = strings.TrimSpace(value)
	for _, r := range value {
		if r > unicode.MaxASCII {
			return value
		}
	}
	return DefaultIconGlyph
}

// sortEntries сортирует по порядку категорий, затем по имени
// с китайской локалью сравнения.
func sortEntries(nodes []Entry) {
	col := collate.New(language.Chinese)
	sort.SliceStable(nodes, func(i, j int) bool {
		oi, oj := nodes[i].Category.order(), nodes[j].Category.order()
		if oi != oj {
			return oi < oj
		}
		return col.CompareString(nodes[i].Name, nodes[j].Name) < 0
	})
}
