package catalog

// Category — одна из пяти фиксированных категорий каталога.
type Category string

const (
	CategoryAI      Category = "ai"
	CategoryHTTP    Category = "http"
	CategoryDB      Category = "db"
	CategoryUI      Category = "ui"
	CategoryUtility Category = "utility"
)

// CategoryInfo — описание категории для интерфейса.
type CategoryInfo struct {
	ID          Category `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Color       string   `json:"color" yaml:"color"`
}

// Categories — категории в порядке отображения.
// Порядок определяет сортировку каталога.
var Categories = []CategoryInfo{
	{ID: CategoryAI, Name: "AI", Description: "Smart generate and inference", Color: "#8B5CF6"},
	{ID: CategoryHTTP, Name: "HTTP", Description: "Interface and integration", Color: "#3B82F6"},
	{ID: CategoryDB, Name: "DB", Description: "Data and storage", Color: "#10B981"},
	{ID: CategoryUI, Name: "UI", Description: "Interactive and showcase", Color: "#F97316"},
	{ID: CategoryUtility, Name: "Utility", Description: "Flow and utility tools", Color: "#64748B"},
}

// Style — CSS-классы карточки ноды.
type Style struct {
	Color       string `json:"color" yaml:"color"`
	BgColor     string `json:"bgColor" yaml:"bgColor"`
	BorderColor string `json:"borderColor" yaml:"borderColor"`
}

// tone собирает стиль из названия цвета палитры ("purple" → text-purple-500 ...).
func tone(name string) Style {
	return Style{
		Color:       "text-" + name + "-500",
		BgColor:     "bg-" + name + "-500/10",
		BorderColor: "border-" + name + "-500/20",
	}
}

// neutral — стиль служебных нод.
var neutral = Style{
	Color:       "text-foreground-light",
	BgColor:     "bg-muted/50",
	BorderColor: "border-border",
}

// categoryStyles — стиль по умолчанию для каждой категории.
var categoryStyles = map[Category]Style{
	CategoryAI:      tone("purple"),
	CategoryHTTP:    tone("blue"),
	CategoryDB:      tone("emerald"),
	CategoryUI:      tone("orange"),
	CategoryUtility: neutral,
}

// StyleFor возвращает стиль категории. Неизвестная категория — нейтральный стиль.
func StyleFor(c Category) Style {
	if s, ok := categoryStyles[c]; ok {
		return s
	}
	return neutral
}

// IsValid проверяет, что категория входит в фиксированный список.
func (c Category) IsValid() bool {
	_, ok := categoryStyles[c]
	return ok
}

// order возвращает позицию категории для сортировки.
func (c Category) order() int {
	for i, info := range Categories {
		if info.ID == c {
			return i
		}
	}
	return len(Categories)
}

// MapCustomCategory переводит категорию маркетплейса в категорию каталога.
//
//	ai                          → ai
//	data, storage               → db
//	integration, communication  → http
//	всё остальное               → utility
func MapCustomCategory(raw string) Category {
	switch raw {
	case "ai":
		return CategoryAI
	case "data", "storage":
		return CategoryDB
	case "integration", "communication":
		return CategoryHTTP
	default:
		return CategoryUtility
	}
}
