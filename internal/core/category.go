package core

import "strings"

// Categories is the fixed list of spending categories as shown on buttons.
// Each label is an icon, a space and the category name.
var Categories = []string{
	"🛒 Супермаркеты и продукты питания",
	"🍽️ Рестораны и кафе",
	"🚕 Транспорт",
	"📦 Онлайн-шопинг",
	"🎭 Развлечения",
	"📱 Связь и интернет",
	"💅 Красота и уход",
	"💪 Фитнес и здоровье",
	"📌 Другое",
}

// CleanCategory strips the icon prefix: everything up to the first space.
// Labels without a space are returned unchanged.
func CleanCategory(label string) string {
	label = strings.TrimSpace(label)
	if i := strings.Index(label, " "); i >= 0 {
		return strings.TrimSpace(label[i+1:])
	}
	return label
}

// MatchCategory resolves user input to a stored category name.
// Input may be the full button label or the bare name, compared
// case-insensitively. The second result is false for anything else.
func MatchCategory(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}
	for _, label := range Categories {
		name := CleanCategory(label)
		if input == label || strings.EqualFold(input, name) || strings.EqualFold(input, label) {
			return name, true
		}
	}
	return "", false
}

// CategoryIcon returns the icon for a stored category name, or "" if unknown.
func CategoryIcon(name string) string {
	for _, label := range Categories {
		if CleanCategory(label) == name {
			if i := strings.Index(label, " "); i > 0 {
				return label[:i]
			}
		}
	}
	return ""
}
