package enums

import "fmt"

// Department groups taxonomy categories for the catalog filter and admin form.
type Department string

const (
	DepartmentMen         Department = "homme"
	DepartmentWomen       Department = "femme"
	DepartmentShoes       Department = "chaussures"
	DepartmentAccessories Department = "accessoires"
	DepartmentEyewear     Department = "lunettes"
	DepartmentLuggage     Department = "maroquinerie"
)

// CategorySlug is a key of the fixed product taxonomy.
type CategorySlug string

// CategoryGroup is one department of the taxonomy with its ordered entries.
type CategoryGroup struct {
	Department Department
	Label      string
	Categories []CategoryEntry
}

type CategoryEntry struct {
	Slug  CategorySlug
	Label string
}

var taxonomy = []CategoryGroup{
	{Department: DepartmentMen, Label: "Homme", Categories: []CategoryEntry{
		{"homme-chemises", "Chemises"},
		{"homme-pantalons", "Pantalons"},
		{"homme-costumes", "Costumes"},
		{"homme-t-shirts", "T-shirts"},
		{"homme-pulls", "Pulls"},
		{"homme-vestes", "Vestes"},
		{"homme-sous-vetements", "Sous-vêtements"},
	}},
	{Department: DepartmentWomen, Label: "Femme", Categories: []CategoryEntry{
		{"femme-robes", "Robes"},
		{"femme-jupes", "Jupes"},
		{"femme-pantalons", "Pantalons"},
		{"femme-tops", "Tops"},
		{"femme-pulls", "Pulls"},
		{"femme-vestes", "Vestes"},
		{"femme-lingerie", "Lingerie"},
	}},
	{Department: DepartmentShoes, Label: "Chaussures", Categories: []CategoryEntry{
		{"chaussures-homme", "Chaussures homme"},
		{"chaussures-femme", "Chaussures femme"},
		{"baskets", "Baskets"},
		{"chaussures-sport", "Chaussures de sport"},
		{"sandales", "Sandales"},
		{"bottes", "Bottes"},
	}},
	{Department: DepartmentAccessories, Label: "Accessoires", Categories: []CategoryEntry{
		{"sacs-main", "Sacs à main"},
		{"sacs-dos", "Sacs à dos"},
		{"portefeuilles", "Portefeuilles"},
		{"ceintures", "Ceintures"},
		{"montres", "Montres"},
		{"bijoux", "Bijoux"},
	}},
	{Department: DepartmentEyewear, Label: "Lunettes", Categories: []CategoryEntry{
		{"lunettes-soleil", "Lunettes de soleil"},
		{"lunettes-vue", "Lunettes de vue"},
		{"lunettes-sport", "Lunettes de sport"},
	}},
	{Department: DepartmentLuggage, Label: "Maroquinerie", Categories: []CategoryEntry{
		{"valises", "Valises"},
		{"sacs-voyage", "Sacs de voyage"},
		{"pochettes", "Pochettes"},
	}},
}

var categoryIndex = buildCategoryIndex()

func buildCategoryIndex() map[CategorySlug]CategoryEntry {
	index := make(map[CategorySlug]CategoryEntry)
	for _, group := range taxonomy {
		for _, entry := range group.Categories {
			index[entry.Slug] = entry
		}
	}
	return index
}

// String implements fmt.Stringer.
func (c CategorySlug) String() string {
	return string(c)
}

// IsValid reports whether the value is part of the taxonomy.
func (c CategorySlug) IsValid() bool {
	_, ok := categoryIndex[c]
	return ok
}

// Label returns the display label, or the raw slug when unknown.
func (c CategorySlug) Label() string {
	if entry, ok := categoryIndex[c]; ok {
		return entry.Label
	}
	return string(c)
}

// ParseCategorySlug converts raw input into a CategorySlug.
func ParseCategorySlug(value string) (CategorySlug, error) {
	slug := CategorySlug(value)
	if !slug.IsValid() {
		return "", fmt.Errorf("invalid category %q", value)
	}
	return slug, nil
}

// Taxonomy returns a copy of the grouped category list.
func Taxonomy() []CategoryGroup {
	out := make([]CategoryGroup, len(taxonomy))
	for i, group := range taxonomy {
		out[i] = group
		out[i].Categories = append([]CategoryEntry(nil), group.Categories...)
	}
	return out
}
