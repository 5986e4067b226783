package model

import "strings"

// Category is the closed set of catalog categories.
type Category string

const (
	CategoryProgramming Category = "Programming & Development"
	CategoryDesign      Category = "Design & Creative"
	CategoryBusiness    Category = "Business & Marketing"
	CategoryLanguages   Category = "Languages"
	CategoryMusic       Category = "Music & Audio"
	CategoryArts        Category = "Arts & Crafts"
	CategoryHealth      Category = "Health & Fitness"
	CategoryCooking     Category = "Cooking & Culinary"
	CategoryPhotography Category = "Photography & Video"
	CategoryWriting     Category = "Writing & Communication"
	CategoryScience     Category = "Science & Math"
	CategoryOther       Category = "Other"
)

var categories = []Category{
	CategoryProgramming,
	CategoryDesign,
	CategoryBusiness,
	CategoryLanguages,
	CategoryMusic,
	CategoryArts,
	CategoryHealth,
	CategoryCooking,
	CategoryPhotography,
	CategoryWriting,
	CategoryScience,
	CategoryOther,
}

// Categories returns a copy of the category enumeration.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory resolves s against the enumeration, ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}
