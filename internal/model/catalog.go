package model

import (
	"errors"
	"hash/fnv"
	"strings"
	"time"
)

// Tag is one of a user's labels for items. Items refer to tags by name.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Category is a node in a user's category hierarchy. Path is the names from
// the root down, joined by CategoryPathSeparator.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parentId,omitempty"`
	Path      string    `json:"path"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const CategoryPathSeparator = " > "

type CategoryNode struct {
	Category
	Children []CategoryNode `json:"children"`
}

type TagInput struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// CategoryInput creates or changes a category. On update a pointer to the
// empty ParentID moves the category to the top level.
type CategoryInput struct {
	Name     *string `json:"name,omitempty"`
	ParentID *string `json:"parentId,omitempty"`
}

type CategoryTemplateInput struct {
	Template string `json:"template"`
}

func (in TagInput) ValidateCreate() error {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return errors.New("tag name is required")
	}
	return in.validateColor()
}

func (in TagInput) ValidateUpdate() error {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return errors.New("tag name cannot be empty")
	}
	return in.validateColor()
}

func (in TagInput) validateColor() error {
	if in.Color != nil && *in.Color != "" && !ValidTagColor(*in.Color) {
		return errors.New("tag color must look like #1a2b3c")
	}
	return nil
}

func (in CategoryInput) ValidateCreate() error {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return errors.New("category name is required")
	}
	return nil
}

// TagColors is the palette tags get their default color from.
var TagColors = []string{
	"#dc3545", "#fd7e14", "#ffc107", "#198754", "#20c997", "#0dcaf0",
	"#0d6efd", "#6610f2", "#6f42c1", "#d63384", "#6c757d", "#495057",
}

// DefaultTagColor picks a palette color from the tag name, so the same name
// always gets the same color.
func DefaultTagColor(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(name))))
	return TagColors[h.Sum32()%uint32(len(TagColors))]
}

func ValidTagColor(color string) bool {
	if len(color) != 7 || color[0] != '#' {
		return false
	}
	for _, r := range color[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

var tagKeywords = []struct {
	keyword string
	tags    []string
}{
	{"phone", []string{"Electronics", "Mobile", "Communication"}},
	{"laptop", []string{"Electronics", "Computer", "Work"}},
	{"tablet", []string{"Electronics", "Mobile", "Entertainment"}},
	{"camera", []string{"Electronics", "Photography", "Hobby"}},
	{"headphones", []string{"Electronics", "Audio", "Entertainment"}},
	{"charger", []string{"Electronics", "Accessories", "Power"}},
	{"shirt", []string{"Clothing", "Apparel", "Fashion"}},
	{"pants", []string{"Clothing", "Apparel", "Fashion"}},
	{"jacket", []string{"Clothing", "Outerwear", "Fashion"}},
	{"shoes", []string{"Clothing", "Footwear", "Fashion"}},
	{"dress", []string{"Clothing", "Formal", "Fashion"}},
	{"pot", []string{"Kitchen", "Cookware", "Cooking"}},
	{"pan", []string{"Kitchen", "Cookware", "Cooking"}},
	{"knife", []string{"Kitchen", "Utensils", "Cooking"}},
	{"plate", []string{"Kitchen", "Dinnerware", "Dining"}},
	{"cup", []string{"Kitchen", "Drinkware", "Dining"}},
	{"hammer", []string{"Tools", "Hardware", "DIY"}},
	{"screwdriver", []string{"Tools", "Hardware", "DIY"}},
	{"drill", []string{"Tools", "Power Tools", "DIY"}},
	{"wrench", []string{"Tools", "Hardware", "DIY"}},
	{"book", []string{"Books", "Reading", "Education"}},
	{"magazine", []string{"Books", "Reading", "Entertainment"}},
	{"dvd", []string{"Media", "Movies", "Entertainment"}},
	{"cd", []string{"Media", "Music", "Entertainment"}},
	{"ball", []string{"Sports", "Recreation", "Fitness"}},
	{"weights", []string{"Fitness", "Exercise", "Health"}},
	{"bike", []string{"Sports", "Transportation", "Fitness"}},
	{"helmet", []string{"Sports", "Safety", "Protection"}},
}

const maxTagSuggestions = 5

// SuggestTags proposes up to five tag names for an item from keywords in
// its name.
func SuggestTags(itemName string) []string {
	name := strings.ToLower(itemName)
	seen := map[string]bool{}
	suggestions := []string{}
	for _, kw := range tagKeywords {
		if !strings.Contains(name, kw.keyword) {
			continue
		}
		for _, tag := range kw.tags {
			if seen[tag] {
				continue
			}
			seen[tag] = true
			suggestions = append(suggestions, tag)
			if len(suggestions) == maxTagSuggestions {
				return suggestions
			}
		}
	}
	return suggestions
}

// BuildCategoryTree nests categories under their parents. Categories whose
// parent is not in the list are treated as roots. Sibling order follows the
// input order.
func BuildCategoryTree(categories []Category) []CategoryNode {
	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		known[c.ID] = true
	}
	children := map[string][]Category{}
	var roots []Category
	for _, c := range categories {
		if c.ParentID == "" || !known[c.ParentID] {
			roots = append(roots, c)
			continue
		}
		children[c.ParentID] = append(children[c.ParentID], c)
	}
	var build func(level []Category) []CategoryNode
	build = func(level []Category) []CategoryNode {
		nodes := make([]CategoryNode, 0, len(level))
		for _, c := range level {
			nodes = append(nodes, CategoryNode{Category: c, Children: build(children[c.ID])})
		}
		return nodes
	}
	return build(roots)
}

// CategoryTemplate is a ready-made category hierarchy.
type CategoryTemplate struct {
	Name     string             `json:"name"`
	Children []CategoryTemplate `json:"children,omitempty"`
}

func leaves(names ...string) []CategoryTemplate {
	out := make([]CategoryTemplate, len(names))
	for i, name := range names {
		out[i] = CategoryTemplate{Name: name}
	}
	return out
}

func branch(name string, children ...string) CategoryTemplate {
	return CategoryTemplate{Name: name, Children: leaves(children...)}
}

var CategoryTemplates = []CategoryTemplate{
	{Name: "Electronics", Children: []CategoryTemplate{
		branch("Audio", "Headphones", "Speakers", "Microphones"),
		branch("Computing", "Laptops", "Tablets", "Accessories"),
		branch("Mobile", "Phones", "Cases", "Chargers"),
		branch("Gaming", "Consoles", "Controllers", "Games"),
	}},
	{Name: "Clothing", Children: []CategoryTemplate{
		branch("Tops", "Shirts", "Blouses", "Sweaters"),
		branch("Bottoms", "Pants", "Skirts", "Shorts"),
		branch("Outerwear", "Jackets", "Coats", "Hoodies"),
		branch("Footwear", "Sneakers", "Boots", "Sandals"),
	}},
	{Name: "Home & Kitchen", Children: []CategoryTemplate{
		branch("Cookware", "Pots", "Pans", "Bakeware"),
		branch("Dinnerware", "Plates", "Bowls", "Cups"),
		branch("Appliances", "Small Appliances", "Large Appliances"),
		branch("Decor", "Art", "Plants", "Lighting"),
	}},
	{Name: "Tools", Children: []CategoryTemplate{
		branch("Hand Tools", "Screwdrivers", "Hammers", "Wrenches"),
		branch("Power Tools", "Drills", "Saws", "Sanders"),
		branch("Hardware", "Screws", "Nails", "Fasteners"),
	}},
	{Name: "Books & Media", Children: []CategoryTemplate{
		branch("Books", "Fiction", "Non-Fiction", "Reference"),
		branch("Movies", "DVDs", "Blu-rays", "Digital"),
		branch("Music", "CDs", "Vinyl", "Digital"),
	}},
	{Name: "Sports & Recreation", Children: []CategoryTemplate{
		branch("Fitness", "Weights", "Cardio Equipment", "Yoga"),
		branch("Outdoor", "Camping", "Hiking", "Cycling"),
		branch("Team Sports", "Basketball", "Soccer", "Baseball"),
	}},
}

func FindCategoryTemplate(name string) (CategoryTemplate, bool) {
	for _, t := range CategoryTemplates {
		if strings.EqualFold(t.Name, strings.TrimSpace(name)) {
			return t, true
		}
	}
	return CategoryTemplate{}, false
}

// Count is the number of categories the template creates.
func (t CategoryTemplate) Count() int {
	n := 1
	for _, child := range t.Children {
		n += child.Count()
	}
	return n
}
