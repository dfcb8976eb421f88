package catalog

import (
	"strings"

	"golang.org/x/text/cases"
)

type Item struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       int      `json:"price"`
	Currency    string   `json:"currency"`
	Category    string   `json:"category"`
	Color       string   `json:"color"`
	Sizes       []string `json:"sizes"`
}

// HasSize reports whether size is offered, ignoring case, and returns the catalog spelling.
func (it Item) HasSize(size string) (string, bool) {
	want := fold(strings.TrimSpace(size))
	for _, s := range it.Sizes {
		if fold(s) == want {
			return s, true
		}
	}
	return "", false
}

// Filter narrows List. Zero-valued fields do not constrain the result.
type Filter struct {
	Category string `json:"category,omitempty" mapstructure:"category"`
	Name     string `json:"name,omitempty" mapstructure:"name"`
	MaxPrice *int   `json:"max_price,omitempty" mapstructure:"max_price"`
	Color    string `json:"color,omitempty" mapstructure:"color"`
}

func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Category) == "" &&
		strings.TrimSpace(f.Name) == "" &&
		f.MaxPrice == nil &&
		strings.TrimSpace(f.Color) == ""
}

func (f Filter) match(it Item) bool {
	if c := strings.TrimSpace(f.Category); c != "" && !strings.Contains(fold(it.Category), fold(c)) {
		return false
	}
	if n := strings.TrimSpace(f.Name); n != "" && !strings.Contains(fold(it.Name), fold(n)) {
		return false
	}
	if f.MaxPrice != nil && it.Price > *f.MaxPrice {
		return false
	}
	if c := strings.TrimSpace(f.Color); c != "" && fold(it.Color) != fold(c) {
		return false
	}
	return true
}

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	items []Item
	byID  map[string]int
}

func New(items []Item) *Catalog {
	c := &Catalog{
		items: make([]Item, len(items)),
		byID:  make(map[string]int, len(items)),
	}
	for i, it := range items {
		it.Sizes = append([]string(nil), it.Sizes...)
		c.items[i] = it
		c.byID[it.ID] = i
	}
	return c
}

// List returns the items matching every set predicate, in declaration order.
func (c *Catalog) List(f Filter) []Item {
	out := make([]Item, 0, len(c.items))
	for _, it := range c.items {
		if f.IsZero() || f.match(it) {
			out = append(out, cloneItem(it))
		}
	}
	return out
}

func (c *Catalog) Get(id string) (Item, bool) {
	i, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Item{}, false
	}
	return cloneItem(c.items[i]), true
}

func (c *Catalog) Len() int {
	return len(c.items)
}

func cloneItem(it Item) Item {
	it.Sizes = append([]string(nil), it.Sizes...)
	return it
}

func fold(s string) string {
	return cases.Fold().String(s)
}
