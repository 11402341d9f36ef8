package models

import (
	"strings"

	"github.com/jwintz/obsidianp-sub000/internal/filter"
	"github.com/jwintz/obsidianp-sub000/internal/formula"
	"github.com/jwintz/obsidianp-sub000/internal/value"
)

// View types.
const (
	ViewTable    = "table"
	ViewCards    = "cards"
	ViewCalendar = "calendar"
)

// Collection is a declarative database view over the documents.
type Collection struct {
	ID          string                 `json:"id"`
	Path        string                 `json:"path"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Views       []View                 `json:"views"`
	Filter      filter.Expr            `json:"-"`
	Properties  map[string]PropertyDef `json:"properties,omitempty"`
	Formulas    []FormulaDef           `json:"formulas,omitempty"`

	// Matched is set once by the query engine: IDs passing the root filter
	// in store order.
	Matched []string `json:"matched"`
	// Results holds one evaluated result per view, keyed by view name.
	Results map[string]*ViewResult `json:"results"`
}

// DefaultView returns the first declared view.
func (c *Collection) DefaultView() View {
	if len(c.Views) == 0 {
		return View{Type: ViewTable, Name: "Table"}
	}
	return c.Views[0]
}

// View looks up a view by name; the match is case-insensitive.
func (c *Collection) View(name string) (View, bool) {
	for _, v := range c.Views {
		if v.Name == name {
			return v, true
		}
	}
	for _, v := range c.Views {
		if strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return View{}, false
}

// View is one rendering configuration of a collection.
type View struct {
	Type         string         `json:"type"`
	Name         string         `json:"name"`
	Order        []string       `json:"order,omitempty"`
	Sort         []SortRule     `json:"sort,omitempty"`
	ColumnSize   map[string]int `json:"columnSize,omitempty"`
	Limit        int            `json:"limit,omitempty"`
	Filter       filter.Expr    `json:"-"`
	GroupBy      string         `json:"groupBy,omitempty"`
	Image        string         `json:"image,omitempty"`
	DateProperty string         `json:"dateProperty,omitempty"`
}

// SortRule orders documents by one property.
type SortRule struct {
	Property   string `json:"property"`
	Descending bool   `json:"descending,omitempty"`
}

// PropertyDef declares a property of a collection.
type PropertyDef struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"displayName,omitempty"`
	Type        string      `json:"type,omitempty"`
	Default     value.Value `json:"default,omitempty"`
	Required    bool        `json:"required,omitempty"`
	Format      string      `json:"format,omitempty"`
}

// FormulaDef declares a derived property.
type FormulaDef struct {
	Name       string           `json:"name"`
	Expression string           `json:"expression"`
	Type       string           `json:"type,omitempty"`
	Program    *formula.Program `json:"-"`
}

// ViewResult is the evaluated output of one view.
type ViewResult struct {
	View   View     `json:"view"`
	IDs    []string `json:"ids"`
	Rows   []Row    `json:"rows"`
	Groups []Group  `json:"groups,omitempty"`
}

// Row is one matched document with its derived display properties.
type Row struct {
	ID      string                 `json:"id"`
	Display map[string]value.Value `json:"display,omitempty"`
}

// Group is a run of result IDs sharing a grouping key.
type Group struct {
	Key string   `json:"key"`
	IDs []string `json:"ids"`
}
