package query

import (
	"slices"
	"time"

	"github.com/jwintz/obsidianp-sub000/internal/diag"
	"github.com/jwintz/obsidianp-sub000/internal/filter"
	"github.com/jwintz/obsidianp-sub000/internal/models"
	"github.com/jwintz/obsidianp-sub000/internal/value"
)

// FilterCollection returns the documents passing c's root filter, in the
// order given.
func FilterCollection(c *models.Collection, docs []*models.Document) []*Item {
	out := make([]*Item, 0, len(docs))
	for _, d := range docs {
		it := NewItem(d, c)
		if filter.Eval(c.Filter, it) {
			out = append(out, it)
		}
	}
	return out
}

// ApplyViewFilter narrows items with the view's own filter.
func ApplyViewFilter(v models.View, items []*Item) []*Item {
	if v.Filter == nil {
		return slices.Clone(items)
	}
	out := make([]*Item, 0, len(items))
	for _, it := range items {
		if filter.Eval(v.Filter, it) {
			out = append(out, it)
		}
	}
	return out
}

// Sort returns items ordered by rules, first rule primary. The sort is
// stable. Missing values sort after present ones in both directions, and a
// rule whose property no item has leaves the order unchanged.
func Sort(items []*Item, rules []models.SortRule) []*Item {
	out := slices.Clone(items)
	if len(rules) == 0 {
		return out
	}
	slices.SortStableFunc(out, func(a, b *Item) int {
		for _, r := range rules {
			if c := compareBy(a.Property(r.Property), b.Property(r.Property), r.Descending); c != 0 {
				return c
			}
		}
		return 0
	})
	return out
}

func compareBy(a, b value.Value, desc bool) int {
	switch {
	case a.IsAbsent() && b.IsAbsent():
		return 0
	case a.IsAbsent():
		return 1
	case b.IsAbsent():
		return -1
	}
	c := value.Compare(a, b)
	if desc {
		return -c
	}
	return c
}

// EvaluateFormulas computes c's formulas for every item in declaration
// order and stores the results in the item's display properties. A formula
// may read earlier formulas through "formula.<name>". Evaluation errors
// leave the value absent and are reported per item.
func EvaluateFormulas(c *models.Collection, items []*Item, now time.Time) []diag.Diagnostic {
	var ds []diag.Diagnostic
	for _, it := range items {
		for _, f := range c.Formulas {
			if f.Program == nil {
				it.Display[f.Name] = value.Null
				continue
			}
			v, err := f.Program.Eval(it, now)
			if err != nil {
				ds = append(ds, diag.New(diag.FormulaError, c.ID, it.Doc.ID, "formula %s (%s): %v", f.Name, f.Program.Source(), err))
				v = value.Null
			}
			it.Display[f.Name] = value.Coerce(v, f.Type)
		}
	}
	return ds
}

// Group splits ordered items into runs sharing the value of key. Groups
// appear in order of first occurrence; items without a value form a group
// with an empty key.
func Group(items []*Item, key string) []models.Group {
	var groups []models.Group
	index := make(map[string]int)
	for _, it := range items {
		k := it.Property(key).String()
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, models.Group{Key: k})
		}
		groups[i].IDs = append(groups[i].IDs, it.Doc.ID)
	}
	return groups
}

// EvaluateView runs one view over the collection's matched items: view
// filter, sort, limit and grouping.
func EvaluateView(v models.View, matched []*Item) *models.ViewResult {
	items := Sort(ApplyViewFilter(v, matched), v.Sort)
	if v.Limit > 0 && len(items) > v.Limit {
		items = items[:v.Limit]
	}

	res := &models.ViewResult{
		View: v,
		IDs:  make([]string, 0, len(items)),
		Rows: make([]models.Row, 0, len(items)),
	}
	for _, it := range items {
		res.IDs = append(res.IDs, it.Doc.ID)
		row := models.Row{ID: it.Doc.ID}
		if len(it.Display) > 0 {
			row.Display = make(map[string]value.Value, len(it.Display))
			for k, val := range it.Display {
				row.Display[k] = val
			}
		}
		res.Rows = append(res.Rows, row)
	}
	if v.GroupBy != "" {
		res.Groups = Group(items, v.GroupBy)
	}
	return res
}
