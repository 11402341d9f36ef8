package collection

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"github.com/jwintz/obsidianp-sub000/internal/diag"
	"github.com/jwintz/obsidianp-sub000/internal/filter"
	"github.com/jwintz/obsidianp-sub000/internal/formula"
	"github.com/jwintz/obsidianp-sub000/internal/models"
	"github.com/jwintz/obsidianp-sub000/internal/value"
)

// definition mirrors the on-disk schema of a collection file.
type definition struct {
	Title       string                 `yaml:"title"`
	Description string                 `yaml:"description"`
	Filters     any                    `yaml:"filters"`
	Properties  map[string]propertyDef `yaml:"properties"`
	Formulas    yaml.Node              `yaml:"formulas"`
	Views       []viewDef              `yaml:"views"`
}

type propertyDef struct {
	DisplayName string `yaml:"displayName"`
	Type        string `yaml:"type"`
	Default     any    `yaml:"default"`
	Required    bool   `yaml:"required"`
	Format      string `yaml:"format"`
}

type viewDef struct {
	Type         string         `yaml:"type"`
	Name         string         `yaml:"name"`
	Order        []string       `yaml:"order"`
	Sort         []any          `yaml:"sort"`
	ColumnSize   map[string]int `yaml:"columnSize"`
	Limit        int            `yaml:"limit"`
	Filters      any            `yaml:"filters"`
	GroupBy      any            `yaml:"groupBy"`
	Image        string         `yaml:"image"`
	DateProperty string         `yaml:"dateProperty"`
}

type formulaDef struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
	Type       string `yaml:"type"`
}

// Decode parses one collection definition. YAML is accepted as is; input
// that starts with "{" is treated as JSON with comments and trailing commas.
//
// A returned error means the definition is unusable as a whole. Problems
// confined to a filter, sort rule or formula are returned as diagnostics
// and the affected part degrades.
func Decode(id string, data []byte) (*models.Collection, []diag.Diagnostic, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		std, err := hujson.Standardize(trimmed)
		if err != nil {
			return nil, nil, fmt.Errorf("collection: decode %s: invalid JSON: %w", id, err)
		}
		data = std
	}

	var def definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, nil, fmt.Errorf("collection: decode %s: %w", id, err)
	}

	formulas, err := decodeFormulas(&def.Formulas)
	if err != nil {
		return nil, nil, fmt.Errorf("collection: decode %s: formulas: %w", id, err)
	}

	if err := def.validate(formulas); err != nil {
		return nil, nil, fmt.Errorf("collection: validate %s: %w", id, err)
	}

	var ds []diag.Diagnostic
	c := &models.Collection{
		ID:          id,
		Title:       strings.TrimSpace(def.Title),
		Description: def.Description,
		Properties:  make(map[string]models.PropertyDef, len(def.Properties)),
	}

	var problems []filter.Problem
	c.Filter, problems = filter.Parse(def.Filters)
	for _, p := range problems {
		ds = append(ds, diag.New(diag.MalformedFilter, id, "filters", "%s", p))
	}

	for name, p := range def.Properties {
		c.Properties[name] = models.PropertyDef{
			Name:        name,
			DisplayName: p.DisplayName,
			Type:        p.Type,
			Default:     value.FromAny(p.Default),
			Required:    p.Required,
			Format:      p.Format,
		}
	}

	for _, f := range formulas {
		fd := models.FormulaDef{Name: f.Name, Expression: f.Expression, Type: f.Type}
		prog, err := formula.Compile(f.Expression)
		if err != nil {
			ds = append(ds, diag.New(diag.FormulaError, id, "formula."+f.Name, "%v", err))
		} else {
			fd.Program = prog
		}
		c.Formulas = append(c.Formulas, fd)
	}

	for i, vd := range def.Views {
		v, vds := decodeView(id, i, vd)
		ds = append(ds, vds...)
		c.Views = append(c.Views, v)
	}

	return c, ds, nil
}

func (d *definition) validate(formulas []formulaDef) error {
	for i := range d.Views {
		if err := d.Views[i].validate(); err != nil {
			return fmt.Errorf("views[%d]: %w", i, err)
		}
	}
	for i := range formulas {
		if err := formulas[i].validate(); err != nil {
			return fmt.Errorf("formulas[%d]: %w", i, err)
		}
	}
	return nil
}

func (v *viewDef) validate() error {
	if v.Type == "" {
		v.Type = models.ViewTable
	}
	return validation.ValidateStruct(v,
		validation.Field(&v.Type, validation.In(models.ViewTable, models.ViewCards, models.ViewCalendar)),
		validation.Field(&v.Limit, validation.Min(0)),
	)
}

func (f *formulaDef) validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Name, validation.Required),
		validation.Field(&f.Expression, validation.Required),
	)
}

// decodeFormulas accepts either a mapping of name to expression, kept in
// declaration order, or a list of {name, expression, type} objects.
func decodeFormulas(n *yaml.Node) ([]formulaDef, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		return nil, errors.New("expected a mapping or a list")
	case yaml.MappingNode:
		out := make([]formulaDef, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			f := formulaDef{Name: k.Value}
			switch v.Kind {
			case yaml.ScalarNode:
				f.Expression = v.Value
			case yaml.MappingNode:
				var body formulaDef
				if err := v.Decode(&body); err != nil {
					return nil, err
				}
				f.Expression, f.Type = body.Expression, body.Type
			default:
				return nil, fmt.Errorf("formula %q: expected an expression", k.Value)
			}
			out = append(out, f)
		}
		return out, nil
	case yaml.SequenceNode:
		var out []formulaDef
		if err := n.Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, errors.New("expected a mapping or a list")
	}
}

func decodeView(id string, i int, vd viewDef) (models.View, []diag.Diagnostic) {
	var ds []diag.Diagnostic
	name := strings.TrimSpace(vd.Name)
	if name == "" {
		name = fmt.Sprintf("View %d", i+1)
	}
	v := models.View{
		Type:         vd.Type,
		Name:         name,
		Order:        vd.Order,
		ColumnSize:   vd.ColumnSize,
		Limit:        vd.Limit,
		Image:        vd.Image,
		DateProperty: vd.DateProperty,
	}

	var problems []filter.Problem
	v.Filter, problems = filter.Parse(vd.Filters)
	for _, p := range problems {
		ds = append(ds, diag.New(diag.MalformedFilter, id, name, "%s", p))
	}

	for j, raw := range vd.Sort {
		rule, err := decodeSortRule(raw)
		if err != nil {
			ds = append(ds, diag.New(diag.MalformedSort, id, name, "sort[%d]: %v", j, err))
			continue
		}
		v.Sort = append(v.Sort, rule)
	}

	switch g := vd.GroupBy.(type) {
	case nil:
	case string:
		v.GroupBy = g
	case map[string]any:
		if p, ok := g["property"].(string); ok {
			v.GroupBy = p
		}
	default:
		ds = append(ds, diag.New(diag.MalformedCollection, id, name, "groupBy of type %T ignored", g))
	}
	return v, ds
}

// decodeSortRule accepts "prop", "prop DESC" or {property, direction}.
func decodeSortRule(raw any) (models.SortRule, error) {
	var prop, dir string
	switch r := raw.(type) {
	case string:
		fields := strings.Fields(r)
		switch len(fields) {
		case 1:
			prop = fields[0]
		case 2:
			prop, dir = fields[0], fields[1]
		default:
			return models.SortRule{}, fmt.Errorf("cannot parse %q", r)
		}
	case map[string]any:
		p, _ := r["property"].(string)
		prop = p
		if d, ok := r["direction"]; ok {
			s, isStr := d.(string)
			if !isStr {
				return models.SortRule{}, fmt.Errorf("direction must be a string, got %T", d)
			}
			dir = s
		}
	default:
		return models.SortRule{}, fmt.Errorf("unrecognised rule of type %T", raw)
	}

	if strings.TrimSpace(prop) == "" {
		return models.SortRule{}, errors.New("missing property")
	}
	switch strings.ToUpper(dir) {
	case "", "ASC":
		return models.SortRule{Property: prop}, nil
	case "DESC":
		return models.SortRule{Property: prop, Descending: true}, nil
	default:
		return models.SortRule{}, fmt.Errorf("direction %q is not ASC or DESC", dir)
	}
}
