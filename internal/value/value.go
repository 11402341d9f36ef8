// Package value implements the typed metadata values attached to documents.
package value

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind distinguishes the populated field of a Value.
type Kind uint8

// Kind values enumerate the supported metadata shapes.
const (
	Absent Kind = iota
	String
	List
	Number
	Bool
	Date
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case List:
		return "list"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Date:
		return "date"
	default:
		return "absent"
	}
}

// Value is a tagged union over the metadata types a document can carry.
// The zero Value is Absent.
type Value struct {
	Kind Kind
	Str  string    // Str holds the value when Kind == String.
	List []string  // List holds the value when Kind == List.
	Num  float64   // Num holds the value when Kind == Number.
	Bool bool      // Bool holds the value when Kind == Bool.
	Time time.Time // Time holds the value when Kind == Date.
}

// Null is the absent value.
var Null = Value{}

// OfString returns a string value.
func OfString(s string) Value { return Value{Kind: String, Str: s} }

// OfList returns a string-list value.
func OfList(items []string) Value { return Value{Kind: List, List: items} }

// OfNumber returns a numeric value.
func OfNumber(f float64) Value { return Value{Kind: Number, Num: f} }

// OfBool returns a boolean value.
func OfBool(b bool) Value { return Value{Kind: Bool, Bool: b} }

// OfTime returns a date value.
func OfTime(t time.Time) Value { return Value{Kind: Date, Time: t} }

// IsAbsent reports whether v carries no value.
func (v Value) IsAbsent() bool { return v.Kind == Absent }

// FromAny converts a decoded YAML/JSON value into a Value.
// Nested maps are flattened to their printed form.
func FromAny(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null
	case Value:
		return t
	case string:
		return OfString(t)
	case bool:
		return OfBool(t)
	case int:
		return OfNumber(float64(t))
	case int64:
		return OfNumber(float64(t))
	case uint64:
		return OfNumber(float64(t))
	case float64:
		return OfNumber(t)
	case time.Time:
		return OfTime(t)
	case []string:
		return OfList(append([]string(nil), t...))
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			items = append(items, FromAny(item).String())
		}
		return OfList(items)
	default:
		return OfString(fmt.Sprint(t))
	}
}

// String renders the value for display and string comparison.
func (v Value) String() string {
	switch v.Kind {
	case String:
		return v.Str
	case List:
		return strings.Join(v.List, ", ")
	case Number:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case Bool:
		return strconv.FormatBool(v.Bool)
	case Date:
		if v.Time.Hour() == 0 && v.Time.Minute() == 0 && v.Time.Second() == 0 && v.Time.Nanosecond() == 0 {
			return v.Time.Format(time.DateOnly)
		}
		return v.Time.Format(time.RFC3339)
	default:
		return ""
	}
}

// MarshalJSON encodes the value as its natural JSON counterpart.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case String, Date:
		return []byte(strconv.Quote(v.String())), nil
	case List:
		var b strings.Builder
		b.WriteByte('[')
		for i, item := range v.List {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(item))
		}
		b.WriteByte(']')
		return []byte(b.String()), nil
	case Number:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return []byte("null"), nil
		}
		return []byte(strconv.FormatFloat(v.Num, 'f', -1, 64)), nil
	case Bool:
		return []byte(strconv.FormatBool(v.Bool)), nil
	default:
		return []byte("null"), nil
	}
}

// AsTime returns the instant the value denotes. Strings are parsed lazily.
func (v Value) AsTime() (time.Time, bool) {
	switch v.Kind {
	case Date:
		return v.Time, true
	case String:
		return ParseTime(v.Str)
	default:
		return time.Time{}, false
	}
}

// AsNumber returns the numeric interpretation of the value.
func (v Value) AsNumber() (float64, bool) {
	switch v.Kind {
	case Number:
		return v.Num, true
	case String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Truthy reports whether the value counts as true in a boolean context.
func (v Value) Truthy() bool {
	switch v.Kind {
	case Bool:
		return v.Bool
	case String:
		return v.Str != ""
	case List:
		return len(v.List) > 0
	case Number:
		return v.Num != 0
	case Date:
		return !v.Time.IsZero()
	default:
		return false
	}
}

// Contains reports list membership for lists and substring containment
// for everything else.
func (v Value) Contains(needle string) bool {
	switch v.Kind {
	case Absent:
		return false
	case List:
		for _, item := range v.List {
			if item == needle {
				return true
			}
		}
		return false
	default:
		return strings.Contains(v.String(), needle)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.DateOnly,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateTime,
	"2006-01-02 15:04",
	"2006/01/02",
}

// ParseTime parses the date formats accepted in metadata and filters.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Equal compares two values. A list equals a scalar it contains, dates and
// numbers compare by magnitude, and Absent equals only Absent.
func Equal(a, b Value) bool {
	if a.Kind == Absent || b.Kind == Absent {
		return a.Kind == b.Kind
	}
	if a.Kind == List && b.Kind != List {
		return a.Contains(b.String())
	}
	if b.Kind == List && a.Kind != List {
		return b.Contains(a.String())
	}
	if a.Kind == List && b.Kind == List {
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if a.List[i] != b.List[i] {
				return false
			}
		}
		return true
	}
	if a.Kind == Bool || b.Kind == Bool {
		return a.Kind == b.Kind && a.Bool == b.Bool
	}
	if a.Kind == Date || b.Kind == Date {
		ta, okA := a.AsTime()
		tb, okB := b.AsTime()
		return okA && okB && ta.Equal(tb)
	}
	if a.Kind == Number || b.Kind == Number {
		fa, okA := a.AsNumber()
		fb, okB := b.AsNumber()
		return okA && okB && fa == fb
	}
	return a.Str == b.Str
}

// Compare orders two present values. Each value is classed as a date, a
// number or a string, in that order of preference; values of different
// classes order dates first, then numbers, then strings. Within a class
// dates compare by instant, numbers numerically and strings case-folded.
// Absent handling is the caller's concern; Compare treats Absent as the
// empty string.
func Compare(a, b Value) int {
	ca, cb := classify(a), classify(b)
	if ca.rank != cb.rank {
		return cmp.Compare(ca.rank, cb.rank)
	}
	switch ca.rank {
	case rankDate:
		return ca.t.Compare(cb.t)
	case rankNumber:
		return cmp.Compare(ca.f, cb.f)
	}
	sa, sb := a.String(), b.String()
	if c := strings.Compare(strings.ToLower(sa), strings.ToLower(sb)); c != 0 {
		return c
	}
	return strings.Compare(sa, sb)
}

const (
	rankDate = iota
	rankNumber
	rankString
)

type class struct {
	rank int
	t    time.Time
	f    float64
}

func classify(v Value) class {
	if t, ok := v.AsTime(); ok {
		return class{rank: rankDate, t: t}
	}
	if f, ok := v.AsNumber(); ok {
		return class{rank: rankNumber, f: f}
	}
	return class{rank: rankString}
}

// Coerce converts v to the declared property or formula type. Unknown type
// names leave the value unchanged; a failed conversion yields Absent.
func Coerce(v Value, typ string) Value {
	if v.Kind == Absent {
		return v
	}
	switch strings.ToLower(typ) {
	case "", "any":
		return v
	case "string", "text":
		return OfString(v.String())
	case "number":
		if f, ok := v.AsNumber(); ok {
			return OfNumber(f)
		}
		if v.Kind == Bool {
			if v.Bool {
				return OfNumber(1)
			}
			return OfNumber(0)
		}
		return Null
	case "date", "datetime":
		if t, ok := v.AsTime(); ok {
			return OfTime(t)
		}
		return Null
	case "boolean", "bool", "checkbox":
		if v.Kind == String {
			if b, err := strconv.ParseBool(v.Str); err == nil {
				return OfBool(b)
			}
		}
		return OfBool(v.Truthy())
	case "list", "tags", "multitext":
		if v.Kind == List {
			return v
		}
		return OfList([]string{v.String()})
	default:
		return v
	}
}
