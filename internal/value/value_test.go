package value

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFromAny(t *testing.T) {
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		in   any
		want Kind
	}{
		{"nil", nil, Absent},
		{"string", "x", String},
		{"int", 3, Number},
		{"float", 1.5, Number},
		{"bool", true, Bool},
		{"time", ts, Date},
		{"list", []any{"a", 2, nil}, List},
		{"map", map[string]any{"k": 1}, String},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := FromAny(c.in).Kind; got != c.want {
				t.Errorf("kind = %v, want %v", got, c.want)
			}
		})
	}

	list := FromAny([]any{"a", 2, nil})
	if len(list.List) != 2 || list.List[1] != "2" {
		t.Errorf("list = %v", list.List)
	}
}

func TestEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
		want bool
	}{
		{"strings", OfString("a"), OfString("a"), true},
		{"strings differ", OfString("a"), OfString("A"), false},
		{"list membership", OfList([]string{"project", "x"}), OfString("project"), true},
		{"list non-member", OfList([]string{"x"}), OfString("project"), false},
		{"number vs numeric string", OfNumber(3), OfString("3"), true},
		{"date vs date string", OfTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), OfString("2024-01-01"), true},
		{"absent vs absent", Null, Null, true},
		{"absent vs string", Null, OfString(""), false},
		{"bool", OfBool(true), OfBool(true), true},
		{"bool vs string", OfBool(true), OfString("true"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Equal(c.a, c.b); got != c.want {
				t.Errorf("Equal = %v, want %v", got, c.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	if Compare(OfString("2023-06-01"), OfString("2024-01-01")) >= 0 {
		t.Error("dates should compare by instant")
	}
	if Compare(OfString("9"), OfString("10")) >= 0 {
		t.Error("numeric strings should compare numerically")
	}
	if Compare(OfString("apple"), OfString("Banana")) >= 0 {
		t.Error("strings should compare case-folded")
	}
	if Compare(OfString("a"), OfString("a")) != 0 {
		t.Error("equal strings should compare 0")
	}
}

func TestCompare_MixedClassesTransitive(t *testing.T) {
	nine, ten, word := OfString("9"), OfString("10"), OfString("1a")
	if Compare(nine, ten) >= 0 || Compare(ten, word) >= 0 || Compare(nine, word) >= 0 {
		t.Errorf("want 9 < 10 < 1a; got %d %d %d", Compare(nine, ten), Compare(ten, word), Compare(nine, word))
	}
	if Compare(OfString("2024-01-01"), OfNumber(1)) >= 0 {
		t.Error("dates should order before numbers")
	}
	if Compare(OfString("zzz"), OfNumber(1)) <= 0 {
		t.Error("strings should order after numbers")
	}
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2024-01-01", "2024-01-01T10:00:00Z", "2024-01-01 10:00", "2024-01-01T10:00"} {
		if _, ok := ParseTime(s); !ok {
			t.Errorf("ParseTime(%q) failed", s)
		}
	}
	for _, s := range []string{"", "yesterday", "2024-13-01"} {
		if _, ok := ParseTime(s); ok {
			t.Errorf("ParseTime(%q) should fail", s)
		}
	}
}

func TestCoerce(t *testing.T) {
	if v := Coerce(OfString("42"), "number"); v.Kind != Number || v.Num != 42 {
		t.Errorf("number coercion = %+v", v)
	}
	if v := Coerce(OfString("not a date"), "date"); v.Kind != Absent {
		t.Errorf("bad date coercion = %+v, want absent", v)
	}
	if v := Coerce(OfString("true"), "boolean"); v.Kind != Bool || !v.Bool {
		t.Errorf("bool coercion = %+v", v)
	}
	if v := Coerce(OfNumber(1.5), "string"); v.Kind != String || v.Str != "1.5" {
		t.Errorf("string coercion = %+v", v)
	}
}

func TestMarshalJSON(t *testing.T) {
	in := map[string]Value{
		"s": OfString("x"),
		"l": OfList([]string{"a", "b"}),
		"n": OfNumber(2),
		"d": OfTime(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)),
		"z": Null,
	}
	out, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"d":"2024-05-06","l":["a","b"],"n":2,"s":"x","z":null}`
	if string(out) != want {
		t.Errorf("json = %s, want %s", out, want)
	}
}
