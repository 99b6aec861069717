package zod

import (
	"encoding/json"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/goliatone/go-schemasync/pkg/ir"
)

// zodCheck evaluates a single emitted method such as ".max(280)" against a
// sample value, following zod's documented semantics for that method.
func zodCheck(t *testing.T, rule string, value any) bool {
	t.Helper()
	open := strings.IndexByte(rule, '(')
	if !strings.HasPrefix(rule, ".") || open < 0 || !strings.HasSuffix(rule, ")") {
		t.Fatalf("malformed rule %q", rule)
	}
	method, arg := rule[1:open], rule[open+1:len(rule)-1]

	switch method {
	case "min", "max":
		n, err := strconv.Atoi(arg)
		if err != nil {
			t.Fatalf("rule %q: %v", rule, err)
		}
		size := 0
		switch v := value.(type) {
		case string:
			// JS string length counts UTF-16 code units.
			size = len(utf16.Encode([]rune(v)))
		case []string:
			size = len(v)
		}
		if method == "min" {
			return size >= n
		}
		return size <= n
	case "refine":
		m := codePointRefine.FindStringSubmatch(arg)
		if m == nil {
			t.Fatalf("no checker for refinement %q", rule)
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			t.Fatalf("rule %q: %v", rule, err)
		}
		// Spreading a JS string iterates code points.
		size := utf8.RuneCountInString(value.(string))
		if m[1] == ">=" {
			return size >= n
		}
		return size <= n
	case "gte", "gt", "lte", "lt":
		bound, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			t.Fatalf("rule %q: %v", rule, err)
		}
		v := value.(float64)
		switch method {
		case "gte":
			return v >= bound
		case "gt":
			return v > bound
		case "lte":
			return v <= bound
		}
		return v < bound
	case "regex":
		inner := strings.TrimSuffix(strings.TrimPrefix(arg, "new RegExp("), ")")
		var source string
		if err := json.Unmarshal([]byte(inner), &source); err != nil {
			t.Fatalf("rule %q: %v", rule, err)
		}
		return regexp.MustCompile(source).MatchString(value.(string))
	case "email":
		_, err := mail.ParseAddress(value.(string))
		return err == nil && !strings.ContainsAny(value.(string), "<> ")
	case "uuid":
		return uuidPattern.MatchString(value.(string))
	}
	t.Fatalf("no checker for %q", rule)
	return false
}

var codePointRefine = regexp.MustCompile(`^\(s\) => \[\.\.\.s\]\.length (>=|<=) (\d+), "`)

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// satisfies is the constraint meaning carried by the IR.
func satisfies(c ir.Constraint, value any) bool {
	switch c.Kind {
	case ir.MinLength, ir.MaxLength:
		size := 0
		switch v := value.(type) {
		case string:
			size = utf8.RuneCountInString(v)
		case []string:
			size = len(v)
		}
		if c.Kind == ir.MinLength {
			return size >= c.Int
		}
		return size <= c.Int
	case ir.Minimum:
		if c.Exclusive {
			return value.(float64) > c.Number
		}
		return value.(float64) >= c.Number
	case ir.Maximum:
		if c.Exclusive {
			return value.(float64) < c.Number
		}
		return value.(float64) <= c.Number
	case ir.Pattern:
		return regexp.MustCompile(c.Text).MatchString(value.(string))
	case ir.Format:
		switch c.Text {
		case ir.FormatEmail:
			_, err := mail.ParseAddress(value.(string))
			return err == nil && !strings.ContainsAny(value.(string), "<> ")
		case ir.FormatUUID:
			return uuidPattern.MatchString(value.(string))
		}
	}
	return false
}

func TestRule_AgreesWithConstraintMeaning(t *testing.T) {
	cases := []struct {
		constraint ir.Constraint
		base       ir.SemanticType
		samples    []any
	}{
		{ir.MinLengthOf(1), ir.String(), []any{"", "a", "ab"}},
		{ir.MaxLengthOf(280), ir.String(), []any{strings.Repeat("x", 279), strings.Repeat("x", 280), strings.Repeat("x", 281), strings.Repeat("é", 280), strings.Repeat("😀", 280), strings.Repeat("😀", 281)}},
		{ir.MinLengthOf(2), ir.String(), []any{"😀", "😀😀", "a"}},
		{ir.MaxLengthOf(2), ir.List{Elem: ir.String()}, []any{[]string{}, []string{"a", "b"}, []string{"a", "b", "c"}}},
		{ir.MinLengthOf(1), ir.List{Elem: ir.String()}, []any{[]string{}, []string{"a"}}},
		{ir.PatternOf(`^[a-zA-Z0-9_-]+$`), ir.String(), []any{"ok_name", "bad name", "", `quote"d`}},
		{ir.PatternOf(`^\d{3}"\\$`), ir.String(), []any{`123"\`, "123", `12"\`}},
		{ir.FormatOf(ir.FormatEmail), ir.String(), []any{"a@example.com", "nope", "a b@example.com"}},
		{ir.FormatOf(ir.FormatUUID), ir.String(), []any{"3fa85f64-5717-4562-b3fc-2c963f66afa6", "3fa85f64"}},
		{ir.MinimumOf(0, false), ir.Int(), []any{-1.0, 0.0, 1.0}},
		{ir.MinimumOf(0, true), ir.Float(), []any{-0.5, 0.0, 0.5}},
		{ir.MaximumOf(5, false), ir.Float(), []any{4.5, 5.0, 5.5}},
		{ir.MaximumOf(5, true), ir.Int(), []any{4.0, 5.0, 6.0}},
		{ir.MaximumOf(0.125, false), ir.Float(), []any{0.124, 0.125, 0.126}},
	}

	for _, tc := range cases {
		rule, reason := Rule(tc.constraint, tc.base)
		if reason != "" {
			t.Fatalf("%s on %v: unexpected reason %q", tc.constraint, tc.base, reason)
		}
		for _, sample := range tc.samples {
			want := satisfies(tc.constraint, sample)
			if got := zodCheck(t, rule, sample); got != want {
				t.Fatalf("%s via %s on %#v: zod accepts=%v, constraint accepts=%v", tc.constraint, rule, sample, got, want)
			}
		}
	}
}

func TestRule_ReportsInapplicableConstraints(t *testing.T) {
	cases := []struct {
		constraint ir.Constraint
		base       ir.SemanticType
	}{
		{ir.MinLengthOf(1), ir.Bool()},
		{ir.MaxLengthOf(1), ir.Int()},
		{ir.PatternOf("x"), ir.Float()},
		{ir.PatternOf("x"), ir.List{Elem: ir.String()}},
		{ir.FormatOf("password"), ir.String()},
		{ir.FormatOf(ir.FormatEmail), ir.Enum{Name: "E", Members: []string{"a"}}},
		{ir.MinimumOf(1, false), ir.String()},
		{ir.MaximumOf(1, false), ir.ModelRef{Name: "M"}},
		{ir.Constraint{Kind: "multipleOf"}, ir.Int()},
	}
	for _, tc := range cases {
		rule, reason := Rule(tc.constraint, tc.base)
		if rule != "" || reason == "" {
			t.Fatalf("%s on %v: rule=%q reason=%q", tc.constraint, tc.base, rule, reason)
		}
	}
}

func TestRule_NullableAndOptionalUseBase(t *testing.T) {
	rule, reason := Rule(ir.MaxLengthOf(250), ir.Optional{Elem: ir.Nullable{Elem: ir.String()}})
	if reason != "" || rule != atMost(250) {
		t.Fatalf("rule=%q reason=%q", rule, reason)
	}
}

func TestRule_StringLengthCountsCodePoints(t *testing.T) {
	emoji := strings.Repeat("😀", 280)
	if zodCheck(t, ".max(280)", emoji) {
		t.Fatalf("zod .max counts UTF-16 units and should reject %d astral characters", 280)
	}
	rule, reason := Rule(ir.MaxLengthOf(280), ir.String())
	if reason != "" {
		t.Fatalf("unexpected reason %q", reason)
	}
	if !zodCheck(t, rule, emoji) {
		t.Fatalf("%s rejected 280 code points", rule)
	}

	rule, _ = Rule(ir.MaxLengthOf(2), ir.List{Elem: ir.String()})
	if rule != ".max(2)" {
		t.Fatalf("list length rule = %q", rule)
	}
}
