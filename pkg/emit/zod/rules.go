package zod

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-schemasync/internal/tsgen"
	"github.com/goliatone/go-schemasync/pkg/ir"
)

var formatRules = map[string]string{
	ir.FormatEmail:    ".email()",
	ir.FormatURL:      ".url()",
	ir.FormatUUID:     ".uuid()",
	ir.FormatDateTime: ".datetime({ offset: true })",
	ir.FormatDate:     ".date()",
	ir.FormatTime:     ".time()",
	ir.FormatIPv4:     `.ip({ version: "v4" })`,
	ir.FormatIPv6:     `.ip({ version: "v6" })`,
}

// Rule returns the zod method chain enforcing c on a value of type base
// (already stripped of Optional and Nullable). When no rule exists the
// second result explains why.
func Rule(c ir.Constraint, base ir.SemanticType) (string, string) {
	kind := baseKind(base)
	switch c.Kind {
	case ir.MinLength, ir.MaxLength:
		if kind != kindString && kind != kindList {
			return "", fmt.Sprintf("%s applies to strings and lists, not %s", c.Kind, kind)
		}
		if kind == kindString {
			return stringLength(c), ""
		}
		method := ".min("
		if c.Kind == ir.MaxLength {
			method = ".max("
		}
		return method + strconv.Itoa(c.Int) + ")", ""
	case ir.Pattern:
		if kind != kindString {
			return "", fmt.Sprintf("pattern applies to strings, not %s", kind)
		}
		return ".regex(new RegExp(" + tsgen.Quote(c.Text) + "))", ""
	case ir.Format:
		if kind != kindString {
			return "", fmt.Sprintf("format applies to strings, not %s", kind)
		}
		rule, ok := formatRules[c.Text]
		if !ok {
			return "", fmt.Sprintf("format %q has no zod rule", c.Text)
		}
		return rule, ""
	case ir.Minimum, ir.Maximum:
		if kind != kindNumber {
			return "", fmt.Sprintf("%s applies to numbers, not %s", c.Kind, kind)
		}
		method := ".gte("
		switch {
		case c.Kind == ir.Minimum && c.Exclusive:
			method = ".gt("
		case c.Kind == ir.Maximum && c.Exclusive:
			method = ".lt("
		case c.Kind == ir.Maximum:
			method = ".lte("
		}
		return method + ir.FormatNumber(c.Number) + ")", ""
	default:
		return "", fmt.Sprintf("unknown constraint kind %q", c.Kind)
	}
}

// stringLength counts code points. zod's .min and .max on strings count
// UTF-16 code units, which double-counts characters outside the BMP.
func stringLength(c ir.Constraint) string {
	n := strconv.Itoa(c.Int)
	if c.Kind == ir.MinLength {
		return ".refine((s) => [...s].length >= " + n + ", " + tsgen.Quote("String must contain at least "+n+" character(s)") + ")"
	}
	return ".refine((s) => [...s].length <= " + n + ", " + tsgen.Quote("String must contain at most "+n+" character(s)") + ")"
}

// isRefinement reports whether rule wraps the schema in ZodEffects, after
// which string methods such as .regex are no longer available.
func isRefinement(rule string) bool {
	return strings.HasPrefix(rule, ".refine(")
}

type valueKind string

const (
	kindString valueKind = "string"
	kindNumber valueKind = "number"
	kindBool   valueKind = "boolean"
	kindEnum   valueKind = "enum"
	kindList   valueKind = "list"
	kindRef    valueKind = "model reference"
	kindOther  valueKind = "unknown"
)

func baseKind(t ir.SemanticType) valueKind {
	switch v := ir.Base(t).(type) {
	case ir.Primitive:
		switch v.Kind {
		case ir.KindString:
			return kindString
		case ir.KindInt, ir.KindFloat:
			return kindNumber
		case ir.KindBool:
			return kindBool
		}
	case ir.Enum:
		return kindEnum
	case ir.List:
		return kindList
	case ir.ModelRef:
		return kindRef
	}
	return kindOther
}
