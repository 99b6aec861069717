package introspect

import (
	"math"
	"sort"
	"strings"

	"github.com/goliatone/go-schemasync/pkg/ir"
	"github.com/goliatone/go-schemasync/pkg/schema"
)

// ignoredKeywords are annotations without validation meaning.
var ignoredKeywords = map[string]struct{}{
	"title":       {},
	"description": {},
	"default":     {},
	"examples":    {},
	"example":     {},
	"readOnly":    {},
	"writeOnly":   {},
	"deprecated":  {},
	"nullable":    {},
	"$comment":    {},
}

// typeHintFormats refine numeric storage width rather than constrain values.
var typeHintFormats = map[string]struct{}{
	"int32":  {},
	"int64":  {},
	"float":  {},
	"double": {},
}

var formatAliases = map[string]string{
	"uri": ir.FormatURL,
}

var kindOrder = map[ir.ConstraintKind]int{
	ir.MinLength: 0,
	ir.MaxLength: 1,
	ir.Pattern:   2,
	ir.Format:    3,
	ir.Minimum:   4,
	ir.Maximum:   5,
}

// constraints extracts the rules declared on node. Keywords with no mapping
// rule are reported as unmapped. The result is ordered by kind so the same
// rules produce the same output regardless of keyword order in the source.
func (m *fieldMapper) constraints(node *schema.Node, typ ir.SemanticType) []ir.Constraint {
	var out []ir.Constraint
	_, isList := typ.(ir.List)

	var (
		minIdx, maxIdx             = -1, -1
		exclusiveMin, exclusiveMax bool
	)

	for _, a := range node.Annotations {
		if _, skip := ignoredKeywords[a.Keyword]; skip {
			continue
		}
		switch a.Keyword {
		case "minLength", "maxLength":
			n, ok := toInt(a.Value)
			if !ok {
				m.skip(describe(a.Keyword, a.Value), "length must be a non-negative integer that fits in an int")
				continue
			}
			if a.Keyword == "minLength" {
				out = append(out, ir.MinLengthOf(n))
			} else {
				out = append(out, ir.MaxLengthOf(n))
			}
		case "minItems", "maxItems":
			n, ok := toInt(a.Value)
			switch {
			case !isList:
				m.skip(describe(a.Keyword, a.Value), "item count bounds only apply to lists")
			case !ok:
				m.skip(describe(a.Keyword, a.Value), "item count must be a non-negative integer that fits in an int")
			case a.Keyword == "minItems":
				out = append(out, ir.MinLengthOf(n))
			default:
				out = append(out, ir.MaxLengthOf(n))
			}
		case "pattern":
			pattern, ok := a.Value.(string)
			if !ok || pattern == "" {
				m.skip(describe(a.Keyword, a.Value), "pattern must be a non-empty string")
				continue
			}
			out = append(out, ir.PatternOf(pattern))
		case "minimum", "maximum":
			n, ok := toFloat(a.Value)
			if !ok {
				m.skip(describe(a.Keyword, a.Value), "bound must be a number")
				continue
			}
			if a.Keyword == "minimum" {
				minIdx = len(out)
				out = append(out, ir.MinimumOf(n, false))
			} else {
				maxIdx = len(out)
				out = append(out, ir.MaximumOf(n, false))
			}
		case "exclusiveMinimum", "exclusiveMaximum":
			lower := a.Keyword == "exclusiveMinimum"
			switch v := a.Value.(type) {
			case bool:
				if lower {
					exclusiveMin = exclusiveMin || v
				} else {
					exclusiveMax = exclusiveMax || v
				}
			default:
				n, ok := toFloat(v)
				switch {
				case !ok:
					m.skip(describe(a.Keyword, a.Value), "bound must be a number")
				case lower:
					out = append(out, ir.MinimumOf(n, true))
				default:
					out = append(out, ir.MaximumOf(n, true))
				}
			}
		default:
			m.skip(describe(a.Keyword, a.Value), "no mapping rule for keyword "+a.Keyword)
		}
	}

	// Boolean exclusive flags (OpenAPI 3.0, draft 4) modify the plain bound.
	if exclusiveMin {
		if minIdx < 0 {
			m.skip("exclusiveMinimum", "exclusiveMinimum without minimum")
		} else {
			out[minIdx].Exclusive = true
		}
	}
	if exclusiveMax {
		if maxIdx < 0 {
			m.skip("exclusiveMaximum", "exclusiveMaximum without maximum")
		} else {
			out[maxIdx].Exclusive = true
		}
	}

	if format := strings.TrimSpace(node.Format); format != "" {
		if _, hint := typeHintFormats[format]; !hint {
			if alias, ok := formatAliases[format]; ok {
				format = alias
			}
			out = append(out, ir.FormatOf(format))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return kindOrder[out[i].Kind] < kindOrder[out[j].Kind]
	})
	return out
}

// toInt accepts non-negative integral values that fit in an int.
func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, v >= 0
	case int64:
		if v < 0 || uint64(v) > math.MaxInt {
			return 0, false
		}
		return int(v), true
	case uint64:
		if v > math.MaxInt {
			return 0, false
		}
		return int(v), true
	case float64:
		// float64(math.MaxInt) may round up, so the bound is exclusive.
		if v < 0 || v != math.Trunc(v) || v >= float64(math.MaxInt) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
