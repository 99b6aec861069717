package ir

import "strconv"

// ConstraintKind tags a Constraint.
type ConstraintKind string

const (
	MinLength ConstraintKind = "minLength"
	MaxLength ConstraintKind = "maxLength"
	Pattern   ConstraintKind = "pattern"
	Format    ConstraintKind = "format"
	Minimum   ConstraintKind = "minimum"
	Maximum   ConstraintKind = "maximum"
)

// Well-known format names. Other names are kept verbatim.
const (
	FormatEmail    = "email"
	FormatURL      = "url"
	FormatUUID     = "uuid"
	FormatDateTime = "date-time"
	FormatDate     = "date"
	FormatTime     = "time"
	FormatIPv4     = "ipv4"
	FormatIPv6     = "ipv6"
)

// Constraint is a tagged validation rule. Int carries lengths, Number carries
// numeric bounds, Text carries patterns and format names. Items applies the
// rule to a list's elements instead of the list itself.
type Constraint struct {
	Kind      ConstraintKind `json:"kind"`
	Int       int            `json:"int,omitempty"`
	Number    float64        `json:"number,omitempty"`
	Text      string         `json:"text,omitempty"`
	Exclusive bool           `json:"exclusive,omitempty"`
	Items     bool           `json:"items,omitempty"`
}

func MinLengthOf(n int) Constraint   { return Constraint{Kind: MinLength, Int: n} }
func MaxLengthOf(n int) Constraint   { return Constraint{Kind: MaxLength, Int: n} }
func PatternOf(re string) Constraint { return Constraint{Kind: Pattern, Text: re} }
func FormatOf(name string) Constraint {
	return Constraint{Kind: Format, Text: name}
}

func MinimumOf(n float64, exclusive bool) Constraint {
	return Constraint{Kind: Minimum, Number: n, Exclusive: exclusive}
}

func MaximumOf(n float64, exclusive bool) Constraint {
	return Constraint{Kind: Maximum, Number: n, Exclusive: exclusive}
}

// OnItems returns a copy of c scoped to list elements.
func (c Constraint) OnItems() Constraint {
	c.Items = true
	return c
}

// String renders a stable human readable form, e.g. "maxLength(280)",
// "minimum(>0)" or "items.format(uuid)".
func (c Constraint) String() string {
	var arg string
	switch c.Kind {
	case MinLength, MaxLength:
		arg = strconv.Itoa(c.Int)
	case Pattern, Format:
		arg = c.Text
	case Minimum:
		arg = FormatNumber(c.Number)
		if c.Exclusive {
			arg = ">" + arg
		}
	case Maximum:
		arg = FormatNumber(c.Number)
		if c.Exclusive {
			arg = "<" + arg
		}
	}
	prefix := ""
	if c.Items {
		prefix = "items."
	}
	return prefix + string(c.Kind) + "(" + arg + ")"
}

// FormatNumber renders a float without exponent so integer bounds print as
// integers.
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
