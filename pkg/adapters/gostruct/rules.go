package gostruct

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-schemasync/pkg/schema"
)

type rule struct {
	name  string
	param string
}

// parseRules splits a go-playground validate tag. "|" alternatives are kept
// as a single opaque rule.
func parseRules(tag string) []rule {
	tag = strings.TrimSpace(tag)
	if tag == "" || tag == "-" {
		return nil
	}
	var out []rule
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, param, _ := strings.Cut(part, "=")
		out = append(out, rule{name: name, param: param})
	}
	return out
}

var formatRules = map[string]string{
	"email":    "email",
	"url":      "url",
	"http_url": "url",
	"uri":      "url",
	"uuid":     "uuid",
	"uuid4":    "uuid",
	"ipv4":     "ipv4",
	"ipv6":     "ipv6",
}

// applyRules translates validate rules into annotations on node. Rules after
// "dive" apply to list items. Rules without a JSON Schema equivalent are kept
// under their own name so they surface as unmapped constraints.
func applyRules(node *schema.Node, rules []rule) error {
	target := node
	for _, r := range rules {
		switch r.name {
		case "required", "omitempty":
			continue
		case "dive":
			if target.Items == nil {
				return errors.New("validate: dive on a non-list type")
			}
			target = target.Items
			continue
		}

		if format, ok := formatRules[r.name]; ok && r.param == "" {
			target.Format = format
			continue
		}

		switch r.name {
		case "min", "max", "len", "gt", "gte", "lt", "lte":
			if err := applyBound(target, r); err != nil {
				return err
			}
		case "oneof":
			members := strings.Fields(r.param)
			if len(members) == 0 {
				return errors.New("validate: oneof needs values")
			}
			target.Enum = make([]any, len(members))
			for i, m := range members {
				target.Enum[i] = m
			}
		default:
			var value any = true
			if r.param != "" {
				value = r.param
			}
			target.Annotations = append(target.Annotations, schema.Annotation{Keyword: r.name, Value: value})
		}
	}
	return nil
}

func applyBound(node *schema.Node, r rule) error {
	n, err := strconv.ParseFloat(r.param, 64)
	if err != nil {
		return fmt.Errorf("validate: %s=%q is not a number", r.name, r.param)
	}
	add := func(keyword string, value any) {
		node.Annotations = append(node.Annotations, schema.Annotation{Keyword: keyword, Value: value})
	}

	switch {
	case node.HasType("string") && len(node.Enum) == 0:
		length := int(n)
		switch r.name {
		case "min", "gte":
			add("minLength", length)
		case "gt":
			add("minLength", length+1)
		case "max", "lte":
			add("maxLength", length)
		case "lt":
			add("maxLength", length-1)
		case "len":
			add("minLength", length)
			add("maxLength", length)
		}
	case node.HasType("array"):
		length := int(n)
		switch r.name {
		case "min", "gte":
			add("minItems", length)
		case "gt":
			add("minItems", length+1)
		case "max", "lte":
			add("maxItems", length)
		case "lt":
			add("maxItems", length-1)
		case "len":
			add("minItems", length)
			add("maxItems", length)
		}
	case node.HasType("integer"), node.HasType("number"):
		switch r.name {
		case "min", "gte":
			add("minimum", n)
		case "gt":
			add("exclusiveMinimum", n)
		case "max", "lte":
			add("maximum", n)
		case "lt":
			add("exclusiveMaximum", n)
		case "len":
			add("minimum", n)
			add("maximum", n)
		}
	default:
		add(r.name, r.param)
	}
	return nil
}
