// Package tsast extracts the members of generated TypeScript declarations:
// the property signatures of an interface and the key/value pairs of a
// z.object call. Drift reports use them to name the fields that diverge.
package tsast

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Member is one declared field. Text is the member source with whitespace
// collapsed and the trailing separator removed.
type Member struct {
	Name string
	Text string
	Line int
}

// ErrSyntax reports that tree-sitter could not parse the source cleanly.
var ErrSyntax = errors.New("tsast: source has syntax errors")

// Extract returns the members of the first interface or z.object
// declaration in source. Sources tree-sitter rejects are read line by line
// instead.
func Extract(ctx context.Context, source []byte) []Member {
	members, err := Parse(ctx, source)
	if err != nil {
		return Lines(source)
	}
	return members
}

// Parse extracts members with the tree-sitter TypeScript grammar.
func Parse(ctx context.Context, source []byte) ([]Member, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(typescript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("tsast: parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, ErrSyntax
	}

	cursor := sitter.NewTreeCursor(root)
	defer cursor.Close()

	members, _ := walk(cursor, source)
	return members, nil
}

// walk stops at the first declaration that carries members.
func walk(cursor *sitter.TreeCursor, source []byte) ([]Member, bool) {
	node := cursor.CurrentNode()
	switch node.Type() {
	case "interface_declaration":
		return interfaceMembers(node, source), true
	case "call_expression":
		if isZodObject(node, source) {
			return objectMembers(node, source), true
		}
	}

	if cursor.GoToFirstChild() {
		for {
			if members, ok := walk(cursor, source); ok {
				return members, true
			}
			if !cursor.GoToNextSibling() {
				break
			}
		}
		cursor.GoToParent()
	}
	return nil, false
}

func interfaceMembers(node *sitter.Node, source []byte) []Member {
	body := node.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	var members []Member
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		if child.Type() != "property_signature" {
			continue
		}
		name := child.ChildByFieldName("name")
		if name == nil {
			continue
		}
		members = append(members, member(name.Content(source), child, source))
	}
	return members
}

func isZodObject(node *sitter.Node, source []byte) bool {
	fn := node.ChildByFieldName("function")
	if fn == nil || fn.Type() != "member_expression" {
		return false
	}
	property := fn.ChildByFieldName("property")
	object := fn.ChildByFieldName("object")
	return property != nil && object != nil &&
		property.Content(source) == "object" && object.Content(source) == "z"
}

func objectMembers(call *sitter.Node, source []byte) []Member {
	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return nil
	}
	object := args.NamedChild(0)
	if object.Type() != "object" {
		return nil
	}
	var members []Member
	for i := 0; i < int(object.NamedChildCount()); i++ {
		child := object.NamedChild(i)
		if child.Type() != "pair" {
			continue
		}
		key := child.ChildByFieldName("key")
		if key == nil {
			continue
		}
		members = append(members, member(key.Content(source), child, source))
	}
	return members
}

func member(name string, node *sitter.Node, source []byte) Member {
	return Member{
		Name: unquote(name),
		Text: normalize(node.Content(source)),
		Line: int(node.StartPoint().Row) + 1,
	}
}

var memberLine = regexp.MustCompile(`^("(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'|[A-Za-z_$][\w$]*)\??\s*:`)

// Lines is the line-based extraction used when parsing fails: every line
// one brace level inside the first declaration that looks like a member.
func Lines(source []byte) []Member {
	var members []Member
	depth := 0
	started := false
	for i, raw := range strings.Split(string(source), "\n") {
		line := strings.TrimSpace(raw)
		if depth == 1 && !strings.HasPrefix(line, "/") && !strings.HasPrefix(line, "*") {
			if m := memberLine.FindStringSubmatch(line); m != nil {
				members = append(members, Member{Name: unquote(m[1]), Text: normalize(line), Line: i + 1})
			}
		}
		if !started && !strings.HasPrefix(line, "export ") {
			continue
		}
		started = true
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth <= 0 && strings.Contains(line, "}") {
			break
		}
	}
	return members
}

func normalize(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimRight(text, ";,")
}

func unquote(name string) string {
	if len(name) >= 2 && (name[0] == '"' || name[0] == '\'') && name[len(name)-1] == name[0] {
		return strings.ReplaceAll(name[1:len(name)-1], `\`+name[:1], name[:1])
	}
	return name
}
