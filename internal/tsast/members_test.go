package tsast

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const interfaceSource = `// @generated by schemasync. DO NOT EDIT.

import type { PostAuthor } from "./PostAuthor";

/** Public post schema. */
export interface PostPublic {
  id: string;
  /** Body text. */
  content: string;
  "created-at"?: string | undefined;
  author: PostAuthor;
}
`

const zodSource = `// @generated by schemasync. DO NOT EDIT.

import { z } from "zod";

export const PostCreateSchema: z.ZodType<PostCreate> = z.object({
  content: z.string().min(1).max(280),
  tags: z.array(z.string().regex(new RegExp("^\\w{3}$"))).optional(),
  author: z.lazy(() => PostAuthorSchema),
});
`

func names(members []Member) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Name
	}
	return out
}

func TestParse_Interface(t *testing.T) {
	members, err := Parse(context.Background(), []byte(interfaceSource))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff([]string{"id", "content", "created-at", "author"}, names(members)); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if members[2].Text != `"created-at"?: string | undefined` {
		t.Fatalf("text = %q", members[2].Text)
	}
	if members[1].Line != 9 {
		t.Fatalf("line = %d", members[1].Line)
	}
}

func TestParse_ZodObject(t *testing.T) {
	members, err := Parse(context.Background(), []byte(zodSource))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff([]string{"content", "tags", "author"}, names(members)); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if members[0].Text != "content: z.string().min(1).max(280)" {
		t.Fatalf("text = %q", members[0].Text)
	}
}

func TestParse_RejectsBrokenSource(t *testing.T) {
	if _, err := Parse(context.Background(), []byte("export interface Broken {\n  id: string;\n")); err == nil {
		t.Fatalf("expected syntax error")
	}
}

func TestLines_MatchesParser(t *testing.T) {
	for name, source := range map[string]string{"interface": interfaceSource, "zod": zodSource} {
		parsed, err := Parse(context.Background(), []byte(source))
		if err != nil {
			t.Fatalf("%s: parse: %v", name, err)
		}
		if diff := cmp.Diff(parsed, Lines([]byte(source))); diff != "" {
			t.Fatalf("%s: line extraction differs (-parsed +lines):\n%s", name, diff)
		}
	}
}

func TestExtract_FallsBackOnSyntaxErrors(t *testing.T) {
	source := "export interface Broken {\n  id: string;\n  name: string\n"
	got := Extract(context.Background(), []byte(source))
	want := []Member{
		{Name: "id", Text: "id: string", Line: 2},
		{Name: "name", Text: "name: string", Line: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("members mismatch (-want +got):\n%s", diff)
	}
}
