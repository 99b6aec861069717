// Package emit defines the artifact emitter contract, the emitter registry
// and the output layout shared by every target language.
package emit

import (
	"context"

	"github.com/goliatone/go-schemasync/pkg/ir"
)

// Well-known target names.
const (
	TargetTypes      = "types"
	TargetValidators = "validators"
)

// Artifact is one generated file. Content uses LF line endings and ends with
// exactly one newline.
type Artifact struct {
	Model   string `json:"model"`
	Target  string `json:"target"`
	Path    string `json:"path"`
	Content string `json:"-"`
}

// Output is the result of one emitter run.
type Output struct {
	Artifacts []Artifact
	Unmapped  []ir.UnmappedConstraint
}

// Emitter renders one artifact per model for a single target. Emitters are
// pure functions of the registry and layout: the same input must produce
// byte-identical artifacts.
type Emitter interface {
	Target() string
	Emit(ctx context.Context, reg *ir.Registry, layout *Layout) (Output, error)
}
