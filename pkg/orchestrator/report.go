package orchestrator

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/goliatone/go-schemasync/pkg/drift"
	"github.com/goliatone/go-schemasync/pkg/ir"
)

// Mode selects what a run does after emitting.
type Mode string

const (
	ModeSync  Mode = "sync"
	ModeCheck Mode = "check"
)

// Phase is the last state a run reached.
type Phase string

const (
	PhaseIntrospecting       Phase = "Introspecting"
	PhaseIntrospectionFailed Phase = "IntrospectionFailed"
	PhaseIntrospectionOk     Phase = "IntrospectionOk"
	PhaseEmitting            Phase = "Emitting"
	PhaseEmitOk              Phase = "EmitOk"
	PhaseWriting             Phase = "Writing"
	PhaseWritten             Phase = "Written"
	PhaseDiffing             Phase = "Diffing"
	PhaseInSync              Phase = "InSync"
	PhaseDrifted             Phase = "Drifted"
)

// Status summarises the outcome for machines.
type Status string

const (
	StatusOK    Status = "ok"
	StatusDrift Status = "drift"
	StatusError Status = "error"
)

// ReportError is one fatal problem. Model and Field are empty for source
// and filesystem failures.
type ReportError struct {
	Model  string `json:"model"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// RunReport is the machine readable outcome of Run.
type RunReport struct {
	Status              Status                  `json:"status"`
	Mode                Mode                    `json:"mode"`
	Phase               Phase                   `json:"phase"`
	Models              []string                `json:"models,omitempty"`
	FilesWritten        []string                `json:"filesWritten"`
	FilesUnchanged      []string                `json:"filesUnchanged,omitempty"`
	FilesRemoved        []string                `json:"filesRemoved,omitempty"`
	UnmappedConstraints []ir.UnmappedConstraint `json:"unmappedConstraints"`
	Errors              []ReportError           `json:"errors"`
	Drift               []drift.FileDrift       `json:"drift,omitempty"`
	Orphans             []string                `json:"orphans,omitempty"`
	Warnings            []string                `json:"warnings,omitempty"`
}

func newReport(mode Mode) RunReport {
	return RunReport{
		Status:              StatusOK,
		Mode:                mode,
		Phase:               PhaseIntrospecting,
		FilesWritten:        []string{},
		UnmappedConstraints: []ir.UnmappedConstraint{},
		Errors:              []ReportError{},
	}
}

func (r *RunReport) addError(model, field, reason string) {
	r.Errors = append(r.Errors, ReportError{Model: model, Field: field, Reason: reason})
	r.Status = StatusError
}

func (r *RunReport) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// WriteJSON writes the report as indented JSON.
func (r RunReport) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// Exit codes returned by ExitCode.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUnmapped = 2
)

// ExitCode maps a report onto the process exit status. sync exits 1 on
// errors and 2 when strict and constraints went unmapped; check exits 1 on
// drift or errors.
func ExitCode(report RunReport, strict bool) int {
	switch report.Mode {
	case ModeCheck:
		if report.Status == StatusOK {
			return ExitOK
		}
		return ExitFailure
	default:
		if len(report.Errors) > 0 {
			return ExitFailure
		}
		if strict && len(report.UnmappedConstraints) > 0 {
			return ExitUnmapped
		}
		if report.Status != StatusOK {
			return ExitFailure
		}
		return ExitOK
	}
}

// IOError is a fatal filesystem failure: an unreadable source or an
// unwritable target.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("orchestrator: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
