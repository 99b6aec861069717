// Package prompt asks the operator before generated files that were changed
// on disk are overwritten.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrAborted signals the operator interrupted the prompt (e.g., Ctrl+C).
var ErrAborted = errors.New("prompt: aborted")

// ConfirmConfig configures a yes/no prompt.
type ConfirmConfig struct {
	Message string
	Default bool
	Help    string
}

// Driver abstracts the terminal so callers can be tested without one.
type Driver interface {
	Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error)
}

type surveyDriver struct {
	opts []survey.AskOpt
}

// NewSurveyDriver prompts on the process terminal. Options such as
// survey.WithStdio are passed to every question.
func NewSurveyDriver(opts ...survey.AskOpt) Driver {
	return &surveyDriver{opts: opts}
}

func (d *surveyDriver) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var out bool
	question := &survey.Confirm{
		Message: cfg.Message,
		Help:    cfg.Help,
		Default: cfg.Default,
	}
	if err := survey.AskOne(question, &out, d.opts...); err != nil {
		return false, translateSurveyErr(err)
	}
	return out, nil
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

// maxListed bounds the paths spelled out in the question.
const maxListed = 10

// Overwrite returns a confirmation hook that lists the paths differing from
// the generated output and asks once whether to replace them. No paths
// means no question.
func Overwrite(driver Driver) func(ctx context.Context, paths []string) (bool, error) {
	return func(ctx context.Context, paths []string) (bool, error) {
		if len(paths) == 0 {
			return true, nil
		}
		if driver == nil {
			return false, errors.New("prompt: driver is not configured")
		}
		return driver.Confirm(ctx, ConfirmConfig{
			Message: overwriteMessage(paths),
			Help:    "These files differ from the generated output, usually after a hand edit. Declining leaves every target untouched.",
		})
	}
}

func overwriteMessage(paths []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Overwrite %d drifted file(s)?", len(paths))
	for i, path := range paths {
		if i == maxListed {
			fmt.Fprintf(&b, "\n  ... and %d more", len(paths)-maxListed)
			break
		}
		b.WriteString("\n  " + path)
	}
	return b.String()
}
