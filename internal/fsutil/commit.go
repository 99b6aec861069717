// Package fsutil commits a set of generated files atomically: every file is
// staged next to its destination first and only renamed into place once all
// of them were written. A failed rename restores what was already replaced.
package fsutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Write is a file to create or replace.
type Write struct {
	Path    string
	Content []byte
}

// Plan lists the writes and removals committed together.
type Plan struct {
	Writes  []Write
	Removes []string
}

// Result lists the paths touched by a commit, each sorted.
type Result struct {
	Written   []string
	Unchanged []string
	Removed   []string
}

// Error is a filesystem failure during Commit. RolledBack reports whether
// the targets were restored to their previous state.
type Error struct {
	Op         string
	Path       string
	Err        error
	RolledBack bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("fsutil: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Option configures a Committer.
type Option func(*Committer)

// WithFileMode sets the permissions of written files.
func WithFileMode(mode fs.FileMode) Option {
	return func(c *Committer) {
		c.mode = mode
	}
}

// Committer applies plans to the filesystem.
type Committer struct {
	mode   fs.FileMode
	rename func(oldpath, newpath string) error
}

// NewCommitter returns a Committer writing files with mode 0644.
func NewCommitter(options ...Option) *Committer {
	c := &Committer{}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	c.applyDefaults()
	return c
}

func (c *Committer) applyDefaults() {
	if c.mode == 0 {
		c.mode = 0o644
	}
	if c.rename == nil {
		c.rename = os.Rename
	}
}

// Commit writes the plan with the default Committer.
func Commit(ctx context.Context, plan Plan) (Result, error) {
	return NewCommitter().Commit(ctx, plan)
}

type staged struct {
	path   string
	temp   string
	backup string
	remove bool
}

// Commit stages every changed write to a temporary file in the target
// directory, then renames them into place and applies the removals. Files
// whose content already matches are left untouched. Any failure before the
// first rename leaves the targets as they were; a failed rename rolls back
// the renames already done.
func (c *Committer) Commit(ctx context.Context, plan Plan) (Result, error) {
	var (
		result  Result
		entries []*staged
		created []string
	)
	cleanup := func() {
		for _, entry := range entries {
			if entry.temp != "" {
				_ = os.Remove(entry.temp)
			}
		}
		for i := len(created) - 1; i >= 0; i-- {
			_ = os.Remove(created[i])
		}
	}

	writes := append([]Write(nil), plan.Writes...)
	sort.SliceStable(writes, func(i, j int) bool { return writes[i].Path < writes[j].Path })
	for _, write := range writes {
		if err := ctx.Err(); err != nil {
			cleanup()
			return Result{}, err
		}
		current, err := os.ReadFile(write.Path)
		switch {
		case err == nil && bytes.Equal(current, write.Content):
			result.Unchanged = append(result.Unchanged, write.Path)
			continue
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			cleanup()
			return Result{}, &Error{Op: "read", Path: write.Path, Err: err, RolledBack: true}
		}

		dirs, err := mkdirAll(filepath.Dir(write.Path))
		created = append(created, dirs...)
		if err != nil {
			cleanup()
			return Result{}, &Error{Op: "mkdir", Path: filepath.Dir(write.Path), Err: err, RolledBack: true}
		}
		temp, err := c.stage(write)
		if err != nil {
			cleanup()
			return Result{}, &Error{Op: "stage", Path: write.Path, Err: err, RolledBack: true}
		}
		entries = append(entries, &staged{path: write.Path, temp: temp})
	}

	removes := append([]string(nil), plan.Removes...)
	sort.Strings(removes)
	for _, path := range removes {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		entries = append(entries, &staged{path: path, remove: true})
	}

	if err := ctx.Err(); err != nil {
		cleanup()
		return Result{}, err
	}

	var done []*staged
	for _, entry := range entries {
		if err := c.apply(entry); err != nil {
			rollbackErr := c.rollback(done)
			cleanup()
			return Result{}, &Error{Op: "commit", Path: entry.path, Err: err, RolledBack: rollbackErr == nil}
		}
		done = append(done, entry)
	}

	dirs := make(map[string]struct{})
	for _, entry := range done {
		if entry.backup != "" {
			_ = os.Remove(entry.backup)
		}
		if entry.remove {
			result.Removed = append(result.Removed, entry.path)
		} else {
			result.Written = append(result.Written, entry.path)
		}
		dirs[filepath.Dir(entry.path)] = struct{}{}
	}
	for dir := range dirs {
		syncDir(dir)
	}
	return result, nil
}

// stage writes the content to a synced temporary file beside the target.
func (c *Committer) stage(write Write) (string, error) {
	dir, base := filepath.Split(write.Path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return "", err
	}
	name := tmp.Name()
	fail := func(err error) (string, error) {
		_ = tmp.Close()
		_ = os.Remove(name)
		return "", err
	}
	if _, err := tmp.Write(write.Content); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(c.mode); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

// apply moves an existing target aside and renames the staged file over it.
func (c *Committer) apply(entry *staged) error {
	if _, err := os.Lstat(entry.path); err == nil {
		backup, err := reserve(entry.path, ".bak-*")
		if err != nil {
			return err
		}
		if err := c.rename(entry.path, backup); err != nil {
			_ = os.Remove(backup)
			return err
		}
		entry.backup = backup
	}
	if entry.remove {
		return nil
	}
	if err := c.rename(entry.temp, entry.path); err != nil {
		if entry.backup != "" {
			_ = os.Rename(entry.backup, entry.path)
			entry.backup = ""
		}
		return err
	}
	entry.temp = ""
	return nil
}

func (c *Committer) rollback(done []*staged) error {
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		entry := done[i]
		if entry.backup == "" {
			if err := os.Remove(entry.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if err := os.Rename(entry.backup, entry.path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// reserve returns an unused file name beside path.
func reserve(path, pattern string) (string, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+pattern)
	if err != nil {
		return "", err
	}
	name := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

// mkdirAll creates dir and returns the directories it created, outermost
// first.
func mkdirAll(dir string) ([]string, error) {
	var missing []string
	for current := dir; ; current = filepath.Dir(current) {
		if _, err := os.Stat(current); err == nil {
			break
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		missing = append(missing, current)
		if parent := filepath.Dir(current); parent == current {
			break
		}
	}
	var created []string
	for i := len(missing) - 1; i >= 0; i-- {
		if err := os.Mkdir(missing[i], 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return created, err
		}
		created = append(created, missing[i])
	}
	return created, nil
}

func syncDir(dir string) {
	f, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = f.Sync()
	_ = f.Close()
}
