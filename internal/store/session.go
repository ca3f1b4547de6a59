package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/petermattis/goid"
)

// ErrEditConflict reports a violated edit-session invariant: a goroutine
// that already holds this file's session opened a second, nested write
// instead of joining through EnsureEditor. This is a programming error, not
// a recoverable condition.
var ErrEditConflict = errors.New("edit conflict: nested write on file")

// Transform computes the next document text from one immutable snapshot.
// It must not mutate the snapshot; returning the input text unchanged makes
// the edit a no-op.
type Transform func(snap *Snapshot) ([]byte, error)

// Session is the single-writer transaction on one file. It exists only
// between EnsureEditor entry and exit; nothing outside the owning goroutine
// ever sees its working state.
type Session struct {
	file    *File
	working *Snapshot
	dirty   bool
}

// Snapshot returns the version the session is working on: the version that
// was current when the session opened, advanced by every Apply since.
func (s *Session) Snapshot() *Snapshot {
	return s.working
}

// Apply runs the transform against the session's working snapshot and, on
// success, reparses the result into the next working version. Nothing is
// visible to readers until the session commits.
func (s *Session) Apply(ctx context.Context, transform Transform) error {
	text, err := transform(s.working)
	if err != nil {
		return err
	}
	if bytes.Equal(text, s.working.text) {
		return nil
	}

	tree, err := s.file.parser.ParseCtx(ctx, nil, text)
	if err != nil {
		return fmt.Errorf("failed to parse edited document: %w", err)
	}

	s.working = newSnapshot(s.working.version+1, text, tree, s.file.policy)
	s.dirty = true
	return nil
}

// EnsureEditor guarantees an active session exists before running fn. A
// reentrant call from the goroutine that already holds this file's session
// joins it instead of opening a nested write. On any error out of fn the
// previous version stays current; on success the working version is
// installed atomically and recorded.
func (f *File) EnsureEditor(ctx context.Context, fn func(*Session) error) error {
	self := goid.Get()
	if f.owner.Load() == self {
		return fn(f.session)
	}

	f.write.Lock()
	defer f.write.Unlock()

	session := &Session{file: f, working: f.current.Load()}
	f.session = session
	f.owner.Store(self)
	defer func() {
		f.owner.Store(0)
		f.session = nil
	}()

	if err := fn(session); err != nil {
		return err
	}

	if session.dirty {
		from := f.current.Load().version
		f.current.Store(session.working)
		f.options.invalidate()
		if f.recorder != nil {
			f.recorder.RecordEdit(f.path, from, session.working.version)
		}
	}
	return nil
}

// PerformEdit applies one transform as its own transaction. Calling it from
// inside an already-open session on the same file is illegal; such callers
// must join through EnsureEditor.
func (f *File) PerformEdit(ctx context.Context, transform Transform) error {
	if f.owner.Load() == goid.Get() {
		return fmt.Errorf("%s: %w", f.path, ErrEditConflict)
	}
	return f.EnsureEditor(ctx, func(s *Session) error {
		return s.Apply(ctx, transform)
	})
}
