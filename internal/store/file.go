package store

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sasha-s/go-deadlock"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/emmanuel-ferdman/roslyn/internal/lang"
)

// Recorder observes installed versions. The journal implements it; a nil
// recorder is legal.
type Recorder interface {
	RecordEdit(path string, fromVersion, toVersion uint64)
}

// File owns the version sequence for a single document path. Handles keep a
// File reference, never a Snapshot: every access loads whatever version is
// current at that moment, so all handles on a file observe a version swap
// simultaneously.
type File struct {
	path     string
	policy   lang.Policy
	recorder Recorder
	provider OptionsProvider

	// parser is only touched while the write mutex is held.
	parser *sitter.Parser

	current atomic.Pointer[Snapshot]

	write   deadlock.Mutex
	owner   atomic.Int64 // goid of the goroutine holding an open session
	session *Session     // only meaningful while owner is set

	options optionsCell
}

func newFile(path string, text []byte, policy lang.Policy, provider OptionsProvider, recorder Recorder) (*File, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(policy.Language())

	tree, err := parser.ParseCtx(context.Background(), nil, text)
	if err != nil {
		parser.Close()
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	f := &File{
		path:     path,
		policy:   policy,
		recorder: recorder,
		provider: provider,
		parser:   parser,
	}
	f.current.Store(newSnapshot(1, text, tree, policy))
	return f, nil
}

// Path returns the document path this file owns.
func (f *File) Path() string { return f.path }

// Policy returns the language policy the file was opened with.
func (f *File) Policy() lang.Policy { return f.policy }

// Current returns the snapshot that is current right now. The load is
// lock-free; two back-to-back calls may observe different versions if a
// concurrent edit lands in between.
func (f *File) Current() *Snapshot {
	return f.current.Load()
}

// Close releases the parser and the current tree. The file must not be used
// afterwards; superseded trees of snapshots still held by readers are left
// to their finalizers.
func (f *File) Close() error {
	f.write.Lock()
	defer f.write.Unlock()

	if snap := f.current.Load(); snap != nil && snap.tree != nil {
		snap.tree.Close()
	}
	if f.parser != nil {
		f.parser.Close()
		f.parser = nil
	}
	return nil
}
