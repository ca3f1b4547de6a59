package store

import (
	"context"
	"fmt"

	"github.com/sasha-s/go-deadlock"
	"github.com/tliron/commonlog"

	"github.com/emmanuel-ferdman/roslyn/internal/lang"
)

// Config carries the collaborators shared by every file in one store.
type Config struct {
	Policy   lang.Policy
	Provider OptionsProvider
	Recorder Recorder
}

// Store is the path-keyed registry of open files. It owns document
// lifecycle only; version sequences are owned by the individual files.
// Store implements lang.Workspace, which is how a rename reaches every open
// document.
type Store struct {
	mu    deadlock.RWMutex
	files map[string]*File
	cfg   Config
	log   commonlog.Logger
}

// NewStore creates an empty store.
func NewStore(cfg Config) *Store {
	return &Store{
		files: make(map[string]*File),
		cfg:   cfg,
		log:   commonlog.GetLogger("store"),
	}
}

// Open parses the initial text and registers the file. Opening an already
// open path is an error.
func (s *Store) Open(path string, text []byte) (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[path]; exists {
		return nil, fmt.Errorf("document already open: %s", path)
	}

	file, err := newFile(path, text, s.cfg.Policy, s.cfg.Provider, s.cfg.Recorder)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}

	s.files[path] = file
	s.log.Debugf("opened %s (version %d)", path, file.Current().Version())
	return file, nil
}

// Get returns the open file for a path.
func (s *Store) Get(path string) (*File, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, exists := s.files[path]
	return file, exists
}

// Close releases one document.
func (s *Store) Close(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, exists := s.files[path]
	if !exists {
		return fmt.Errorf("document not found: %s", path)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close document: %w", err)
	}
	delete(s.files, path)
	return nil
}

// CloseAll releases every document, keeping going past individual failures.
func (s *Store) CloseAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for path, file := range s.files {
		if err := file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", path, err))
		}
	}
	s.files = make(map[string]*File)

	if len(errs) > 0 {
		return fmt.Errorf("errors closing documents: %v", errs)
	}
	return nil
}

// Paths lists the open document paths.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.files))
	for path := range s.files {
		paths = append(paths, path)
	}
	return paths
}

// Rewrite implements lang.Workspace: it runs fn against the current text of
// one document and installs the result through that document's own
// single-writer session when fn reports a change.
func (s *Store) Rewrite(ctx context.Context, path string, fn func(src []byte) ([]byte, bool, error)) error {
	file, exists := s.Get(path)
	if !exists {
		return fmt.Errorf("document not found: %s", path)
	}
	return file.PerformEdit(ctx, func(snap *Snapshot) ([]byte, error) {
		out, changed, err := fn(snap.Text())
		if err != nil {
			return nil, err
		}
		if !changed {
			return snap.Text(), nil
		}
		return out, nil
	})
}

var _ lang.Workspace = (*Store)(nil)
