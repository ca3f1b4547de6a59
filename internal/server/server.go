package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/emmanuel-ferdman/roslyn/internal/config"
	"github.com/emmanuel-ferdman/roslyn/internal/element"
	"github.com/emmanuel-ferdman/roslyn/internal/format"
	"github.com/emmanuel-ferdman/roslyn/internal/journal"
	"github.com/emmanuel-ferdman/roslyn/internal/lang"
	"github.com/emmanuel-ferdman/roslyn/internal/store"
)

const serverName = "roslyn"

// Server is the LSP surface over the element-handle core: document
// lifecycle maps onto the version store, workspace/executeCommand is the
// router into handle operations.
type Server struct {
	root    string
	handler *protocol.Handler
	cfg     config.Config
	policy  *lang.GoPolicy
	store   *store.Store
	journal *journal.Journal

	mu      sync.RWMutex
	handles map[string]*element.Handle

	log commonlog.Logger
}

// NewServer wires the protocol handler and returns a stdio-capable server.
func NewServer() (*glspserver.Server, error) {
	s := &Server{
		handles: make(map[string]*element.Handle),
		log:     commonlog.GetLogger(serverName),
	}
	s.handler = &protocol.Handler{
		Initialize:              s.initialize,
		Initialized:             s.initialized,
		TextDocumentDidOpen:     s.textDocumentDidOpen,
		TextDocumentDidChange:   s.textDocumentDidChange,
		TextDocumentDidClose:    s.textDocumentDidClose,
		WorkspaceExecuteCommand: s.workspaceExecuteCommand,
		Shutdown:                s.shutdown,
	}

	return glspserver.NewServer(s.handler, serverName, false), nil
}

// configProvider serves formatting options out of the merged configuration.
// It satisfies the async provider contract; file accessors still bridge it
// through the blocking fetch path.
type configProvider struct {
	cfg config.Config
}

func (p configProvider) FormattingOptions(ctx context.Context, path string) (format.Options, error) {
	return p.cfg.FormattingOptions(), nil
}

// registerHandle stores a handle in the in-memory registry and persists it
// through the journal so clients can re-acquire it after a restart.
func (s *Server) registerHandle(h *element.Handle) (string, error) {
	id := h.Stamp().String()

	encoded, err := h.Locator().MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to encode locator: %w", err)
	}
	if err := s.journal.SaveHandle(journal.HandleRecord{
		ID:      id,
		Path:    h.Path(),
		Kind:    h.Kind().String(),
		Locator: encoded,
	}); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.handles[id] = h
	s.mu.Unlock()
	return id, nil
}

func (s *Server) lookupHandle(id string) (*element.Handle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.handles[id]
	if !exists {
		return nil, fmt.Errorf("unknown handle %q: %w", id, element.ErrNotFound)
	}
	return h, nil
}

// dropHandles forgets the in-memory handles of one document. The persisted
// records stay; reopening the document restores them.
func (s *Server) dropHandles(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, h := range s.handles {
		if h.Path() == path {
			delete(s.handles, id)
		}
	}
}
