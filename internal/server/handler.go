package server

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/emmanuel-ferdman/roslyn/internal/config"
	"github.com/emmanuel-ferdman/roslyn/internal/element"
	"github.com/emmanuel-ferdman/roslyn/internal/journal"
	"github.com/emmanuel-ferdman/roslyn/internal/lang"
	"github.com/emmanuel-ferdman/roslyn/internal/store"
)

func (s *Server) initialize(
	glspCtx *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	root, err := rootPath(params)
	if err != nil {
		return nil, err
	}
	s.root = root

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyInitializationOptions(params.InitializationOptions); err != nil {
		return nil, err
	}
	s.cfg = cfg

	journalPath, err := cfg.ResolveJournalPath(root)
	if err != nil {
		return nil, err
	}
	s.journal, err = journal.Open(journalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	retention := time.Duration(cfg.EditRetentionDays) * 24 * time.Hour
	s.journal.StartPruning(time.Hour, retention)

	s.policy = lang.NewGoPolicy()
	s.store = store.NewStore(store.Config{
		Policy:   s.policy,
		Provider: configProvider{cfg: cfg},
		Recorder: s.journal,
	})

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
	}
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: commandNames(),
	}

	s.log.Infof("initialized in %s", root)
	return protocol.InitializeResult{
		Capabilities: capabilities,
	}, nil
}

func (s *Server) initialized(
	glspCtx *glsp.Context,
	params *protocol.InitializedParams,
) error {
	s.log.Info("client initialized")
	return nil
}

func (s *Server) textDocumentDidOpen(
	glspCtx *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}

	file, err := s.store.Open(path, []byte(params.TextDocument.Text))
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}

	s.restoreHandles(file)
	return nil
}

func (s *Server) textDocumentDidChange(
	glspCtx *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}

	file, exists := s.store.Get(path)
	if !exists {
		return fmt.Errorf("document not found: %s", path)
	}

	for _, rawChange := range params.ContentChanges {
		change, ok := rawChange.(protocol.TextDocumentContentChangeEventWhole)
		if !ok {
			return fmt.Errorf("only full document sync is supported")
		}
		err := file.PerformEdit(context.Background(), func(snap *store.Snapshot) ([]byte, error) {
			return []byte(change.Text), nil
		})
		if err != nil {
			return fmt.Errorf("failed to apply change: %w", err)
		}
	}
	return nil
}

func (s *Server) textDocumentDidClose(
	glspCtx *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}

	s.dropHandles(path)
	if err := s.store.Close(path); err != nil {
		return fmt.Errorf("failed to close document: %w", err)
	}
	return nil
}

func (s *Server) shutdown(glspCtx *glsp.Context) error {
	s.log.Info("shutdown")

	var errs []error
	if s.store != nil {
		if err := s.store.CloseAll(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.policy != nil {
		if err := s.policy.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// restoreHandles rebuilds the persisted handles of a freshly opened
// document. Records that no longer decode are skipped; whether a restored
// handle still resolves is the caller's question to ask via IsValid.
func (s *Server) restoreHandles(file *store.File) {
	records, err := s.journal.LoadHandles(file.Path())
	if err != nil {
		s.log.Errorf("failed to load handles for %s: %s", file.Path(), err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		var loc element.Locator
		if err := loc.UnmarshalBinary(rec.Locator); err != nil {
			s.log.Warningf("skipping handle %s: bad locator", rec.ID)
			continue
		}
		kind, err := lang.ParseKind(rec.Kind)
		if err != nil {
			s.log.Warningf("skipping handle %s: %s", rec.ID, err.Error())
			continue
		}
		stamp, err := ksuid.Parse(rec.ID)
		if err != nil {
			s.log.Warningf("skipping handle %s: bad stamp", rec.ID)
			continue
		}
		s.handles[rec.ID] = element.Restore(file, s.store, loc, kind, stamp)
	}
}
