package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/emmanuel-ferdman/roslyn/internal/element"
	"github.com/emmanuel-ferdman/roslyn/internal/format"
	"github.com/emmanuel-ferdman/roslyn/internal/journal"
	"github.com/emmanuel-ferdman/roslyn/internal/lang"
	"github.com/emmanuel-ferdman/roslyn/internal/store"
)

// commandAliases maps the wire-level command names to canonical method
// identifiers. Handlers are registered under the method identifier plus the
// grammar they serve, never under the alias.
var commandAliases = map[string]string{
	"roslyn.element.create":    "element/create",
	"roslyn.element.fromName":  "element/fromName",
	"roslyn.element.list":      "element/list",
	"roslyn.element.isValid":   "element/isValid",
	"roslyn.element.name":      "element/name",
	"roslyn.element.fullName":  "element/fullName",
	"roslyn.element.setName":   "element/setName",
	"roslyn.element.rename":    "element/rename",
	"roslyn.element.delete":    "element/delete",
	"roslyn.element.prototype": "element/prototype",
	"roslyn.element.position":  "element/position",
}

type registrationKey struct {
	method   string
	language string
}

// registration is one routable operation: the decoded parameter shape and
// the handler body.
type registration struct {
	params func() any
	run    func(s *Server, glspCtx *glsp.Context, params any) (any, error)
}

var registry = map[registrationKey]registration{}

func register(method, language string, params func() any, run func(*Server, *glsp.Context, any) (any, error)) {
	registry[registrationKey{method: method, language: language}] = registration{params: params, run: run}
}

// commandNames lists the wire-level commands advertised in the initialize
// response.
func commandNames() []string {
	names := make([]string, 0, len(commandAliases))
	for name := range commandAliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) workspaceExecuteCommand(
	glspCtx *glsp.Context,
	params *protocol.ExecuteCommandParams,
) (any, error) {
	method, known := commandAliases[params.Command]
	if !known {
		return nil, fmt.Errorf("unknown command %q", params.Command)
	}

	reg, found := registry[registrationKey{method: method, language: s.policy.ID()}]
	if !found {
		return nil, fmt.Errorf("no handler for %s (%s)", method, s.policy.ID())
	}

	decoded := reg.params()
	if decoded != nil {
		if len(params.Arguments) != 1 {
			return nil, fmt.Errorf("%s expects exactly one argument object", params.Command)
		}
		raw, err := json.Marshal(params.Arguments[0])
		if err != nil {
			return nil, fmt.Errorf("failed to encode arguments: %w", err)
		}
		if err := json.Unmarshal(raw, decoded); err != nil {
			return nil, fmt.Errorf("failed to decode arguments for %s: %w", params.Command, err)
		}
	}

	return reg.run(s, glspCtx, decoded)
}

type documentPositionParams struct {
	URI       string `json:"uri"`
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

type fromNameParams struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type documentParams struct {
	URI string `json:"uri"`
}

type handleParams struct {
	ID string `json:"id"`
}

type setNameParams struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type renameParams struct {
	ID      string `json:"id"`
	NewName string `json:"newName"`
}

type prototypeParams struct {
	ID    string   `json:"id"`
	Flags []string `json:"flags"`
}

type positionParams struct {
	ID   string `json:"id"`
	Part string `json:"part"`
}

type handleResult struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Name string `json:"name"`
}

type elementInfo struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Prototype string `json:"prototype"`
}

type pointResult struct {
	Row    uint32 `json:"row"`
	Column uint32 `json:"column"`
}

type positionResult struct {
	HasPart bool         `json:"hasPart"`
	Start   *pointResult `json:"start,omitempty"`
	End     *pointResult `json:"end,omitempty"`
}

var prototypeFlagNames = map[string]lang.PrototypeFlags{
	"paramTypes":  lang.ProtoParamTypes,
	"paramNames":  lang.ProtoParamNames,
	"returnType":  lang.ProtoReturnType,
	"receiver":    lang.ProtoReceiver,
	"packageName": lang.ProtoPackageName,
}

func parsePrototypeFlags(names []string) (lang.PrototypeFlags, error) {
	var flags lang.PrototypeFlags
	for _, name := range names {
		flag, known := prototypeFlagNames[name]
		if !known {
			return 0, fmt.Errorf("unknown prototype flag %q: %w", name, lang.ErrInvalidArgument)
		}
		flags |= flag
	}
	return flags, nil
}

func (s *Server) fileFor(uri string) (*store.File, error) {
	path, err := uriToPath(uri)
	if err != nil {
		return nil, err
	}
	file, exists := s.store.Get(path)
	if !exists {
		return nil, fmt.Errorf("document not found: %s", path)
	}
	return file, nil
}

func init() {
	register("element/create", "go",
		func() any { return &documentPositionParams{} },
		func(s *Server, glspCtx *glsp.Context, params any) (any, error) {
			p := params.(*documentPositionParams)
			file, err := s.fileFor(p.URI)
			if err != nil {
				return nil, err
			}
			h, err := element.AtPosition(file, s.store, p.Line, p.Character)
			if err != nil {
				return nil, err
			}
			return s.handleResultFor(h)
		})

	register("element/fromName", "go",
		func() any { return &fromNameParams{} },
		func(s *Server, glspCtx *glsp.Context, params any) (any, error) {
			p := params.(*fromNameParams)
			file, err := s.fileFor(p.URI)
			if err != nil {
				return nil, err
			}
			kind := lang.KindUnknown
			if p.Kind != "" {
				if kind, err = lang.ParseKind(p.Kind); err != nil {
					return nil, fmt.Errorf("%s: %w", err.Error(), lang.ErrInvalidArgument)
				}
			}
			h, err := element.Find(file, s.store, p.Name, kind)
			if err != nil {
				return nil, err
			}
			return s.handleResultFor(h)
		})

	register("element/list", "go",
		func() any { return &documentParams{} },
		func(s *Server, glspCtx *glsp.Context, params any) (any, error) {
			p := params.(*documentParams)
			file, err := s.fileFor(p.URI)
			if err != nil {
				return nil, err
			}
			handles, err := element.TopLevel(file, s.store)
			if err != nil {
				return nil, err
			}
			infos := make([]elementInfo, 0, len(handles))
			for _, h := range handles {
				name, err := h.Name()
				if err != nil {
					continue
				}
				proto, err := h.Prototype(lang.ProtoDefault)
				if err != nil {
					proto = ""
				}
				infos = append(infos, elementInfo{
					Kind:      h.Kind().String(),
					Name:      name,
					Prototype: proto,
				})
			}
			return infos, nil
		})

	register("element/isValid", "go",
		func() any { return &handleParams{} },
		func(s *Server, glspCtx *glsp.Context, params any) (any, error) {
			p := params.(*handleParams)
			h, err := s.lookupHandle(p.ID)
			if err != nil {
				return nil, err
			}
			return map[string]bool{"valid": h.IsValid()}, nil
		})

	register("element/name", "go",
		func() any { return &handleParams{} },
		func(s *Server, glspCtx *glsp.Context, params any) (any, error) {
			p := params.(*handleParams)
			h, err := s.lookupHandle(p.ID)
			if err != nil {
				return nil, err
			}
			name, err := h.Name()
			if err != nil {
				return nil, err
			}
			return map[string]string{"name": name}, nil
		})

	register("element/fullName", "go",
		func() any { return &handleParams{} },
		func(s *Server, glspCtx *glsp.Context, params any) (any, error) {
			p := params.(*handleParams)
			h, err := s.lookupHandle(p.ID)
			if err != nil {
				return nil, err
			}
			fullName, err := h.FullName()
			if err != nil {
				return nil, err
			}
			return map[string]string{"fullName": fullName}, nil
		})

	register("element/setName", "go",
		func() any { return &setNameParams{} },
		func(s *Server, glspCtx *glsp.Context, params any) (any, error) {
			p := params.(*setNameParams)
			h, err := s.lookupHandle(p.ID)
			if err != nil {
				return nil, err
			}
			if err := h.SetName(context.Background(), p.Name); err != nil {
				return nil, err
			}
			return nil, s.repersistHandle(p.ID, h)
		})

	register("element/rename", "go",
		func() any { return &renameParams{} },
		func(s *Server, glspCtx *glsp.Context, params any) (any, error) {
			p := params.(*renameParams)
			h, err := s.lookupHandle(p.ID)
			if err != nil {
				return nil, err
			}
			if err := h.RenameSymbol(context.Background(), p.NewName); err != nil {
				return nil, err
			}
			return nil, s.repersistHandle(p.ID, h)
		})

	register("element/delete", "go",
		func() any { return &handleParams{} },
		func(s *Server, glspCtx *glsp.Context, params any) (any, error) {
			p := params.(*handleParams)
			h, err := s.lookupHandle(p.ID)
			if err != nil {
				return nil, err
			}
			if err := h.Delete(context.Background()); err != nil {
				return nil, err
			}
			// The in-memory handle stays registered and permanently
			// invalid; only the persisted record goes away.
			return nil, s.journal.DeleteHandle(p.ID)
		})

	register("element/prototype", "go",
		func() any { return &prototypeParams{} },
		func(s *Server, glspCtx *glsp.Context, params any) (any, error) {
			p := params.(*prototypeParams)
			h, err := s.lookupHandle(p.ID)
			if err != nil {
				return nil, err
			}
			flags, err := parsePrototypeFlags(p.Flags)
			if err != nil {
				return nil, err
			}
			proto, err := h.Prototype(flags)
			if err != nil {
				return nil, err
			}
			return map[string]string{"prototype": proto}, nil
		})

	register("element/position", "go",
		func() any { return &positionParams{} },
		func(s *Server, glspCtx *glsp.Context, params any) (any, error) {
			p := params.(*positionParams)
			h, err := s.lookupHandle(p.ID)
			if err != nil {
				return nil, err
			}
			part, err := format.ParsePart(p.Part)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", err.Error(), lang.ErrInvalidArgument)
			}

			ctx := context.Background()
			start, hasStart, err := h.StartPoint(ctx, part)
			if err != nil {
				return nil, err
			}
			end, hasEnd, err := h.EndPoint(ctx, part)
			if err != nil {
				return nil, err
			}

			result := positionResult{HasPart: hasStart && hasEnd}
			if result.HasPart {
				result.Start = &pointResult{Row: start.Row, Column: start.Column}
				result.End = &pointResult{Row: end.Row, Column: end.Column}
			}
			return result, nil
		})
}

func (s *Server) handleResultFor(h *element.Handle) (any, error) {
	id, err := s.registerHandle(h)
	if err != nil {
		return nil, err
	}
	name, err := h.Name()
	if err != nil {
		return nil, err
	}
	return handleResult{ID: id, Kind: h.Kind().String(), Name: name}, nil
}

// repersistHandle rewrites the stored locator after an operation that
// re-captured it (setName, rename).
func (s *Server) repersistHandle(id string, h *element.Handle) error {
	encoded, err := h.Locator().MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode locator: %w", err)
	}
	return s.journal.SaveHandle(journal.HandleRecord{
		ID:      id,
		Path:    h.Path(),
		Kind:    h.Kind().String(),
		Locator: encoded,
	})
}
