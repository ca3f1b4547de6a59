package server

import (
	"errors"
	"sort"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/emmanuel-ferdman/roslyn/internal/lang"
)

func TestEveryAliasHasAGoRegistration(t *testing.T) {
	for alias, method := range commandAliases {
		if _, found := registry[registrationKey{method: method, language: "go"}]; !found {
			t.Errorf("alias %s routes to %s, which has no handler", alias, method)
		}
	}
}

func TestCommandNamesAreSortedAliases(t *testing.T) {
	names := commandNames()
	if len(names) != len(commandAliases) {
		t.Fatalf("advertised %d commands, have %d aliases", len(names), len(commandAliases))
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("command names not sorted: %v", names)
	}
	for _, name := range names {
		if _, known := commandAliases[name]; !known {
			t.Errorf("advertised command %s has no alias entry", name)
		}
	}
}

func TestParsePrototypeFlags(t *testing.T) {
	flags, err := parsePrototypeFlags([]string{"paramTypes", "returnType"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if flags != lang.ProtoParamTypes|lang.ProtoReturnType {
		t.Errorf("flags = %b", flags)
	}

	flags, err = parsePrototypeFlags(nil)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if flags != 0 {
		t.Errorf("empty list gave flags %b", flags)
	}

	if _, err := parsePrototypeFlags([]string{"bogus"}); !errors.Is(err, lang.ErrInvalidArgument) {
		t.Errorf("unknown flag error = %v, want ErrInvalidArgument", err)
	}
}

func TestURIToPath(t *testing.T) {
	path, err := uriToPath("file:///home/dev/main.go")
	if err != nil {
		t.Fatalf("uriToPath failed: %v", err)
	}
	if path != "/home/dev/main.go" {
		t.Errorf("path = %q", path)
	}

	if _, err := uriToPath("https://example.com/main.go"); err == nil {
		t.Error("expected error for non-file scheme")
	}
}

func TestRootPathPrefersURI(t *testing.T) {
	uri := protocol.URI("file:///workspace")
	legacy := "/legacy"

	root, err := rootPath(&protocol.InitializeParams{RootURI: &uri, RootPath: &legacy})
	if err != nil {
		t.Fatalf("rootPath failed: %v", err)
	}
	if root != "/workspace" {
		t.Errorf("root = %q, want /workspace", root)
	}

	root, err = rootPath(&protocol.InitializeParams{RootPath: &legacy})
	if err != nil {
		t.Fatalf("rootPath failed: %v", err)
	}
	if root != "/legacy" {
		t.Errorf("root = %q, want /legacy", root)
	}

	if _, err := rootPath(&protocol.InitializeParams{}); err == nil {
		t.Error("expected error when the client sends no root")
	}
}
