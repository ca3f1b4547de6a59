package server

import (
	"fmt"
	"net/url"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// uriToPath converts a file URI into an absolute filesystem path. Paths are
// the store's document keys.
func uriToPath(uri protocol.URI) (string, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("failed to parse uri %q: %w", uri, err)
	}
	if parsed.Scheme != "" && parsed.Scheme != "file" {
		return "", fmt.Errorf("unsupported uri scheme %q", parsed.Scheme)
	}
	return parsed.Path, nil
}

// rootPath extracts the workspace root from the initialize params,
// preferring RootURI over the deprecated RootPath.
func rootPath(params *protocol.InitializeParams) (string, error) {
	if params.RootURI != nil {
		return uriToPath(*params.RootURI)
	}
	if params.RootPath != nil {
		return *params.RootPath, nil
	}
	return "", fmt.Errorf("client sent no workspace root")
}
