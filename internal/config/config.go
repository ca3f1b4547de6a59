package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/emmanuel-ferdman/roslyn/internal/format"
)

// Config is the server configuration: a TOML file in the workspace, merged
// with whatever the client sends as LSP initialization options. Client
// options win over the file, the file wins over defaults.
type Config struct {
	JournalPath        string `toml:"journal_path"         json:"journalPath"`
	TabSize            uint32 `toml:"tab_size"             json:"tabSize"`
	NewlineStyle       string `toml:"newline_style"        json:"newlineStyle"`
	InsertFinalNewline bool   `toml:"insert_final_newline" json:"insertFinalNewline"`
	EditRetentionDays  int    `toml:"edit_retention_days"  json:"editRetentionDays"`
}

// FileName is the workspace configuration file looked up under the root.
const FileName = "roslyn.toml"

// StateDir is the dot-directory keeping server state inside a workspace.
const StateDir = ".roslyn"

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		TabSize:           4,
		NewlineStyle:      format.NewlineLF,
		EditRetentionDays: 30,
	}
}

// Load reads the workspace configuration file under root, falling back to
// defaults when the file does not exist.
func Load(root string) (Config, error) {
	cfg := Default()

	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyInitializationOptions overlays the client's initialization options.
// The options arrive as already-decoded JSON of unknown shape; they are
// round-tripped through encoding/json, so only fields present in the
// options overwrite the config.
func (c *Config) ApplyInitializationOptions(raw any) error {
	if raw == nil {
		return nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode initialization options: %w", err)
	}
	if err := json.Unmarshal(encoded, c); err != nil {
		return fmt.Errorf("failed to decode initialization options: %w", err)
	}
	return nil
}

// FormattingOptions renders the configured formatting defaults.
func (c Config) FormattingOptions() format.Options {
	opts := format.Options{
		TabSize:            c.TabSize,
		NewlineStyle:       c.NewlineStyle,
		InsertFinalNewline: c.InsertFinalNewline,
	}
	if opts.TabSize == 0 {
		opts.TabSize = format.DefaultOptions().TabSize
	}
	if opts.NewlineStyle == "" {
		opts.NewlineStyle = format.DefaultOptions().NewlineStyle
	}
	return opts
}

// ResolveJournalPath returns the configured journal location, defaulting to
// the workspace state directory. The directory is created when missing.
func (c Config) ResolveJournalPath(root string) (string, error) {
	if c.JournalPath != "" {
		return c.JournalPath, nil
	}
	dir := filepath.Join(root, StateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	return filepath.Join(dir, "journal.db"), nil
}
