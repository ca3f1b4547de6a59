package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/emmanuel-ferdman/roslyn/internal/element"
	"github.com/emmanuel-ferdman/roslyn/internal/lang"
	"github.com/emmanuel-ferdman/roslyn/internal/store"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.go>",
	Short: "Print the addressable top-level constructs of one file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		commonlog.Configure(0, nil)

		path := args[0]
		text, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		policy := lang.NewGoPolicy()
		defer policy.Close()

		docs := store.NewStore(store.Config{Policy: policy})
		defer docs.CloseAll()

		file, err := docs.Open(path, text)
		if err != nil {
			return err
		}

		handles, err := element.TopLevel(file, docs)
		if err != nil {
			return err
		}
		for _, h := range handles {
			name, err := h.Name()
			if err != nil {
				continue
			}
			proto, err := h.Prototype(lang.ProtoDefault)
			if err != nil {
				proto = name
			}
			fmt.Printf("%-10s %s\n", h.Kind(), proto)
		}
		return nil
	},
}
