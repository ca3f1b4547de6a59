package main

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/emmanuel-ferdman/roslyn/internal/server"
)

var (
	serveLogfile   string
	serveVerbosity int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the LSP server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		var path *string
		if serveLogfile != "" {
			path = &serveLogfile
		}
		commonlog.Configure(serveVerbosity, path)

		srv, err := server.NewServer()
		if err != nil {
			log.Fatalf("failed to create server: %v", err)
		}
		return srv.RunStdio()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveLogfile, "logfile", "", "path to log file")
	serveCmd.Flags().IntVar(&serveVerbosity, "verbose", 1, "log verbosity")
}
