package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/kifql/pkg/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve filters over HTTP",
		Long: `Starts an HTTP server answering filters given as query parameters:

  /filter   statements matching the filter (JSON, CSV, TSV or text by Accept header)
  /count    number of solutions
  /ask      whether any statement matches
  /compile  the compiled SPARQL query`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, closeFn, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.NewServer(s, addr, a.logger).Start(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "Address to listen on")
	return cmd
}
