// Command kifql compiles statement filters into SPARQL and runs them against
// a local graph or a remote SPARQL endpoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aleksaelezovic/kifql/internal/config"
)

// app carries the global flags and what PersistentPreRunE builds from them.
type app struct {
	configPath string
	verbose    bool
	endpoint   string
	data       string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "kifql",
		Short: "Statement filters over Wikidata-style RDF",
		Long: `kifql compiles statement filters into SPARQL queries.

Filters select statements by subject, property and value. They run against
a local graph loaded from N-Triples or against a SPARQL endpoint.

Examples:
  kifql load dump.nt
  kifql filter --subject Q42 --property P31
  kifql compile --has P31=Q5 --property P1559 --language en
  kifql count --property P31 --rank deprecated --backend sparql`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "kifql.yaml", "Configuration file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&a.endpoint, "endpoint", "", "SPARQL endpoint (implies --backend sparql)")
	flags.StringVar(&a.data, "data", "", "Local graph directory (default from config)")
	flags.String("backend", "", "Backend: local or sparql (default from config)")

	root.AddCommand(
		newCompileCmd(a),
		newFilterCmd(a),
		newCountCmd(a),
		newAskCmd(a),
		newLoadCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup loads the configuration, applies flag overrides and builds the
// logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
		cfg.Backend = backend
	}
	if a.endpoint != "" {
		cfg.Endpoint = a.endpoint
		cfg.Backend = config.BackendSPARQL
	}
	if a.data != "" {
		cfg.Data = a.data
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(cfg.GetLogLevel())
	if a.verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	a.logger, err = zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
