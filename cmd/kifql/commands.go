package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aleksaelezovic/kifql/internal/filterspec"
	"github.com/aleksaelezovic/kifql/internal/graph"
	"github.com/aleksaelezovic/kifql/pkg/compiler"
	"github.com/aleksaelezovic/kifql/pkg/mapping/wikidata"
	"github.com/aleksaelezovic/kifql/pkg/model"
	"github.com/aleksaelezovic/kifql/pkg/server/results"
)

func newCompileCmd(a *app) *cobra.Command {
	spec := &filterspec.Spec{}
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Print the SPARQL query compiled for a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := spec.Filter()
			if err != nil {
				return err
			}
			rules, err := wikidata.Rules()
			if err != nil {
				return err
			}
			c := compiler.New(rules, compiler.WithLogger(a.logger))
			if err := c.Compile(f); err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), c.Query().String())
			return err
		},
	}
	bindFilterFlags(cmd, spec)
	return cmd
}

func newFilterCmd(a *app) *cobra.Command {
	spec := &filterspec.Spec{}
	var format string
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Print the statements matching a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := spec.Filter()
			if err != nil {
				return err
			}
			fmtr := results.Format(format)
			if _, err := fmtr.Format(nil); err != nil {
				return err
			}
			s, closeFn, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.GetTimeout())
			defer cancel()
			out := cmd.OutOrStdout()

			// Text is streamed; the other formats need every record.
			var records []model.Record
			n := 0
			err = s.Each(ctx, f, func(r model.Record) error {
				n++
				if fmtr == results.FormatText {
					_, err := out.Write(results.FormatRecordsText([]model.Record{r}))
					return err
				}
				records = append(records, r)
				return nil
			})
			if err != nil {
				return err
			}
			a.logger.Info("filter done", zap.Int("statements", n))
			if fmtr == results.FormatText {
				return nil
			}
			return results.Write(out, fmtr, records)
		},
	}
	bindFilterFlags(cmd, spec)
	cmd.Flags().StringVar(&format, "format", string(results.FormatText), "Output format: text, json, csv or tsv")
	return cmd
}

func newCountCmd(a *app) *cobra.Command {
	spec := &filterspec.Spec{}
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count the solutions of a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := spec.Filter()
			if err != nil {
				return err
			}
			s, closeFn, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.GetTimeout())
			defer cancel()
			n, err := s.Count(ctx, f)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
			return err
		},
	}
	bindFilterFlags(cmd, spec)
	return cmd
}

func newAskCmd(a *app) *cobra.Command {
	spec := &filterspec.Spec{}
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Report whether any statement matches a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := spec.Filter()
			if err != nil {
				return err
			}
			s, closeFn, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.GetTimeout())
			defer cancel()
			ok, err := s.Contains(ctx, f)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), ok)
			return err
		},
	}
	bindFilterFlags(cmd, spec)
	return cmd
}

func newLoadCmd(a *app) *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "load [file.nt ...]",
		Short: "Load N-Triples into the local graph",
		Long: `Loads N-Triples files into the local graph. With no file, or with "-",
reads standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.openGraph()
			if err != nil {
				return err
			}
			defer g.Close()

			if len(args) == 0 {
				args = []string{"-"}
			}
			total := 0
			for _, path := range args {
				n, err := loadFile(cmd, g, path, batch)
				if err != nil {
					return fmt.Errorf("failed to load %s: %w", path, err)
				}
				a.logger.Info("loaded", zap.String("file", path), zap.Int("triples", n))
				total += n
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "loaded %d triples\n", total)
			return err
		},
	}
	cmd.Flags().IntVar(&batch, "batch", graph.DefaultBatchSize, "Triples per transaction")
	return cmd
}

func loadFile(cmd *cobra.Command, g *graph.Graph, path string, batch int) (int, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return 0, err
		}
		defer f.Close()
		r = f
	}
	return g.Load(cmd.Context(), r, batch)
}
