package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hawthorn-media/keyword-cli/internal/artifacts"
	"github.com/hawthorn-media/keyword-cli/internal/pipeline"
)

var (
	filterInput  string
	filterOutput string
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Filter and cluster an enriched keyword snapshot",
	Long:  "Applies the configured inclusion rules to a keyword CSV, clusters the survivors, and writes the filtered snapshot. Useful for re-filtering a past run without re-fetching.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		keywords, err := artifacts.ReadKeywordCSV(filterInput)
		if err != nil {
			return eris.Wrap(err, "read keyword snapshot")
		}

		f, err := pipeline.NewFilter(cfg.Filters)
		if err != nil {
			return err
		}
		kept, counts, err := f.Apply(keywords)
		if err != nil {
			return err
		}
		kept = pipeline.NewClusterer(cfg.Clustering).Cluster(kept)

		if err := artifacts.WriteKeywordCSV(filterOutput, kept); err != nil {
			return eris.Wrap(err, "write filtered snapshot")
		}

		zap.L().Info("filter complete",
			zap.Int("input", len(keywords)),
			zap.Int("kept", len(kept)),
			zap.String("output", filterOutput),
		)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RULE\tKEPT")
		for _, c := range counts {
			fmt.Fprintf(w, "%s\t%d/%d\n", c.Rule, c.Kept, len(keywords))
		}
		fmt.Fprintf(w, "all rules\t%d/%d\n", len(kept), len(keywords))
		return w.Flush()
	},
}

func init() {
	filterCmd.Flags().StringVar(&filterInput, "input", "", "enriched keyword CSV to filter (required)")
	filterCmd.Flags().StringVar(&filterOutput, "output", "filtered_keywords.csv", "path for the filtered CSV")
	_ = filterCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(filterCmd)
}
