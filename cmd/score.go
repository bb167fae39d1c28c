package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hawthorn-media/keyword-cli/internal/artifacts"
	"github.com/hawthorn-media/keyword-cli/internal/pipeline"
)

var (
	scoreInput  string
	scoreOutput string
	scoreTop    int
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a filtered keyword snapshot",
	Long:  "Runs seasonality analysis and weighted opportunity scoring over a keyword CSV and writes the scored snapshot.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		keywords, err := artifacts.ReadKeywordCSV(scoreInput)
		if err != nil {
			return eris.Wrap(err, "read keyword snapshot")
		}
		if len(keywords) == 0 {
			return pipeline.ErrNoKeywords
		}

		scored := pipeline.NewScorer(cfg.Scoring).Score(keywords)
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].TotalScore > scored[j].TotalScore
		})

		if err := artifacts.WriteKeywordCSV(scoreOutput, scored); err != nil {
			return eris.Wrap(err, "write scored snapshot")
		}

		zap.L().Info("scoring complete",
			zap.Int("keywords", len(scored)),
			zap.String("output", scoreOutput),
		)

		top := scoreTop
		if top > len(scored) {
			top = len(scored)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEYWORD\tSCORE\tTIER\tVOLUME\tPATTERN")
		for i := 0; i < top; i++ {
			k := scored[i]
			fmt.Fprintf(w, "%s\t%.2f\t%s\t%d\t%s\n",
				k.Keyword, k.TotalScore, k.PriorityTier, k.SearchVolume, k.SeasonalPattern)
		}
		return w.Flush()
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreInput, "input", "", "filtered keyword CSV to score (required)")
	scoreCmd.Flags().StringVar(&scoreOutput, "output", "scored_keywords.csv", "path for the scored CSV")
	scoreCmd.Flags().IntVar(&scoreTop, "top", 20, "number of top keywords to print")
	_ = scoreCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(scoreCmd)
}
