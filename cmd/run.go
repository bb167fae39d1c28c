package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hawthorn-media/keyword-cli/internal/pipeline"
)

var (
	runBusinessTerms    []string
	runBaseTerms        []string
	runCompetitors      []string
	runOutputDir        string
	runIdeasLimit       int
	runSuggestionsLimit int
	runRelatedLimit     int
	runCompetitorLimit  int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full research pipeline",
	Long:  "Runs discovery, enrichment, competitor analysis, filtering, scoring and campaign export end to end, writing every stage snapshot into a timestamped run directory.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if len(runBusinessTerms) > 0 {
			cfg.Seed.BusinessTerms = runBusinessTerms
		}
		if len(runBaseTerms) > 0 {
			cfg.Seed.BaseTerms = runBaseTerms
		}
		if len(runCompetitors) > 0 {
			cfg.Seed.CompetitorDomains = runCompetitors
		}
		if runOutputDir != "" {
			cfg.Export.OutputDir = runOutputDir
		}
		if runIdeasLimit > 0 {
			cfg.Seed.IdeasLimit = runIdeasLimit
		}
		if runSuggestionsLimit > 0 {
			cfg.Seed.SuggestionsLimit = runSuggestionsLimit
		}
		if runRelatedLimit > 0 {
			cfg.Seed.RelatedLimit = runRelatedLimit
		}
		if runCompetitorLimit > 0 {
			cfg.Seed.CompetitorLimit = runCompetitorLimit
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		client, err := initClient()
		if err != nil {
			return err
		}
		ledger, err := initStore()
		if err != nil {
			return err
		}
		defer ledger.Close() //nolint:errcheck

		run, err := pipeline.New(cfg, client, ledger).Run(ctx)
		if err != nil {
			if run != nil {
				zap.L().Error("run failed",
					zap.String("run_id", run.ID),
					zap.String("dir", run.Dir),
					zap.Error(err),
				)
			}
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("research complete",
			zap.String("run_id", run.ID),
			zap.String("dir", run.Dir),
			zap.Int("seeds", run.SeedCount),
			zap.Int("filtered", run.FilterCount),
			zap.Int("exported", run.ExportCount),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runBusinessTerms, "business-terms", nil, "business terms to seed discovery (overrides config)")
	runCmd.Flags().StringSliceVar(&runBaseTerms, "base-terms", nil, "base terms for related-keyword expansion (overrides config)")
	runCmd.Flags().StringSliceVar(&runCompetitors, "competitors", nil, "competitor domains (overrides config)")
	runCmd.Flags().StringVar(&runOutputDir, "output-dir", "", "directory for run artifacts (overrides config)")
	runCmd.Flags().IntVar(&runIdeasLimit, "ideas-limit", 0, "max keywords per ideas call (overrides config)")
	runCmd.Flags().IntVar(&runSuggestionsLimit, "suggestions-limit", 0, "max keywords per suggestions call (overrides config)")
	runCmd.Flags().IntVar(&runRelatedLimit, "related-limit", 0, "max keywords per related call (overrides config)")
	runCmd.Flags().IntVar(&runCompetitorLimit, "competitor-limit", 0, "max keywords pulled per competitor domain (overrides config)")
	rootCmd.AddCommand(runCmd)
}
