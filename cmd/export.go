package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hawthorn-media/keyword-cli/internal/artifacts"
	"github.com/hawthorn-media/keyword-cli/internal/pipeline"
)

var (
	exportInput  string
	exportOutDir string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export campaign files from a scored snapshot",
	Long:  "Builds Google Ads and Microsoft Ads upload files, negative keyword list, campaign recommendations and the export summary from a scored keyword CSV.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		scored, err := artifacts.ReadKeywordCSV(exportInput)
		if err != nil {
			return eris.Wrap(err, "read scored snapshot")
		}

		exporter, err := pipeline.NewExporter(cfg.Export, cfg.Campaign, cfg.Filters)
		if err != nil {
			return err
		}
		summary, ready, err := exporter.Export(exportOutDir, scored)
		if err != nil {
			return eris.Wrap(err, "campaign export")
		}

		rec := pipeline.BuildRecommendations(ready, cfg.Campaign.MinGroupKeywords)
		if err := artifacts.WriteJSON(exportOutDir+"/campaign_recommendations.json", rec); err != nil {
			return eris.Wrap(err, "write recommendations")
		}

		zap.L().Info("export complete",
			zap.Int("campaign_keywords", len(ready)),
			zap.String("dir", exportOutDir),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportInput, "input", "", "scored keyword CSV to export (required)")
	exportCmd.Flags().StringVar(&exportOutDir, "output-dir", "export", "directory for campaign files")
	_ = exportCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(exportCmd)
}
