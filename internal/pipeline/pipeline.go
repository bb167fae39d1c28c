package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hawthorn-media/keyword-cli/internal/artifacts"
	"github.com/hawthorn-media/keyword-cli/internal/config"
	"github.com/hawthorn-media/keyword-cli/internal/model"
	"github.com/hawthorn-media/keyword-cli/internal/store"
	"github.com/hawthorn-media/keyword-cli/pkg/dataforseo"
)

// Stage snapshot file names inside a run directory.
const (
	SeedSnapshot       = "seed_keywords.csv"
	EnrichedSnapshot   = "enriched_keywords.csv"
	CompetitorSnapshot = "competitor_keywords.csv"
	FilteredSnapshot   = "filtered_keywords.csv"
	ScoredSnapshot     = "scored_keywords.csv"
)

// Pipeline runs the full research flow stage by stage: discovery,
// enrichment, competitor analysis, filter+cluster, seasonality+scoring,
// recommendations and campaign export. Each stage writes its snapshot
// before the next starts, so a failed run keeps everything produced so
// far.
type Pipeline struct {
	cfg    *config.Config
	client *dataforseo.Client
	ledger *store.Store
	logger *zap.Logger
}

// New builds a pipeline over a shared API client and run ledger.
func New(cfg *config.Config, client *dataforseo.Client, ledger *store.Store) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		client: client,
		ledger: ledger,
		logger: zap.L().With(zap.String("stage", "pipeline")),
	}
}

// Run executes all stages sequentially. The returned run record is
// always non-nil once the ledger row exists, even on failure.
func (p *Pipeline) Run(ctx context.Context) (*model.Run, error) {
	started := time.Now().UTC()
	run := &model.Run{
		ID:        uuid.NewString(),
		Dir:       filepath.Join(p.cfg.Export.OutputDir, started.Format("20060102_150405")),
		Status:    model.RunStatusRunning,
		StartedAt: started,
	}
	if err := p.ledger.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	p.logger.Info("run started",
		zap.String("run_id", run.ID),
		zap.String("dir", run.Dir),
	)

	if err := p.execute(ctx, run); err != nil {
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
		run.CompletedAt = time.Now().UTC()
		if uerr := p.ledger.UpdateRun(ctx, run); uerr != nil {
			p.logger.Error("failed to record run failure", zap.Error(uerr))
		}
		return run, err
	}

	run.Status = model.RunStatusComplete
	run.CompletedAt = time.Now().UTC()
	if err := p.ledger.UpdateRun(ctx, run); err != nil {
		return run, err
	}
	p.logger.Info("run complete",
		zap.String("run_id", run.ID),
		zap.Duration("elapsed", run.CompletedAt.Sub(run.StartedAt)),
	)
	return run, nil
}

func (p *Pipeline) execute(ctx context.Context, run *model.Run) error {
	// Stage 1: discovery.
	seeds, err := NewSeedGenerator(p.client, p.cfg.Seed, p.cfg.Target).Generate(ctx)
	if err != nil {
		return err
	}
	run.SeedCount = len(seeds)
	if err := artifacts.WriteKeywordCSV(filepath.Join(run.Dir, SeedSnapshot), seeds); err != nil {
		return err
	}

	// Stage 2: enrichment.
	enriched, err := NewEnricher(p.client, p.cfg.Target).Enrich(ctx, seeds)
	if err != nil {
		return err
	}
	run.EnrichCount = len(enriched)
	if err := artifacts.WriteKeywordCSV(filepath.Join(run.Dir, EnrichedSnapshot), enriched); err != nil {
		return err
	}

	// Stage 3: competitor analysis.
	withCompetitors, analysis, err := NewCompetitorAnalyzer(p.client, p.cfg.Seed, p.cfg.Target).Analyze(ctx, enriched)
	if err != nil {
		return err
	}
	if err := artifacts.WriteKeywordCSV(filepath.Join(run.Dir, CompetitorSnapshot), withCompetitors); err != nil {
		return err
	}
	if err := artifacts.WriteJSON(filepath.Join(run.Dir, "competitor_metrics.json"), analysis); err != nil {
		return err
	}

	// Stage 4: filter and cluster.
	filter, err := NewFilter(p.cfg.Filters)
	if err != nil {
		return err
	}
	filtered, _, err := filter.Apply(withCompetitors)
	if err != nil {
		return err
	}
	filtered = NewClusterer(p.cfg.Clustering).Cluster(filtered)
	run.FilterCount = len(filtered)
	if err := artifacts.WriteKeywordCSV(filepath.Join(run.Dir, FilteredSnapshot), filtered); err != nil {
		return err
	}

	// Stage 5: seasonality and scoring.
	scored := NewScorer(p.cfg.Scoring).Score(filtered)
	run.ScoredCount = len(scored)
	if err := artifacts.WriteKeywordCSV(filepath.Join(run.Dir, ScoredSnapshot), scored); err != nil {
		return err
	}

	rec := BuildRecommendations(scored, p.cfg.Campaign.MinGroupKeywords)
	if err := artifacts.WriteJSON(filepath.Join(run.Dir, "campaign_recommendations.json"), rec); err != nil {
		return err
	}

	// Stage 6: campaign export.
	exporter, err := NewExporter(p.cfg.Export, p.cfg.Campaign, p.cfg.Filters)
	if err != nil {
		return err
	}
	_, ready, err := exporter.Export(run.Dir, scored)
	if err != nil {
		return err
	}
	run.ExportCount = len(ready)
	return nil
}
