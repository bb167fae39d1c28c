package pipeline

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/hawthorn-media/keyword-cli/internal/config"
	"github.com/hawthorn-media/keyword-cli/internal/model"
	"github.com/hawthorn-media/keyword-cli/internal/textstats"
)

// minClusterCorpus is the smallest keyword set worth clustering; below
// it everything lands in one cluster.
const minClusterCorpus = 10

const degenerateClusterName = "All Keywords"

// googleCategoryNames maps the provider's Google category codes to
// display names. Codes outside the map render as Category_<code>.
var googleCategoryNames = map[int]string{
	10012: "Personal Finance",
	10097: "Real Estate",
	11841: "Banking Services",
	12953: "Mortgage Services",
	12960: "Home Loans",
	13294: "Credit Services",
	13299: "Financial Planning",
}

// Clusterer groups keywords three ways: semantic TF-IDF/K-means
// clusters, category clusters from provider category codes, and
// difficulty tiers. Cluster IDs are scoped to one invocation.
type Clusterer struct {
	cfg    config.ClusteringConfig
	logger *zap.Logger
}

// NewClusterer builds a clusterer with the given tuning.
func NewClusterer(cfg config.ClusteringConfig) *Clusterer {
	return &Clusterer{
		cfg:    cfg,
		logger: zap.L().With(zap.String("stage", "cluster")),
	}
}

// Cluster annotates the keywords in place and returns them. It never
// fails: corpora too small or too uniform to cluster collapse into the
// single degenerate cluster.
func (c *Clusterer) Cluster(keywords []model.Keyword) []model.Keyword {
	c.semanticClusters(keywords)
	c.categoryClusters(keywords)
	c.difficultyTiers(keywords)
	return keywords
}

func (c *Clusterer) semanticClusters(keywords []model.Keyword) {
	n := len(keywords)
	if n < minClusterCorpus {
		c.degenerate(keywords, "corpus too small")
		return
	}

	docs := make([]string, n)
	for i := range keywords {
		docs[i] = keywords[i].Keyword
	}
	rows, terms := textstats.Vectorize(docs, textstats.VectorizerOptions{
		MaxFeatures: c.cfg.MaxFeatures,
	})
	if len(terms) == 0 {
		c.degenerate(keywords, "empty vocabulary")
		return
	}

	k := c.clusterCount(n)
	assign, centroids := textstats.KMeans(rows, k)

	names := make([]string, len(centroids))
	for i, centroid := range centroids {
		names[i] = clusterName(centroid, terms)
	}

	sizes := make([]int, len(centroids))
	for i := range keywords {
		keywords[i].ClusterID = assign[i]
		keywords[i].ClusterName = names[assign[i]]
		sizes[assign[i]]++
	}

	c.logger.Info("semantic clusters created", zap.Int("clusters", len(centroids)))
	for i, name := range names {
		c.logger.Info("cluster",
			zap.Int("cluster_id", i),
			zap.String("name", name),
			zap.Int("keywords", sizes[i]),
		)
	}
}

func (c *Clusterer) degenerate(keywords []model.Keyword, reason string) {
	for i := range keywords {
		keywords[i].ClusterID = 0
		keywords[i].ClusterName = degenerateClusterName
	}
	c.logger.Info("single cluster fallback",
		zap.String("reason", reason),
		zap.Int("keywords", len(keywords)),
	)
}

func (c *Clusterer) clusterCount(n int) int {
	perK := c.cfg.KeywordsPerK
	if perK <= 0 {
		perK = 5
	}
	minK := c.cfg.MinClusters
	if minK <= 0 {
		minK = 3
	}
	maxK := c.cfg.MaxClusters
	if maxK <= 0 {
		maxK = 20
	}

	k := n / perK
	if k > maxK {
		k = maxK
	}
	if k < minK {
		k = minK
	}
	return k
}

// clusterName joins the three heaviest centroid terms.
func clusterName(centroid []float64, terms []string) string {
	type weighted struct {
		term   string
		weight float64
	}
	ws := make([]weighted, len(terms))
	for i, t := range terms {
		ws[i] = weighted{term: t, weight: centroid[i]}
	}
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].weight != ws[j].weight {
			return ws[i].weight > ws[j].weight
		}
		return ws[i].term < ws[j].term
	})

	top := 3
	if len(ws) < top {
		top = len(ws)
	}
	name := ""
	for i := 0; i < top; i++ {
		if i > 0 {
			name += " + "
		}
		name += ws[i].term
	}
	return name
}

func (c *Clusterer) categoryClusters(keywords []model.Keyword) {
	dist := map[string]int{}
	for i := range keywords {
		keywords[i].CategoryCluster = primaryCategory(keywords[i].Categories)
		dist[keywords[i].CategoryCluster]++
	}
	c.logger.Info("category clusters created", zap.Int("categories", len(dist)))
}

// primaryCategory names the first category code, or the Uncategorized
// sentinel when the provider gave none.
func primaryCategory(categories []int) string {
	if len(categories) == 0 {
		return "Uncategorized"
	}
	code := categories[0]
	if name, ok := googleCategoryNames[code]; ok {
		return name
	}
	return fmt.Sprintf("Category_%d", code)
}

func (c *Clusterer) difficultyTiers(keywords []model.Keyword) {
	dist := map[model.DifficultyTier]int{}
	for i := range keywords {
		keywords[i].DifficultyTier = difficultyTier(keywords[i].Difficulty)
		dist[keywords[i].DifficultyTier]++
	}
	c.logger.Info("difficulty tiers created",
		zap.Int("easy", dist[model.DifficultyEasy]),
		zap.Int("medium", dist[model.DifficultyMedium]),
		zap.Int("hard", dist[model.DifficultyHard]),
	)
}

// difficultyTier buckets difficulty; unknown reads as Medium.
func difficultyTier(difficulty *float64) model.DifficultyTier {
	if difficulty == nil {
		return model.DifficultyMedium
	}
	switch {
	case *difficulty <= 30:
		return model.DifficultyEasy
	case *difficulty <= 60:
		return model.DifficultyMedium
	default:
		return model.DifficultyHard
	}
}
