package config

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is built once at
// process start and passed explicitly into every component constructor.
type Config struct {
	DataForSEO DataForSEOConfig `yaml:"dataforseo" mapstructure:"dataforseo"`
	Target     TargetConfig     `yaml:"target" mapstructure:"target"`
	Seed       SeedConfig       `yaml:"seed" mapstructure:"seed"`
	Filters    FilterConfig     `yaml:"filters" mapstructure:"filters"`
	Clustering ClusteringConfig `yaml:"clustering" mapstructure:"clustering"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Campaign   CampaignConfig   `yaml:"campaign" mapstructure:"campaign"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DataForSEOConfig holds DataForSEO Labs API credentials and client tuning.
type DataForSEOConfig struct {
	Login       string  `yaml:"login" mapstructure:"login"`
	Password    string  `yaml:"password" mapstructure:"password"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per minute
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries     int     `yaml:"retries" mapstructure:"retries"`
}

// TargetConfig selects the market the research targets.
type TargetConfig struct {
	LocationCode int    `yaml:"location_code" mapstructure:"location_code"`
	LanguageCode string `yaml:"language_code" mapstructure:"language_code"`
}

// SeedConfig configures the keyword discovery stage.
type SeedConfig struct {
	BusinessTerms       []string `yaml:"business_terms" mapstructure:"business_terms"`
	BaseTerms           []string `yaml:"base_terms" mapstructure:"base_terms"`
	IndustryTerms       []string `yaml:"industry_terms" mapstructure:"industry_terms"`
	CompetitorDomains   []string `yaml:"competitor_domains" mapstructure:"competitor_domains"`
	YourDomain          string   `yaml:"your_domain" mapstructure:"your_domain"`
	DiscoverCompetitors bool     `yaml:"discover_competitors" mapstructure:"discover_competitors"`
	MaxCompetitors      int      `yaml:"max_competitors" mapstructure:"max_competitors"`
	IdeasLimit          int      `yaml:"ideas_limit" mapstructure:"ideas_limit"`
	SuggestionsLimit    int      `yaml:"suggestions_limit" mapstructure:"suggestions_limit"`
	RelatedLimit        int      `yaml:"related_limit" mapstructure:"related_limit"`
	TrendingLimit       int      `yaml:"trending_limit" mapstructure:"trending_limit"`
	CompetitorLimit     int      `yaml:"competitor_limit" mapstructure:"competitor_limit"`
	RelatedDepth        int      `yaml:"related_depth" mapstructure:"related_depth"`
}

// FilterConfig enumerates the inclusion rules of the filter stage. Rules
// compose by logical AND; a keyword survives only if it passes every rule.
type FilterConfig struct {
	MinSearchVolume int64    `yaml:"min_search_volume" mapstructure:"min_search_volume"`
	MaxSearchVolume int64    `yaml:"max_search_volume" mapstructure:"max_search_volume"`
	MinCPC          float64  `yaml:"min_cpc" mapstructure:"min_cpc"`
	MaxCPC          float64  `yaml:"max_cpc" mapstructure:"max_cpc"`
	MaxDifficulty   float64  `yaml:"max_difficulty" mapstructure:"max_difficulty"`
	AllowedIntents  []string `yaml:"allowed_intents" mapstructure:"allowed_intents"`
	MinWordCount    int      `yaml:"min_word_count" mapstructure:"min_word_count"`
	MaxWordCount    int      `yaml:"max_word_count" mapstructure:"max_word_count"`
	ExcludePatterns []string `yaml:"exclude_patterns" mapstructure:"exclude_patterns"`
}

// ClusteringConfig tunes the semantic clustering stage.
type ClusteringConfig struct {
	MinClusters    int `yaml:"min_clusters" mapstructure:"min_clusters"`
	MaxClusters    int `yaml:"max_clusters" mapstructure:"max_clusters"`
	KeywordsPerK   int `yaml:"keywords_per_cluster" mapstructure:"keywords_per_cluster"`
	MaxFeatures    int `yaml:"max_features" mapstructure:"max_features"`
	MinClusterSize int `yaml:"min_cluster_size" mapstructure:"min_cluster_size"`
}

// ScoringConfig holds the scoring weights. The five weights must sum to
// 1.0; the scoring engine does not renormalize.
type ScoringConfig struct {
	VolumeWeight      float64 `yaml:"volume_weight" mapstructure:"volume_weight"`
	IntentWeight      float64 `yaml:"intent_weight" mapstructure:"intent_weight"`
	DifficultyWeight  float64 `yaml:"difficulty_weight" mapstructure:"difficulty_weight"`
	CPCWeight         float64 `yaml:"cpc_weight" mapstructure:"cpc_weight"`
	SeasonalityWeight float64 `yaml:"seasonality_weight" mapstructure:"seasonality_weight"`
}

// WeightSum returns the sum of all scoring weights.
func (s ScoringConfig) WeightSum() float64 {
	return s.VolumeWeight + s.IntentWeight + s.DifficultyWeight + s.CPCWeight + s.SeasonalityWeight
}

// ExportConfig configures the campaign export stage.
type ExportConfig struct {
	OutputDir string   `yaml:"output_dir" mapstructure:"output_dir"`
	Formats   []string `yaml:"formats" mapstructure:"formats"` // csv, xlsx
}

// CampaignConfig supplies campaign-level assumptions for export.
type CampaignConfig struct {
	LandingPage      string   `yaml:"landing_page" mapstructure:"landing_page"`
	AssumedCTR       float64  `yaml:"assumed_ctr" mapstructure:"assumed_ctr"`
	AssumedImprShare float64  `yaml:"assumed_impression_share" mapstructure:"assumed_impression_share"`
	HighValuePhrases []string `yaml:"high_value_phrases" mapstructure:"high_value_phrases"`
	NegativeKeywords []string `yaml:"negative_keywords" mapstructure:"negative_keywords"`
	AdGroupPhrases   []string `yaml:"ad_group_phrases" mapstructure:"ad_group_phrases"`
	AdGroupNames     []string `yaml:"ad_group_names" mapstructure:"ad_group_names"`
	DefaultAdGroup   string   `yaml:"default_ad_group" mapstructure:"default_ad_group"`
	MinGroupKeywords int      `yaml:"min_group_keywords" mapstructure:"min_group_keywords"`
}

// StoreConfig configures the run ledger.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("KEYWORD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("dataforseo.base_url", "https://api.dataforseo.com")
	v.SetDefault("dataforseo.rate_limit", 30.0)
	v.SetDefault("dataforseo.timeout_secs", 30)
	v.SetDefault("dataforseo.retries", 3)
	v.SetDefault("target.location_code", 2124) // Canada
	v.SetDefault("target.language_code", "en")
	v.SetDefault("seed.discover_competitors", true)
	v.SetDefault("seed.max_competitors", 10)
	v.SetDefault("seed.ideas_limit", 1000)
	v.SetDefault("seed.suggestions_limit", 500)
	v.SetDefault("seed.related_limit", 500)
	v.SetDefault("seed.trending_limit", 1000)
	v.SetDefault("seed.competitor_limit", 1000)
	v.SetDefault("seed.related_depth", 2)
	v.SetDefault("filters.min_search_volume", 200)
	v.SetDefault("filters.max_search_volume", 50000)
	v.SetDefault("filters.min_cpc", 0.5)
	v.SetDefault("filters.max_cpc", 20.0)
	v.SetDefault("filters.max_difficulty", 70)
	v.SetDefault("filters.allowed_intents", []string{"commercial", "transactional"})
	v.SetDefault("filters.min_word_count", 2)
	v.SetDefault("filters.max_word_count", 6)
	v.SetDefault("clustering.min_clusters", 3)
	v.SetDefault("clustering.max_clusters", 20)
	v.SetDefault("clustering.keywords_per_cluster", 5)
	v.SetDefault("clustering.max_features", 1000)
	v.SetDefault("clustering.min_cluster_size", 5)
	v.SetDefault("scoring.volume_weight", 0.30)
	v.SetDefault("scoring.intent_weight", 0.25)
	v.SetDefault("scoring.difficulty_weight", 0.20)
	v.SetDefault("scoring.cpc_weight", 0.15)
	v.SetDefault("scoring.seasonality_weight", 0.10)
	v.SetDefault("export.output_dir", "runs")
	v.SetDefault("export.formats", []string{"csv"})
	v.SetDefault("campaign.landing_page", "https://example.com")
	v.SetDefault("campaign.assumed_ctr", 0.02)
	v.SetDefault("campaign.assumed_impression_share", 0.10)
	v.SetDefault("campaign.default_ad_group", "General")
	v.SetDefault("campaign.min_group_keywords", 5)
	v.SetDefault("store.path", "keyword-cli.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks configuration invariants that make a run meaningless if
// violated. It is called once at pipeline start; failures are fatal.
func (c *Config) Validate() error {
	if c.DataForSEO.Login == "" || c.DataForSEO.Password == "" {
		return eris.New("config: dataforseo.login and dataforseo.password are required")
	}
	if c.Target.LocationCode <= 0 {
		return eris.New("config: target.location_code must be set")
	}
	if c.Target.LanguageCode == "" {
		return eris.New("config: target.language_code must be set")
	}
	if len(c.Seed.BusinessTerms) == 0 && len(c.Seed.BaseTerms) == 0 &&
		len(c.Seed.CompetitorDomains) == 0 && !c.Seed.DiscoverCompetitors {
		return eris.New("config: no discovery channel configured (business terms, base terms, or competitors)")
	}
	if sum := c.Scoring.WeightSum(); math.Abs(sum-1.0) > 1e-6 {
		return eris.Errorf("config: scoring weights must sum to 1.0 (got %.4f)", sum)
	}
	if c.Filters.MinWordCount > c.Filters.MaxWordCount && c.Filters.MaxWordCount > 0 {
		return eris.Errorf("config: filters.min_word_count %d exceeds max_word_count %d",
			c.Filters.MinWordCount, c.Filters.MaxWordCount)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
