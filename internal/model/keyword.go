package model

import "strings"

// Intent classifies the inferred purpose behind a search query.
type Intent string

const (
	IntentCommercial    Intent = "commercial"
	IntentTransactional Intent = "transactional"
	IntentNavigational  Intent = "navigational"
	IntentInformational Intent = "informational"
	IntentUnknown       Intent = "unknown"
)

// ParseIntent normalizes a raw intent string to a known Intent value.
func ParseIntent(s string) Intent {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "commercial":
		return IntentCommercial
	case "transactional":
		return IntentTransactional
	case "navigational":
		return IntentNavigational
	case "informational":
		return IntentInformational
	default:
		return IntentUnknown
	}
}

// DifficultyTier buckets keyword difficulty for campaign structure.
type DifficultyTier string

const (
	DifficultyEasy   DifficultyTier = "Easy"
	DifficultyMedium DifficultyTier = "Medium"
	DifficultyHard   DifficultyTier = "Hard"
)

// PriorityTier buckets the total score into bidding priority bands.
type PriorityTier string

const (
	PriorityHigh   PriorityTier = "High"
	PriorityMedium PriorityTier = "Medium"
	PriorityLow    PriorityTier = "Low"
)

// MatchType is an ads-platform keyword match type.
type MatchType string

const (
	MatchExact  MatchType = "Exact"
	MatchPhrase MatchType = "Phrase"
	MatchBroad  MatchType = "Broad"
)

// CampaignTier names the five campaign buckets keywords are exported into.
type CampaignTier string

const (
	TierEasyWins    CampaignTier = "easy_wins"
	TierHighVolume  CampaignTier = "high_volume"
	TierLongTail    CampaignTier = "long_tail"
	TierCompetitive CampaignTier = "competitive"
	TierGeneral     CampaignTier = "general"
)

// MonthlySearch is one observation of a keyword's monthly search volume.
type MonthlySearch struct {
	Year         int   `json:"year"`
	Month        int   `json:"month"`
	SearchVolume int64 `json:"search_volume"`
}

// Seasonality holds the derived seasonal profile of a keyword.
type Seasonality struct {
	Pattern    string  `json:"pattern"`
	PeakMonth  int     `json:"peak_month"` // 1-12, 0 = unknown
	Volatility float64 `json:"volatility"` // coefficient of variation
	Multiplier float64 `json:"multiplier"` // latest month vs mean, 1.0 = average
	IsSeasonal bool    `json:"is_seasonal"`
}

// Keyword is one row of the pipeline's working table. Identity is the
// lowercase trimmed keyword text, unique within a run. Stages add derived
// fields in place; the record is frozen once written to an export file.
type Keyword struct {
	// Identity and provenance.
	Keyword      string `json:"keyword"`
	Source       string `json:"source"`
	SourceDomain string `json:"source_domain,omitempty"`

	// Demand metrics. Nil pointers mean the provider had no data.
	SearchVolume int64    `json:"search_volume"`
	CPC          *float64 `json:"cpc,omitempty"`
	Difficulty   *float64 `json:"keyword_difficulty,omitempty"`
	Intent       Intent   `json:"main_intent"`

	// Raw provider data carried for later stages.
	Categories      []int           `json:"categories,omitempty"`
	MonthlySearches []MonthlySearch `json:"monthly_searches,omitempty"`

	// Seasonality, derived in the scoring stage.
	SeasonalPattern string  `json:"seasonal_pattern,omitempty"`
	PeakMonth       int     `json:"peak_month,omitempty"`
	Volatility      float64 `json:"seasonal_volatility,omitempty"`
	Multiplier      float64 `json:"seasonal_multiplier,omitempty"`
	IsSeasonal      bool    `json:"is_seasonal,omitempty"`

	// Clustering, scoped to a single run. Cluster IDs are not stable
	// across runs.
	ClusterID       int            `json:"cluster_id,omitempty"`
	ClusterName     string         `json:"cluster_name,omitempty"`
	CategoryCluster string         `json:"category_cluster,omitempty"`
	DifficultyTier  DifficultyTier `json:"difficulty_tier,omitempty"`

	// Scoring. TotalScore is always the weighted sum of the five
	// component scores; it is never set independently.
	VolumeScore      float64      `json:"volume_score,omitempty"`
	IntentScore      float64      `json:"intent_score,omitempty"`
	DifficultyScore  float64      `json:"difficulty_score,omitempty"`
	CPCScore         float64      `json:"cpc_score,omitempty"`
	SeasonalityScore float64      `json:"seasonality_score,omitempty"`
	TotalScore       float64      `json:"total_score,omitempty"`
	PriorityTier     PriorityTier `json:"priority_tier,omitempty"`

	// Campaign assignment, derived at export time.
	MatchType      MatchType    `json:"recommended_match_type,omitempty"`
	RecommendedBid float64      `json:"recommended_bid,omitempty"`
	CampaignTier   CampaignTier `json:"campaign_tier,omitempty"`
}

// Key returns the deduplication key for the keyword (lowercase, trimmed).
func (k *Keyword) Key() string {
	return NormalizeKeyword(k.Keyword)
}

// NormalizeKeyword lowercases and trims a keyword string.
func NormalizeKeyword(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// WordCount returns the whitespace-delimited token count of the keyword.
func (k *Keyword) WordCount() int {
	return len(strings.Fields(k.Keyword))
}

// DifficultyOr returns the keyword difficulty, or def when unknown.
func (k *Keyword) DifficultyOr(def float64) float64 {
	if k.Difficulty == nil {
		return def
	}
	return *k.Difficulty
}

// CPCOr returns the keyword CPC, or def when unknown.
func (k *Keyword) CPCOr(def float64) float64 {
	if k.CPC == nil {
		return def
	}
	return *k.CPC
}
