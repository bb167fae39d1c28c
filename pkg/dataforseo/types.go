package dataforseo

import (
	"github.com/hawthorn-media/keyword-cli/internal/model"
)

// API status codes. Anything else is treated as an error.
const (
	StatusOK     = 20000
	StatusNoData = 40501
)

// envelope is the common DataForSEO response wrapper. Each endpoint's
// items decode into a single concrete type T; a shape mismatch fails the
// whole decode rather than degrading silently.
type envelope[T any] struct {
	StatusCode    int       `json:"status_code"`
	StatusMessage string    `json:"status_message"`
	Tasks         []task[T] `json:"tasks"`
}

type task[T any] struct {
	StatusCode    int             `json:"status_code"`
	StatusMessage string          `json:"status_message"`
	Result        []taskResult[T] `json:"result"`
}

type taskResult[T any] struct {
	Target     string `json:"target,omitempty"`
	TotalCount int64  `json:"total_count,omitempty"`
	ItemsCount int64  `json:"items_count,omitempty"`
	Items      []T    `json:"items"`
}

// KeywordInfo carries the provider's demand metrics for a keyword.
type KeywordInfo struct {
	SearchVolume     *int64          `json:"search_volume"`
	CPC              *float64        `json:"cpc"`
	Competition      *float64        `json:"competition"`
	CompetitionLevel string          `json:"competition_level"`
	Categories       []int           `json:"categories"`
	MonthlySearches  []MonthlySearch `json:"monthly_searches"`
}

// MonthlySearch is one month of historical search volume.
type MonthlySearch struct {
	Year         int   `json:"year"`
	Month        int   `json:"month"`
	SearchVolume int64 `json:"search_volume"`
}

// KeywordProperties carries derived keyword attributes.
type KeywordProperties struct {
	KeywordDifficulty *float64 `json:"keyword_difficulty"`
}

// SearchIntentInfo carries the provider's intent classification.
type SearchIntentInfo struct {
	MainIntent    string   `json:"main_intent"`
	ForeignIntent []string `json:"foreign_intent"`
}

// KeywordData is the nested keyword payload used by endpoints such as
// ranked_keywords and related_keywords.
type KeywordData struct {
	Keyword           string             `json:"keyword"`
	KeywordInfo       *KeywordInfo       `json:"keyword_info"`
	KeywordProperties *KeywordProperties `json:"keyword_properties"`
	SearchIntentInfo  *SearchIntentInfo  `json:"search_intent_info"`
}

// KeywordItem covers both item shapes the keyword endpoints return: a
// flat keyword with keyword_info alongside it, or a nested keyword_data
// block. Exactly one of the two shapes is populated per endpoint.
type KeywordItem struct {
	Keyword           string             `json:"keyword"`
	KeywordData       *KeywordData       `json:"keyword_data"`
	KeywordInfo       *KeywordInfo       `json:"keyword_info"`
	KeywordProperties *KeywordProperties `json:"keyword_properties"`
	SearchIntentInfo  *SearchIntentInfo  `json:"search_intent_info"`
}

// flatten promotes the nested keyword_data shape to the flat one.
func (it *KeywordItem) flatten() (string, *KeywordInfo, *KeywordProperties, *SearchIntentInfo) {
	if it.KeywordData != nil {
		kd := it.KeywordData
		return kd.Keyword, kd.KeywordInfo, kd.KeywordProperties, kd.SearchIntentInfo
	}
	return it.Keyword, it.KeywordInfo, it.KeywordProperties, it.SearchIntentInfo
}

// ToKeyword converts an item to a pipeline keyword record tagged with the
// given source. Returns false when the item has no keyword text.
func (it *KeywordItem) ToKeyword(source string) (model.Keyword, bool) {
	text, info, props, intent := it.flatten()
	if text == "" {
		return model.Keyword{}, false
	}

	kw := model.Keyword{
		Keyword: text,
		Source:  source,
		Intent:  model.IntentUnknown,
	}
	if info != nil {
		if info.SearchVolume != nil {
			kw.SearchVolume = *info.SearchVolume
		}
		kw.CPC = info.CPC
		kw.Categories = info.Categories
		for _, m := range info.MonthlySearches {
			kw.MonthlySearches = append(kw.MonthlySearches, model.MonthlySearch{
				Year:         m.Year,
				Month:        m.Month,
				SearchVolume: m.SearchVolume,
			})
		}
	}
	if props != nil {
		kw.Difficulty = props.KeywordDifficulty
	}
	if intent != nil {
		kw.Intent = model.ParseIntent(intent.MainIntent)
	}
	return kw, true
}

// DifficultyItem is one row of a bulk_keyword_difficulty response.
type DifficultyItem struct {
	Keyword           string   `json:"keyword"`
	KeywordDifficulty *float64 `json:"keyword_difficulty"`
}

// OrganicMetrics summarizes a domain's organic search footprint.
type OrganicMetrics struct {
	Pos1  int64   `json:"pos_1"`
	Count int64   `json:"count"`
	ETV   float64 `json:"etv"`
}

// DomainMetrics groups the per-channel metrics of a domain.
type DomainMetrics struct {
	Organic *OrganicMetrics `json:"organic"`
	Paid    *OrganicMetrics `json:"paid"`
}

// CompetitorItem is one row of serp_competitors, competitors_domain or
// domain_rank_overview. The provider names the domain field differently
// per endpoint (domain vs target).
type CompetitorItem struct {
	Domain         string         `json:"domain"`
	Target         string         `json:"target"`
	AvgPosition    float64        `json:"avg_position"`
	MedianPosition float64        `json:"median_position"`
	Rating         int64          `json:"rating"`
	ETV            float64        `json:"etv"`
	KeywordsCount  int64          `json:"keywords_count"`
	Count          int64          `json:"count"`
	Metrics        *DomainMetrics `json:"metrics"`
}

// DomainName returns whichever domain field the endpoint populated.
func (c *CompetitorItem) DomainName() string {
	if c.Domain != "" {
		return c.Domain
	}
	return c.Target
}

// KeywordCount returns whichever keyword-count field the endpoint populated.
func (c *CompetitorItem) KeywordCount() int64 {
	if c.KeywordsCount > 0 {
		return c.KeywordsCount
	}
	return c.Count
}

// TopPositions returns the count of top-1 organic positions when the
// endpoint reports per-channel metrics.
func (c *CompetitorItem) TopPositions() int64 {
	if c.Metrics != nil && c.Metrics.Organic != nil {
		return c.Metrics.Organic.Pos1
	}
	return 0
}

// Location is one entry of the locations_and_languages listing.
type Location struct {
	LocationCode       int                 `json:"location_code"`
	LocationName       string              `json:"location_name"`
	CountryISOCode     string              `json:"country_iso_code"`
	AvailableLanguages []AvailableLanguage `json:"available_languages"`
}

// AvailableLanguage is a language supported for a location.
type AvailableLanguage struct {
	LanguageName string `json:"language_name"`
	LanguageCode string `json:"language_code"`
}
