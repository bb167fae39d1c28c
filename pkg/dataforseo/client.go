package dataforseo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hawthorn-media/keyword-cli/internal/config"
	"github.com/hawthorn-media/keyword-cli/internal/model"
	"github.com/hawthorn-media/keyword-cli/internal/resilience"
)

const defaultBaseURL = "https://api.dataforseo.com"

// Batch caps enforced by the provider per live call.
const (
	MaxSeedsPerIdeasCall     = 200
	MaxKeywordsPerDifficulty = 1000
	MaxKeywordsPerSERPCall   = 200
)

// Client calls the DataForSEO Labs API. All requests share one rate
// limiter and one retry policy, so a single Client should be reused
// across the whole run.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authHeader string
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	logger     *zap.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithLogger overrides the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient builds a client from the credentials and limits in cfg.
func NewClient(cfg config.DataForSEOConfig, opts ...Option) (*Client, error) {
	if cfg.Login == "" || cfg.Password == "" {
		return nil, eris.New("dataforseo: login and password are required")
	}

	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	perMinute := cfg.RateLimit
	if perMinute <= 0 {
		perMinute = 30.0
	}
	retry := resilience.DefaultRetryConfig()
	if cfg.Retries > 0 {
		retry.MaxAttempts = cfg.Retries + 1
	}

	creds := base64.StdEncoding.EncodeToString([]byte(cfg.Login + ":" + cfg.Password))
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		authHeader: "Basic " + creds,
		limiter:    rate.NewLimiter(rate.Limit(perMinute/60.0), 1),
		retry:      retry,
		logger:     zap.L().With(zap.String("service", "dataforseo")),
	}
	if cfg.BaseURL != "" {
		c.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// doRequest performs one HTTP round trip and returns the raw body.
// Retryable HTTP statuses are surfaced as transient errors.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "dataforseo: rate limiter wait")
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, eris.Wrap(err, "dataforseo: marshal request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, eris.Wrap(err, "dataforseo: create request")
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "dataforseo: execute request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "dataforseo: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("dataforseo: %s returned HTTP %d: %s", path, resp.StatusCode, truncate(raw, 200))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}
	return raw, nil
}

// postLive POSTs a Labs live endpoint and flattens the response envelope
// into one item slice. An empty-data status yields an empty slice.
func postLive[T any](ctx context.Context, c *Client, endpoint string, payload any) ([]T, error) {
	path := "/v3/dataforseo_labs/" + endpoint + "/live"
	op := resilience.RetryConfig{
		MaxAttempts: c.retry.MaxAttempts,
		BaseBackoff: c.retry.BaseBackoff,
		MaxBackoff:  c.retry.MaxBackoff,
		OnRetry:     resilience.RetryLogger("dataforseo", endpoint),
	}

	raw, err := resilience.DoVal(ctx, op, func(ctx context.Context) ([]byte, error) {
		return c.doRequest(ctx, http.MethodPost, path, []any{payload})
	})
	if err != nil {
		return nil, err
	}

	var env envelope[T]
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&env); err != nil {
		return nil, eris.Wrapf(err, "dataforseo: decode %s response", endpoint)
	}

	if env.StatusCode == StatusNoData {
		return nil, nil
	}
	if env.StatusCode != StatusOK {
		return nil, eris.Errorf("dataforseo: %s returned status %d: %s", endpoint, env.StatusCode, env.StatusMessage)
	}

	var items []T
	for _, t := range env.Tasks {
		if t.StatusCode == StatusNoData {
			continue
		}
		if t.StatusCode != StatusOK {
			c.logger.Warn("task failed, skipping",
				zap.String("endpoint", endpoint),
				zap.Int("status_code", t.StatusCode),
				zap.String("status_message", t.StatusMessage),
			)
			continue
		}
		for _, r := range t.Result {
			items = append(items, r.Items...)
		}
	}
	return items, nil
}

// keywordItemsToModels converts raw items, dropping blanks and tagging the
// source channel.
func keywordItemsToModels(items []KeywordItem, source string) []model.Keyword {
	out := make([]model.Keyword, 0, len(items))
	for i := range items {
		if kw, ok := items[i].ToKeyword(source); ok {
			out = append(out, kw)
		}
	}
	return out
}

type keywordIdeasRequest struct {
	Keywords     []string `json:"keywords"`
	LocationCode int      `json:"location_code"`
	LanguageCode string   `json:"language_code"`
	Limit        int      `json:"limit,omitempty"`
}

// KeywordIdeas returns keyword ideas for up to MaxSeedsPerIdeasCall seed
// terms.
func (c *Client) KeywordIdeas(ctx context.Context, seeds []string, locationCode int, languageCode string, limit int) ([]model.Keyword, error) {
	if len(seeds) == 0 {
		return nil, nil
	}
	if len(seeds) > MaxSeedsPerIdeasCall {
		return nil, eris.Errorf("dataforseo: keyword_ideas accepts at most %d seeds, got %d", MaxSeedsPerIdeasCall, len(seeds))
	}
	items, err := postLive[KeywordItem](ctx, c, "google/keyword_ideas", keywordIdeasRequest{
		Keywords:     seeds,
		LocationCode: locationCode,
		LanguageCode: languageCode,
		Limit:        limit,
	})
	if err != nil {
		return nil, err
	}
	return keywordItemsToModels(items, "keyword_ideas"), nil
}

type singleKeywordRequest struct {
	Keyword      string `json:"keyword"`
	LocationCode int    `json:"location_code"`
	LanguageCode string `json:"language_code"`
	Limit        int    `json:"limit,omitempty"`
	Depth        int    `json:"depth,omitempty"`
}

// KeywordSuggestions returns long-tail suggestions containing the seed.
func (c *Client) KeywordSuggestions(ctx context.Context, seed string, locationCode int, languageCode string, limit int) ([]model.Keyword, error) {
	items, err := postLive[KeywordItem](ctx, c, "google/keyword_suggestions", singleKeywordRequest{
		Keyword:      seed,
		LocationCode: locationCode,
		LanguageCode: languageCode,
		Limit:        limit,
	})
	if err != nil {
		return nil, err
	}
	return keywordItemsToModels(items, "keyword_suggestions"), nil
}

// RelatedKeywords walks the "searches related to" graph from the seed up
// to the given depth.
func (c *Client) RelatedKeywords(ctx context.Context, seed string, locationCode int, languageCode string, depth, limit int) ([]model.Keyword, error) {
	items, err := postLive[KeywordItem](ctx, c, "google/related_keywords", singleKeywordRequest{
		Keyword:      seed,
		LocationCode: locationCode,
		LanguageCode: languageCode,
		Depth:        depth,
		Limit:        limit,
	})
	if err != nil {
		return nil, err
	}
	return keywordItemsToModels(items, "related_keywords"), nil
}

type topSearchesRequest struct {
	LocationCode int    `json:"location_code"`
	LanguageCode string `json:"language_code"`
	Limit        int    `json:"limit,omitempty"`
}

// TopSearches returns the highest-volume searches for the market.
func (c *Client) TopSearches(ctx context.Context, locationCode int, languageCode string, limit int) ([]model.Keyword, error) {
	items, err := postLive[KeywordItem](ctx, c, "google/top_searches", topSearchesRequest{
		LocationCode: locationCode,
		LanguageCode: languageCode,
		Limit:        limit,
	})
	if err != nil {
		return nil, err
	}
	return keywordItemsToModels(items, "top_searches"), nil
}

type targetRequest struct {
	Target       string `json:"target"`
	LocationCode int    `json:"location_code"`
	LanguageCode string `json:"language_code"`
	Limit        int    `json:"limit,omitempty"`
}

// KeywordsForSite returns keywords a site already surfaces for.
func (c *Client) KeywordsForSite(ctx context.Context, domain string, locationCode int, languageCode string, limit int) ([]model.Keyword, error) {
	items, err := postLive[KeywordItem](ctx, c, "google/keywords_for_site", targetRequest{
		Target:       CleanDomain(domain),
		LocationCode: locationCode,
		LanguageCode: languageCode,
		Limit:        limit,
	})
	if err != nil {
		return nil, err
	}
	kws := keywordItemsToModels(items, "keywords_for_site")
	for i := range kws {
		kws[i].SourceDomain = CleanDomain(domain)
	}
	return kws, nil
}

// RankedKeywords returns keywords a domain ranks for organically.
func (c *Client) RankedKeywords(ctx context.Context, domain string, locationCode int, languageCode string, limit int) ([]model.Keyword, error) {
	items, err := postLive[KeywordItem](ctx, c, "google/ranked_keywords", targetRequest{
		Target:       CleanDomain(domain),
		LocationCode: locationCode,
		LanguageCode: languageCode,
		Limit:        limit,
	})
	if err != nil {
		return nil, err
	}
	kws := keywordItemsToModels(items, "ranked_keywords")
	for i := range kws {
		kws[i].SourceDomain = CleanDomain(domain)
	}
	return kws, nil
}

type bulkDifficultyRequest struct {
	Keywords     []string `json:"keywords"`
	LocationCode int      `json:"location_code"`
	LanguageCode string   `json:"language_code"`
}

// BulkKeywordDifficulty returns difficulty scores keyed by keyword for up
// to MaxKeywordsPerDifficulty keywords. Keywords the provider has no
// score for are absent from the map.
func (c *Client) BulkKeywordDifficulty(ctx context.Context, keywords []string, locationCode int, languageCode string) (map[string]float64, error) {
	if len(keywords) == 0 {
		return map[string]float64{}, nil
	}
	if len(keywords) > MaxKeywordsPerDifficulty {
		return nil, eris.Errorf("dataforseo: bulk_keyword_difficulty accepts at most %d keywords, got %d", MaxKeywordsPerDifficulty, len(keywords))
	}
	items, err := postLive[DifficultyItem](ctx, c, "google/bulk_keyword_difficulty", bulkDifficultyRequest{
		Keywords:     keywords,
		LocationCode: locationCode,
		LanguageCode: languageCode,
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(items))
	for _, it := range items {
		if it.Keyword == "" || it.KeywordDifficulty == nil {
			continue
		}
		out[it.Keyword] = *it.KeywordDifficulty
	}
	return out, nil
}

type serpCompetitorsRequest struct {
	Keywords     []string `json:"keywords"`
	LocationCode int      `json:"location_code"`
	LanguageCode string   `json:"language_code"`
	Limit        int      `json:"limit,omitempty"`
}

// SERPCompetitors returns domains that rank for the given keywords, for
// up to MaxKeywordsPerSERPCall keywords.
func (c *Client) SERPCompetitors(ctx context.Context, keywords []string, locationCode int, languageCode string, limit int) ([]CompetitorItem, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	if len(keywords) > MaxKeywordsPerSERPCall {
		keywords = keywords[:MaxKeywordsPerSERPCall]
	}
	return postLive[CompetitorItem](ctx, c, "google/serp_competitors", serpCompetitorsRequest{
		Keywords:     keywords,
		LocationCode: locationCode,
		LanguageCode: languageCode,
		Limit:        limit,
	})
}

// CompetitorsDomain returns domains with overlapping keyword portfolios.
func (c *Client) CompetitorsDomain(ctx context.Context, domain string, locationCode int, languageCode string, limit int) ([]CompetitorItem, error) {
	return postLive[CompetitorItem](ctx, c, "google/competitors_domain", targetRequest{
		Target:       CleanDomain(domain),
		LocationCode: locationCode,
		LanguageCode: languageCode,
		Limit:        limit,
	})
}

type domainIntersectionRequest struct {
	Target1      string `json:"target1"`
	Target2      string `json:"target2"`
	LocationCode int    `json:"location_code"`
	LanguageCode string `json:"language_code"`
	Limit        int    `json:"limit,omitempty"`
}

// DomainIntersection returns keywords both domains rank for.
func (c *Client) DomainIntersection(ctx context.Context, domain1, domain2 string, locationCode int, languageCode string, limit int) ([]model.Keyword, error) {
	items, err := postLive[KeywordItem](ctx, c, "google/domain_intersection", domainIntersectionRequest{
		Target1:      CleanDomain(domain1),
		Target2:      CleanDomain(domain2),
		LocationCode: locationCode,
		LanguageCode: languageCode,
		Limit:        limit,
	})
	if err != nil {
		return nil, err
	}
	kws := keywordItemsToModels(items, "domain_intersection")
	for i := range kws {
		kws[i].SourceDomain = CleanDomain(domain2)
	}
	return kws, nil
}

// DomainRankOverview returns the traffic profile of a domain.
func (c *Client) DomainRankOverview(ctx context.Context, domain string, locationCode int, languageCode string) ([]CompetitorItem, error) {
	return postLive[CompetitorItem](ctx, c, "google/domain_rank_overview", targetRequest{
		Target:       CleanDomain(domain),
		LocationCode: locationCode,
		LanguageCode: languageCode,
	})
}

// locationResult is the result shape of the locations listing, which has
// no items wrapper.
type locationEnvelope struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Tasks         []struct {
		StatusCode    int        `json:"status_code"`
		StatusMessage string     `json:"status_message"`
		Result        []Location `json:"result"`
	} `json:"tasks"`
}

// Locations lists the locations and languages the Labs API supports.
func (c *Client) Locations(ctx context.Context) ([]Location, error) {
	op := resilience.RetryConfig{
		MaxAttempts: c.retry.MaxAttempts,
		BaseBackoff: c.retry.BaseBackoff,
		MaxBackoff:  c.retry.MaxBackoff,
		OnRetry:     resilience.RetryLogger("dataforseo", "locations_and_languages"),
	}
	raw, err := resilience.DoVal(ctx, op, func(ctx context.Context) ([]byte, error) {
		return c.doRequest(ctx, http.MethodGet, "/v3/dataforseo_labs/locations_and_languages", nil)
	})
	if err != nil {
		return nil, err
	}

	var env locationEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, eris.Wrap(err, "dataforseo: decode locations response")
	}
	if env.StatusCode != StatusOK {
		return nil, eris.Errorf("dataforseo: locations returned status %d: %s", env.StatusCode, env.StatusMessage)
	}

	var out []Location
	for _, t := range env.Tasks {
		if t.StatusCode != StatusOK {
			continue
		}
		out = append(out, t.Result...)
	}
	return out, nil
}

// CleanDomain strips the scheme, www prefix and any path from a domain
// string so it matches the form the API expects.
func CleanDomain(domain string) string {
	d := strings.TrimSpace(strings.ToLower(domain))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexByte(d, '/'); i >= 0 {
		d = d[:i]
	}
	return d
}

func truncate(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
