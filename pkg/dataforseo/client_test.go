package dataforseo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hawthorn-media/keyword-cli/internal/config"
	"github.com/hawthorn-media/keyword-cli/internal/model"
)

func testConfig() config.DataForSEOConfig {
	return config.DataForSEOConfig{
		Login:       "login",
		Password:    "password",
		RateLimit:   6000,
		TimeoutSecs: 5,
		Retries:     2,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(testConfig(), WithBaseURL(srv.URL))
	require.NoError(t, err)
	// Tests should not wait on backoff sleeps.
	c.retry.BaseBackoff = time.Millisecond
	return c, srv
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(config.DataForSEOConfig{})
	assert.Error(t, err)
}

func TestKeywordIdeas(t *testing.T) {
	var gotPath string
	var gotAuth string
	var gotBody []map[string]any

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		vol := int64(1200)
		cpc := 2.5
		writeEnvelope(t, w, []KeywordItem{
			{
				Keyword: "plumbing services toronto",
				KeywordInfo: &KeywordInfo{
					SearchVolume: &vol,
					CPC:          &cpc,
					MonthlySearches: []MonthlySearch{
						{Year: 2026, Month: 7, SearchVolume: 1400},
					},
				},
				SearchIntentInfo: &SearchIntentInfo{MainIntent: "commercial"},
			},
			{Keyword: ""},
		})
	})

	kws, err := c.KeywordIdeas(context.Background(), []string{"plumbing"}, 2124, "en", 500)
	require.NoError(t, err)

	assert.Equal(t, "/v3/dataforseo_labs/google/keyword_ideas/live", gotPath)
	assert.Equal(t, "Basic bG9naW46cGFzc3dvcmQ=", gotAuth)
	require.Len(t, gotBody, 1)
	assert.Equal(t, float64(2124), gotBody[0]["location_code"])

	require.Len(t, kws, 1)
	assert.Equal(t, "plumbing services toronto", kws[0].Keyword)
	assert.Equal(t, "keyword_ideas", kws[0].Source)
	assert.Equal(t, int64(1200), kws[0].SearchVolume)
	require.NotNil(t, kws[0].CPC)
	assert.InDelta(t, 2.5, *kws[0].CPC, 1e-9)
	assert.Equal(t, model.IntentCommercial, kws[0].Intent)
	require.Len(t, kws[0].MonthlySearches, 1)
	assert.Equal(t, int64(1400), kws[0].MonthlySearches[0].SearchVolume)
}

func TestKeywordIdeasRejectsOversizedBatch(t *testing.T) {
	c, err := NewClient(testConfig())
	require.NoError(t, err)

	seeds := make([]string, MaxSeedsPerIdeasCall+1)
	for i := range seeds {
		seeds[i] = "seed"
	}
	_, err = c.KeywordIdeas(context.Background(), seeds, 2124, "en", 100)
	assert.Error(t, err)
}

func TestRankedKeywordsFlattensNestedItems(t *testing.T) {
	diff := 42.0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		vol := int64(880)
		writeEnvelope(t, w, []KeywordItem{
			{
				KeywordData: &KeywordData{
					Keyword:           "emergency plumber",
					KeywordInfo:       &KeywordInfo{SearchVolume: &vol},
					KeywordProperties: &KeywordProperties{KeywordDifficulty: &diff},
				},
			},
		})
	})

	kws, err := c.RankedKeywords(context.Background(), "https://www.rival.com/services", 2124, "en", 100)
	require.NoError(t, err)

	require.Len(t, kws, 1)
	assert.Equal(t, "emergency plumber", kws[0].Keyword)
	assert.Equal(t, "rival.com", kws[0].SourceDomain)
	assert.Equal(t, int64(880), kws[0].SearchVolume)
	require.NotNil(t, kws[0].Difficulty)
	assert.InDelta(t, 42.0, *kws[0].Difficulty, 1e-9)
}

func TestBulkKeywordDifficulty(t *testing.T) {
	d1 := 35.0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, []DifficultyItem{
			{Keyword: "drain cleaning", KeywordDifficulty: &d1},
			{Keyword: "no score", KeywordDifficulty: nil},
		})
	})

	scores, err := c.BulkKeywordDifficulty(context.Background(), []string{"drain cleaning", "no score"}, 2124, "en")
	require.NoError(t, err)

	require.Len(t, scores, 1)
	assert.InDelta(t, 35.0, scores["drain cleaning"], 1e-9)
}

func TestNoDataStatusYieldsEmptyResult(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status_code":    StatusNoData,
			"status_message": "no search data",
		})
	})

	kws, err := c.KeywordSuggestions(context.Background(), "obscure seed", 2124, "en", 100)
	require.NoError(t, err)
	assert.Empty(t, kws)
}

func TestAPIErrorStatusFails(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status_code":    40100,
			"status_message": "auth failed",
		})
	})

	_, err := c.TopSearches(context.Background(), 2124, "en", 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "40100")
}

func TestFailedTaskIsSkipped(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		vol := int64(100)
		json.NewEncoder(w).Encode(map[string]any{
			"status_code": StatusOK,
			"tasks": []any{
				map[string]any{"status_code": 40000, "status_message": "bad task"},
				map[string]any{
					"status_code": StatusOK,
					"result": []any{
						map[string]any{
							"items": []KeywordItem{
								{Keyword: "ok keyword", KeywordInfo: &KeywordInfo{SearchVolume: &vol}},
							},
						},
					},
				},
			},
		})
	})

	kws, err := c.TopSearches(context.Background(), 2124, "en", 100)
	require.NoError(t, err)
	require.Len(t, kws, 1)
	assert.Equal(t, "ok keyword", kws[0].Keyword)
}

func TestRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeEnvelope(t, w, []KeywordItem{{Keyword: "recovered"}})
	})

	kws, err := c.KeywordSuggestions(context.Background(), "seed", 2124, "en", 10)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, kws, 1)
	assert.Equal(t, "recovered", kws[0].Keyword)
}

func TestDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.KeywordSuggestions(context.Background(), "seed", 2124, "en", 10)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSERPCompetitorsTruncatesBatch(t *testing.T) {
	var gotKeywords int
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body []map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotKeywords = len(body[0]["keywords"].([]any))
		writeEnvelope(t, w, []CompetitorItem{
			{Domain: "rival.com", ETV: 1234.5, KeywordsCount: 90},
		})
	})

	keywords := make([]string, MaxKeywordsPerSERPCall+50)
	for i := range keywords {
		keywords[i] = "kw"
	}
	comps, err := c.SERPCompetitors(context.Background(), keywords, 2124, "en", 25)
	require.NoError(t, err)

	assert.Equal(t, MaxKeywordsPerSERPCall, gotKeywords)
	require.Len(t, comps, 1)
	assert.Equal(t, "rival.com", comps[0].DomainName())
	assert.Equal(t, int64(90), comps[0].KeywordCount())
}

func TestLocations(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		json.NewEncoder(w).Encode(map[string]any{
			"status_code": StatusOK,
			"tasks": []any{
				map[string]any{
					"status_code": StatusOK,
					"result": []Location{
						{
							LocationCode:   2124,
							LocationName:   "Canada",
							CountryISOCode: "CA",
							AvailableLanguages: []AvailableLanguage{
								{LanguageName: "English", LanguageCode: "en"},
							},
						},
					},
				},
			},
		})
	})

	locs, err := c.Locations(context.Background())
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, 2124, locs[0].LocationCode)
	assert.Equal(t, "Canada", locs[0].LocationName)
}

func TestCleanDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.example.com/path", "example.com"},
		{"http://example.com", "example.com"},
		{"WWW.Example.COM", "example.com"},
		{"example.com", "example.com"},
		{"  example.com/  ", "example.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanDomain(tt.in), tt.in)
	}
}

// writeEnvelope wraps items in the standard single-task response body.
func writeEnvelope[T any](t *testing.T, w http.ResponseWriter, items []T) {
	t.Helper()
	err := json.NewEncoder(w).Encode(map[string]any{
		"status_code": StatusOK,
		"tasks": []any{
			map[string]any{
				"status_code": StatusOK,
				"result": []any{
					map[string]any{"items": items},
				},
			},
		},
	})
	require.NoError(t, err)
}
