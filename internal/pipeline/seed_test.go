package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hawthorn-media/keyword-cli/internal/config"
	"github.com/hawthorn-media/keyword-cli/pkg/dataforseo"
)

func TestContainsAnyTerm(t *testing.T) {
	terms := []string{"mortgage", "home loan"}

	tests := []struct {
		keyword string
		want    bool
	}{
		{"private mortgage broker", true},
		{"best home loan rates", true},
		{"mortgages explained", false}, // whole-word match only
		{"home renovation loan", false},
		{"Mortgage Rates Today", true},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, containsAnyTerm(tt.keyword, terms), tt.keyword)
	}
}

func TestValidCompetitorDomain(t *testing.T) {
	g := &SeedGenerator{cfg: config.SeedConfig{YourDomain: "https://www.mysite.com"}}

	tests := []struct {
		domain string
		want   bool
	}{
		{"rival.com", true},
		{"google.com", false},
		{"wikipedia.org", false},
		{"mysite.com", false},
		{"a.b", false},
		{".start.com", false},
		{"end.com.", false},
		{"nodots", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, g.validCompetitorDomain(tt.domain), tt.domain)
	}
}

// seedTestServer answers every Labs endpoint with a canned keyword so
// channel merging and dedup can be exercised end to end.
func seedTestServer(t *testing.T) (*dataforseo.Client, *map[string]int) {
	t.Helper()
	calls := map[string]int{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		endpoint := parts[len(parts)-2] // .../google/<endpoint>/live
		calls[endpoint]++

		keyword := map[string]any{
			"keyword": "shared keyword",
			"keyword_info": map[string]any{
				"search_volume": 500,
			},
		}
		if endpoint == "keyword_suggestions" {
			keyword["keyword"] = "unique suggestion keyword"
		}

		json.NewEncoder(w).Encode(map[string]any{
			"status_code": 20000,
			"tasks": []any{
				map[string]any{
					"status_code": 20000,
					"result": []any{
						map[string]any{"items": []any{keyword}},
					},
				},
			},
		})
	}))
	t.Cleanup(srv.Close)

	client, err := dataforseo.NewClient(config.DataForSEOConfig{
		Login:     "l",
		Password:  "p",
		BaseURL:   srv.URL,
		RateLimit: 60000,
	})
	require.NoError(t, err)
	return client, &calls
}

func TestGenerateDeduplicatesFirstSeenWins(t *testing.T) {
	client, _ := seedTestServer(t)

	g := NewSeedGenerator(client, config.SeedConfig{
		BusinessTerms:    []string{"plumber toronto"},
		BaseTerms:        []string{"plumbing"},
		IdeasLimit:       100,
		SuggestionsLimit: 100,
		RelatedLimit:     100,
		RelatedDepth:     2,
	}, config.TargetConfig{LocationCode: 2124, LanguageCode: "en"})

	kws, err := g.Generate(context.Background())
	require.NoError(t, err)

	// "shared keyword" arrives from several channels but survives once,
	// keeping the first channel's source tag.
	require.Len(t, kws, 2)
	assert.Equal(t, "shared keyword", kws[0].Keyword)
	assert.Equal(t, "related_keywords", kws[0].Source)
	assert.Equal(t, "unique suggestion keyword", kws[1].Keyword)
}

func TestGenerateNoChannelsYieldsErrNoKeywords(t *testing.T) {
	client, _ := seedTestServer(t)

	g := NewSeedGenerator(client, config.SeedConfig{}, config.TargetConfig{LocationCode: 2124, LanguageCode: "en"})

	_, err := g.Generate(context.Background())
	assert.ErrorIs(t, err, ErrNoKeywords)
}

func TestGenerateSurvivesFailingChannel(t *testing.T) {
	var served int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "related_keywords") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		served++
		json.NewEncoder(w).Encode(map[string]any{
			"status_code": 20000,
			"tasks": []any{
				map[string]any{
					"status_code": 20000,
					"result": []any{
						map[string]any{"items": []any{
							map[string]any{"keyword": "surviving keyword"},
						}},
					},
				},
			},
		})
	}))
	t.Cleanup(srv.Close)

	client, err := dataforseo.NewClient(config.DataForSEOConfig{
		Login: "l", Password: "p", BaseURL: srv.URL, RateLimit: 60000,
	})
	require.NoError(t, err)

	g := NewSeedGenerator(client, config.SeedConfig{
		BaseTerms:        []string{"plumbing"},
		BusinessTerms:    []string{"plumber toronto"},
		SuggestionsLimit: 100,
		IdeasLimit:       100,
	}, config.TargetConfig{LocationCode: 2124, LanguageCode: "en"})

	kws, err := g.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, kws, 1)
	assert.Equal(t, "surviving keyword", kws[0].Keyword)
	assert.Positive(t, served)
}
