package pipeline

import (
	"regexp"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hawthorn-media/keyword-cli/internal/config"
	"github.com/hawthorn-media/keyword-cli/internal/model"
)

// unknownDifficulty substitutes for missing difficulty in filter and
// scoring decisions.
const unknownDifficulty = 50.0

// RuleCount is the number of keywords that would survive one rule
// evaluated against the full starting population.
type RuleCount struct {
	Rule string `json:"rule"`
	Kept int    `json:"kept"`
}

// Filter applies the configured inclusion rules in one pass.
type Filter struct {
	cfg     config.FilterConfig
	exclude []*regexp.Regexp
	intents map[model.Intent]struct{}
	logger  *zap.Logger
}

// NewFilter compiles the filter rules. Invalid exclusion patterns are a
// configuration error.
func NewFilter(cfg config.FilterConfig) (*Filter, error) {
	f := &Filter{
		cfg:    cfg,
		logger: zap.L().With(zap.String("stage", "filter")),
	}

	for _, pattern := range cfg.ExcludePatterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "filter: compile exclusion pattern %q", pattern)
		}
		f.exclude = append(f.exclude, re)
	}

	if len(cfg.AllowedIntents) > 0 {
		f.intents = make(map[model.Intent]struct{}, len(cfg.AllowedIntents))
		for _, s := range cfg.AllowedIntents {
			f.intents[model.ParseIntent(s)] = struct{}{}
		}
	}
	return f, nil
}

// Apply evaluates every rule against the full population and returns the
// intersection. Per-rule counts report each rule's own survivors so the
// logs show which rule is doing the cutting. An empty result is
// ErrEmptyResult.
func (f *Filter) Apply(keywords []model.Keyword) ([]model.Keyword, []RuleCount, error) {
	rules := []struct {
		name string
		pass func(*model.Keyword) bool
	}{
		{"search_volume", f.passVolume},
		{"cpc", f.passCPC},
		{"difficulty", f.passDifficulty},
		{"intent", f.passIntent},
		{"word_count", f.passWordCount},
		{"exclusions", f.passExclusions},
	}

	counts := make([]RuleCount, len(rules))
	for i, rule := range rules {
		counts[i].Rule = rule.name
	}

	kept := make([]model.Keyword, 0, len(keywords))
	for i := range keywords {
		k := &keywords[i]
		all := true
		for r, rule := range rules {
			if rule.pass(k) {
				counts[r].Kept++
			} else {
				all = false
			}
		}
		if all {
			kept = append(kept, *k)
		}
	}

	for _, c := range counts {
		f.logger.Info("rule evaluated",
			zap.String("rule", c.Rule),
			zap.Int("kept", c.Kept),
			zap.Int("total", len(keywords)),
		)
	}
	f.logger.Info("filtering complete",
		zap.Int("before", len(keywords)),
		zap.Int("after", len(kept)),
	)

	if len(kept) == 0 {
		return nil, counts, ErrEmptyResult
	}
	return kept, counts, nil
}

func (f *Filter) passVolume(k *model.Keyword) bool {
	if k.SearchVolume < f.cfg.MinSearchVolume {
		return false
	}
	if f.cfg.MaxSearchVolume > 0 && k.SearchVolume > f.cfg.MaxSearchVolume {
		return false
	}
	return true
}

// passCPC treats missing CPC as 0 for the lower bound and lets it pass
// the upper bound.
func (f *Filter) passCPC(k *model.Keyword) bool {
	cpc := k.CPCOr(0)
	if cpc < f.cfg.MinCPC {
		return false
	}
	if f.cfg.MaxCPC > 0 && k.CPC != nil && cpc > f.cfg.MaxCPC {
		return false
	}
	return true
}

func (f *Filter) passDifficulty(k *model.Keyword) bool {
	if f.cfg.MaxDifficulty <= 0 {
		return true
	}
	return k.DifficultyOr(unknownDifficulty) <= f.cfg.MaxDifficulty
}

func (f *Filter) passIntent(k *model.Keyword) bool {
	if f.intents == nil {
		return true
	}
	_, ok := f.intents[k.Intent]
	return ok
}

func (f *Filter) passWordCount(k *model.Keyword) bool {
	wc := k.WordCount()
	if f.cfg.MinWordCount > 0 && wc < f.cfg.MinWordCount {
		return false
	}
	if f.cfg.MaxWordCount > 0 && wc > f.cfg.MaxWordCount {
		return false
	}
	return true
}

func (f *Filter) passExclusions(k *model.Keyword) bool {
	for _, re := range f.exclude {
		if re.MatchString(k.Keyword) {
			return false
		}
	}
	return true
}
