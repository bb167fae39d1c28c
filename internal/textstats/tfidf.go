package textstats

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// VectorizerOptions tunes TF-IDF vectorization. Zero values take the
// documented defaults.
type VectorizerOptions struct {
	// NGramMax is the largest phrase length generated. Default: 3.
	NGramMax int

	// MinDF drops terms appearing in fewer documents. Default: 2.
	MinDF int

	// MaxDFRatio drops terms appearing in more than this fraction of
	// documents. Default: 0.8.
	MaxDFRatio float64

	// MaxFeatures caps the vocabulary, keeping the highest-frequency
	// terms. The cap shrinks to 10 terms per document for small corpora.
	// Default: 1000.
	MaxFeatures int
}

func (o VectorizerOptions) withDefaults(docCount int) VectorizerOptions {
	if o.NGramMax <= 0 {
		o.NGramMax = 3
	}
	if o.MinDF <= 0 {
		o.MinDF = 2
	}
	if o.MaxDFRatio <= 0 {
		o.MaxDFRatio = 0.8
	}
	if o.MaxFeatures <= 0 {
		o.MaxFeatures = 1000
	}
	if small := docCount * 10; small < o.MaxFeatures {
		o.MaxFeatures = small
	}
	return o
}

// Tokenize lowercases text and splits it into alphanumeric tokens of at
// least two characters, dropping stop words.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) < 2 || IsStopword(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// ngrams expands tokens into phrases of length 1..max joined by spaces.
func ngrams(tokens []string, max int) []string {
	var out []string
	for n := 1; n <= max; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// Vectorize builds an L2-normalized TF-IDF matrix over docs. Terms are
// the vocabulary in column order. Both are deterministic for a given
// input. An empty vocabulary yields a nil matrix.
func Vectorize(docs []string, opts VectorizerOptions) ([][]float64, []string) {
	n := len(docs)
	if n == 0 {
		return nil, nil
	}
	opts = opts.withDefaults(n)

	// Per-document term counts and corpus document frequency.
	counts := make([]map[string]int, n)
	docFreq := map[string]int{}
	totalFreq := map[string]int{}
	for i, doc := range docs {
		tc := map[string]int{}
		for _, term := range ngrams(Tokenize(doc), opts.NGramMax) {
			tc[term]++
		}
		counts[i] = tc
		for term, c := range tc {
			docFreq[term]++
			totalFreq[term] += c
		}
	}

	// Vocabulary selection: document-frequency bounds, then the
	// highest-frequency terms, ties broken alphabetically so column
	// order never depends on map iteration.
	maxDF := int(opts.MaxDFRatio * float64(n))
	var vocab []string
	for term, df := range docFreq {
		if df < opts.MinDF {
			continue
		}
		if df > maxDF {
			continue
		}
		vocab = append(vocab, term)
	}
	sort.Slice(vocab, func(i, j int) bool {
		if totalFreq[vocab[i]] != totalFreq[vocab[j]] {
			return totalFreq[vocab[i]] > totalFreq[vocab[j]]
		}
		return vocab[i] < vocab[j]
	})
	if len(vocab) > opts.MaxFeatures {
		vocab = vocab[:opts.MaxFeatures]
	}
	if len(vocab) == 0 {
		return nil, nil
	}
	sort.Strings(vocab)

	col := make(map[string]int, len(vocab))
	for i, term := range vocab {
		col[term] = i
	}

	// Smoothed IDF.
	idf := make([]float64, len(vocab))
	for i, term := range vocab {
		idf[i] = math.Log(float64(1+n)/float64(1+docFreq[term])) + 1
	}

	rows := make([][]float64, n)
	for i, tc := range counts {
		row := make([]float64, len(vocab))
		for term, c := range tc {
			if j, ok := col[term]; ok {
				row[j] = float64(c) * idf[j]
			}
		}
		normalizeL2(row)
		rows[i] = row
	}
	return rows, vocab
}

func normalizeL2(row []float64) {
	var sum float64
	for _, v := range row {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range row {
		row[i] /= norm
	}
}
