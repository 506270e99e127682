// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package keywords implements ai.KeywordExtractor with a local, unsupervised
// statistical scorer.
//
// Single words are scored from their casing, position, frequency, context
// spread and sentence spread. Candidate phrases of up to NGramSize words are
// then scored from their words. Lower scores are more relevant. Near-duplicate
// phrases are dropped before the top MaxKeywords are returned.
//
// When no phrase qualifies, the extractor falls back to the first unique words
// of at least five letters, each with a score of 0.
package keywords

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/newswire/ai"
	"github.com/poiesic/newswire/core"
)

const (
	// dedupThreshold is the similarity above which a candidate is considered
	// a duplicate of an already selected keyword.
	dedupThreshold = 0.7

	fallbackMinLength   = 5
	fallbackMaxKeywords = 10
)

var sentenceSplit = regexp.MustCompile(`[.!?;\n]+\s*`)

// Extractor implements ai.KeywordExtractor. It holds no mutable state and is
// safe for concurrent use.
type Extractor struct {
	maxKeywords int
	ngramSize   int
	logger      *slog.Logger
}

var _ ai.KeywordExtractor = (*Extractor)(nil)

// NewExtractor creates an extractor from config.
func NewExtractor(config *ai.Config) (*Extractor, error) {
	if config == nil {
		config = ai.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{
		maxKeywords: config.MaxKeywords,
		ngramSize:   config.NGramSize,
		logger:      slog.Default().With("component", "keyword-extractor"),
	}, nil
}

// ExtractKeywords returns up to MaxKeywords keywords, most relevant first.
// Blank text yields an empty result.
func (e *Extractor) ExtractKeywords(ctx context.Context, text string) ([]core.Keyword, error) {
	if strings.TrimSpace(text) == "" {
		return []core.Keyword{}, nil
	}
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: invalid utf-8 input", ai.ErrKeywordExtraction)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrKeywordExtraction, err)
	}

	doc := parse(text)
	candidates := doc.candidates(e.ngramSize)
	if len(candidates) == 0 {
		fallback := longWords(text)
		e.logger.Debug("no scored candidates, using long words", "count", len(fallback))
		return fallback, nil
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		switch {
		case a.score < b.score:
			return -1
		case a.score > b.score:
			return 1
		}
		return 0
	})

	keywords := make([]core.Keyword, 0, e.maxKeywords)
	for _, c := range candidates {
		if len(keywords) >= e.maxKeywords {
			break
		}
		if isDuplicate(c.phrase, keywords) {
			continue
		}
		keywords = append(keywords, core.Keyword{Term: c.phrase, Score: c.score})
	}
	return keywords, nil
}

// token is one word occurrence.
type token struct {
	text     string // as written
	lower    string
	sentence int
	isStop   bool
	isNumber bool
}

// wordStats aggregates the occurrences of one lowercased word.
type wordStats struct {
	tf        int
	upper     int // occurrences starting uppercase, not at sentence start
	acronym   int // occurrences written fully in capitals
	sentences map[int]bool
	positions []int // sentence index of each occurrence
	left      map[string]bool
	right     map[string]bool
	leftN     int
	rightN    int
	score     float64
}

type document struct {
	sentences [][]token
	words     map[string]*wordStats
}

type candidate struct {
	phrase string
	score  float64
}

func parse(text string) *document {
	doc := &document{words: make(map[string]*wordStats)}
	for i, raw := range sentenceSplit.Split(text, -1) {
		var sentence []token
		for j, w := range splitWords(raw) {
			lower := strings.ToLower(w)
			tok := token{
				text:     w,
				lower:    lower,
				sentence: i,
				isStop:   stopWords[lower] || utf8.RuneCountInString(w) < 2,
				isNumber: isNumber(w),
			}
			sentence = append(sentence, tok)

			stats := doc.words[lower]
			if stats == nil {
				stats = &wordStats{
					sentences: make(map[int]bool),
					left:      make(map[string]bool),
					right:     make(map[string]bool),
				}
				doc.words[lower] = stats
			}
			stats.tf++
			stats.sentences[i] = true
			stats.positions = append(stats.positions, i)
			if isAcronym(w) {
				stats.acronym++
			} else if j > 0 && startsUpper(w) {
				stats.upper++
			}
		}
		if len(sentence) > 0 {
			doc.sentences = append(doc.sentences, sentence)
		}
	}
	doc.scoreWords()
	return doc
}

// scoreWords computes the single-word relevance scores.
func (d *document) scoreWords() {
	// Co-occurrence with directly adjacent words.
	for _, sentence := range d.sentences {
		for i, tok := range sentence {
			stats := d.words[tok.lower]
			if i > 0 {
				stats.left[sentence[i-1].lower] = true
				stats.leftN++
			}
			if i < len(sentence)-1 {
				stats.right[sentence[i+1].lower] = true
				stats.rightN++
			}
		}
	}

	var tfs []float64
	maxTF := 0.0
	for _, stats := range d.words {
		tfs = append(tfs, float64(stats.tf))
		maxTF = math.Max(maxTF, float64(stats.tf))
	}
	mean, std := meanStd(tfs)
	totalSentences := math.Max(float64(len(d.sentences)), 1)

	for _, stats := range d.words {
		tf := float64(stats.tf)
		casing := math.Max(float64(stats.upper), float64(stats.acronym)) / (1 + math.Log(tf))
		position := math.Log(math.Log(3 + median(stats.positions)))
		frequency := tf / (mean + std)
		relatedness := 1 + (ratio(len(stats.left), stats.leftN)+ratio(len(stats.right), stats.rightN))*(tf/maxTF)
		spread := float64(len(stats.sentences)) / totalSentences

		stats.score = (relatedness * position) / (casing + frequency/relatedness + spread/relatedness)
	}
}

// candidates enumerates phrases of up to n words that neither start nor end
// with a stop word and do not cross sentence boundaries.
func (d *document) candidates(n int) []candidate {
	counts := make(map[string]int)
	products := make(map[string]float64)
	sums := make(map[string]float64)
	var order []string

	for _, sentence := range d.sentences {
		for i := range sentence {
			for size := 1; size <= n && i+size <= len(sentence); size++ {
				words := sentence[i : i+size]
				first, last := words[0], words[len(words)-1]
				if first.isStop || last.isStop || first.isNumber || last.isNumber {
					continue
				}

				phrase := joinLower(words)
				if _, seen := counts[phrase]; !seen {
					order = append(order, phrase)
					product, sum := 1.0, 0.0
					for _, w := range words {
						if w.isStop {
							continue
						}
						s := d.words[w.lower].score
						product *= s
						sum += s
					}
					products[phrase] = product
					sums[phrase] = sum
				}
				counts[phrase]++
			}
		}
	}

	out := make([]candidate, 0, len(order))
	for _, phrase := range order {
		score := products[phrase] / (float64(counts[phrase]) * (1 + sums[phrase]))
		if math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}
		out = append(out, candidate{phrase: phrase, score: score})
	}
	return out
}

// longWords returns the first unique words of fallbackMinLength or more runes.
func longWords(text string) []core.Keyword {
	seen := make(map[string]bool)
	keywords := []core.Keyword{}
	for _, w := range strings.Fields(text) {
		if utf8.RuneCountInString(w) < fallbackMinLength || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, core.Keyword{Term: w, Score: 0})
		if len(keywords) >= fallbackMaxKeywords {
			break
		}
	}
	return keywords
}

func isDuplicate(phrase string, selected []core.Keyword) bool {
	for _, k := range selected {
		if similarity(phrase, k.Term) > dedupThreshold {
			return true
		}
	}
	return false
}

// similarity is 1 minus the normalized edit distance between a and b.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-')
	})
}

func joinLower(words []token) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.lower
	}
	return strings.Join(parts, " ")
}

func isNumber(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) && r != '-' && r != '\'' {
			return false
		}
	}
	return true
}

func isAcronym(w string) bool {
	letters := 0
	for _, r := range w {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}

func startsUpper(w string) bool {
	r, _ := utf8.DecodeRuneInString(w)
	return unicode.IsUpper(r)
}

func ratio(distinct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(distinct) / float64(total)
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(variance / float64(len(values)))
}

func median(values []int) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2
}
