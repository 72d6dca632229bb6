// Package fuzzy scores name similarity for screening. The core primitive is
// Jaro-Winkler; BestNameScore layers token reordering and token-set coverage
// on top so partial and reordered names still match their targets.
package fuzzy

import (
	"sort"
	"strings"

	"vigil/internal/screening/normalize"
)

const (
	// DefaultPrefixScale is the standard Winkler prefix weighting.
	DefaultPrefixScale = 0.1

	// maxPrefix caps the common-prefix boost at four characters.
	maxPrefix = 4
)

// CoverageConfig tunes the token-set coverage length penalty
// base + scale*min(|queryTokens|/|targetTokens|, 1). The defaults reward a
// short query matching inside a longer target without over-penalizing the
// missing tokens.
type CoverageConfig struct {
	Base  float64
	Scale float64
}

// DefaultCoverage returns the empirically chosen penalty constants.
func DefaultCoverage() CoverageConfig {
	return CoverageConfig{Base: 0.8, Scale: 0.2}
}

// Matcher computes name similarity scores. The zero value is not usable;
// construct with NewMatcher.
type Matcher struct {
	prefixScale float64
	coverage    CoverageConfig
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithPrefixScale overrides the Winkler prefix scale.
func WithPrefixScale(scale float64) Option {
	return func(m *Matcher) {
		m.prefixScale = scale
	}
}

// WithCoverage overrides the token-set coverage penalty constants.
func WithCoverage(cfg CoverageConfig) Option {
	return func(m *Matcher) {
		m.coverage = cfg
	}
}

// NewMatcher constructs a Matcher with standard constants.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{
		prefixScale: DefaultPrefixScale,
		coverage:    DefaultCoverage(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Similarity returns the Jaro-Winkler similarity of two strings in [0,1].
// Inputs are compared as-is; callers normalize first.
func (m *Matcher) Similarity(a, b string) float64 {
	return jaroWinkler(a, b, m.prefixScale)
}

// Similarity is Jaro-Winkler with the default prefix scale.
func Similarity(a, b string) float64 {
	return jaroWinkler(a, b, DefaultPrefixScale)
}

func jaroWinkler(a, b string, prefixScale float64) float64 {
	if a == b {
		return 1.0 // covers both-empty
	}

	lenA, lenB := len(a), len(b)
	if lenA == 0 || lenB == 0 {
		return 0.0
	}

	window := max(lenA, lenB)/2 - 1
	if window < 0 {
		return 0.0
	}

	aMatched := make([]bool, lenA)
	bMatched := make([]bool, lenB)
	matches := 0

	for i := 0; i < lenA; i++ {
		start := max(0, i-window)
		end := min(lenB, i+window+1)
		for j := start; j < end; j++ {
			if bMatched[j] || a[i] != b[j] {
				continue
			}
			aMatched[i] = true
			bMatched[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := 0; i < lenA; i++ {
		if !aMatched[i] {
			continue
		}
		for !bMatched[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	jaro := (float64(matches)/float64(lenA) +
		float64(matches)/float64(lenB) +
		(float64(matches)-float64(transpositions)/2)/float64(matches)) / 3.0

	prefix := 0
	for i := 0; i < min(lenA, lenB) && i < maxPrefix; i++ {
		if a[i] != b[i] {
			break
		}
		prefix++
	}

	return jaro + float64(prefix)*prefixScale*(1.0-jaro)
}

// BestNameScore scores a query against a record's primary name and aliases,
// taking the maximum over three strategies per target name: full-string
// similarity, similarity with tokens of each side independently sorted
// (surname/given-name reordering), and token-set coverage (partial names
// inside longer targets). All inputs are normalized before comparison.
func (m *Matcher) BestNameScore(query, primaryName string, aliases []string) float64 {
	normQuery := normalize.Name(query)
	queryTokens := strings.Fields(normQuery)
	sortedQuery := sortedJoin(queryTokens)

	best := 0.0
	score := func(target string) {
		normTarget := normalize.Name(target)
		if normTarget == "" {
			return
		}

		if s := m.Similarity(normQuery, normTarget); s > best {
			best = s
		}

		targetTokens := strings.Fields(normTarget)
		if s := m.Similarity(sortedQuery, sortedJoin(targetTokens)); s > best {
			best = s
		}

		if s := m.tokenSetCoverage(queryTokens, targetTokens); s > best {
			best = s
		}
	}

	score(primaryName)
	for _, alias := range aliases {
		score(alias)
	}
	return best
}

// tokenSetCoverage averages, over query tokens, the best per-token similarity
// against any target token, scaled by the configured length-ratio penalty.
func (m *Matcher) tokenSetCoverage(queryTokens, targetTokens []string) float64 {
	if len(queryTokens) == 0 || len(targetTokens) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, q := range queryTokens {
		bestToken := 0.0
		for _, t := range targetTokens {
			if s := m.Similarity(q, t); s > bestToken {
				bestToken = s
			}
		}
		sum += bestToken
	}
	avg := sum / float64(len(queryTokens))

	ratio := float64(len(queryTokens)) / float64(len(targetTokens))
	if ratio > 1 {
		ratio = 1
	}
	return avg * (m.coverage.Base + m.coverage.Scale*ratio)
}

func sortedJoin(tokens []string) string {
	sorted := append([]string(nil), tokens...)
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}
