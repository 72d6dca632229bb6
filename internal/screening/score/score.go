// Package score combines the individual match signals into one ranked score.
// Name similarity dominates by sanctions-screening convention; the vector
// signal supplies semantic recall and metadata corroborates.
package score

import (
	"strings"
	"time"
)

// Signal weights. An exact identifier match bypasses the formula entirely.
const (
	WeightVector = 0.35
	WeightName   = 0.55
	WeightMeta   = 0.10

	// IdentifierMatchScore is assigned to records reached via exact
	// identifier lookup; identifier equality is treated as definitive.
	IdentifierMatchScore = 1.0
)

// Hybrid combines the vector, name and metadata signals.
func Hybrid(vectorScore, nameScore, metaScore float64) float64 {
	return WeightVector*vectorScore + WeightName*nameScore + WeightMeta*metaScore
}

// Meta scores metadata agreement between query and record: half a point for
// an exact birth-date match, half for any country overlap. The contributions
// are independent, so the result is one of 0, 0.5 or 1.0.
func Meta(queryBirthDate *time.Time, queryCountries []string, recordBirthDate *time.Time, recordCountries []string) float64 {
	score := 0.0

	if queryBirthDate != nil && recordBirthDate != nil && sameDate(*queryBirthDate, *recordBirthDate) {
		score += 0.5
	}

	if countriesIntersect(queryCountries, recordCountries) {
		score += 0.5
	}

	return score
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// countriesIntersect compares country sets case-insensitively after trimming.
func countriesIntersect(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, c := range a {
		if c = canonCountry(c); c != "" {
			set[c] = struct{}{}
		}
	}
	for _, c := range b {
		if c = canonCountry(c); c != "" {
			if _, ok := set[c]; ok {
				return true
			}
		}
	}
	return false
}

func canonCountry(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}
