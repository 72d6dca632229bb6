package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarity(t *testing.T) {
	t.Run("equal strings", func(t *testing.T) {
		for _, s := range []string{"", "A", "MARTHA", "JUAN PEREZ"} {
			assert.Equal(t, 1.0, Similarity(s, s), "input %q", s)
		}
	})

	t.Run("one side empty", func(t *testing.T) {
		assert.Equal(t, 0.0, Similarity("A", ""))
		assert.Equal(t, 0.0, Similarity("", "A"))
	})

	t.Run("both empty", func(t *testing.T) {
		assert.Equal(t, 1.0, Similarity("", ""))
	})

	t.Run("very short disjoint strings", func(t *testing.T) {
		// negative match window
		assert.Equal(t, 0.0, Similarity("A", "B"))
	})

	t.Run("classic reference pairs", func(t *testing.T) {
		// MARTHA/MARHTA is the textbook Jaro-Winkler transposition case.
		assert.Greater(t, Similarity("MARTHA", "MARHTA"), 0.9)
		assert.InDelta(t, 0.9611, Similarity("MARTHA", "MARHTA"), 0.001)

		assert.InDelta(t, 0.84, Similarity("DWAYNE", "DUANE"), 0.001)
	})

	t.Run("bounded in unit interval", func(t *testing.T) {
		pairs := [][2]string{
			{"GUZMAN", "LOPEZ"},
			{"ABCDEFG", "GFEDCBA"},
			{"X", "XYZ"},
			{"JOAQUIN", "JOAQUINA"},
		}
		for _, p := range pairs {
			s := Similarity(p[0], p[1])
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		assert.Equal(t, Similarity("JONATHAN", "JONATHON"), Similarity("JONATHON", "JONATHAN"))
	})
}

func TestMatcherOptions(t *testing.T) {
	t.Run("zero prefix scale removes boost", func(t *testing.T) {
		plain := NewMatcher(WithPrefixScale(0))
		boosted := NewMatcher()
		assert.Less(t, plain.Similarity("MARTHA", "MARHTA"), boosted.Similarity("MARTHA", "MARHTA"))
	})

	t.Run("coverage constants are configurable", func(t *testing.T) {
		strict := NewMatcher(WithCoverage(CoverageConfig{Base: 0.5, Scale: 0.5}))
		relaxed := NewMatcher()
		query, target := "JUAN PEREZ", "JUAN PEREZ LOPEZ GARCIA"
		assert.Less(t,
			strict.BestNameScore(query, target, nil),
			relaxed.BestNameScore(query, target, nil))
	})
}

func TestBestNameScore(t *testing.T) {
	m := NewMatcher()

	t.Run("exact match", func(t *testing.T) {
		assert.Equal(t, 1.0, m.BestNameScore("Juan Perez", "JUAN PEREZ", nil))
	})

	t.Run("token reordering scores full marks", func(t *testing.T) {
		assert.Equal(t, 1.0, m.BestNameScore("Perez Juan", "JUAN PEREZ", nil))
	})

	t.Run("partial name inside longer target", func(t *testing.T) {
		// Both tokens match perfectly; coverage penalty is 0.8 + 0.2*(2/4).
		score := m.BestNameScore("Joaquin Guzman", "GUZMAN LOERA JOAQUIN ARCHIVALDO", nil)
		require.InDelta(t, 0.9, score, 0.011)
		assert.Greater(t, score, 0.85)
	})

	t.Run("alias beats weak primary", func(t *testing.T) {
		score := m.BestNameScore("El Chapo", "GUZMAN LOERA JOAQUIN ARCHIVALDO", []string{"EL CHAPO"})
		assert.Equal(t, 1.0, score)
	})

	t.Run("dissimilar names score low", func(t *testing.T) {
		score := m.BestNameScore("Maria Fernanda Silva", "YAMAMOTO KENJI", nil)
		assert.Less(t, score, 0.6)
	})

	t.Run("normalization applied to both sides", func(t *testing.T) {
		assert.Equal(t, 1.0, m.BestNameScore("josé garcía", "JOSE GARCIA", nil))
	})

	t.Run("empty targets score zero", func(t *testing.T) {
		assert.Equal(t, 0.0, m.BestNameScore("Juan Perez", "", nil))
	})
}
