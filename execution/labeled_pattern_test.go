package execution

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mit.edu/dsg/textdb/common"
)

// labeled builds a candidate lookup from label name to spans.
func labeled(spans map[string][]common.Span) func(string) []common.Span {
	return func(label string) []common.Span {
		return spans[label]
	}
}

func TestCompileLabeledPattern(t *testing.T) {
	p, err := CompileLabeledPattern("<name> lives in < ci ty >!")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "city"}, p.Labels())
	assert.Equal(t, []string{"", " lives in ", "!"}, p.Suffixes())
	assert.Equal(t, 2, p.NumLabels())

	p, err = CompileLabeledPattern("no labels here")
	require.NoError(t, err)
	assert.Empty(t, p.Labels())
	assert.Equal(t, []string{"no labels here"}, p.Suffixes())

	// Nested brackets are not label references; the innermost pair is.
	p, err = CompileLabeledPattern("a<<x>b")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, p.Labels())
	assert.Equal(t, []string{"a<", "b"}, p.Suffixes())

	_, err = CompileLabeledPattern("a< >b")
	assert.True(t, common.IsErrorCode(err, common.ConfigurationError))
}

func TestLabeledPattern_Chain(t *testing.T) {
	text := "__AxyzBuvwC"
	p, err := CompileLabeledPattern("A<x>B<y>C")
	require.NoError(t, err)

	spans := p.Match("f", text, labeled(map[string][]common.Span{
		"x": {common.NewSpan("f", 3, 6, "x", "xyz")},
		"y": {common.NewSpan("f", 7, 10, "y", "uvw")},
	}))
	require.Equal(t, []common.Span{common.NewSpan("f", 2, 11, "A<x>B<y>C", "AxyzBuvwC")}, spans)
	assert.True(t, spans[0].Valid(text))
}

func TestLabeledPattern_NoChain(t *testing.T) {
	text := "__AxyzBuvwC"
	p, err := CompileLabeledPattern("A<x>B<y>C")
	require.NoError(t, err)

	// The x candidate ends at 7 once "B" is appended, but no y candidate starts there.
	spans := p.Match("f", text, labeled(map[string][]common.Span{
		"x": {common.NewSpan("f", 3, 6, "x", "xyz")},
		"y": {common.NewSpan("f", 8, 10, "y", "vw")},
	}))
	assert.Empty(t, spans)
}

func TestLabeledPattern_SuffixAnchoringPrunes(t *testing.T) {
	text := "Axyz xyzA"
	p, err := CompileLabeledPattern("A<x>")
	require.NoError(t, err)

	spans := p.Match("f", text, labeled(map[string][]common.Span{
		"x": {
			common.NewSpan("f", 1, 4, "x", "xyz"),
			common.NewSpan("f", 5, 8, "x", "xyz"),
			common.NewSpan("f", 0, 1, "x", "A"), // nothing precedes offset 0
		},
	}))
	assert.Equal(t, []common.Span{common.NewSpan("f", 0, 4, "A<x>", "Axyz")}, spans)
}

func TestLabeledPattern_AdjacentLabelsBranch(t *testing.T) {
	text := "abcdefg"
	p, err := CompileLabeledPattern("<x><y>")
	require.NoError(t, err)

	spans := p.Match("f", text, labeled(map[string][]common.Span{
		"x": {common.NewSpan("f", 0, 3, "x", "abc")},
		"y": {
			common.NewSpan("f", 3, 7, "y", "defg"),
			common.NewSpan("f", 3, 5, "y", "de"),
			common.NewSpan("f", 4, 7, "y", "efg"), // gap of zero width only
		},
	}))
	assert.Equal(t, []common.Span{
		common.NewSpan("f", 0, 5, "<x><y>", "abcde"),
		common.NewSpan("f", 0, 7, "<x><y>", "abcdefg"),
	}, spans)
}

func TestLabeledPattern_IgnoresForeignAndInvalidCandidates(t *testing.T) {
	text := "hello world"
	p, err := CompileLabeledPattern("<x> world")
	require.NoError(t, err)

	candidates := labeled(map[string][]common.Span{
		"x": {
			common.NewSpan("g", 0, 5, "x", "hello"),
			common.NewSpan("f", 0, 50, "x", "hello"),
			common.NewSpan("f", 0, 5, "x", "hello"),
			common.NewSpan("f", 0, 5, "x", "hello"),
		},
	})
	assert.Equal(t, []common.Span{common.NewSpan("f", 0, 11, "<x> world", "hello world")}, p.Match("f", text, candidates))
	assert.Empty(t, p.Match("g", "hello there", candidates), "a missing literal rejects the attribute")
}

func TestLabeledPattern_MissingLabelSpans(t *testing.T) {
	p, err := CompileLabeledPattern("<x> and <y>")
	require.NoError(t, err)
	spans := p.Match("f", "cats and dogs", labeled(map[string][]common.Span{
		"x": {common.NewSpan("f", 0, 4, "x", "cats")},
	}))
	assert.Empty(t, spans)
}

// A pattern without labels is a plain literal search.
func TestLabeledPattern_WithoutLabelsIsLiteralSearch(t *testing.T) {
	for _, tc := range []struct{ pattern, text string }{
		{"ab", "abcabab"},
		{"aa", "aaaaa"},
		{"x", "no match"},
		{"", "anything"},
	} {
		p, err := CompileLabeledPattern(tc.pattern)
		require.NoError(t, err)

		var expected []common.Span
		if tc.pattern != "" {
			for offset := 0; ; {
				i := strings.Index(tc.text[offset:], tc.pattern)
				if i < 0 {
					break
				}
				start := offset + i
				expected = append(expected, common.NewSpan("f", start, start+len(tc.pattern), tc.pattern, tc.pattern))
				offset = start + len(tc.pattern)
			}
		}
		assert.Equal(t, expected, p.Match("f", tc.text, labeled(nil)), tc.pattern)
	}
}
