package indexing

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"mit.edu/dsg/textdb/common"
)

// Token represents a single token produced by an analyzer.
// StartByte and EndByte locate the token in the original (not lower-cased) text.
type Token struct {
	Term      string
	Position  int
	StartByte int
	EndByte   int
}

// Analyzer processes text into a stream of tokens. The same analyzer must be used to index
// an attribute and to analyze queries against it.
type Analyzer interface {
	// Analyze tokenizes the input text and returns tokens with positions.
	Analyze(field string, text string) []Token
}

const (
	StandardAnalyzerName = "standard"
	SimpleAnalyzerName   = "simple"
)

var englishStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "if", "in", "into", "is", "it",
	"no", "not", "of", "on", "or", "such", "that", "the", "their", "then", "there", "these",
	"they", "this", "to", "was", "will", "with",
}

// StandardAnalyzer splits text into lower-cased runs of letters and digits and drops stop
// words. Dropped stop words still consume a position, so a phrase query keeps treating
// them as placeholders for an arbitrary token.
type StandardAnalyzer struct {
	stopWords map[string]struct{}
}

func NewStandardAnalyzer() *StandardAnalyzer {
	stop := make(map[string]struct{}, len(englishStopWords))
	for _, w := range englishStopWords {
		stop[w] = struct{}{}
	}
	return &StandardAnalyzer{stopWords: stop}
}

func (a *StandardAnalyzer) Analyze(field string, text string) []Token {
	tokens := tokenize(text)
	out := tokens[:0]
	for _, tok := range tokens {
		if _, stop := a.stopWords[tok.Term]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// SimpleAnalyzer is StandardAnalyzer without stop words.
type SimpleAnalyzer struct{}

func (SimpleAnalyzer) Analyze(field string, text string) []Token {
	return tokenize(text)
}

// GetAnalyzer resolves an analyzer by name. The empty name selects the standard analyzer.
func GetAnalyzer(name string) (Analyzer, error) {
	switch strings.ToLower(name) {
	case "", StandardAnalyzerName:
		return NewStandardAnalyzer(), nil
	case SimpleAnalyzerName:
		return SimpleAnalyzer{}, nil
	}
	return nil, common.NewConfigurationError("unknown analyzer '%s'", name)
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func tokenize(text string) []Token {
	var tokens []Token
	start := -1
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if isTokenRune(r) {
			if start < 0 {
				start = i
			}
		} else if start >= 0 {
			tokens = append(tokens, newToken(text, start, i, len(tokens)))
			start = -1
		}
		i += size
	}
	if start >= 0 {
		tokens = append(tokens, newToken(text, start, len(text), len(tokens)))
	}
	return tokens
}

func newToken(text string, start, end, position int) Token {
	return Token{
		Term:      strings.ToLower(text[start:end]),
		Position:  position,
		StartByte: start,
		EndByte:   end,
	}
}
