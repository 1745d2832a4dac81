package execution

import (
	"regexp"
	"sort"
	"strings"

	"mit.edu/dsg/textdb/common"
)

var labelReference = regexp.MustCompile(`<[^<>]*>`)

// LabeledPattern is a compiled pattern of literal text and label references such as
// "<name> lives in <city>". A label matches any span already recorded on the tuple under
// that label; the literal fragments must sit exactly between them.
//
// A pattern with k labels has k+1 literal fragments: fragment 0 precedes the first label,
// fragment i follows label i. Any fragment may be empty.
type LabeledPattern struct {
	pattern  string
	labels   []string
	suffixes []string
}

// CompileLabeledPattern splits pattern into its label references and literal fragments.
func CompileLabeledPattern(pattern string) (*LabeledPattern, error) {
	p := &LabeledPattern{pattern: pattern}
	prev := 0
	for _, loc := range labelReference.FindAllStringIndex(pattern, -1) {
		name := strings.Join(strings.Fields(pattern[loc[0]+1:loc[1]-1]), "")
		if name == "" {
			return nil, common.NewConfigurationError("empty label at offset %d of pattern %q", loc[0], pattern)
		}
		p.suffixes = append(p.suffixes, pattern[prev:loc[0]])
		p.labels = append(p.labels, name)
		prev = loc[1]
	}
	p.suffixes = append(p.suffixes, pattern[prev:])
	return p, nil
}

func (p *LabeledPattern) String() string {
	return p.pattern
}

// Labels returns the label names in order of appearance.
func (p *LabeledPattern) Labels() []string {
	return append([]string(nil), p.labels...)
}

// Suffixes returns the literal fragments around the labels.
func (p *LabeledPattern) Suffixes() []string {
	return append([]string(nil), p.suffixes...)
}

func (p *LabeledPattern) NumLabels() int {
	return len(p.labels)
}

// Match finds the occurrences of the pattern in text, the value of attribute. candidates
// returns the spans recorded under a label; spans on other attributes are ignored. Every
// returned span is keyed by the pattern.
func (p *LabeledPattern) Match(attribute string, text string, candidates func(label string) []common.Span) []common.Span {
	for _, suffix := range p.suffixes {
		if suffix != "" && !strings.Contains(text, suffix) {
			return nil
		}
	}
	if len(p.labels) == 0 {
		return p.matchLiteral(attribute, text)
	}

	lists := make([][]common.Interval, len(p.labels))
	for i, label := range p.labels {
		lists[i] = collectCandidates(attribute, len(text), candidates(label))
	}

	// Extend the first label backward over the leading fragment and every label forward
	// over the fragment that follows it.
	if lead := p.suffixes[0]; lead != "" {
		lists[0] = filterIntervals(lists[0], func(iv common.Interval) (common.Interval, bool) {
			start := iv.Start - len(lead)
			if start < 0 || text[start:iv.Start] != lead {
				return iv, false
			}
			iv.Start = start
			return iv, true
		})
	}
	for i := range p.labels {
		tail := p.suffixes[i+1]
		if tail != "" {
			lists[i] = filterIntervals(lists[i], func(iv common.Interval) (common.Interval, bool) {
				end := iv.End + len(tail)
				if end > len(text) || text[iv.End:end] != tail {
					return iv, false
				}
				iv.End = end
				return iv, true
			})
		}
		if len(lists[i]) == 0 {
			return nil
		}
	}
	for _, list := range lists {
		sortIntervals(list)
	}

	var spans []common.Span
	seen := make(map[common.Interval]struct{})
	var chain func(label int, start int, end int)
	chain = func(label int, start int, end int) {
		if label == len(lists) {
			iv := common.Interval{Start: start, End: end, AttributeName: attribute}
			if _, dup := seen[iv]; !dup {
				seen[iv] = struct{}{}
				spans = append(spans, common.NewSpan(attribute, start, end, p.pattern, text[start:end]))
			}
			return
		}
		list := lists[label]
		for j := sort.Search(len(list), func(j int) bool { return list[j].Start >= end }); j < len(list) && list[j].Start == end; j++ {
			chain(label+1, start, list[j].End)
		}
	}
	for _, first := range lists[0] {
		chain(1, first.Start, first.End)
	}
	return spans
}

// matchLiteral handles patterns without labels: every non-overlapping occurrence of the
// literal is a match.
func (p *LabeledPattern) matchLiteral(attribute string, text string) []common.Span {
	literal := p.suffixes[0]
	if literal == "" {
		return nil
	}
	var spans []common.Span
	for offset := 0; offset <= len(text); {
		i := strings.Index(text[offset:], literal)
		if i < 0 {
			break
		}
		start := offset + i
		end := start + len(literal)
		spans = append(spans, common.NewSpan(attribute, start, end, p.pattern, text[start:end]))
		offset = end
	}
	return spans
}

// collectCandidates keeps the distinct spans of attribute that lie inside a text of the
// given length.
func collectCandidates(attribute string, textLen int, spans []common.Span) []common.Interval {
	out := make([]common.Interval, 0, len(spans))
	seen := make(map[common.Interval]struct{}, len(spans))
	for _, s := range spans {
		if s.AttributeName != attribute || s.Start < 0 || s.Start > s.End || s.End > textLen {
			continue
		}
		iv := s.Interval()
		if _, dup := seen[iv]; dup {
			continue
		}
		seen[iv] = struct{}{}
		out = append(out, iv)
	}
	return out
}

// filterIntervals returns a new list with the intervals keep accepts, as rewritten by keep.
func filterIntervals(list []common.Interval, keep func(common.Interval) (common.Interval, bool)) []common.Interval {
	out := make([]common.Interval, 0, len(list))
	for _, iv := range list {
		if iv, ok := keep(iv); ok {
			out = append(out, iv)
		}
	}
	return out
}

func sortIntervals(list []common.Interval) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Start != list[j].Start {
			return list[i].Start < list[j].Start
		}
		return list[i].End < list[j].End
	})
}
