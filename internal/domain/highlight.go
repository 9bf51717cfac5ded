package domain

import (
	"regexp"
	"strings"
)

// Keywords are the terms emphasized in event descriptions.
var Keywords = []string{"No", "CLOSED", "CLOSURE", "Road closed", "delays"}

var keywordRe = compileKeywords(Keywords)

func compileKeywords(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Span is a run of description text. Emphasis marks a keyword occurrence; the
// text keeps the casing it had in the source.
type Span struct {
	Text     string `json:"text"`
	Emphasis bool   `json:"emphasis,omitempty"`
}

// Highlight splits text into plain and emphasized spans. Every whole-word,
// case-insensitive keyword occurrence becomes its own emphasized span.
func Highlight(text string) []Span {
	if text == "" {
		return nil
	}

	matches := keywordRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []Span{{Text: text}}
	}

	spans := make([]Span, 0, 2*len(matches)+1)
	pos := 0
	for _, m := range matches {
		if m[0] > pos {
			spans = append(spans, Span{Text: text[pos:m[0]]})
		}
		spans = append(spans, Span{Text: text[m[0]:m[1]], Emphasis: true})
		pos = m[1]
	}
	if pos < len(text) {
		spans = append(spans, Span{Text: text[pos:]})
	}
	return spans
}

// HighlightSpans re-applies Highlight to the plain spans only. Emphasized
// spans are never re-matched, so HighlightSpans(Highlight(s)) == Highlight(s).
func HighlightSpans(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	out := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Emphasis {
			out = append(out, s)
			continue
		}
		out = append(out, Highlight(s.Text)...)
	}
	return out
}

// PlainText joins the spans back into the original text.
func PlainText(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

// EmphasizedTerms lists the emphasized span texts in order.
func EmphasizedTerms(spans []Span) []string {
	var terms []string
	for _, s := range spans {
		if s.Emphasis {
			terms = append(terms, s.Text)
		}
	}
	return terms
}
