package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestHighlight(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Span
	}{
		{
			name: "closure sentence",
			text: "Road closed due to CLOSURE, delays expected",
			want: []Span{
				{Text: "Road closed", Emphasis: true},
				{Text: " due to "},
				{Text: "CLOSURE", Emphasis: true},
				{Text: ", "},
				{Text: "delays", Emphasis: true},
				{Text: " expected"},
			},
		},
		{
			name: "case-insensitive keeps source casing",
			text: "Highway CLOSED, no detour. Closed again",
			want: []Span{
				{Text: "Highway "},
				{Text: "CLOSED", Emphasis: true},
				{Text: ", "},
				{Text: "no", Emphasis: true},
				{Text: " detour. "},
				{Text: "Closed", Emphasis: true},
				{Text: " again"},
			},
		},
		{
			name: "whole words only",
			text: "Closedly, nothing noted; Nova delaysX",
			want: []Span{{Text: "Closedly, nothing noted; Nova delaysX"}},
		},
		{
			name: "every occurrence",
			text: "delays delays",
			want: []Span{
				{Text: "delays", Emphasis: true},
				{Text: " "},
				{Text: "delays", Emphasis: true},
			},
		},
		{
			name: "no keywords",
			text: "Single lane alternating traffic",
			want: []Span{{Text: "Single lane alternating traffic"}},
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
		{
			name: "markup is just text",
			text: `<b onclick="x()">No</b>`,
			want: []Span{
				{Text: `<b onclick="x()">`},
				{Text: "No", Emphasis: true},
				{Text: "</b>"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Highlight(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Highlight(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
			assert.Equal(t, tt.text, PlainText(got))
		})
	}
}

func TestHighlight_RoadClosedSentenceTerms(t *testing.T) {
	spans := Highlight("Road closed due to CLOSURE, delays expected")
	assert.Equal(t, []string{"Road closed", "CLOSURE", "delays"}, EmphasizedTerms(spans))
}

func TestHighlightSpans_Idempotent(t *testing.T) {
	texts := []string{
		"Road closed due to CLOSURE, delays expected",
		"No no NO. Closed; closure-delays",
		"Nothing to see here",
		"",
		"CLOSED",
		"Expect delays.No",
	}

	for _, text := range texts {
		once := Highlight(text)
		twice := HighlightSpans(once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("re-highlighting %q changed spans (-once +twice):\n%s", text, diff)
		}
	}
}

func TestHighlightSpans_LeavesEmphasisAlone(t *testing.T) {
	spans := []Span{
		{Text: "CLOSED", Emphasis: true},
		{Text: " with delays"},
	}

	got := HighlightSpans(spans)

	want := []Span{
		{Text: "CLOSED", Emphasis: true},
		{Text: " with "},
		{Text: "delays", Emphasis: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
