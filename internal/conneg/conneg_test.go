package conneg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePreferenceList(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   []Entry
	}{
		{
			name:   "explicit quality sorts below bare token",
			header: "text/turtle;q=0.9, application/json",
			want: []Entry{
				{Token: "application/json", Quality: 1.0},
				{Token: "text/turtle", Quality: 0.9},
			},
		},
		{
			name:   "malformed quality ranks just below default",
			header: "text/csv;q=abc, text/html, text/plain;q=0.5",
			want: []Entry{
				{Token: "text/html", Quality: 1.0},
				{Token: "text/csv", Quality: MalformedQuality},
				{Token: "text/plain", Quality: 0.5},
			},
		},
		{
			name:   "ties keep header order",
			header: "a/x;q=0.5, b/y;q=0.5, c/z",
			want: []Entry{
				{Token: "c/z", Quality: 1.0},
				{Token: "a/x", Quality: 0.5},
				{Token: "b/y", Quality: 0.5},
			},
		},
		{
			name:   "q found after other parameters",
			header: "text/html;level=1;q=0.3",
			want:   []Entry{{Token: "text/html", Quality: 0.3}},
		},
		{
			name:   "out of range quality is malformed",
			header: "text/html;q=7",
			want:   []Entry{{Token: "text/html", Quality: MalformedQuality}},
		},
		{
			name:   "language tags",
			header: "fr;q=0.4, en-GB , de;q=0.8",
			want: []Entry{
				{Token: "en-GB", Quality: 1.0},
				{Token: "de", Quality: 0.8},
				{Token: "fr", Quality: 0.4},
			},
		},
		{
			name:   "empty header",
			header: "",
			want:   nil,
		},
		{
			name:   "empty items skipped",
			header: " , text/html,,",
			want:   []Entry{{Token: "text/html", Quality: 1.0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePreferenceList(tt.header))
		})
	}
}

func TestNegotiate(t *testing.T) {
	candidates := []string{"application/sparql-results+json", "application/sparql-results+xml", "text/html"}

	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{"exact match", "text/html", "text/html", true},
		{"highest preference wins", "text/html;q=0.5, application/sparql-results+xml", "application/sparql-results+xml", true},
		{"wildcard picks first candidate", "*/*", "application/sparql-results+json", true},
		{"type range", "text/*", "text/html", true},
		{"case insensitive", "TEXT/HTML", "text/html", true},
		{"unknown skipped", "application/unknown-format, text/html;q=0.1", "text/html", true},
		{"no match", "application/unknown-format", "", false},
		{"zero quality refused", "text/html;q=0", "", false},
		{"wildcard skips refused type", "application/sparql-results+json;q=0, */*", "application/sparql-results+xml", true},
		{"range skips refused type", "text/html;q=0, text/*", "", false},
		{"wildcard with everything refused", "application/sparql-results+json;q=0, application/sparql-results+xml;q=0, text/html;q=0, */*", "", false},
		{"empty preferences", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Negotiate(candidates, ParsePreferenceList(tt.header), "*/*")
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNegotiateEmptyCandidates(t *testing.T) {
	_, ok := Negotiate(nil, ParsePreferenceList("*/*"), "*/*")
	assert.False(t, ok)
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"en", "de"}, Tokens(ParsePreferenceList("de;q=0.5, en")))
}
