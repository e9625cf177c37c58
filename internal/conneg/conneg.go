// Package conneg parses Accept-style preference headers and picks a
// representation from a candidate list.
package conneg

import (
	"sort"
	"strconv"
	"strings"
)

// MalformedQuality is assigned to entries whose q parameter does not parse,
// ranking them below well-formed entries with the default quality.
const MalformedQuality = 0.99

// Entry is one token of an Accept or Accept-Language header with its quality.
type Entry struct {
	Token   string
	Quality float64
}

// ParsePreferenceList splits a header value into entries ordered by
// descending quality. Ties keep header order. It never fails.
func ParsePreferenceList(header string) []Entry {
	var entries []Entry
	for _, item := range strings.Split(header, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		segments := strings.Split(item, ";")
		token := strings.TrimSpace(segments[0])
		if token == "" {
			continue
		}
		if len(segments) == 1 {
			entries = append(entries, Entry{Token: token, Quality: 1.0})
			continue
		}
		entries = append(entries, Entry{Token: token, Quality: quality(segments[1:])})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Quality > entries[j].Quality
	})
	return entries
}

// quality reads the q parameter. Parameters without q, or a q outside
// [0, 1], count as malformed.
func quality(params []string) float64 {
	raw := strings.TrimSpace(params[0])
	for _, p := range params {
		p = strings.TrimSpace(p)
		if len(p) >= 2 && (p[0] == 'q' || p[0] == 'Q') && p[1] == '=' {
			raw = p
			break
		}
	}
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 && (raw[0] == 'q' || raw[0] == 'Q') && raw[1] == '=' {
		raw = strings.TrimSpace(raw[2:])
	}
	q, err := strconv.ParseFloat(raw, 64)
	if err != nil || q < 0 || q > 1 {
		return MalformedQuality
	}
	return q
}

// Negotiate returns the first preference that names a candidate. The
// wildcard token matches the first candidate; a "type/*" range matches the
// first candidate of that type. Entries with quality 0 are refused, and a
// candidate refused by name is never chosen through a wildcard or range.
// Tokens compare case-insensitively.
func Negotiate(candidates []string, prefs []Entry, wildcard string) (string, bool) {
	refused := make(map[string]bool)
	for _, pref := range prefs {
		if pref.Quality <= 0 {
			refused[strings.ToLower(pref.Token)] = true
		}
	}
	allowed := func(c string) bool { return !refused[strings.ToLower(c)] }

	for _, pref := range prefs {
		if pref.Quality <= 0 {
			continue
		}
		if pref.Token == wildcard {
			for _, c := range candidates {
				if allowed(c) {
					return c, true
				}
			}
			continue
		}
		if strings.HasSuffix(pref.Token, "/*") {
			prefix := strings.TrimSuffix(pref.Token, "*")
			for _, c := range candidates {
				if len(c) >= len(prefix) && strings.EqualFold(c[:len(prefix)], prefix) && allowed(c) {
					return c, true
				}
			}
			continue
		}
		for _, c := range candidates {
			if strings.EqualFold(c, pref.Token) {
				return c, true
			}
		}
	}
	return "", false
}

// Tokens returns the entry tokens in order.
func Tokens(prefs []Entry) []string {
	out := make([]string, len(prefs))
	for i, p := range prefs {
		out[i] = p.Token
	}
	return out
}
