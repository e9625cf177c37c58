package store

import (
	"context"

	"golang.org/x/text/language"

	"sparqld/internal/conneg"
	"sparqld/internal/rdf"
)

// LanguageStore wraps a store for one request and hides language-tagged
// literals that do not suit the client's Accept-Language preferences.
//
// For every (graph, subject, predicate) group, tagged literals are reduced
// to those carrying the best-matching tag; when no tag matches at all, the
// tagged literals are dropped unless the client accepts any language ("*").
// Untagged literals and non-literal objects always pass.
type LanguageStore struct {
	QuadStore
	desired  []language.Tag
	wildcard bool
}

// NewLanguageStore builds a filtering view over base from parsed
// Accept-Language preferences.
func NewLanguageStore(base QuadStore, prefs []conneg.Entry) *LanguageStore {
	ls := &LanguageStore{QuadStore: base}
	for _, p := range prefs {
		if p.Quality <= 0 {
			continue
		}
		if p.Token == "*" {
			ls.wildcard = true
			continue
		}
		tag, err := language.Parse(p.Token)
		if err != nil {
			continue
		}
		ls.desired = append(ls.desired, tag)
	}
	return ls
}

// Passthrough reports whether the view filters nothing.
func (ls *LanguageStore) Passthrough() bool {
	return len(ls.desired) == 0
}

// Match implements QuadStore.
func (ls *LanguageStore) Match(ctx context.Context, p QuadPattern) ([]rdf.Quad, error) {
	quads, err := ls.QuadStore.Match(ctx, p)
	if err != nil || ls.Passthrough() {
		return quads, err
	}
	return ls.filter(ctx, quads, p.O != nil)
}

// Count implements QuadStore. Counts reflect the filtered view.
func (ls *LanguageStore) Count(ctx context.Context, p QuadPattern) (int64, error) {
	if ls.Passthrough() {
		return ls.QuadStore.Count(ctx, p)
	}
	quads, err := ls.Match(ctx, p)
	if err != nil {
		return 0, err
	}
	return int64(len(quads)), nil
}

type languageGroup struct {
	g, s, p rdf.Term
}

// filter applies the language choice. When the pattern fixed the object,
// the matched quads do not show the whole group, so each group's tags are
// read back from the wrapped store.
func (ls *LanguageStore) filter(ctx context.Context, quads []rdf.Quad, partial bool) ([]rdf.Quad, error) {
	// Collect the distinct tags per group in first-seen order
	tags := make(map[languageGroup][]string)
	for _, q := range quads {
		lit, ok := q.O.(rdf.Literal)
		if !ok || lit.Lang == "" {
			continue
		}
		key := languageGroup{q.G, q.S, q.P}
		if _, done := tags[key]; done && partial {
			continue
		}
		group := []rdf.Quad{q}
		if partial {
			var err error
			group, err = ls.QuadStore.Match(ctx, QuadPattern{S: q.S, P: q.P, G: q.G})
			if err != nil {
				return nil, err
			}
		}
		for _, gq := range group {
			if gl, ok := gq.O.(rdf.Literal); ok && gl.Lang != "" && !contains(tags[key], gl.Lang) {
				tags[key] = append(tags[key], gl.Lang)
			}
		}
	}

	best := make(map[languageGroup]string, len(tags))
	for key, langs := range tags {
		if lang, ok := ls.bestTag(langs); ok {
			best[key] = lang
		}
	}

	out := quads[:0:0]
	for _, q := range quads {
		lit, ok := q.O.(rdf.Literal)
		if !ok || lit.Lang == "" {
			out = append(out, q)
			continue
		}
		key := languageGroup{q.G, q.S, q.P}
		if lang, ok := best[key]; ok {
			if lit.Lang == lang {
				out = append(out, q)
			}
			continue
		}
		if ls.wildcard {
			out = append(out, q)
		}
	}
	return out, nil
}

// bestTag picks the available tag that best matches the desired tags.
func (ls *LanguageStore) bestTag(available []string) (string, bool) {
	var supported []language.Tag
	var names []string
	for _, lang := range available {
		tag, err := language.Parse(lang)
		if err != nil {
			continue
		}
		supported = append(supported, tag)
		names = append(names, lang)
	}
	if len(supported) == 0 {
		return "", false
	}
	_, idx, conf := language.NewMatcher(supported).Match(ls.desired...)
	if conf == language.No {
		return "", false
	}
	return names[idx], true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
