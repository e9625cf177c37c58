package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparqld/internal/conneg"
	"sparqld/internal/rdf"
)

func labelStore(t *testing.T) *MemoryStore {
	t.Helper()
	st := NewMemoryStore()
	require.NoError(t, st.Load(context.Background(), time.Time{}, []rdf.Quad{
		{S: exA, P: exName, O: rdf.NewLangLiteral("cat", "en")},
		{S: exA, P: exName, O: rdf.NewLangLiteral("chat", "fr")},
		{S: exA, P: exName, O: rdf.NewLangLiteral("Katze", "de")},
		{S: exA, P: exName, O: rdf.NewLiteral("felis")},
		{S: exA, P: exKnows, O: exB},
	}))
	return st
}

func objects(quads []rdf.Quad) []rdf.Term {
	out := make([]rdf.Term, len(quads))
	for i, q := range quads {
		out[i] = q.O
	}
	return out
}

func TestLanguageStoreFiltering(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		header string
		want   []rdf.Term
	}{
		{
			name:   "best match kept with untagged",
			header: "fr, en;q=0.5",
			want:   []rdf.Term{rdf.NewLangLiteral("chat", "fr"), rdf.NewLiteral("felis")},
		},
		{
			name:   "regional preference matches base tag",
			header: "de-AT",
			want:   []rdf.Term{rdf.NewLangLiteral("Katze", "de"), rdf.NewLiteral("felis")},
		},
		{
			name:   "no match drops tagged literals",
			header: "ja",
			want:   []rdf.Term{rdf.NewLiteral("felis")},
		},
		{
			name:   "no match with wildcard keeps tagged literals",
			header: "ja, *;q=0.1",
			want: []rdf.Term{
				rdf.NewLangLiteral("cat", "en"),
				rdf.NewLangLiteral("chat", "fr"),
				rdf.NewLangLiteral("Katze", "de"),
				rdf.NewLiteral("felis"),
			},
		},
		{
			name:   "wildcard alone filters nothing",
			header: "*",
			want: []rdf.Term{
				rdf.NewLangLiteral("cat", "en"),
				rdf.NewLangLiteral("chat", "fr"),
				rdf.NewLangLiteral("Katze", "de"),
				rdf.NewLiteral("felis"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ls := NewLanguageStore(labelStore(t), conneg.ParsePreferenceList(tt.header))

			quads, err := ls.Match(ctx, QuadPattern{P: exName})
			require.NoError(t, err)
			assert.Equal(t, tt.want, objects(quads))

			n, err := ls.Count(ctx, QuadPattern{P: exName})
			require.NoError(t, err)
			assert.EqualValues(t, len(tt.want), n)
		})
	}
}

func TestLanguageStoreBoundObjectSeesWholeGroup(t *testing.T) {
	ls := NewLanguageStore(labelStore(t), conneg.ParsePreferenceList("en"))

	quads, err := ls.Match(context.Background(), QuadPattern{S: exA, P: exName, O: rdf.NewLangLiteral("chat", "fr")})
	require.NoError(t, err)
	assert.Empty(t, quads, "fr literal is hidden when en is available")

	quads, err = ls.Match(context.Background(), QuadPattern{O: rdf.NewLangLiteral("cat", "en")})
	require.NoError(t, err)
	assert.Len(t, quads, 1)
}

func TestLanguageStoreNonLiteralsPass(t *testing.T) {
	ls := NewLanguageStore(labelStore(t), conneg.ParsePreferenceList("ja"))

	quads, err := ls.Match(context.Background(), QuadPattern{P: exKnows})
	require.NoError(t, err)
	assert.Equal(t, []rdf.Term{exB}, objects(quads))
	assert.False(t, ls.Passthrough())
	assert.True(t, NewLanguageStore(labelStore(t), nil).Passthrough())
}
