package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"sparqld/internal/errors"
	"sparqld/internal/logging"
	"sparqld/internal/rdf"
)

// SQLStore is a QuadStore persisted in SQLite.
type SQLStore struct {
	db *DB
}

// OpenSQLStore opens (or creates) a store at path. Use MemoryDSN for a
// throwaway database.
func OpenSQLStore(path string, logger *logging.Logger) (*SQLStore, error) {
	db, err := OpenDB(path, logger)
	if err != nil {
		return nil, err
	}
	return &SQLStore{db: db}, nil
}

// Close releases the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying database handle.
func (s *SQLStore) DB() *DB {
	return s.db
}

// encodeTerm returns the terms-table columns for t.
func encodeTerm(t rdf.Term) (kind int, value, datatype, lang string) {
	switch v := t.(type) {
	case rdf.Literal:
		return int(rdf.KindLiteral), v.Lexical, string(v.Datatype), v.Lang
	default:
		return int(t.Kind()), t.Value(), "", ""
	}
}

func decodeTerm(kind int, value, datatype, lang string) (rdf.Term, error) {
	switch rdf.TermKind(kind) {
	case rdf.KindIRI:
		return rdf.IRI(value), nil
	case rdf.KindBlank:
		return rdf.BlankNode(value), nil
	case rdf.KindLiteral:
		return rdf.Literal{Lexical: value, Datatype: rdf.IRI(datatype), Lang: lang}, nil
	default:
		return nil, errors.Newf("unknown term kind %d", kind)
	}
}

// Load implements MutableStore. The whole batch commits or none of it does.
func (s *SQLStore) Load(ctx context.Context, version time.Time, quads []rdf.Quad) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		ids := make(map[rdf.Term]int64)
		intern := func(t rdf.Term) (int64, error) {
			if id, ok := ids[t]; ok {
				return id, nil
			}
			kind, value, datatype, lang := encodeTerm(t)
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO terms (kind, value, datatype, lang) VALUES (?, ?, ?, ?)`,
				kind, value, datatype, lang); err != nil {
				return 0, errors.Wrap(err, "failed to intern term")
			}
			var id int64
			if err := tx.QueryRowContext(ctx,
				`SELECT id FROM terms WHERE kind = ? AND value = ? AND datatype = ? AND lang = ?`,
				kind, value, datatype, lang).Scan(&id); err != nil {
				return 0, errors.Wrap(err, "failed to look up term")
			}
			ids[t] = id
			return id, nil
		}

		insertQuad, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO quads (s, p, o, g) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return errors.Wrap(err, "failed to prepare quad insert")
		}
		defer insertQuad.Close()

		touched := make(map[int64]struct{})
		for _, q := range quads {
			q = normalizeGraph(q)
			if _, ok := q.G.(rdf.IRI); !ok {
				return errInvalidGraph(q.G)
			}
			var cols [4]int64
			for i, t := range []rdf.Term{q.S, q.P, q.O, q.G} {
				id, err := intern(t)
				if err != nil {
					return err
				}
				cols[i] = id
			}
			if _, err := insertQuad.ExecContext(ctx, cols[0], cols[1], cols[2], cols[3]); err != nil {
				return errors.Wrap(err, "failed to insert quad")
			}
			if _, seen := touched[cols[3]]; !seen {
				touched[cols[3]] = struct{}{}
				if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO graphs (term_id) VALUES (?)`, cols[3]); err != nil {
					return errors.Wrap(err, "failed to register graph")
				}
			}
		}

		if !version.IsZero() {
			for g := range touched {
				if _, err := tx.ExecContext(ctx, `UPDATE graphs SET version = ? WHERE term_id = ?`, version.UnixNano(), g); err != nil {
					return errors.Wrap(err, "failed to stamp graph version")
				}
			}
		}
		return nil
	})
}

// SetPrefix implements MutableStore.
func (s *SQLStore) SetPrefix(ctx context.Context, prefix, namespace string) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO prefixes (prefix, namespace) VALUES (?, ?)
			ON CONFLICT(prefix) DO UPDATE SET namespace = excluded.namespace
		`, prefix, namespace)
		return errors.Wrap(err, "failed to set prefix")
	})
}

// DefaultDataset implements QuadStore.
func (s *SQLStore) DefaultDataset(ctx context.Context) (Dataset, error) {
	graphs, err := s.Graphs(ctx)
	if err != nil {
		return Dataset{}, err
	}
	return defaultDatasetOf(graphs), nil
}

// Graphs implements QuadStore.
func (s *SQLStore) Graphs(ctx context.Context) ([]rdf.IRI, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.value FROM graphs gr
		JOIN terms t ON t.id = gr.term_id
		ORDER BY gr.id
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list graphs")
	}
	defer rows.Close()

	var graphs []rdf.IRI
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan graph")
		}
		graphs = append(graphs, rdf.IRI(name))
	}
	return graphs, errors.Wrap(rows.Err(), "failed to list graphs")
}

// patternWhere renders the WHERE clause binding each fixed pattern
// component to its interned term id.
func patternWhere(p QuadPattern) (string, []interface{}) {
	var conds []string
	var args []interface{}
	for _, c := range []struct {
		col  string
		term rdf.Term
	}{{"q.s", p.S}, {"q.p", p.P}, {"q.o", p.O}, {"q.g", p.G}} {
		if c.term == nil {
			continue
		}
		kind, value, datatype, lang := encodeTerm(c.term)
		conds = append(conds, c.col+` = (SELECT id FROM terms WHERE kind = ? AND value = ? AND datatype = ? AND lang = ?)`)
		args = append(args, kind, value, datatype, lang)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Match implements QuadStore.
func (s *SQLStore) Match(ctx context.Context, p QuadPattern) ([]rdf.Quad, error) {
	where, args := patternWhere(p)
	rows, err := s.db.QueryContext(ctx, `
		SELECT t1.kind, t1.value, t1.datatype, t1.lang,
		       t2.kind, t2.value, t2.datatype, t2.lang,
		       t3.kind, t3.value, t3.datatype, t3.lang,
		       t4.kind, t4.value, t4.datatype, t4.lang
		FROM quads q
		JOIN terms t1 ON t1.id = q.s
		JOIN terms t2 ON t2.id = q.p
		JOIN terms t3 ON t3.id = q.o
		JOIN terms t4 ON t4.id = q.g`+where+`
		ORDER BY q.id`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to match quads")
	}
	defer rows.Close()

	var out []rdf.Quad
	for rows.Next() {
		var kinds [4]int
		var values, datatypes, langs [4]string
		if err := rows.Scan(
			&kinds[0], &values[0], &datatypes[0], &langs[0],
			&kinds[1], &values[1], &datatypes[1], &langs[1],
			&kinds[2], &values[2], &datatypes[2], &langs[2],
			&kinds[3], &values[3], &datatypes[3], &langs[3],
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan quad")
		}
		var terms [4]rdf.Term
		for i := range terms {
			t, err := decodeTerm(kinds[i], values[i], datatypes[i], langs[i])
			if err != nil {
				return nil, err
			}
			terms[i] = t
		}
		out = append(out, rdf.Quad{S: terms[0], P: terms[1], O: terms[2], G: terms[3]})
	}
	return out, errors.Wrap(rows.Err(), "failed to match quads")
}

// Count implements QuadStore.
func (s *SQLStore) Count(ctx context.Context, p QuadPattern) (int64, error) {
	where, args := patternWhere(p)
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quads q`+where, args...).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count quads")
	}
	return n, nil
}

// GraphVersion implements QuadStore.
func (s *SQLStore) GraphVersion(ctx context.Context, graph rdf.IRI) (time.Time, error) {
	var version sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT gr.version FROM graphs gr
		JOIN terms t ON t.id = gr.term_id
		WHERE t.kind = ? AND t.value = ?
	`, int(rdf.KindIRI), string(graph)).Scan(&version)
	if err == sql.ErrNoRows || (err == nil && !version.Valid) {
		return time.Time{}, ErrNoVersion
	}
	if err != nil {
		return time.Time{}, errors.Wrap(err, "failed to read graph version")
	}
	return time.Unix(0, version.Int64).UTC(), nil
}

// Prefixes implements QuadStore.
func (s *SQLStore) Prefixes(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT prefix, namespace FROM prefixes`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list prefixes")
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var prefix, ns string
		if err := rows.Scan(&prefix, &ns); err != nil {
			return nil, errors.Wrap(err, "failed to scan prefix")
		}
		out[prefix] = ns
	}
	return out, errors.Wrap(rows.Err(), "failed to list prefixes")
}
