package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 2

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createTermsTable(tx); err != nil {
			return err
		}
		if err := createQuadsTable(tx); err != nil {
			return err
		}
		if err := createGraphsTable(tx); err != nil {
			return err
		}
		if err := createPrefixesTable(tx); err != nil {
			return err
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})

		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", map[string]interface{}{
			"version": version,
		})
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("Running database migrations", map[string]interface{}{
		"from_version": version,
		"to_version":   currentSchemaVersion,
	})

	if version < 2 {
		if err := db.migrateToV2(); err != nil {
			return err
		}
	}

	return nil
}

// migrateToV2 adds per-graph modification times.
func (db *DB) migrateToV2() error {
	return db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`ALTER TABLE graphs ADD COLUMN version INTEGER`); err != nil {
			return fmt.Errorf("failed to add graphs.version: %w", err)
		}
		return setSchemaVersion(tx, 2)
	})
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.conn.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	return nil
}

// createTermsTable interns RDF terms. kind follows rdf.TermKind; datatype
// and lang are empty strings rather than NULL so the unique key holds.
func createTermsTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS terms (
			id INTEGER PRIMARY KEY,
			kind INTEGER NOT NULL,
			value TEXT NOT NULL,
			datatype TEXT NOT NULL DEFAULT '',
			lang TEXT NOT NULL DEFAULT '',
			UNIQUE (kind, value, datatype, lang)
		)
	`); err != nil {
		return fmt.Errorf("failed to create terms table: %w", err)
	}
	return nil
}

func createQuadsTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS quads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			s INTEGER NOT NULL REFERENCES terms(id),
			p INTEGER NOT NULL REFERENCES terms(id),
			o INTEGER NOT NULL REFERENCES terms(id),
			g INTEGER NOT NULL REFERENCES terms(id),
			UNIQUE (s, p, o, g)
		)
	`); err != nil {
		return fmt.Errorf("failed to create quads table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_quads_g_p ON quads(g, p)",
		"CREATE INDEX IF NOT EXISTS idx_quads_p_o ON quads(p, o)",
		"CREATE INDEX IF NOT EXISTS idx_quads_o ON quads(o)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create quads index: %w", err)
		}
	}
	return nil
}

// createGraphsTable records graphs in first-insertion order with their
// modification time in unix nanoseconds.
func createGraphsTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS graphs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			term_id INTEGER NOT NULL UNIQUE REFERENCES terms(id),
			version INTEGER
		)
	`); err != nil {
		return fmt.Errorf("failed to create graphs table: %w", err)
	}
	return nil
}

func createPrefixesTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS prefixes (
			prefix TEXT PRIMARY KEY,
			namespace TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create prefixes table: %w", err)
	}
	return nil
}
