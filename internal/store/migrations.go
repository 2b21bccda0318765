package store

import (
	"fmt"

	"go.uber.org/zap"
)

// migration is one ordered, idempotent schema step. Version must be
// monotone; migrations never drop columns or tables, only add.
type migration struct {
	version int
	name    string
	stmt    string
}

var migrations = []migration{
	{
		version: 1,
		name:    "initial schema",
		stmt: `
		CREATE TABLE IF NOT EXISTS documents (
			id            TEXT PRIMARY KEY,
			title         TEXT NOT NULL DEFAULT '',
			language      TEXT NOT NULL DEFAULT '',
			role          TEXT NOT NULL DEFAULT 'unknown',
			resource_type TEXT NOT NULL DEFAULT '',
			metadata      TEXT NOT NULL DEFAULT '{}',
			source_path   TEXT NOT NULL DEFAULT '',
			content_hash  TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS units (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id      TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			kind        TEXT NOT NULL,
			n           INTEGER NOT NULL,
			external_id INTEGER,
			text_raw    TEXT NOT NULL DEFAULT '',
			text_norm   TEXT NOT NULL DEFAULT '',
			metadata    TEXT NOT NULL DEFAULT '{}',
			UNIQUE(doc_id, n)
		);
		CREATE INDEX IF NOT EXISTS idx_units_doc_external ON units(doc_id, external_id);
		CREATE INDEX IF NOT EXISTS idx_units_doc_n ON units(doc_id, n);
		CREATE INDEX IF NOT EXISTS idx_units_kind ON units(kind);

		CREATE TABLE IF NOT EXISTS runs (
			id         TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			params     TEXT NOT NULL DEFAULT '{}',
			stats      TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

		CREATE TABLE IF NOT EXISTS alignment_links (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			pivot_unit_id   INTEGER NOT NULL REFERENCES units(id) ON DELETE CASCADE,
			target_unit_id  INTEGER NOT NULL REFERENCES units(id) ON DELETE CASCADE,
			pivot_doc_id    TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			target_doc_id   TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			external_id     INTEGER,
			created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			status          TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_links_pivot_unit ON alignment_links(pivot_unit_id);
		CREATE INDEX IF NOT EXISTS idx_links_target_unit ON alignment_links(target_unit_id);
		CREATE INDEX IF NOT EXISTS idx_links_doc_pair ON alignment_links(pivot_doc_id, target_doc_id);
		CREATE INDEX IF NOT EXISTS idx_links_external_id ON alignment_links(external_id);
		CREATE INDEX IF NOT EXISTS idx_links_status ON alignment_links(status);

		CREATE TABLE IF NOT EXISTS doc_relations (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id         TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			relation_type  TEXT NOT NULL,
			target_doc_id  TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			note           TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_relations_doc_type ON doc_relations(doc_id, relation_type);

		CREATE TABLE IF NOT EXISTS index_state (
			id    INTEGER PRIMARY KEY CHECK (id = 1),
			stale BOOLEAN NOT NULL DEFAULT 0
		);
		INSERT OR IGNORE INTO index_state (id, stale) VALUES (1, 0);
		`,
	},
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := s.migrationApplied(m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := s.applyMigration(m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		s.logger.Info("applied migration", zap.Int("version", m.version), zap.String("name", m.name))
	}
	return nil
}

func (s *Store) migrationApplied(version int) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) applyMigration(m migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.stmt); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name); err != nil {
		return err
	}
	return tx.Commit()
}
