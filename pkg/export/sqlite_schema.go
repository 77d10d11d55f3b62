package export

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is stored in meta.schema_version.
const SchemaVersion = 1

// CreateSchema creates all tables and indexes of an export database.
func CreateSchema(db *sql.DB) error {
	if err := createCoreTables(db); err != nil {
		return fmt.Errorf("create core tables: %w", err)
	}
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	if err := createMetaTable(db); err != nil {
		return fmt.Errorf("create meta table: %w", err)
	}
	return nil
}

// createCoreTables creates the catalogue tree tables. position columns keep
// the declared sibling order so a reader can rebuild the exact tree.
func createCoreTables(db *sql.DB) error {
	tables := []struct {
		name string
		sql  string
	}{
		{"catalogue", `
			CREATE TABLE IF NOT EXISTS catalogue (
				id INTEGER PRIMARY KEY,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT ''
			)`},
		{"topics", `
			CREATE TABLE IF NOT EXISTS topics (
				id INTEGER PRIMARY KEY,
				key TEXT NOT NULL,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				parent_id INTEGER,
				depth INTEGER NOT NULL,
				position INTEGER NOT NULL,
				FOREIGN KEY (parent_id) REFERENCES topics(id)
			)`},
		{"requirements", `
			CREATE TABLE IF NOT EXISTS requirements (
				id INTEGER PRIMARY KEY,
				topic_id INTEGER NOT NULL,
				key TEXT NOT NULL,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				visible INTEGER NOT NULL DEFAULT 1,
				position INTEGER NOT NULL,
				FOREIGN KEY (topic_id) REFERENCES topics(id)
			)`},
		{"tags", `
			CREATE TABLE IF NOT EXISTS tags (
				id INTEGER PRIMARY KEY,
				name TEXT NOT NULL
			)`},
		{"requirement_tags", `
			CREATE TABLE IF NOT EXISTS requirement_tags (
				requirement_id INTEGER NOT NULL,
				tag_id INTEGER NOT NULL,
				position INTEGER NOT NULL,
				PRIMARY KEY (requirement_id, tag_id),
				FOREIGN KEY (requirement_id) REFERENCES requirements(id),
				FOREIGN KEY (tag_id) REFERENCES tags(id)
			)`},
		{"extra_types", `
			CREATE TABLE IF NOT EXISTS extra_types (
				id INTEGER PRIMARY KEY,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				kind INTEGER NOT NULL
			)`},
		{"extras", `
			CREATE TABLE IF NOT EXISTS extras (
				id INTEGER PRIMARY KEY,
				requirement_id INTEGER NOT NULL,
				extra_type_id INTEGER NOT NULL,
				content TEXT NOT NULL,
				position INTEGER NOT NULL,
				FOREIGN KEY (requirement_id) REFERENCES requirements(id)
			)`},
		{"comments", `
			CREATE TABLE IF NOT EXISTS comments (
				id INTEGER PRIMARY KEY,
				requirement_id INTEGER NOT NULL,
				parent_id INTEGER,
				author TEXT,
				comment TEXT NOT NULL,
				completed INTEGER NOT NULL DEFAULT 0,
				created INTEGER NOT NULL DEFAULT 0,
				FOREIGN KEY (requirement_id) REFERENCES requirements(id)
			)`},
	}
	for _, t := range tables {
		if _, err := db.Exec(t.sql); err != nil {
			return fmt.Errorf("create %s table: %w", t.name, err)
		}
	}
	return nil
}

// createIndexes creates indexes for the lookups the snapshot reader does.
func createIndexes(db *sql.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_topics_parent ON topics(parent_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_requirements_topic ON requirements(topic_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_requirements_key ON requirements(key)`,
		`CREATE INDEX IF NOT EXISTS idx_req_tags_tag ON requirement_tags(tag_id)`,
		`CREATE INDEX IF NOT EXISTS idx_extras_requirement ON extras(requirement_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_requirement ON comments(requirement_id)`,
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// createMetaTable creates the export metadata table.
func createMetaTable(db *sql.DB) error {
	metaSQL := `
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`
	if _, err := db.Exec(metaSQL); err != nil {
		return fmt.Errorf("create meta table: %w", err)
	}
	return nil
}

// CreateFTSIndex creates the FTS5 table over requirement text. It must run
// after requirements are inserted.
func CreateFTSIndex(db *sql.DB) error {
	ftsSQL := `
		CREATE VIRTUAL TABLE IF NOT EXISTS requirements_fts USING fts5(
			key,
			title,
			description,
			content='requirements',
			content_rowid='id',
			tokenize='porter unicode61'
		)
	`
	if _, err := db.Exec(ftsSQL); err != nil {
		return fmt.Errorf("create FTS5 table: %w", err)
	}
	if _, err := db.Exec(`INSERT INTO requirements_fts(requirements_fts) VALUES('rebuild')`); err != nil {
		return fmt.Errorf("populate FTS index: %w", err)
	}
	return nil
}

// CreateRowsView creates requirement_rows, one denormalized row per
// requirement with its tags joined by ", ". It must run after all data is
// inserted.
func CreateRowsView(db *sql.DB) error {
	viewSQL := `
		CREATE TABLE IF NOT EXISTS requirement_rows AS
		SELECT
			r.id,
			r.key,
			r.title,
			r.description,
			t.key AS topic_key,
			t.title AS topic_title,
			(SELECT GROUP_CONCAT(name, ', ') FROM (
				SELECT g.name
				FROM requirement_tags rt
				JOIN tags g ON g.id = rt.tag_id
				WHERE rt.requirement_id = r.id
				ORDER BY rt.position
			)) AS tags,
			(SELECT COUNT(*) FROM comments c WHERE c.requirement_id = r.id) AS comment_count
		FROM requirements r
		JOIN topics t ON t.id = r.topic_id
	`
	if _, err := db.Exec(viewSQL); err != nil {
		return fmt.Errorf("create requirement_rows: %w", err)
	}
	return nil
}

// OptimizeDatabase compacts the file. Call it as the final step before
// closing the database.
func OptimizeDatabase(db *sql.DB) error {
	optimizations := []string{
		`PRAGMA journal_mode=DELETE`,
		`ANALYZE`,
		`PRAGMA optimize`,
	}
	for _, stmt := range optimizations {
		// Some pragmas may fail depending on state, continue
		_, _ = db.Exec(stmt)
	}
	_, _ = db.Exec(`INSERT INTO requirements_fts(requirements_fts) VALUES('optimize')`)

	// VACUUM must be last and outside transaction
	if _, err := db.Exec(`VACUUM`); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

// InsertMetaValue inserts or updates a metadata key-value pair.
func InsertMetaValue(db *sql.DB, key, value string) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value)
	return err
}
