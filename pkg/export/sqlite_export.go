package export

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/reqdb/pkg/debug"
	"github.com/vanderheijden86/reqdb/pkg/model"
	"github.com/vanderheijden86/reqdb/pkg/version"
)

// SQLiteExporter writes a pruned catalogue into a standalone SQLite file.
type SQLiteExporter struct {
	Catalogue  *ExportCatalogue
	ExtraTypes []model.ExtraType
	Now        func() time.Time
}

// NewSQLiteExporter creates an exporter for c. Extra types referenced only by
// id are recorded from types.
func NewSQLiteExporter(c *ExportCatalogue, types []model.ExtraType) *SQLiteExporter {
	return &SQLiteExporter{Catalogue: c, ExtraTypes: types, Now: time.Now}
}

// ExportToFile writes the database to path, replacing any existing file.
func (e *SQLiteExporter) ExportToFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	dbClosed := false
	defer func() {
		if !dbClosed {
			db.Close()
		}
	}()

	if err := CreateSchema(db); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if err := e.insertTree(db); err != nil {
		return fmt.Errorf("insert tree: %w", err)
	}
	if err := CreateFTSIndex(db); err != nil {
		debug.Log("sqlite export: FTS5 not available: %v", err)
	}
	if err := CreateRowsView(db); err != nil {
		return fmt.Errorf("create rows view: %w", err)
	}
	if err := e.insertMeta(db); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}
	if err := OptimizeDatabase(db); err != nil {
		return fmt.Errorf("optimize database: %w", err)
	}

	if err := db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	dbClosed = true
	return nil
}

// Bytes builds the database in a scratch directory and returns its content.
func (e *SQLiteExporter) Bytes() ([]byte, error) {
	dir, err := os.MkdirTemp("", "reqdb-sqlite-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, FormatSQLite.Filename())
	if err := e.ExportToFile(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read database: %w", err)
	}
	return data, nil
}

// insertTree writes the catalogue, topics, requirements and their children
// in one transaction.
func (e *SQLiteExporter) insertTree(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c := e.Catalogue
	if _, err := tx.Exec(`INSERT INTO catalogue (id, title, description) VALUES (?, ?, ?)`,
		c.ID, c.Title, c.Description); err != nil {
		return fmt.Errorf("insert catalogue: %w", err)
	}

	topicStmt, err := tx.Prepare(`
		INSERT INTO topics (id, key, title, description, parent_id, depth, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer topicStmt.Close()

	reqStmt, err := tx.Prepare(`
		INSERT INTO requirements (id, topic_id, key, title, description, visible, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer reqStmt.Close()

	tagStmt, err := tx.Prepare(`INSERT OR IGNORE INTO tags (id, name) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer tagStmt.Close()

	reqTagStmt, err := tx.Prepare(`INSERT OR IGNORE INTO requirement_tags (requirement_id, tag_id, position) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer reqTagStmt.Close()

	extraStmt, err := tx.Prepare(`
		INSERT INTO extras (id, requirement_id, extra_type_id, content, position)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer extraStmt.Close()

	commentStmt, err := tx.Prepare(`
		INSERT INTO comments (id, requirement_id, parent_id, author, comment, completed, created)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer commentStmt.Close()

	types := make(map[int]model.ExtraType)
	for _, et := range e.ExtraTypes {
		types[et.ID] = et
	}

	var insertErr error
	var visit func(t *ExportTopic, parent *int, depth, position int)
	visit = func(t *ExportTopic, parent *int, depth, position int) {
		if insertErr != nil {
			return
		}
		if _, err := topicStmt.Exec(t.ID, t.Key, t.Title, t.Description, nullableInt(parent), depth, position); err != nil {
			insertErr = fmt.Errorf("insert topic %s: %w", t.Key, err)
			return
		}
		for i, r := range t.Requirements {
			if _, err := reqStmt.Exec(r.ID, t.ID, r.Key, r.Title, r.Description, boolInt(r.Visible), i); err != nil {
				insertErr = fmt.Errorf("insert requirement %s: %w", r.Key, err)
				return
			}
			for j, tag := range r.Tags {
				if _, err := tagStmt.Exec(tag.ID, tag.Name); err != nil {
					insertErr = fmt.Errorf("insert tag %s: %w", tag.Name, err)
					return
				}
				if _, err := reqTagStmt.Exec(r.ID, tag.ID, j); err != nil {
					insertErr = fmt.Errorf("link tag %s: %w", tag.Name, err)
					return
				}
			}
			for j, x := range r.Extras {
				if x.ExtraType != nil {
					types[x.ExtraType.ID] = *x.ExtraType
				}
				if _, err := extraStmt.Exec(x.ID, r.ID, x.ExtraTypeID, x.Content, j); err != nil {
					insertErr = fmt.Errorf("insert extra %d: %w", x.ID, err)
					return
				}
			}
			for _, cm := range r.Comments {
				if _, err := commentStmt.Exec(cm.ID, r.ID, nullableInt(cm.ParentID), cm.AuthorName(), cm.Comment, boolInt(cm.Completed), cm.Created); err != nil {
					insertErr = fmt.Errorf("insert comment %d: %w", cm.ID, err)
					return
				}
			}
		}
		id := t.ID
		for i, child := range t.Children {
			visit(child, &id, depth+1, i)
		}
	}
	for i, t := range c.Topics {
		visit(t, nil, 1, i)
	}
	if insertErr != nil {
		return insertErr
	}

	typeStmt, err := tx.Prepare(`INSERT INTO extra_types (id, title, description, kind) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer typeStmt.Close()
	for _, et := range types {
		if _, err := typeStmt.Exec(et.ID, et.Title, et.Description, int(et.ExtraType)); err != nil {
			return fmt.Errorf("insert extra type %d: %w", et.ID, err)
		}
	}

	return tx.Commit()
}

func (e *SQLiteExporter) insertMeta(db *sql.DB) error {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	values := map[string]string{
		"schema_version":    strconv.Itoa(SchemaVersion),
		"generator":         "reqdb " + version.Version,
		"exported_at":       now().UTC().Format(time.RFC3339),
		"catalogue_id":      strconv.Itoa(e.Catalogue.ID),
		"requirement_count": strconv.Itoa(e.Catalogue.RequirementCount()),
	}
	for k, v := range values {
		if err := InsertMetaValue(db, k, v); err != nil {
			return fmt.Errorf("meta %s: %w", k, err)
		}
	}
	return nil
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
