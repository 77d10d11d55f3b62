package datasource

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/reqdb/pkg/debug"
	"github.com/vanderheijden86/reqdb/pkg/loader"
	"github.com/vanderheijden86/reqdb/pkg/model"
)

// SQLiteReader provides read access to a SQLite export
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite export for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('catalogue', 'topics', 'requirements')`).Scan(&n); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot read schema: %w", err)
	}
	if n != 3 {
		db.Close()
		return nil, fmt.Errorf("%s is not a reqdb export", source.Path)
	}

	return &SQLiteReader{db: db, path: source.Path}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CountRequirements returns the number of stored requirements.
func (r *SQLiteReader) CountRequirements() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM requirements`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count requirements: %w", err)
	}
	return n, nil
}

// ExportedAt returns the export timestamp recorded in meta, or the zero time.
func (r *SQLiteReader) ExportedAt() (time.Time, error) {
	var v string
	err := r.db.QueryRow(`SELECT value FROM meta WHERE key = 'exported_at'`).Scan(&v)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}

// LoadExtraTypes reads the stored extra types ordered by id.
func (r *SQLiteReader) LoadExtraTypes() ([]model.ExtraType, error) {
	rows, err := r.db.Query(`SELECT id, title, description, kind FROM extra_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query extra types: %w", err)
	}
	defer rows.Close()

	var out []model.ExtraType
	for rows.Next() {
		var et model.ExtraType
		var kind int
		if err := rows.Scan(&et.ID, &et.Title, &et.Description, &kind); err != nil {
			return nil, fmt.Errorf("scan extra type: %w", err)
		}
		et.ExtraType = model.ExtraKind(kind)
		out = append(out, et)
	}
	return out, rows.Err()
}

// LoadCatalogue rebuilds the catalogue tree in its stored sibling order.
func (r *SQLiteReader) LoadCatalogue() (*model.Catalogue, error) {
	cat := &model.Catalogue{}
	err := r.db.QueryRow(`SELECT id, title, description FROM catalogue LIMIT 1`).
		Scan(&cat.ID, &cat.Title, &cat.Description)
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}

	topics, err := r.loadTopics(cat)
	if err != nil {
		return nil, err
	}
	reqs, err := r.loadRequirements(topics)
	if err != nil {
		return nil, err
	}
	if err := r.loadTags(cat, reqs); err != nil {
		return nil, err
	}
	if err := r.loadExtras(reqs); err != nil {
		return nil, err
	}
	if err := r.loadComments(reqs); err != nil {
		return nil, err
	}

	loader.Normalize(cat, func(msg string) { debug.Log("sqlite snapshot: %s", msg) })
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalogue in %s: %w", r.path, err)
	}
	return cat, nil
}

func (r *SQLiteReader) loadTopics(cat *model.Catalogue) (map[int]*model.Topic, error) {
	rows, err := r.db.Query(`
		SELECT id, key, title, description, parent_id
		FROM topics
		ORDER BY depth, parent_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	topics := make(map[int]*model.Topic)
	for rows.Next() {
		t := &model.Topic{}
		var parent sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Key, &t.Title, &t.Description, &parent); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		t.Children = []*model.Topic{}
		t.Requirements = []*model.Requirement{}
		topics[t.ID] = t

		if !parent.Valid {
			cat.Topics = append(cat.Topics, t)
			continue
		}
		p, ok := topics[int(parent.Int64)]
		if !ok {
			return nil, fmt.Errorf("topic %s: parent %d not found", t.Key, parent.Int64)
		}
		pid := p.ID
		t.ParentID = &pid
		p.Children = append(p.Children, t)
	}
	return topics, rows.Err()
}

func (r *SQLiteReader) loadRequirements(topics map[int]*model.Topic) (map[int]*model.Requirement, error) {
	rows, err := r.db.Query(`
		SELECT id, topic_id, key, title, description, visible
		FROM requirements
		ORDER BY topic_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("query requirements: %w", err)
	}
	defer rows.Close()

	reqs := make(map[int]*model.Requirement)
	for rows.Next() {
		req := &model.Requirement{}
		var visible int
		if err := rows.Scan(&req.ID, &req.ParentID, &req.Key, &req.Title, &req.Description, &visible); err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		req.Visible = visible != 0
		req.Tags = []model.Tag{}
		req.Extras = []model.Extra{}

		t, ok := topics[req.ParentID]
		if !ok {
			return nil, fmt.Errorf("requirement %s: topic %d not found", req.Key, req.ParentID)
		}
		t.Requirements = append(t.Requirements, req)
		reqs[req.ID] = req
	}
	return reqs, rows.Err()
}

func (r *SQLiteReader) loadTags(cat *model.Catalogue, reqs map[int]*model.Requirement) error {
	rows, err := r.db.Query(`
		SELECT rt.requirement_id, g.id, g.name
		FROM requirement_tags rt
		JOIN tags g ON g.id = rt.tag_id
		ORDER BY rt.requirement_id, rt.position
	`)
	if err != nil {
		return fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	seen := make(map[int]bool)
	for rows.Next() {
		var reqID int
		var tag model.Tag
		if err := rows.Scan(&reqID, &tag.ID, &tag.Name); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		if req, ok := reqs[reqID]; ok {
			req.Tags = append(req.Tags, tag)
		}
		if !seen[tag.ID] {
			seen[tag.ID] = true
			cat.Tags = append(cat.Tags, tag)
		}
	}
	return rows.Err()
}

func (r *SQLiteReader) loadExtras(reqs map[int]*model.Requirement) error {
	types, err := r.LoadExtraTypes()
	if err != nil {
		return err
	}
	byID := make(map[int]model.ExtraType, len(types))
	for _, et := range types {
		byID[et.ID] = et
	}

	rows, err := r.db.Query(`
		SELECT id, requirement_id, extra_type_id, content
		FROM extras
		ORDER BY requirement_id, position
	`)
	if err != nil {
		return fmt.Errorf("query extras: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var x model.Extra
		if err := rows.Scan(&x.ID, &x.RequirementID, &x.ExtraTypeID, &x.Content); err != nil {
			return fmt.Errorf("scan extra: %w", err)
		}
		if et, ok := byID[x.ExtraTypeID]; ok {
			x.ExtraType = &et
		}
		if req, ok := reqs[x.RequirementID]; ok {
			req.Extras = append(req.Extras, x)
		}
	}
	return rows.Err()
}

func (r *SQLiteReader) loadComments(reqs map[int]*model.Requirement) error {
	rows, err := r.db.Query(`
		SELECT id, requirement_id, parent_id, author, comment, completed, created
		FROM comments
		ORDER BY requirement_id, created, id
	`)
	if err != nil {
		return fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c model.Comment
		var parent sql.NullInt64
		var author sql.NullString
		var completed int
		if err := rows.Scan(&c.ID, &c.RequirementID, &parent, &author, &c.Comment, &completed, &c.Created); err != nil {
			return fmt.Errorf("scan comment: %w", err)
		}
		if parent.Valid {
			p := int(parent.Int64)
			c.ParentID = &p
		}
		if author.Valid && author.String != "" && author.String != "unknown" {
			c.Author = &model.User{Email: author.String}
		}
		c.Completed = completed != 0
		if req, ok := reqs[c.RequirementID]; ok {
			req.Comments = append(req.Comments, c)
		}
	}
	return rows.Err()
}

// SearchRequirements runs a full-text query against the export's FTS index
// and returns matching requirement ids, best match first.
func (r *SQLiteReader) SearchRequirements(query string) ([]int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	rows, err := r.db.Query(`
		SELECT rowid FROM requirements_fts
		WHERE requirements_fts MATCH ?
		ORDER BY rank
	`, ftsQuote(query))
	if err != nil {
		return nil, fmt.Errorf("full-text search: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ftsQuote turns free text into a conjunction of quoted FTS5 terms.
func ftsQuote(q string) string {
	fields := strings.Fields(q)
	for i, f := range fields {
		fields[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(fields, " ")
}
