package testsupport

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
)

// Plex values the fixture schema relies on.
const (
	MetadataTypePhoto = 13
	MetadataTypeAlbum = 14
	TagTypeFace       = 0
	TagTypeGenre      = 1
)

// The subset of the Plex library schema plex-faces touches. The audit table
// and its triggers stand in for the FTS triggers Plex keeps on tags.
const librarySchema = `
CREATE TABLE metadata_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	library_section_id integer,
	metadata_type integer,
	title varchar(255) default '',
	created_at datetime,
	updated_at datetime
);
CREATE TABLE media_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	metadata_item_id integer,
	width integer,
	height integer
);
CREATE TABLE media_parts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	media_item_id integer,
	file varchar(255),
	size integer
);
CREATE TABLE tags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	metadata_item_id integer,
	tag varchar(255),
	tag_type integer,
	created_at datetime,
	updated_at datetime
);
CREATE TABLE taggings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	metadata_item_id integer,
	tag_id integer,
	"index" integer,
	text varchar(255),
	created_at datetime
);
CREATE INDEX index_taggings_on_metadata_item_id ON taggings (metadata_item_id);
CREATE INDEX index_taggings_on_tag_id ON taggings (tag_id);
CREATE TABLE tag_audit (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tag_id integer,
	action varchar(16)
);
CREATE TRIGGER tags_audit_insert AFTER INSERT ON tags BEGIN
	INSERT INTO tag_audit (tag_id, action) VALUES (new.id, 'insert');
END;
CREATE TRIGGER tags_audit_delete AFTER DELETE ON tags BEGIN
	INSERT INTO tag_audit (tag_id, action) VALUES (old.id, 'delete');
END;
`

// LibraryOption customizes a test library.
type LibraryOption func(*libraryBuilder)

type libraryBuilder struct {
	migrated bool
}

// WithMigratedColumns creates the FaceUpdateTime and PlaceUpdateTime columns
// up front, as if plex-faces had already run against the library.
func WithMigratedColumns() LibraryOption {
	return func(b *libraryBuilder) {
		b.migrated = true
	}
}

// Library is a throwaway SQLite database laid out like a Plex library.
type Library struct {
	t    testing.TB
	Path string
	db   *sql.DB
}

// NewLibrary creates a Plex-like library database in a temp directory. The
// fixture connection is closed on test cleanup.
func NewLibrary(t testing.TB, opts ...LibraryOption) *Library {
	t.Helper()

	b := &libraryBuilder{}
	for _, opt := range opts {
		opt(b)
	}

	path := filepath.Join(t.TempDir(), "com.plexapp.plugins.library.db")
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", path))
	if err != nil {
		t.Fatalf("open library: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		db.Close()
	})

	if _, err := db.Exec(librarySchema); err != nil {
		t.Fatalf("create library schema: %v", err)
	}
	if b.migrated {
		for _, col := range []string{"FaceUpdateTime", "PlaceUpdateTime"} {
			if _, err := db.Exec("ALTER TABLE metadata_items ADD COLUMN " + col + " datetime"); err != nil {
				t.Fatalf("add %s: %v", col, err)
			}
		}
	}

	return &Library{t: t, Path: path, db: db}
}

// DB exposes the fixture connection for ad hoc assertions.
func (l *Library) DB() *sql.DB {
	return l.db
}

// AddPhoto inserts a photo with one media part pointing at file and returns
// its metadata item id.
func (l *Library) AddPhoto(file string) int64 {
	l.t.Helper()
	return l.addItem(MetadataTypePhoto, file)
}

// AddAlbum inserts a non-photo item that scans must ignore.
func (l *Library) AddAlbum(title string) int64 {
	l.t.Helper()
	return l.addItem(MetadataTypeAlbum, "")
}

func (l *Library) addItem(metadataType int, file string) int64 {
	l.t.Helper()

	now := time.Now().Unix()
	res, err := l.db.Exec(
		"INSERT INTO metadata_items (library_section_id, metadata_type, created_at, updated_at) VALUES (1, ?, ?, ?)",
		metadataType, now, now,
	)
	if err != nil {
		l.t.Fatalf("insert metadata item: %v", err)
	}
	mid, _ := res.LastInsertId()

	if file == "" {
		return mid
	}

	res, err = l.db.Exec("INSERT INTO media_items (metadata_item_id) VALUES (?)", mid)
	if err != nil {
		l.t.Fatalf("insert media item: %v", err)
	}
	mediaID, _ := res.LastInsertId()

	if _, err := l.db.Exec("INSERT INTO media_parts (media_item_id, file) VALUES (?, ?)", mediaID, file); err != nil {
		l.t.Fatalf("insert media part: %v", err)
	}
	return mid
}

// SetFaceUpdateTime stores ts as the photo's FaceUpdateTime in epoch seconds.
// The library must have the migrated columns.
func (l *Library) SetFaceUpdateTime(mid int64, ts time.Time) {
	l.t.Helper()

	if _, err := l.db.Exec("UPDATE metadata_items SET FaceUpdateTime = ? WHERE id = ?", ts.Unix(), mid); err != nil {
		l.t.Fatalf("set FaceUpdateTime: %v", err)
	}
}

// AddTag attaches a tag of the given type to a photo, creating the tag when
// needed. It returns the tag id.
func (l *Library) AddTag(mid int64, name string, tagType int) int64 {
	l.t.Helper()

	var tagID int64
	err := l.db.QueryRow("SELECT id FROM tags WHERE tag = ? AND tag_type = ?", name, tagType).Scan(&tagID)
	if err == sql.ErrNoRows {
		tagID = l.AddLoneTag(name, tagType)
	} else if err != nil {
		l.t.Fatalf("look up tag: %v", err)
	}

	if _, err := l.db.Exec(
		`INSERT INTO taggings (metadata_item_id, tag_id, "index") VALUES (?, ?, 0)`, mid, tagID,
	); err != nil {
		l.t.Fatalf("insert tagging: %v", err)
	}
	return tagID
}

// AddLoneTag creates a tag no photo refers to.
func (l *Library) AddLoneTag(name string, tagType int) int64 {
	l.t.Helper()

	res, err := l.db.Exec("INSERT INTO tags (tag, tag_type) VALUES (?, ?)", name, tagType)
	if err != nil {
		l.t.Fatalf("insert tag: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// TagNames returns the names of all tags of tagType ordered by name.
func (l *Library) TagNames(tagType int) []string {
	l.t.Helper()
	return l.strings("SELECT tag FROM tags WHERE tag_type = ? ORDER BY tag", tagType)
}

// TagsOf returns the names of the tags of tagType attached to a photo, in
// tagging order.
func (l *Library) TagsOf(mid int64, tagType int) []string {
	l.t.Helper()
	return l.strings(`
		SELECT t.tag FROM taggings tg JOIN tags t ON t.id = tg.tag_id
		WHERE tg.metadata_item_id = ? AND t.tag_type = ?
		ORDER BY tg."index", tg.id`, mid, tagType)
}

// TriggerNames returns the triggers currently defined on tags.
func (l *Library) TriggerNames() []string {
	l.t.Helper()
	return l.strings("SELECT name FROM sqlite_master WHERE type = 'trigger' AND tbl_name = 'tags' ORDER BY name")
}

// AuditCount returns how many tag_audit rows the triggers have written.
func (l *Library) AuditCount() int {
	l.t.Helper()

	var n int
	if err := l.db.QueryRow("SELECT COUNT(*) FROM tag_audit").Scan(&n); err != nil {
		l.t.Fatalf("count audit rows: %v", err)
	}
	return n
}

// FaceUpdateTime returns the raw FaceUpdateTime of a photo in epoch seconds,
// or 0 when unset.
func (l *Library) FaceUpdateTime(mid int64) int64 {
	l.t.Helper()

	var v sql.NullInt64
	if err := l.db.QueryRow("SELECT CAST(FaceUpdateTime AS INTEGER) FROM metadata_items WHERE id = ?", mid).Scan(&v); err != nil {
		l.t.Fatalf("read FaceUpdateTime: %v", err)
	}
	return v.Int64
}

// Columns returns the column names of table in schema order.
func (l *Library) Columns(table string) []string {
	l.t.Helper()
	return l.strings("SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
}

func (l *Library) strings(query string, args ...any) []string {
	l.t.Helper()

	rows, err := l.db.Query(query, args...)
	if err != nil {
		l.t.Fatalf("query %q: %v", query, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			l.t.Fatalf("scan: %v", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		l.t.Fatalf("rows: %v", err)
	}
	return out
}
