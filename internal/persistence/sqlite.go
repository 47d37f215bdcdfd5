package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// sqliteTimeLayout is fixed-width so stored timestamps compare correctly as text
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteDB implements the Database interface on an embedded SQLite file
type SQLiteDB struct {
	db        *sql.DB
	path      string
	stories   StoryRepository
	articles  ArticleRepository
	selection SelectionRepository
}

// OpenSQLite opens (creating if needed) the SQLite database at path.
// ":memory:" opens a private in-memory database on a single connection.
func OpenSQLite(path string) (*SQLiteDB, error) {
	inMemory := path == ":memory:"
	if !inMemory {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers anyway; one connection also keeps :memory: a single database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &SQLiteDB{
		db:        db,
		path:      path,
		stories:   &sqliteStoryRepo{db: db},
		articles:  &sqliteArticleRepo{db: db},
		selection: &sqliteSelectionRepo{db: db},
	}, nil
}

func (s *SQLiteDB) Stories() StoryRepository       { return s.stories }
func (s *SQLiteDB) Articles() ArticleRepository    { return s.articles }
func (s *SQLiteDB) Selection() SelectionRepository { return s.selection }
func (s *SQLiteDB) SQL() *sql.DB                   { return s.db }
func (s *SQLiteDB) Dialect() string                { return DialectSQLite }
func (s *SQLiteDB) Path() string                   { return s.path }

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDB) BeginTx(ctx context.Context) (Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{
		tx:       tx,
		stories:  &sqliteStoryRepo{db: s.db, tx: tx},
		articles: &sqliteArticleRepo{db: s.db, tx: tx},
	}, nil
}

func sqliteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func sqliteNullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return sqliteTime(*t)
}

func parseSQLiteTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", value, err)
	}
	return t.UTC(), nil
}

func parseSQLiteNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := parseSQLiteTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(b), nil
}

func decodeTags(raw string) ([]string, error) {
	tags := []string{}
	if raw == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return tags, nil
}

// inPlaceholders returns "?, ?, ?" for n values
func inPlaceholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
