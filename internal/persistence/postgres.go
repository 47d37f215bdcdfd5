package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver
)

// PostgresDB implements the Database interface for PostgreSQL with pgvector
type PostgresDB struct {
	db        *sql.DB
	stories   StoryRepository
	articles  ArticleRepository
	selection SelectionRepository
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(ctx context.Context, connectionString string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{
		db:        db,
		stories:   &postgresStoryRepo{db: db},
		articles:  &postgresArticleRepo{db: db},
		selection: &postgresSelectionRepo{db: db},
	}, nil
}

func (p *PostgresDB) Stories() StoryRepository       { return p.stories }
func (p *PostgresDB) Articles() ArticleRepository    { return p.articles }
func (p *PostgresDB) Selection() SelectionRepository { return p.selection }
func (p *PostgresDB) SQL() *sql.DB                   { return p.db }
func (p *PostgresDB) Dialect() string                { return DialectPostgres }

func (p *PostgresDB) Close() error {
	return p.db.Close()
}

func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresDB) BeginTx(ctx context.Context) (Transaction, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{
		tx:       tx,
		stories:  &postgresStoryRepo{db: p.db, tx: tx},
		articles: &postgresArticleRepo{db: p.db, tx: tx},
	}, nil
}

// sqlTx implements Transaction for both dialects
type sqlTx struct {
	tx       *sql.Tx
	stories  StoryRepository
	articles ArticleRepository
}

func (t *sqlTx) Commit() error               { return t.tx.Commit() }
func (t *sqlTx) Rollback() error             { return t.tx.Rollback() }
func (t *sqlTx) Stories() StoryRepository    { return t.stories }
func (t *sqlTx) Articles() ArticleRepository { return t.articles }
