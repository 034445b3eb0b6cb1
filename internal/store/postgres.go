package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-chapter-translator/internal/chapter"
	"github.com/nerdneilsfield/go-chapter-translator/internal/logger"
)

// PgxIface pgxpool.Pool 的子集，便于用 pgxmock 替换
type PgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

const schemaSQL = `CREATE TABLE IF NOT EXISTS translations (
	id                 BIGSERIAL PRIMARY KEY,
	chapter_url        TEXT NOT NULL UNIQUE,
	chapter_title      TEXT NOT NULL,
	translated_content TEXT NOT NULL,
	prev_chapter       TEXT,
	next_chapter       TEXT,
	book_number        TEXT,
	chapter_number     TEXT,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const selectSQL = `SELECT chapter_url, chapter_title, translated_content, prev_chapter, next_chapter,
	book_number, chapter_number, created_at, updated_at
FROM translations WHERE chapter_url = $1`

const upsertSQL = `INSERT INTO translations (chapter_url, chapter_title, translated_content, prev_chapter,
	next_chapter, book_number, chapter_number, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
ON CONFLICT (chapter_url) DO UPDATE SET
	chapter_title = EXCLUDED.chapter_title,
	translated_content = EXCLUDED.translated_content,
	prev_chapter = EXCLUDED.prev_chapter,
	next_chapter = EXCLUDED.next_chapter,
	book_number = EXCLUDED.book_number,
	chapter_number = EXCLUDED.chapter_number,
	updated_at = EXCLUDED.updated_at
RETURNING created_at, updated_at`

// PostgresStore translations 表上的存储
type PostgresStore struct {
	db     PgxIface
	now    func() time.Time
	logger *zap.Logger
}

// NewPostgresStore 使用已有连接池创建存储
func NewPostgresStore(db PgxIface, log *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now, logger: logger.OrNop(log)}
}

// OpenPostgres 连接数据库，autoMigrate 时创建表
func OpenPostgres(ctx context.Context, dsn string, autoMigrate bool, log *zap.Logger) (*PostgresStore, error) {
	log = logger.OrNop(log)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := NewPostgresStore(pool, log)
	if autoMigrate {
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	log.Info("postgres store ready", zap.Bool("autoMigrate", autoMigrate))
	return s, nil
}

// EnsureSchema 创建 translations 表
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create translations table: %w", err)
	}
	s.logger.Debug("translations table ready")
	return nil
}

// Get 获取章节
func (s *PostgresStore) Get(ctx context.Context, key chapter.Key) (*chapter.Document, error) {
	var (
		doc               chapter.Document
		url               string
		prev, next        *string
		bookID, chapterID *string
	)
	err := s.db.QueryRow(ctx, selectSQL, key.String()).Scan(
		&url, &doc.Title, &doc.TranslatedBody, &prev, &next,
		&bookID, &chapterID, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query translation: %w", err)
	}

	doc.Key = chapter.Key(url)
	doc.PrevKey = chapter.OptionalKey(deref(prev))
	doc.NextKey = chapter.OptionalKey(deref(next))
	doc.BookID = deref(bookID)
	doc.ChapterID = deref(chapterID)
	return &doc, nil
}

// Upsert 写入章节，冲突时更新内容并保留 created_at
func (s *PostgresStore) Upsert(ctx context.Context, doc *chapter.Document) error {
	if err := validate(doc); err != nil {
		return err
	}

	err := s.db.QueryRow(ctx, upsertSQL,
		doc.Key.String(),
		doc.Title,
		doc.TranslatedBody,
		nullable(doc.PrevURL()),
		nullable(doc.NextURL()),
		nullable(doc.BookID),
		nullable(doc.ChapterID),
		s.now().UTC(),
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert translation: %w", err)
	}
	return nil
}

// Close 关闭连接池
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
