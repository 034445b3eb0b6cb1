package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-chapter-translator/internal/chapter"
)

var selectColumns = []string{
	"chapter_url", "chapter_title", "translated_content", "prev_chapter", "next_chapter",
	"book_number", "chapter_number", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock, zap.NewNop()), mock
}

func TestPostgresStoreGet(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	prev := "https://www.69shuba.com/txt/1/1"
	book, chap := "1", "2"

	mock.ExpectQuery(`(?is)SELECT chapter_url.*FROM translations WHERE chapter_url = \$1`).
		WithArgs("https://www.69shuba.com/txt/1/2").
		WillReturnRows(pgxmock.NewRows(selectColumns).
			AddRow("https://www.69shuba.com/txt/1/2", "第二章", "<p>Hello</p>\n", &prev, (*string)(nil),
				&book, &chap, created, created))

	got, err := s.Get(context.Background(), "https://www.69shuba.com/txt/1/2")
	require.NoError(t, err)
	assert.Equal(t, chapter.Key("https://www.69shuba.com/txt/1/2"), got.Key)
	assert.Equal(t, prev, got.PrevURL())
	assert.Nil(t, got.NextKey)
	assert.Equal(t, "1", got.BookID)
	assert.Equal(t, created, got.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`(?is)SELECT chapter_url.*FROM translations`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`(?is)SELECT chapter_url.*FROM translations`).
		WithArgs("u").
		WillReturnError(errors.New("connection reset"))

	_, err := s.Get(context.Background(), "u")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresStoreUpsert(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)
	created := now.Add(-24 * time.Hour)
	s.now = func() time.Time { return now }

	doc := sampleDocument()
	mock.ExpectQuery(`(?is)INSERT INTO translations.*ON CONFLICT \(chapter_url\) DO UPDATE.*RETURNING created_at, updated_at`).
		WithArgs(doc.Key.String(), doc.Title, doc.TranslatedBody,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), now).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, now))

	require.NoError(t, s.Upsert(context.Background(), doc))
	assert.Equal(t, created, doc.CreatedAt)
	assert.Equal(t, now, doc.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreUpsertError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`(?is)INSERT INTO translations`).
		WillReturnError(errors.New("disk full"))

	err := s.Upsert(context.Background(), sampleDocument())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestPostgresStoreEnsureSchema(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`(?is)CREATE TABLE IF NOT EXISTS translations`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
