package database

import (
	"context"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateAppliesPendingFilesInOrder(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "sqlmock")
	defer db.Close()

	files := fstest.MapFS{
		"002_more.sql": {Data: []byte("ALTER TABLE classes ADD COLUMN room TEXT")},
		"001_init.sql": {Data: []byte("CREATE TABLE accounts (id UUID)")},
		"003_new.sql":  {Data: []byte("CREATE TABLE extra (id UUID)")},
		"README.md":    {Data: []byte("ignored")},
	}

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS schema_migrations`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT version FROM schema_migrations`)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("001_init"))
	for _, m := range []struct{ version, body string }{
		{"002_more", "ALTER TABLE classes ADD COLUMN room TEXT"},
		{"003_new", "CREATE TABLE extra (id UUID)"},
	} {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(m.body)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO schema_migrations`)).WithArgs(m.version).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()
	}

	ran, err := Migrate(context.Background(), db, files)
	require.NoError(t, err)
	assert.Equal(t, []string{"002_more", "003_new"}, ran)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateRollsBackFailedFile(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "sqlmock")
	defer db.Close()

	files := fstest.MapFS{"001_init.sql": {Data: []byte("CREATE TABLE broken")}}

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS schema_migrations`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT version FROM schema_migrations`)).WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE broken")).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	ran, err := Migrate(context.Background(), db, files)
	require.Error(t, err)
	assert.Empty(t, ran)
	assert.NoError(t, mock.ExpectationsWereMet())
}
