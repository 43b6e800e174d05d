package roles

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/usermanager/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	findQuery   = `(?s)^SELECT\s+id,\s*name\s+FROM\s+roles\s+WHERE\s+upper\(name\)\s*=\s*upper\(\$1\)\s*$`
	assignQuery = `(?s)^INSERT\s+INTO\s+user_roles\s*\(user_id,\s*role_id\)\s*VALUES\s*\(\$1,\s*\$2\)\s*ON\s+CONFLICT\s+DO\s+NOTHING\s*$`
	listQuery   = `(?s)^SELECT\s+r\.name\s+FROM\s+user_roles\s+ur\s+JOIN\s+roles\s+r.*WHERE\s+ur\.user_id\s*=\s*\$1\s+ORDER\s+BY\s+ur\.created_at,\s*r\.name\s*$`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestFindByName(t *testing.T) {
	t.Run("found returns stored spelling", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(findQuery).
			WithArgs("admin").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("r-1", "Admin"))

		role, err := repo.FindByName(context.Background(), "admin")
		require.NoError(t, err)
		assert.Equal(t, "r-1", role.ID)
		assert.Equal(t, "Admin", role.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(findQuery).WithArgs("Ghost").WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByName(context.Background(), "Ghost")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(findQuery).WithArgs("Admin").WillReturnError(errors.New("conn reset"))

		_, err := repo.FindByName(context.Background(), "Admin")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db error: conn reset")
	})
}

func TestAssignToUser(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(assignQuery).WithArgs("u-1", "r-1").WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.AssignToUser(context.Background(), "u-1", "r-1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		dbErr := errors.New("fk violation")
		mock.ExpectExec(assignQuery).WithArgs("u-1", "r-1").WillReturnError(dbErr)

		err := repo.AssignToUser(context.Background(), "u-1", "r-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error performing sql request")
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestListNamesForUser(t *testing.T) {
	t.Run("keeps row order", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(listQuery).WithArgs("u-1").
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("User").AddRow("Admin"))

		names, err := repo.ListNamesForUser(context.Background(), "u-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"User", "Admin"}, names)
	})

	t.Run("no roles yields empty slice", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(listQuery).WithArgs("u-2").WillReturnRows(sqlmock.NewRows([]string{"name"}))

		names, err := repo.ListNamesForUser(context.Background(), "u-2")
		require.NoError(t, err)
		assert.NotNil(t, names)
		assert.Empty(t, names)
	})

	t.Run("query error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(listQuery).WithArgs("u-1").WillReturnError(errors.New("boom"))

		_, err := repo.ListNamesForUser(context.Background(), "u-1")
		assert.ErrorContains(t, err, "db error: boom")
	})

	t.Run("row error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		rows := sqlmock.NewRows([]string{"name"}).AddRow("User").RowError(0, errors.New("bad row"))
		mock.ExpectQuery(listQuery).WithArgs("u-1").WillReturnRows(rows)

		_, err := repo.ListNamesForUser(context.Background(), "u-1")
		assert.ErrorContains(t, err, "bad row")
	})
}
