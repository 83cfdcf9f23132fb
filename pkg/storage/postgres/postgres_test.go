package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/depot/pkg/api"
	"github.com/platinummonkey/depot/pkg/storage"
)

func newMockStorage(t *testing.T) (*PostgresStorage, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewPostgresStorageFromDB(db), mock, db
}

func TestPostgresStorage_EnsureSchema(t *testing.T) {
	s, mock, db := newMockStorage(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS packages`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_ListPackages(t *testing.T) {
	s, mock, db := newMockStorage(t)
	defer db.Close()

	t.Run("success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"creator", "package_name", "version", "dependencies"}).
			AddRow("C", "D", "1", []byte(`{}`)).
			AddRow("User", "Fuzzy", "1", []byte(`{"C.D.v1":{}}`)).
			AddRow("", "Anonymous", "1", nil)

		mock.ExpectQuery(`SELECT creator, package_name, version, dependencies\s+FROM packages\s+ORDER BY`).
			WillReturnRows(rows)

		packages, err := s.ListPackages(context.Background())
		require.NoError(t, err)
		require.Len(t, packages, 3)

		assert.Equal(t, "c.d.1", packages[0].ID())
		assert.Equal(t, []string{"C.D.v1"}, packages[1].DependencyIDs())
		assert.Equal(t, "postgres:packages/User/Fuzzy/1", packages[1].Source)
		assert.Empty(t, packages[2].Dependencies)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT creator, package_name, version, dependencies`).
			WillReturnError(errors.New("connection reset"))

		_, err := s.ListPackages(context.Background())
		assert.ErrorContains(t, err, "failed to list packages")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt dependencies", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"creator", "package_name", "version", "dependencies"}).
			AddRow("C", "D", "1", []byte(`[1,2]`))
		mock.ExpectQuery(`SELECT creator, package_name, version, dependencies`).WillReturnRows(rows)

		_, err := s.ListPackages(context.Background())
		assert.ErrorContains(t, err, "failed to decode dependencies of c.d.1")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStorage_SavePackage(t *testing.T) {
	s, mock, db := newMockStorage(t)
	defer db.Close()

	t.Run("upsert", func(t *testing.T) {
		pkg := &api.Package{
			Creator:      "Acme",
			PackageName:  "Widgets",
			Version:      "3",
			Dependencies: map[string]interface{}{"core.base.latest": map[string]interface{}{}},
		}

		mock.ExpectExec(`INSERT INTO packages .* ON CONFLICT \(creator, package_name, version\)`).
			WithArgs("Acme", "Widgets", "3", []byte(`{"core.base.latest":{}}`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.SavePackage(context.Background(), pkg))
		assert.Equal(t, "postgres:packages/Acme/Widgets/3", pkg.Source)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil dependencies stored as empty object", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO packages`).
			WithArgs("a", "b", "1", []byte(`{}`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.SavePackage(context.Background(), &api.Package{Creator: "a", PackageName: "b", Version: "1"}))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing package name", func(t *testing.T) {
		err := s.SavePackage(context.Background(), &api.Package{Creator: "a"})
		assert.ErrorIs(t, err, storage.ErrInvalidMetadata)
	})
}

func TestPostgresStorage_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	s := NewPostgresStorageFromDB(db)

	mock.ExpectPing()
	require.NoError(t, s.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.ErrorContains(t, s.Ping(context.Background()), "postgres health check failed")

	assert.Same(t, db, s.DB())
	require.NoError(t, mock.ExpectationsWereMet())
}
