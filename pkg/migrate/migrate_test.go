package migrate

import (
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"migrations/001_create_runs.up.sql":    {Data: []byte("CREATE TABLE runs (id TEXT PRIMARY KEY);")},
		"migrations/001_create_runs.down.sql":  {Data: []byte("DROP TABLE runs;")},
		"migrations/002_create_files.up.sql":   {Data: []byte("CREATE TABLE files (id INTEGER PRIMARY KEY, run_id TEXT); CREATE INDEX files_run ON files(run_id);")},
		"migrations/002_create_files.down.sql": {Data: []byte("DROP TABLE files;")},
		"migrations/README.md":                 {Data: []byte("not a migration")},
	}
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestFSProviderGetMigrations(t *testing.T) {
	migrations, err := NewFSProvider(testFS(), "migrations", "").GetMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	require.Equal(t, 1, migrations[0].Version)
	require.Equal(t, "create runs", migrations[0].Name)
	require.Contains(t, migrations[1].Up, "CREATE TABLE files")
	require.Equal(t, "DROP TABLE files;", migrations[1].Down)
}

func TestMigrateUpAndDown(t *testing.T) {
	db := openDB(t)
	m := NewMigrator(db, NewFSProvider(testFS(), "migrations", ""), nil)

	pending, err := m.GetPendingMigrations()
	require.NoError(t, err)
	require.Len(t, pending, 2)

	require.NoError(t, m.MigrateUp())
	version, err := m.GetCurrentVersion()
	require.NoError(t, err)
	require.Equal(t, 2, version)
	require.True(t, tableExists(t, db, "runs"))
	require.True(t, tableExists(t, db, "files"))

	// Running again is a no-op.
	require.NoError(t, m.MigrateUp())

	require.NoError(t, m.MigrateTo(1))
	version, err = m.GetCurrentVersion()
	require.NoError(t, err)
	require.Equal(t, 1, version)
	require.False(t, tableExists(t, db, "files"))
	require.True(t, tableExists(t, db, "runs"))

	require.NoError(t, m.MigrateDown(0))
	version, err = m.GetCurrentVersion()
	require.NoError(t, err)
	require.Equal(t, 0, version)
	require.False(t, tableExists(t, db, "runs"))

	require.Error(t, m.MigrateDown(0))
}

func TestMigrateFailureRollsBack(t *testing.T) {
	fsys := fstest.MapFS{
		"001_ok.up.sql":     {Data: []byte("CREATE TABLE ok (id INTEGER);")},
		"002_broken.up.sql": {Data: []byte("CREATE TABLE broken (;")},
	}
	db := openDB(t)
	m := NewMigrator(db, NewFSProvider(fsys, ".", "versions"), nil)

	require.Error(t, m.MigrateUp())
	version, err := m.GetCurrentVersion()
	require.NoError(t, err)
	require.Equal(t, 1, version)
	require.False(t, tableExists(t, db, "broken"))
}
