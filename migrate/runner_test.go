package migrate

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func writeMigration(t *testing.T, fs afero.Fs, name, sql string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, "migrations/"+name, []byte(sql), 0o644))
}

func TestRunnerLoadSortsByName(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeMigration(t, fs, "002_add_flag.sql", `ALTER TABLE "things" ADD COLUMN "a_flag" boolean`)
	writeMigration(t, fs, "001_init.sql", `CREATE TABLE "things" ("id" serial PRIMARY KEY)`)
	writeMigration(t, fs, "010_add_email.sql", `ALTER TABLE "things" ADD COLUMN "email_address" text`)

	r := NewRunner(fs, "migrations", nil)
	migrations, err := r.Load()
	require.NoError(t, err)
	require.Len(t, migrations, 3)
	require.Equal(t, "001_init", migrations[0].Name)
	require.Equal(t, "002_add_flag", migrations[1].Name)
	require.Equal(t, "010_add_email", migrations[2].Name)
}

func TestRunnerLoadIgnoresNonSQLEntries(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeMigration(t, fs, "001_init.sql", `CREATE TABLE "things" ("id" serial PRIMARY KEY)`)
	require.NoError(t, afero.WriteFile(fs, "migrations/README.md", []byte("notes"), 0o644))
	require.NoError(t, fs.MkdirAll("migrations/archive", 0o755))

	r := NewRunner(fs, "migrations", nil)
	migrations, err := r.Load()
	require.NoError(t, err)
	require.Len(t, migrations, 1)
	require.Equal(t, "001_init", migrations[0].Name)
}

func TestRunnerLoadMissingDirectory(t *testing.T) {
	r := NewRunner(afero.NewMemMapFs(), "nope", nil)
	_, err := r.Load()
	require.Error(t, err)
}

func TestMigrationChecksumTracksContents(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeMigration(t, fs, "001_init.sql", "CREATE TABLE a ()")

	r := NewRunner(fs, "migrations", nil)
	before, err := r.Load()
	require.NoError(t, err)
	require.NotEmpty(t, before[0].Checksum)

	same, err := r.Load()
	require.NoError(t, err)
	require.Equal(t, before[0].Checksum, same[0].Checksum)

	writeMigration(t, fs, "001_init.sql", "CREATE TABLE b ()")
	after, err := r.Load()
	require.NoError(t, err)
	require.NotEqual(t, before[0].Checksum, after[0].Checksum)
}
