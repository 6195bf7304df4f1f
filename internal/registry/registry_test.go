package registry

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/prudhvinik1/deltasync/internal/database"
	"github.com/prudhvinik1/deltasync/internal/models"
	"github.com/prudhvinik1/deltasync/internal/repositories"
	"github.com/prudhvinik1/deltasync/internal/syncerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The registry never touches the database handle, so a nil *sql.DB is
// enough to construct accessors.
func sqliteFactory(def models.EntityDefinition) repositories.EntityAccessor {
	var db *sql.DB
	return repositories.NewSQLiteEntityRepository(db, def, nil)
}

func TestBuild_DefaultDefinitions(t *testing.T) {
	defs, err := DefaultDefinitions()
	require.NoError(t, err)

	reg, err := Build(defs, sqliteFactory)
	require.NoError(t, err)

	assert.Equal(t, []string{"notifications", "user_settings"}, reg.EntityTypes())

	accessor, err := reg.Accessor("user_settings")
	require.NoError(t, err)
	assert.Equal(t, "user_id", accessor.Definition().OwnerField)
}

func TestAccessor_UnknownEntityType(t *testing.T) {
	reg := New()

	_, err := reg.Accessor("billing_invoices")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownEntityType)
	assert.Equal(t, syncerr.KindConfiguration, syncerr.KindOf(err))
}

func TestRegister_Duplicate(t *testing.T) {
	def := models.EntityDefinition{Name: "notes", Table: "notes", OwnerField: "user_id", Fields: []string{"title"}}
	reg := New()
	require.NoError(t, reg.Register(sqliteFactory(def)))

	err := reg.Register(sqliteFactory(def))

	assert.True(t, syncerr.Is(err, syncerr.KindConfiguration))
}

func TestLoadDefinitions_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.yaml")
	content := []byte(`
entities:
  - name: notes
    table: notes
    owner_field: author_id
    fields: [title, body]
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	defs, err := LoadDefinitions(path)

	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "author_id", defs[0].OwnerField)
	assert.Equal(t, []string{"title", "body"}, defs[0].Fields)
}

func TestParseDefinitions_Invalid(t *testing.T) {
	_, err := ParseDefinitions([]byte("entities:\n  - name: x\n    table: \"bad table\"\n    owner_field: o\n    fields: [a]\n"))
	assert.Error(t, err)

	_, err = ParseDefinitions([]byte("entities: []\n"))
	assert.Error(t, err)
}

func migratedSQLite(t *testing.T) *sql.DB {
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.NewSQLiteDB(context.Background(), dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestVerify_DefaultDefinitions(t *testing.T) {
	db := migratedSQLite(t)
	defs, err := DefaultDefinitions()
	require.NoError(t, err)
	reg, err := Build(defs, func(def models.EntityDefinition) repositories.EntityAccessor {
		return repositories.NewSQLiteEntityRepository(db, def, nil)
	})
	require.NoError(t, err)

	assert.NoError(t, reg.Verify(context.Background()))
}

// TestVerify_MissingTable checks that a definition without a migrated table
// fails at startup as a configuration fault.
func TestVerify_MissingTable(t *testing.T) {
	db := migratedSQLite(t)
	def := models.EntityDefinition{Name: "invoices", Table: "invoices", OwnerField: "user_id", Fields: []string{"total"}}
	reg, err := Build([]models.EntityDefinition{def}, func(def models.EntityDefinition) repositories.EntityAccessor {
		return repositories.NewSQLiteEntityRepository(db, def, nil)
	})
	require.NoError(t, err, "registration does not touch the database")

	err = reg.Verify(context.Background())

	require.Error(t, err)
	assert.Equal(t, syncerr.KindConfiguration, syncerr.KindOf(err))
	assert.Contains(t, err.Error(), "invoices")
}
