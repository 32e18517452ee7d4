package sqlexec

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		stmt   string
		reject bool
	}{
		{"plain select", "SELECT * FROM usuarios", false},
		{"lowercase select", "select titulo from contenido limit 5", false},
		{"trailing semicolon", "SELECT 1;", false},
		{"empty", "   ", true},
		{"multiple statements", "SELECT 1; SELECT 2", true},
		{"not a select", "EXPLAIN SELECT 1", true},
		{"drop", "DROP TABLE usuarios", true},
		{"delete", "DELETE FROM usuarios", true},
		{"insert", "INSERT INTO usuarios VALUES (1)", true},
		{"update prefixed by select", "SELECT 1; UPDATE usuarios SET nombre = 'x'", true},
		{"keyword hidden in select", "SELECT * FROM logs WHERE action = 'DROP'", true},
		// Substring matching is intentional: column names containing a
		// denied keyword are rejected too.
		{"keyword inside identifier", "SELECT created_at FROM usuarios", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reason := Validate(tc.stmt)
			if tc.reject {
				assert.NotEmpty(t, reason)
			} else {
				assert.Empty(t, reason)
			}
		})
	}
}

func TestExecute_RejectedStatementNeverReachesStore(t *testing.T) {
	db := openTestDB(t)

	res := New(db, nil).Execute(context.Background(), "DROP TABLE contenido")
	assert.False(t, res.Success)
	assert.Equal(t, ErrValidation, res.ErrorKind)

	// The table must still exist.
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM contenido").Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestExecute_CollectsRows(t *testing.T) {
	db := openTestDB(t)

	res := New(db, nil).Execute(context.Background(), "SELECT titulo, vistas FROM contenido ORDER BY vistas DESC")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"titulo", "vistas"}, res.Columns)
	assert.Equal(t, 2, res.RowCount)
	assert.Equal(t, "Aventuras Galácticas", res.Rows[0][0])
}

func TestExecute_DatabaseError(t *testing.T) {
	db := openTestDB(t)

	res := New(db, nil).Execute(context.Background(), "SELECT nope FROM contenido")
	assert.False(t, res.Success)
	assert.Equal(t, ErrExecution, res.ErrorKind)
	assert.NotEmpty(t, res.Error)
}

func TestRender(t *testing.T) {
	t.Run("rows", func(t *testing.T) {
		res := Result{
			Success:  true,
			Columns:  []string{"titulo", "vistas"},
			Rows:     [][]any{{"El Viaje", 100}, {nil, 3}},
			RowCount: 2,
		}
		out := Render(res)
		assert.Contains(t, out, "Query returned 2 row(s):")
		assert.Contains(t, out, "titulo | vistas")
		assert.Contains(t, out, "El Viaje | 100")
		assert.Contains(t, out, "NULL | 3")
	})

	t.Run("no rows", func(t *testing.T) {
		out := Render(Result{Success: true})
		assert.Equal(t, "Query executed successfully but returned no results.", out)
	})
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE contenido (titulo TEXT, vistas INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO contenido VALUES ('Aventuras Galácticas', 100), ('Terror Nocturno', 40)`)
	require.NoError(t, err)
	return db
}
