package schema

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tables := []Table{
		{
			Name: "usuarios",
			Columns: []Column{
				{Name: "id_usuario", Type: "integer", IsPK: true},
				{Name: "nombre", Type: "character varying", MaxLen: sql.NullInt64{Int64: 100, Valid: true}, Nullable: false},
				{Name: "fecha_registro", Type: "timestamp without time zone", Nullable: true},
			},
		},
		{
			Name: "visualizaciones",
			Columns: []Column{
				{Name: "id_usuario", Type: "integer"},
				{Name: "id_contenido", Type: "integer"},
			},
			ForeignKeys: []ForeignKey{
				{Column: "id_usuario", ForeignTable: "usuarios", ForeignColumn: "id_usuario"},
				{Column: "id_contenido", ForeignTable: "contenido", ForeignColumn: "id_contenido"},
			},
		},
	}

	out := render(tables)

	assert.Contains(t, out, "CREATE TABLE usuarios (")
	assert.Contains(t, out, "  id_usuario INTEGER PRIMARY KEY")
	assert.Contains(t, out, "  nombre VARCHAR(100) NOT NULL")
	assert.Contains(t, out, "  fecha_registro TIMESTAMP")
	assert.Contains(t, out, "-- visualizaciones.id_usuario can be joined with usuarios.id_usuario")
	assert.Contains(t, out, "-- visualizaciones.id_contenido can be joined with contenido.id_contenido")

	// Rendering is deterministic for a fixed table list.
	assert.Equal(t, out, render(tables))
}

func TestRender_Empty(t *testing.T) {
	assert.Equal(t, "(no tables found)", render(nil))
}

// countingDriver is a minimal database/sql driver that answers every
// query with zero rows and counts how many reach it.
type countingDriver struct{ queries *int }

func (d countingDriver) Open(string) (driver.Conn, error) {
	return countingConn{queries: d.queries}, nil
}

type countingConn struct{ queries *int }

func (c countingConn) Prepare(string) (driver.Stmt, error) {
	*c.queries++
	return emptyStmt{}, nil
}

func (c countingConn) Close() error { return nil }

func (c countingConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

type emptyStmt struct{}

func (emptyStmt) Close() error  { return nil }
func (emptyStmt) NumInput() int { return -1 }

func (emptyStmt) Exec([]driver.Value) (driver.Result, error) {
	return nil, errors.New("exec not supported")
}

func (emptyStmt) Query([]driver.Value) (driver.Rows, error) { return emptyRows{}, nil }

type emptyRows struct{}

func (emptyRows) Columns() []string         { return nil }
func (emptyRows) Close() error              { return nil }
func (emptyRows) Next([]driver.Value) error { return io.EOF }

var introspectionQueries int

func init() {
	sql.Register("countingdb", countingDriver{queries: &introspectionQueries})
}

func TestDescribe_CachedAfterFirstCall(t *testing.T) {
	db, err := sql.Open("countingdb", "")
	require.NoError(t, err)
	defer db.Close()

	c := NewCache()
	ctx := context.Background()

	first, err := c.Describe(ctx, db)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	queriesAfterFirst := introspectionQueries
	assert.Greater(t, queriesAfterFirst, 0)

	// Repeat calls serve the stored bytes without touching the store.
	second, err := c.Describe(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, queriesAfterFirst, introspectionQueries)
}

func TestNormalizeType(t *testing.T) {
	assert.Equal(t, "VARCHAR(50)", normalizeType(Column{Type: "character varying", MaxLen: sql.NullInt64{Int64: 50, Valid: true}}))
	assert.Equal(t, "VARCHAR", normalizeType(Column{Type: "character varying"}))
	assert.Equal(t, "INTEGER", normalizeType(Column{Type: "integer"}))
	assert.Equal(t, "TIMESTAMP", normalizeType(Column{Type: "timestamp without time zone"}))
	assert.Equal(t, "NUMERIC", normalizeType(Column{Type: "numeric"}))
}
