// Package schema provides database schema introspection and a cached
// text rendering used as LLM context for SQL generation.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Cache holds the introspected schema and its rendered description.
type Cache struct {
	mu          sync.RWMutex
	tables      []Table
	rendered    string
	lastRefresh time.Time
}

// Table represents a database table and its structure.
type Table struct {
	Name        string
	Columns     []Column
	ForeignKeys []ForeignKey
}

// Column represents a table column.
type Column struct {
	Name     string
	Type     string
	MaxLen   sql.NullInt64
	Nullable bool
	IsPK     bool
	Default  string
}

// ForeignKey represents a foreign key relationship.
type ForeignKey struct {
	Column        string
	ForeignTable  string
	ForeignColumn string
}

// NewCache creates an empty schema cache.
func NewCache() *Cache {
	return &Cache{}
}

// Load fetches the schema from the database and caches both the table
// list and the rendered description. Concurrent callers may recompute
// redundantly; the operation is idempotent for a stable schema.
func (c *Cache) Load(ctx context.Context, db *sql.DB) error {
	tables, err := loadTables(ctx, db)
	if err != nil {
		return fmt.Errorf("load tables: %w", err)
	}
	rendered := render(tables)

	c.mu.Lock()
	c.tables = tables
	c.rendered = rendered
	c.lastRefresh = time.Now()
	c.mu.Unlock()

	return nil
}

// Describe returns the cached schema description, loading it on first
// use. After the first successful load the returned text is byte-stable
// for the process lifetime (until an explicit Load refreshes it).
func (c *Cache) Describe(ctx context.Context, db *sql.DB) (string, error) {
	c.mu.RLock()
	cached := c.rendered
	c.mu.RUnlock()
	if cached != "" {
		return cached, nil
	}

	if err := c.Load(ctx, db); err != nil {
		return "", err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rendered, nil
}

// GetTables returns a copy of the cached tables.
func (c *Cache) GetTables() []Table {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tables := make([]Table, len(c.tables))
	copy(tables, c.tables)
	return tables
}

// TableCount returns the number of cached tables.
func (c *Cache) TableCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

// LastRefresh returns when the schema was last loaded.
func (c *Cache) LastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh
}

// render serializes tables in CREATE TABLE form with foreign keys
// annotated as join hints, the format the SQL prompts are tuned for.
func render(tables []Table) string {
	if len(tables) == 0 {
		return "(no tables found)"
	}

	var sb strings.Builder
	for _, t := range tables {
		sb.WriteString(fmt.Sprintf("\nCREATE TABLE %s (\n", t.Name))

		defs := make([]string, 0, len(t.Columns))
		for _, col := range t.Columns {
			def := fmt.Sprintf("  %s %s", col.Name, normalizeType(col))
			switch {
			case col.IsPK:
				def += " PRIMARY KEY"
			case !col.Nullable:
				def += " NOT NULL"
			}
			defs = append(defs, def)
		}
		sb.WriteString(strings.Join(defs, ",\n"))
		sb.WriteString("\n);\n")

		for _, fk := range t.ForeignKeys {
			sb.WriteString(fmt.Sprintf("-- %s.%s can be joined with %s.%s\n",
				t.Name, fk.Column, fk.ForeignTable, fk.ForeignColumn))
		}
	}
	return sb.String()
}

// normalizeType maps information_schema type names onto the short names
// the generation models are trained on.
func normalizeType(col Column) string {
	switch col.Type {
	case "character varying":
		if col.MaxLen.Valid {
			return fmt.Sprintf("VARCHAR(%d)", col.MaxLen.Int64)
		}
		return "VARCHAR"
	case "integer":
		return "INTEGER"
	case "timestamp without time zone":
		return "TIMESTAMP"
	default:
		return strings.ToUpper(col.Type)
	}
}

func loadTables(ctx context.Context, db *sql.DB) ([]Table, error) {
	tableNames, err := getTableNames(ctx, db)
	if err != nil {
		return nil, err
	}

	columns, err := getColumns(ctx, db)
	if err != nil {
		return nil, err
	}

	primaryKeys, err := getPrimaryKeys(ctx, db)
	if err != nil {
		return nil, err
	}

	foreignKeys, err := getForeignKeys(ctx, db)
	if err != nil {
		return nil, err
	}

	tables := make([]Table, 0, len(tableNames))
	for _, name := range tableNames {
		table := Table{
			Name:        name,
			Columns:     columns[name],
			ForeignKeys: foreignKeys[name],
		}

		pkCols := primaryKeys[name]
		for i := range table.Columns {
			col := &table.Columns[i]
			for _, pk := range pkCols {
				if col.Name == pk {
					col.IsPK = true
					break
				}
			}
			// Serial columns without an explicit PK constraint are still
			// rendered as PRIMARY KEY so the model treats them as ids.
			if !col.IsPK && strings.Contains(col.Default, "nextval") {
				col.IsPK = true
			}
		}

		tables = append(tables, table)
	}

	return tables, nil
}

func getTableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func getColumns(ctx context.Context, db *sql.DB) (map[string][]Column, error) {
	query := `
		SELECT
			c.table_name,
			c.column_name,
			c.data_type,
			c.character_maximum_length,
			c.is_nullable = 'YES' AS nullable,
			COALESCE(c.column_default, '') AS column_default
		FROM information_schema.columns c
		WHERE c.table_schema = 'public'
		ORDER BY c.table_name, c.ordinal_position`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string][]Column)
	for rows.Next() {
		var tableName string
		var col Column
		if err := rows.Scan(&tableName, &col.Name, &col.Type, &col.MaxLen, &col.Nullable, &col.Default); err != nil {
			return nil, err
		}
		columns[tableName] = append(columns[tableName], col)
	}
	return columns, rows.Err()
}

func getPrimaryKeys(ctx context.Context, db *sql.DB) (map[string][]string, error) {
	query := `
		SELECT
			tc.table_name,
			kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = 'public'
		ORDER BY tc.table_name, kcu.ordinal_position`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pks := make(map[string][]string)
	for rows.Next() {
		var tableName, colName string
		if err := rows.Scan(&tableName, &colName); err != nil {
			return nil, err
		}
		pks[tableName] = append(pks[tableName], colName)
	}
	return pks, rows.Err()
}

func getForeignKeys(ctx context.Context, db *sql.DB) (map[string][]ForeignKey, error) {
	query := `
		SELECT
			tc.table_name,
			kcu.column_name,
			ccu.table_name AS foreign_table,
			ccu.column_name AS foreign_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = 'public'`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fks := make(map[string][]ForeignKey)
	for rows.Next() {
		var tableName string
		var fk ForeignKey
		if err := rows.Scan(&tableName, &fk.Column, &fk.ForeignTable, &fk.ForeignColumn); err != nil {
			return nil, err
		}
		fks[tableName] = append(fks[tableName], fk)
	}
	return fks, rows.Err()
}
