// Package sqlexec validates and executes read-only SQL statements
// against the analytics database. Validation is a textual safety net on
// top of using a read-only credential, not a replacement for one.
package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrorKind distinguishes why an execution failed.
type ErrorKind string

const (
	// ErrValidation means the statement was rejected before reaching the store.
	ErrValidation ErrorKind = "validation"
	// ErrExecution means the backing store reported an error.
	ErrExecution ErrorKind = "execution"
)

// Result is the tagged outcome of executing a statement. On success
// Rows are positionally aligned with Columns; every row has the same
// arity as the column list.
type Result struct {
	Success   bool      `json:"success"`
	Statement string    `json:"statement"`
	Columns   []string  `json:"columns,omitempty"`
	Rows      [][]any   `json:"rows,omitempty"`
	RowCount  int       `json:"rowCount"`
	Error     string    `json:"error,omitempty"`
	ErrorKind ErrorKind `json:"errorKind,omitempty"`
}

// deniedKeywords are rejected anywhere in the statement text,
// case-insensitive. Deliberately blunt: a SELECT mentioning a column
// named "created_at" is rejected too, and that is acceptable here.
var deniedKeywords = []string{"DROP", "DELETE", "INSERT", "UPDATE", "ALTER", "CREATE", "TRUNCATE"}

// Validate checks that stmt is a single read-only SELECT statement.
// Returns the reason for rejection, or "" when the statement passes.
func Validate(stmt string) string {
	trimmed := strings.TrimSpace(stmt)
	if trimmed == "" {
		return "empty SQL statement"
	}

	// A single trailing terminator is tolerated; anything after an
	// interior semicolon means multiple statements.
	body := strings.TrimRight(trimmed, "; \t\n")
	if strings.Contains(body, ";") {
		return "multiple SQL statements are not allowed"
	}

	if !strings.HasPrefix(strings.ToUpper(body), "SELECT") {
		return "only SELECT queries are allowed"
	}

	upper := strings.ToUpper(body)
	for _, kw := range deniedKeywords {
		if strings.Contains(upper, kw) {
			return fmt.Sprintf("dangerous keyword %q detected, only SELECT queries are allowed", kw)
		}
	}

	return ""
}

// Executor runs validated statements against the relational store.
type Executor struct {
	db  *sql.DB
	log *zap.Logger
}

// New creates an Executor over an open database handle.
func New(db *sql.DB, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{db: db, log: log}
}

// Execute validates stmt and, on acceptance, runs it and collects all
// rows. Failures are returned in the Result tag, never as a panic, and
// a rejected statement never reaches the backing store.
func (e *Executor) Execute(ctx context.Context, stmt string) Result {
	res := Result{Statement: stmt}

	if reason := Validate(stmt); reason != "" {
		e.log.Warn("rejected SQL statement", zap.String("reason", reason))
		res.Error = reason
		res.ErrorKind = ErrValidation
		return res
	}

	start := time.Now()
	rows, err := e.db.QueryContext(ctx, stmt)
	if err != nil {
		e.log.Error("query failed", zap.Error(err))
		res.Error = fmt.Sprintf("database error: %v", err)
		res.ErrorKind = ErrExecution
		return res
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		res.Error = fmt.Sprintf("database error: %v", err)
		res.ErrorKind = ErrExecution
		return res
	}
	res.Columns = columns

	for rows.Next() {
		values, err := scanRow(rows, len(columns))
		if err != nil {
			res.Error = fmt.Sprintf("database error: %v", err)
			res.ErrorKind = ErrExecution
			return res
		}
		res.Rows = append(res.Rows, normalizeRow(values))
	}
	if err := rows.Err(); err != nil {
		res.Error = fmt.Sprintf("database error: %v", err)
		res.ErrorKind = ErrExecution
		return res
	}

	res.Success = true
	res.RowCount = len(res.Rows)
	e.log.Debug("query executed",
		zap.Int("rows", res.RowCount),
		zap.Duration("took", time.Since(start)))
	return res
}

// Render formats a result for inclusion in a synthesis prompt.
func Render(res Result) string {
	if !res.Success {
		return fmt.Sprintf("Error: %s", res.Error)
	}
	if res.RowCount == 0 {
		return "Query executed successfully but returned no results."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Query returned %d row(s):\n", res.RowCount)
	sb.WriteString(strings.Join(res.Columns, " | "))
	sb.WriteString("\n")
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = fmt.Sprintf("%v", v)
		}
		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteString("\n")
	}
	return sb.String()
}

func scanRow(rows *sql.Rows, numCols int) ([]any, error) {
	values := make([]any, numCols)
	ptrs := make([]any, numCols)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return values, nil
}

func normalizeRow(values []any) []any {
	row := make([]any, len(values))
	for i, v := range values {
		switch val := v.(type) {
		case nil:
			row[i] = nil
		case []byte:
			row[i] = string(val)
		case time.Time:
			row[i] = val.Format(time.RFC3339Nano)
		default:
			row[i] = val
		}
	}
	return row
}
