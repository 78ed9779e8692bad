package sink

import (
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/leapstack-labs/sqltui/pkg/adapter"
)

// SQLCursor adapts *sql.Rows to Cursor, rendering every value as text.
type SQLCursor struct {
	rows *sql.Rows
	cols []string
}

// NewSQLCursor wraps rows. The caller still owns and closes rows.
func NewSQLCursor(rows *sql.Rows) *SQLCursor {
	return &SQLCursor{rows: rows}
}

// Columns returns the result column names in select-list order.
func (c *SQLCursor) Columns() ([]string, error) {
	if c.cols != nil {
		return c.cols, nil
	}
	cols, err := c.rows.Columns()
	if err != nil {
		return nil, &adapter.DatabaseError{Op: "read columns", Err: err}
	}
	c.cols = cols
	return cols, nil
}

// NextBatch fetches up to n rows.
func (c *SQLCursor) NextBatch(n int) ([][]string, error) {
	cols, err := c.Columns()
	if err != nil {
		return nil, err
	}

	batch := make([][]string, 0, n)
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for len(batch) < n {
		if !c.rows.Next() {
			if err := c.rows.Err(); err != nil {
				return batch, &adapter.DatabaseError{Op: "fetch rows", Err: err}
			}
			return batch, io.EOF
		}
		if err := c.rows.Scan(ptrs...); err != nil {
			return batch, &adapter.DatabaseError{Op: "scan row", Err: err}
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = FormatValue(v)
		}
		batch = append(batch, row)
	}
	return batch, nil
}

// FormatValue renders a driver value deterministically.
// NULL becomes the empty string.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		if x.Nanosecond() == 0 {
			return x.Format("2006-01-02 15:04:05")
		}
		return x.Format("2006-01-02 15:04:05.000000")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
