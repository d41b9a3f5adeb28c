package grid

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	ErrEmptyColumnKey  = errors.New("column key is required")
	ErrMissingAccessor = errors.New("column has no value accessor")
	ErrDuplicateColumn = errors.New("duplicate column key")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrNotFilterable   = errors.New("column is not filterable")
	ErrNotSortable     = errors.New("column is not sortable")
	ErrInvalidDir      = errors.New("invalid sort direction")
)

// ColumnError ties a column error to the offending key.
type ColumnError struct {
	Key string
	Err error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q: %v", e.Key, e.Err)
}

func (e *ColumnError) Unwrap() error { return e.Err }
