package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMonthColumns means no header could be read as a calendar month.
	ErrNoMonthColumns = errors.New("no month columns found")
	// ErrNameColumnMissing means the designated product name column is absent.
	ErrNameColumnMissing = errors.New("name column missing")
	// ErrCodeColumnMissing means a code column was requested but is absent.
	ErrCodeColumnMissing = errors.New("code column missing")
	// ErrInvalidWindow means a rolling window was not a positive month count.
	ErrInvalidWindow = errors.New("window must be a positive number of months")
)

// SchemaError reports an input table that cannot be ingested at all.
type SchemaError struct {
	Op  string
	Msg string
	Err error
}

func (e *SchemaError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

func schemaErr(msg string, err error) error {
	return &SchemaError{Op: "normalize", Msg: msg, Err: err}
}
