package parser

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/yearlens/internal/analysis"
)

// Reader loads a wide monthly table from a file on disk.
type Reader interface {
	CanRead(filename string) bool
	Read(path string, opt Options) (analysis.WideTable, error)
}

// Options tune table readers. Zero values pick sensible defaults.
type Options struct {
	// Sheet selects a workbook sheet by name (case-insensitive).
	Sheet string
	// SheetIndex is 1-based and used when Sheet is empty.
	SheetIndex int
	// Delimiter overrides CSV delimiter sniffing.
	Delimiter rune
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

// ReadFile selects a reader based on filename and returns the table.
func ReadFile(path string, opt Options) (analysis.WideTable, error) {
	for _, r := range registry {
		if r.CanRead(path) {
			t, err := r.Read(path, opt)
			if err != nil {
				return analysis.WideTable{}, err
			}
			if t.Name == "" {
				t.Name = filepath.Base(path)
			}
			return t, nil
		}
	}
	return analysis.WideTable{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
}

func init() {
	Register(csvReader{})
	Register(xlsxReader{})
}

var (
	// ErrUnsupported indicates a file format no reader handles.
	ErrUnsupported = errors.New("unsupported table format")
	// ErrEmptyTable means the file has no header row.
	ErrEmptyTable = errors.New("table has no header row")
)

func isBlankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
