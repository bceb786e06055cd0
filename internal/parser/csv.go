package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/yearlens/internal/analysis"
)

type csvReader struct{}

func (csvReader) CanRead(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".txt")
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func (csvReader) Read(path string, opt Options) (analysis.WideTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return analysis.WideTable{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return readCSV(f, filepath.Base(path), opt.Delimiter)
}

// readCSV reads a delimited table. A UTF-8 BOM is dropped and the delimiter is
// sniffed from the first line when delim is 0.
func readCSV(src io.Reader, name string, delim rune) (analysis.WideTable, error) {
	br := bufio.NewReader(src)
	if head, err := br.Peek(3); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(3)
	}
	if delim == 0 {
		delim = sniffDelimiter(br, name)
	}
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	r.Comma = delim

	t := analysis.WideTable{Name: name}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return analysis.WideTable{}, fmt.Errorf("read csv: %w", err)
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		if isBlankRow(rec) {
			continue
		}
		if t.Header == nil {
			t.Header = rec
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	if t.Header == nil {
		return analysis.WideTable{}, fmt.Errorf("read header: %w", ErrEmptyTable)
	}
	return t, nil
}

func sniffDelimiter(br *bufio.Reader, name string) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	// Peek never consumes, so the csv reader still sees the first line.
	buf, _ := br.Peek(4096)
	line := string(buf)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	best, bestN := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(line, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}
