package parser_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/yearlens/internal/parser"
)

func TestReadFileUnsupported(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "notes.docx")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	_, err := parser.ReadFile(p, parser.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, parser.ErrUnsupported))
}

func TestReadFileEmpty(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(p, []byte("\n\n"), 0o644))

	_, err := parser.ReadFile(p, parser.Options{})
	require.ErrorIs(t, err, parser.ErrEmptyTable)
}
