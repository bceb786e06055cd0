package parser_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/yearlens/internal/analysis"
	"github.com/KaramelBytes/yearlens/internal/parser"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestReadCSV_BOMAndComma(t *testing.T) {
	p := writeFile(t, "sales.csv", "\xEF\xBB\xBFproduct,2024-01,2024-02\n"+
		"Green Tea,\"1,200\",1300\n"+
		"\n"+
		"Oolong,900,\n")

	tbl, err := parser.ReadFile(p, parser.Options{})
	require.NoError(t, err)
	assert.Equal(t, "sales.csv", tbl.Name)
	assert.Equal(t, []string{"product", "2024-01", "2024-02"}, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"Green Tea", "1,200", "1300"}, tbl.Rows[0])
	assert.Equal(t, "", tbl.Rows[1][2])
}

func TestReadCSV_SemicolonSniffed(t *testing.T) {
	p := writeFile(t, "eu.csv", "name;code;2024-01;2024-02\nA;a1;1.000,5;2.000\n")

	tbl, err := parser.ReadFile(p, parser.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "code", "2024-01", "2024-02"}, tbl.Header)
	assert.Equal(t, []string{"A", "a1", "1.000,5", "2.000"}, tbl.Rows[0])
}

func TestReadCSV_TSV(t *testing.T) {
	p := writeFile(t, "sales.tsv", "name\t2024-01\nA\t10\n")

	tbl, err := parser.ReadFile(p, parser.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "2024-01"}, tbl.Header)
}

func TestReadCSV_FeedsNormalize(t *testing.T) {
	p := writeFile(t, "sales.csv", "product,region,2024-01,2024-02\nGreen Tea,east,100,200\n")

	tbl, err := parser.ReadFile(p, parser.Options{})
	require.NoError(t, err)
	recs, rep, err := analysis.Normalize(tbl, analysis.NormalizeOptions{NameColumn: "product"})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, []string{"region"}, rep.IgnoredColumns)
	assert.Equal(t, "green-tea", recs[0].ProductCode)
}
