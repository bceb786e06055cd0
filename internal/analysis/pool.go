package analysis

import (
	"sort"

	"golang.org/x/sync/errgroup"
)

// parallelFor runs fn for every i in [0,n) on at most workers goroutines.
// fn must only write to slot i of its output so results do not depend on scheduling.
func parallelFor(n, workers int, fn func(i int)) {
	if workers <= 1 || n < 2 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

// productSeries indexes the rows of one product in month order.
type productSeries struct {
	code string
	name string
	idx  []int
}

// groupByProduct returns products sorted by code, each with row indices sorted by month.
func groupByProduct(rows []YearRecord) []productSeries {
	pos := map[string]int{}
	var out []productSeries
	for i, r := range rows {
		p, ok := pos[r.ProductCode]
		if !ok {
			p = len(out)
			pos[r.ProductCode] = p
			out = append(out, productSeries{code: r.ProductCode, name: r.ProductName})
		}
		out[p].idx = append(out[p].idx, i)
		if out[p].name == "" {
			out[p].name = r.ProductName
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].code < out[b].code })
	for _, ps := range out {
		sort.SliceStable(ps.idx, func(a, b int) bool { return rows[ps.idx[a]].Month < rows[ps.idx[b]].Month })
	}
	return out
}

func cloneRows(rows []YearRecord) []YearRecord {
	out := make([]YearRecord, len(rows))
	copy(out, rows)
	return out
}
