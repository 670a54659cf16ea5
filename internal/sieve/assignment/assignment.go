// Package assignment solves the rectangular minimum-cost bipartite
// assignment problem used by the line-item feature extractor (min-cost
// matching of base invoice lines to candidate invoice lines).
//
// No package in the retrieval corpus imports a Hungarian/Jonker-Volgenant
// solver; this is a direct, hand-rolled implementation in the style of the
// pack's own hand-rolled combinatorial solvers (see DESIGN.md).
package assignment

import "math"

// Solve finds the minimum-cost assignment between rows and columns of cost,
// an n x m matrix (n rows, m columns, any rectangular shape, n,m >= 0).
// It returns rowToCol where rowToCol[i] is the column matched to row i, or
// -1 if row i is left unmatched (only possible when n > m). Every column is
// matched to at most one row. Ties are broken deterministically in
// row-major order so repeated calls on identical input always return the
// identical matching.
func Solve(cost [][]float64) (rowToCol []int) {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	if m == 0 {
		rowToCol = make([]int, n)
		for i := range rowToCol {
			rowToCol[i] = -1
		}
		return rowToCol
	}

	if n <= m {
		colToRow := solveWideOrSquare(cost, n, m)
		rowToCol = make([]int, n)
		for i := range rowToCol {
			rowToCol[i] = -1
		}
		for j := 1; j <= m; j++ {
			if i := colToRow[j]; i > 0 {
				rowToCol[i-1] = j - 1
			}
		}
		return rowToCol
	}

	// n > m: transpose so the algorithm always runs with rows <= columns.
	t := make([][]float64, m)
	for j := 0; j < m; j++ {
		t[j] = make([]float64, n)
		for i := 0; i < n; i++ {
			t[j][i] = cost[i][j]
		}
	}
	colToRow := solveWideOrSquare(t, m, n) // colToRow[j] (j >= 1) = 1-based orig col matched to orig row j-1
	rowToCol = make([]int, n)
	for i := range rowToCol {
		rowToCol[i] = -1
	}
	for origRow := 1; origRow <= n; origRow++ {
		if origCol := colToRow[origRow]; origCol > 0 {
			rowToCol[origRow-1] = origCol - 1
		}
	}
	return rowToCol
}

// solveWideOrSquare implements the classic O(n^2*m) Hungarian algorithm
// with potentials (n <= m required). It returns p where p[j] is the
// 1-based row matched to column j (0 = unmatched column).
func solveWideOrSquare(cost [][]float64, n, m int) []int {
	const inf = math.MaxFloat64 / 2

	u := make([]float64, n+1)
	v := make([]float64, m+1)
	p := make([]int, m+1)
	way := make([]int, m+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, m+1)
		used := make([]bool, m+1)
		for j := range minv {
			minv[j] = inf
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= m; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	return p
}
