package assignment

import "testing"

func totalCost(cost [][]float64, rowToCol []int) float64 {
	total := 0.0
	for i, j := range rowToCol {
		if j >= 0 {
			total += cost[i][j]
		}
	}
	return total
}

func TestSolveSquareOptimal(t *testing.T) {
	cost := [][]float64{
		{4, 1, 3},
		{2, 0, 5},
		{3, 2, 2},
	}
	rowToCol := Solve(cost)
	if len(rowToCol) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rowToCol))
	}
	seen := map[int]bool{}
	for _, j := range rowToCol {
		if j < 0 || seen[j] {
			t.Fatalf("invalid or duplicate column assignment: %v", rowToCol)
		}
		seen[j] = true
	}
	if got := totalCost(cost, rowToCol); got != 5 {
		t.Fatalf("total cost = %v, want 5 (optimal: row0->col1=1, row1->col0=2, row2->col2=2)", got)
	}
}

func TestSolveRectangularMoreColumns(t *testing.T) {
	cost := [][]float64{
		{1, 2, 3, 4},
		{4, 3, 2, 1},
	}
	rowToCol := Solve(cost)
	if len(rowToCol) != 2 {
		t.Fatalf("expected 2 rows")
	}
	for _, j := range rowToCol {
		if j < 0 {
			t.Fatalf("row left unmatched though columns available: %v", rowToCol)
		}
	}
	if got := totalCost(cost, rowToCol); got != 2 {
		t.Fatalf("total cost = %v, want 2 (row0->col0=1, row1->col3=1)", got)
	}
}

func TestSolveRectangularMoreRows(t *testing.T) {
	cost := [][]float64{
		{1, 9},
		{9, 1},
		{5, 5},
	}
	rowToCol := Solve(cost)
	if len(rowToCol) != 3 {
		t.Fatalf("expected 3 rows")
	}
	matched := 0
	seen := map[int]bool{}
	for _, j := range rowToCol {
		if j >= 0 {
			matched++
			if seen[j] {
				t.Fatalf("column reused: %v", rowToCol)
			}
			seen[j] = true
		}
	}
	if matched != 2 {
		t.Fatalf("expected exactly 2 matched rows (only 2 columns), got %d", matched)
	}
}

func TestSolveEmptyColumns(t *testing.T) {
	rowToCol := Solve([][]float64{{}, {}})
	if len(rowToCol) != 2 || rowToCol[0] != -1 || rowToCol[1] != -1 {
		t.Fatalf("expected all rows unmatched, got %v", rowToCol)
	}
}

func TestSolveDeterministic(t *testing.T) {
	cost := [][]float64{
		{1, 1},
		{1, 1},
	}
	first := Solve(cost)
	second := Solve(cost)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("non-deterministic result across repeated calls: %v vs %v", first, second)
		}
	}
}
