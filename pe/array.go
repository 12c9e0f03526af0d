package pe

import "github.com/buiminhnhut114/edge-npu-design-sub000/arith"

// Array is a fixed ROWS x COLS grid of cells. Weights load vertically, one
// row strobe per cycle, and stay stationary. Activations enter column 0 of
// each row and propagate one column per enabled cycle, so column c sees
// the value that entered c cycles earlier. The array performs no hazard
// checking; the controller owns the feeding schedule.
type Array struct {
	rows, cols int
	cells      [][]Cell

	// inputs staged for column 0, applied on the next enabled Tick
	in      []int8
	inValid []bool
}

// NewArray creates a rows x cols array.
func NewArray(rows, cols int) *Array {
	cells := make([][]Cell, rows)
	for r := range cells {
		cells[r] = make([]Cell, cols)
	}
	return &Array{
		rows:    rows,
		cols:    cols,
		cells:   cells,
		in:      make([]int8, rows),
		inValid: make([]bool, rows),
	}
}

// Rows returns the row count.
func (a *Array) Rows() int { return a.rows }

// Cols returns the column count.
func (a *Array) Cols() int { return a.cols }

// LoadWeightRow latches one row of stationary weights; this is the per-row
// weight-load strobe. Missing values load as zero.
func (a *Array) LoadWeightRow(row int, weights []int8) {
	for c := 0; c < a.cols; c++ {
		var w int8
		if c < len(weights) {
			w = weights[c]
		}
		a.cells[row][c].LoadWeight(w)
	}
}

// SetInput stages an activation for column 0 of the given row, consumed by
// the next enabled Tick.
func (a *Array) SetInput(row int, v int8) {
	a.in[row] = v
	a.inValid[row] = true
}

// ClearInputs drops any staged activations; rows without input shift in
// zeroes.
func (a *Array) ClearInputs() {
	for r := range a.in {
		a.in[r] = 0
		a.inValid[r] = false
	}
}

// Tick advances the array one cycle. When enable is false neither the MAC
// nor the systolic shift happens: a cell that does not shift must not
// accumulate either.
func (a *Array) Tick(enable bool) {
	if !enable {
		return
	}

	for r := 0; r < a.rows; r++ {
		row := a.cells[r]
		// Shift right to left so each cell consumes its left neighbor's
		// previous data register.
		for c := a.cols - 1; c >= 1; c-- {
			row[c].step(row[c-1].data, row[c-1].dataValid)
		}
		row[0].step(a.in[r], a.inValid[r])
	}

	a.ClearInputs()
}

// ClearAcc synchronously resets every accumulator and validity flag,
// marking the tile boundary. Weights stay loaded.
func (a *Array) ClearAcc() {
	for r := range a.cells {
		for c := range a.cells[r] {
			a.cells[r][c].clear()
		}
	}
}

// Acc returns the accumulator of cell (row, col).
func (a *Array) Acc(row, col int) int32 {
	return a.cells[row][col].Acc()
}

// Valid returns the validity flag of cell (row, col).
func (a *Array) Valid(row, col int) bool {
	return a.cells[row][col].Valid()
}

// DrainColumn returns the saturating sum of one column's accumulators,
// the partial-sum reduction the controller reads back after a compute
// pass.
func (a *Array) DrainColumn(col int) int32 {
	var sum int32
	for r := 0; r < a.rows; r++ {
		sum = arith.SatAdd32(sum, a.cells[r][col].Acc())
	}
	return sum
}

// Reset clears accumulators, weights, data registers and staged inputs.
func (a *Array) Reset() {
	for r := range a.cells {
		for c := range a.cells[r] {
			a.cells[r][c] = Cell{}
		}
	}
	a.ClearInputs()
}
