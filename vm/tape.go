package vm

// ---------------------------------------------------------------------------
// Tape: the fixed-size data segment
// ---------------------------------------------------------------------------

// Tape is the flat array of signed 8-bit cells a program manipulates. It is
// pure storage: all cursor arithmetic and bounds/wrap checking is the
// Machine's responsibility.
type Tape struct {
	cells []int8
}

// NewTape allocates a zero-initialized tape with the given number of cells.
// Size must be positive; the caller validates it via Config.Validate.
func NewTape(size int) *Tape {
	return &Tape{cells: make([]int8, size)}
}

// Len returns the number of cells.
func (t *Tape) Len() int {
	return len(t.cells)
}

// Get returns the cell value at offset dp.
func (t *Tape) Get(dp int) int8 {
	return t.cells[dp]
}

// Set stores v into the cell at offset dp.
func (t *Tape) Set(dp int, v int8) {
	t.cells[dp] = v
}

// Cells returns the backing cell slice. Callers must treat it as read-only;
// it is exposed for snapshotting and diagnostics.
func (t *Tape) Cells() []int8 {
	return t.cells
}

// Reset zeroes every cell.
func (t *Tape) Reset() {
	for i := range t.cells {
		t.cells[i] = 0
	}
}
