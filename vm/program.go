package vm

import (
	"fmt"
	"io"
	"os"
)

// ---------------------------------------------------------------------------
// Program: the immutable instruction buffer
// ---------------------------------------------------------------------------

// programTerminator is the sentinel byte appended at load time. It is never
// a valid instruction and always terminates the dispatch loop and any
// bracket scan.
const programTerminator = 0

// Program holds loaded program text as a read-only byte sequence ending in
// a sentinel terminator byte. The instruction cursor ranges over
// [0, Len()]; Len() is the offset of the sentinel.
type Program struct {
	code []byte
}

// NewProgram builds a program from raw source bytes, appending the sentinel
// terminator. The source is copied; the caller keeps ownership of src. An
// empty source yields a program that terminates immediately.
func NewProgram(src []byte) *Program {
	code := make([]byte, len(src)+1)
	copy(code, src)
	code[len(src)] = programTerminator
	return &Program{code: code}
}

// LoadProgram reads program text from r until EOF.
func LoadProgram(r io.Reader) (*Program, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("vm: %s: %w", ErrFileRead.Message(), err)
	}
	return NewProgram(src), nil
}

// LoadProgramFile reads program text from the named file.
func LoadProgramFile(path string) (*Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vm: %s: %w", ErrFileRead.Message(), err)
	}
	return NewProgram(src), nil
}

// Len returns the program length excluding the sentinel terminator.
func (p *Program) Len() int {
	return len(p.code) - 1
}

// Byte returns the instruction byte at offset ip. Offset Len() yields the
// sentinel terminator.
func (p *Program) Byte(ip int) byte {
	return p.code[ip]
}

// Source returns the program text without the sentinel terminator. Callers
// must treat it as read-only.
func (p *Program) Source() []byte {
	return p.code[:len(p.code)-1]
}

// ---------------------------------------------------------------------------
// Position resolution for diagnostics
// ---------------------------------------------------------------------------

// Locate converts an instruction offset into a 1-based (row, column) pair
// by scanning the buffer up to, not including, ip. Purely diagnostic; it is
// only called after a failure.
func (p *Program) Locate(ip int) (row, col int) {
	row, col = 1, 1
	if ip > p.Len() {
		ip = p.Len()
	}
	for i := 0; i < ip; i++ {
		col++
		if p.code[i] == '\n' {
			col = 1
			row++
		}
	}
	return row, col
}
