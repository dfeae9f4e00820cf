package vm

import (
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Machine: the instruction dispatch loop
// ---------------------------------------------------------------------------

// Machine executes a Program against a Tape. It is single-threaded and owns
// its program, tape and cursors exclusively for the lifetime of a session;
// the only mutable execution state is the two cursors and the tape cells.
type Machine struct {
	prog *Program
	tape *Tape
	cfg  Config
	in   InputSource
	out  OutputSink

	ip    int // instruction cursor, [0, prog.Len()]
	dp    int // data cursor, [0, cfg.DataSize)
	steps uint64

	// jumps[i] is the partner offset of a matched bracket at i, -1 otherwise.
	jumps []int
}

// NewMachine builds a machine for one session. cfg must already be valid
// (Config.Validate); in and out service the `,` and `.` instructions.
func NewMachine(prog *Program, cfg Config, in InputSource, out OutputSink) *Machine {
	return &Machine{
		prog:  prog,
		tape:  NewTape(cfg.DataSize),
		cfg:   cfg,
		in:    in,
		out:   out,
		jumps: buildJumpTable(prog),
	}
}

// Run executes instructions from the current cursor until the sentinel
// terminator (success, nil) or a failed check (an *ExecError). The machine
// halts at the offending instruction; already-applied mutations stand and
// the cursors and tape are preserved for diagnostics.
func (m *Machine) Run() error {
	for {
		done, err := m.Step()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Step executes a single instruction. It returns true when the sentinel
// terminator has been reached and the session is complete.
func (m *Machine) Step() (bool, error) {
	op := m.prog.code[m.ip]
	if op == programTerminator {
		return true, nil
	}

	switch op {
	case '>':
		if m.cfg.BoundsCheck && m.dp == m.cfg.DataSize-1 {
			return false, m.fail(ErrIndexAbove)
		}
		// Unchecked mode wraps the cursor instead of walking off the
		// segment, which Go cannot express.
		m.dp++
		if m.dp == m.cfg.DataSize {
			m.dp = 0
		}

	case '<':
		if m.cfg.BoundsCheck && m.dp == 0 {
			return false, m.fail(ErrIndexBelow)
		}
		if m.dp == 0 {
			m.dp = m.cfg.DataSize - 1
		} else {
			m.dp--
		}

	case '+':
		v := m.tape.Get(m.dp)
		if m.cfg.WrapCheck && v == math.MaxInt8 {
			return false, m.fail(ErrWrapOver)
		}
		m.tape.Set(m.dp, v+1)

	case '-':
		v := m.tape.Get(m.dp)
		if m.cfg.WrapCheck && v == math.MinInt8 {
			return false, m.fail(ErrWrapUnder)
		}
		m.tape.Set(m.dp, v-1)

	case '[':
		if m.tape.Get(m.dp) == 0 {
			target := m.jumps[m.ip]
			if target < 0 {
				return false, m.fail(ErrOpenBracket)
			}
			m.ip = target
		}

	case ']':
		if m.tape.Get(m.dp) != 0 {
			target := m.jumps[m.ip]
			if target < 0 {
				return false, m.fail(ErrCloseBracket)
			}
			m.ip = target
		}

	case '.':
		m.out.WriteCell(m.tape.Get(m.dp))

	case ',':
		m.tape.Set(m.dp, m.in.ReadCell())

	default:
		if m.cfg.SyntaxCheck && op != '\n' {
			return false, m.fail(ErrSyntax)
		}
	}

	m.ip++
	m.steps++
	return false, nil
}

// fail captures the machine state at the offending instruction.
func (m *Machine) fail(kind ErrorKind) *ExecError {
	return &ExecError{Kind: kind, IP: m.ip, DP: m.dp, Cell: m.tape.Get(m.dp)}
}

// Reset rewinds both cursors and zeroes the tape so the same program can be
// run again.
func (m *Machine) Reset() {
	m.ip = 0
	m.dp = 0
	m.steps = 0
	m.tape.Reset()
}

// RestoreState places the machine at a previously captured execution state.
// cells must match the configured tape length exactly; the cursors must lie
// inside their ranges (ip may sit on the sentinel terminator).
func (m *Machine) RestoreState(ip, dp int, cells []int8) error {
	if ip < 0 || ip > m.prog.Len() {
		return fmt.Errorf("vm: restore ip %d out of range [0, %d]", ip, m.prog.Len())
	}
	if dp < 0 || dp >= m.cfg.DataSize {
		return fmt.Errorf("vm: restore dp %d out of range [0, %d)", dp, m.cfg.DataSize)
	}
	if len(cells) != m.tape.Len() {
		return fmt.Errorf("vm: restore tape has %d cells, machine has %d", len(cells), m.tape.Len())
	}
	m.ip = ip
	m.dp = dp
	copy(m.tape.cells, cells)
	return nil
}

// IP returns the instruction cursor.
func (m *Machine) IP() int {
	return m.ip
}

// DP returns the data cursor.
func (m *Machine) DP() int {
	return m.dp
}

// Steps returns the number of instructions executed since the last reset.
func (m *Machine) Steps() uint64 {
	return m.steps
}

// Tape returns the machine's data tape.
func (m *Machine) Tape() *Tape {
	return m.tape
}

// Program returns the machine's instruction buffer.
func (m *Machine) Program() *Program {
	return m.prog
}

// Config returns the session configuration.
func (m *Machine) Config() Config {
	return m.cfg
}
