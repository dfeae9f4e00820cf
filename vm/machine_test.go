package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// helloWorld is the canonical program; it prints "Hello World!\n".
const helloWorld = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]" +
	">>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++."

// helloPrefix is the well-known truncated variant; it prints "Hello".
const helloPrefix = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++."

func runSource(t *testing.T, source string, cfg Config, input string) (*Machine, string, error) {
	t.Helper()
	var out bytes.Buffer
	m := NewMachine(NewProgram([]byte(source)), cfg, NewReaderSource(strings.NewReader(input)), NewWriterSink(&out))
	err := m.Run()
	if ferr := m.out.(*WriterSink).Flush(); ferr != nil {
		t.Fatalf("flush: %v", ferr)
	}
	return m, out.String(), err
}

// ---------------------------------------------------------------------------
// Basic execution
// ---------------------------------------------------------------------------

func TestEmptyProgramSucceeds(t *testing.T) {
	m, out, err := runSource(t, "", DefaultConfig(), "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "" {
		t.Errorf("output = %q, want empty", out)
	}
	if m.IP() != 0 || m.DP() != 0 {
		t.Errorf("cursors = (%d, %d), want (0, 0)", m.IP(), m.DP())
	}
}

func TestBalancedBracketsOnlyIsNoOp(t *testing.T) {
	m, out, err := runSource(t, "[[][[]]][]", DefaultConfig(), "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "" {
		t.Errorf("output = %q, want empty", out)
	}
	for i, v := range m.Tape().Cells() {
		if v != 0 {
			t.Fatalf("cell %d = %d, want 0", i, v)
		}
	}
}

func TestCommentBytesAreIgnoredByDefault(t *testing.T) {
	_, out, err := runSource(t, "this is a comment\n+++++ +++++ and so is this .", DefaultConfig(), "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "\n" {
		t.Errorf("output = %q, want %q", out, "\n")
	}
}

func TestHelloWorld(t *testing.T) {
	_, out, err := runSource(t, helloWorld, DefaultConfig(), "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "Hello World!\n" {
		t.Errorf("output = %q, want %q", out, "Hello World!\n")
	}
}

func TestHelloPrefix(t *testing.T) {
	_, out, err := runSource(t, helloPrefix, DefaultConfig(), "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "Hello" {
		t.Errorf("output = %q, want %q", out, "Hello")
	}
}

func TestInputCopiedToOutput(t *testing.T) {
	// Echo until the EOF sentinel: read, loop while nonzero... a plain
	// three-byte cat with fixed input is simpler to pin down.
	_, out, err := runSource(t, ",.,.,.", DefaultConfig(), "abc")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "abc" {
		t.Errorf("output = %q, want %q", out, "abc")
	}
}

func TestInputEOFYieldsSentinel(t *testing.T) {
	m, _, err := runSource(t, ",", DefaultConfig(), "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := m.Tape().Get(0); got != EOFSentinel {
		t.Errorf("cell 0 = %d, want %d", got, EOFSentinel)
	}
}

// ---------------------------------------------------------------------------
// Wraparound and wrap checking
// ---------------------------------------------------------------------------

func TestIncrementDecrementRoundTrip(t *testing.T) {
	for _, start := range []int8{-128, -1, 0, 1, 126, 127} {
		m := NewMachine(NewProgram([]byte("+-")), DefaultConfig(), NewReaderSource(strings.NewReader("")), NewWriterSink(&bytes.Buffer{}))
		m.Tape().Set(0, start)
		if err := m.Run(); err != nil {
			t.Fatalf("start %d: Run failed: %v", start, err)
		}
		if got := m.Tape().Get(0); got != start {
			t.Errorf("start %d: cell = %d after +-, want %d", start, got, start)
		}
	}
}

func TestUncheckedWraparound(t *testing.T) {
	m := NewMachine(NewProgram([]byte("+")), DefaultConfig(), NewReaderSource(strings.NewReader("")), NewWriterSink(&bytes.Buffer{}))
	m.Tape().Set(0, 127)
	if err := m.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := m.Tape().Get(0); got != -128 {
		t.Errorf("cell = %d, want -128", got)
	}
}

func TestWrapOverHaltsBeforeMutation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WrapCheck = true
	m := NewMachine(NewProgram([]byte("+")), cfg, NewReaderSource(strings.NewReader("")), NewWriterSink(&bytes.Buffer{}))
	m.Tape().Set(0, 127)

	err := m.Run()
	var ee *ExecError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *ExecError", err)
	}
	if ee.Kind != ErrWrapOver {
		t.Errorf("kind = %v, want WrapOver", ee.Kind)
	}
	if ee.Cell != 127 || m.Tape().Get(0) != 127 {
		t.Errorf("cell mutated on error: report=%d tape=%d, want 127", ee.Cell, m.Tape().Get(0))
	}
}

func TestWrapUnder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WrapCheck = true
	m := NewMachine(NewProgram([]byte("-")), cfg, NewReaderSource(strings.NewReader("")), NewWriterSink(&bytes.Buffer{}))
	m.Tape().Set(0, -128)

	err := m.Run()
	var ee *ExecError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *ExecError", err)
	}
	if ee.Kind != ErrWrapUnder {
		t.Errorf("kind = %v, want WrapUnder", ee.Kind)
	}
	if ee.Cell != -128 {
		t.Errorf("cell = %d, want -128", ee.Cell)
	}
}

// ---------------------------------------------------------------------------
// Bounds checking
// ---------------------------------------------------------------------------

func TestBoundsCheckFailsAtNthIncrement(t *testing.T) {
	const n = 5
	cfg := Config{DataSize: n, BoundsCheck: true}
	m := NewMachine(NewProgram(bytes.Repeat([]byte(">"), n)), cfg, NewReaderSource(strings.NewReader("")), NewWriterSink(&bytes.Buffer{}))
	err := m.Run()

	var ee *ExecError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *ExecError", err)
	}
	if ee.Kind != ErrIndexAbove {
		t.Errorf("kind = %v, want IndexAbove", ee.Kind)
	}
	// Exactly the Nth `>` fails, never earlier: its offset is n-1.
	if ee.IP != n-1 {
		t.Errorf("ip = %d, want %d", ee.IP, n-1)
	}
	if ee.DP != n-1 {
		t.Errorf("dp = %d, want %d", ee.DP, n-1)
	}
}

func TestBoundsCheckBelow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BoundsCheck = true
	_, _, err := runSource(t, "<", cfg, "")

	var ee *ExecError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *ExecError", err)
	}
	if ee.Kind != ErrIndexBelow {
		t.Errorf("kind = %v, want IndexBelow", ee.Kind)
	}
	if ee.IP != 0 || ee.DP != 0 {
		t.Errorf("position = (%d, %d), want (0, 0)", ee.IP, ee.DP)
	}
}

func TestUncheckedCursorWrapsModuloTape(t *testing.T) {
	cfg := Config{DataSize: 3}
	m, _, err := runSource(t, ">>>+", cfg, "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// Three `>` on a 3-cell tape wrap the cursor back to 0.
	if m.DP() != 0 {
		t.Errorf("dp = %d, want 0", m.DP())
	}
	if got := m.Tape().Get(0); got != 1 {
		t.Errorf("cell 0 = %d, want 1", got)
	}

	m2, _, err := runSource(t, "<", cfg, "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if m2.DP() != 2 {
		t.Errorf("dp = %d, want 2", m2.DP())
	}
}

// ---------------------------------------------------------------------------
// Loops and bracket errors
// ---------------------------------------------------------------------------

func TestNestedLoopDrainsCell(t *testing.T) {
	m := NewMachine(NewProgram([]byte("[[-]]")), DefaultConfig(), NewReaderSource(strings.NewReader("")), NewWriterSink(&bytes.Buffer{}))
	m.Tape().Set(0, 17)
	if err := m.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := m.Tape().Get(0); got != 0 {
		t.Errorf("cell = %d, want 0", got)
	}
}

func TestLoopMultiplication(t *testing.T) {
	// 3 * 4 into cell 1.
	m, _, err := runSource(t, "+++[>++++<-]", DefaultConfig(), "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := m.Tape().Get(1); got != 12 {
		t.Errorf("cell 1 = %d, want 12", got)
	}
	if got := m.Tape().Get(0); got != 0 {
		t.Errorf("cell 0 = %d, want 0", got)
	}
}

func TestOpenBracketMismatch(t *testing.T) {
	// The unmatched `[` at offset 2 is reached with a zero cell.
	_, _, err := runSource(t, "+-[", DefaultConfig(), "")

	var ee *ExecError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *ExecError", err)
	}
	if ee.Kind != ErrOpenBracket {
		t.Errorf("kind = %v, want OpenBracket", ee.Kind)
	}
	if ee.IP != 2 {
		t.Errorf("ip = %d, want 2", ee.IP)
	}
}

func TestUnmatchedBracketNotReachedIsNoError(t *testing.T) {
	// With a nonzero cell the unmatched `[` falls through into the "body"
	// and execution runs off the end successfully.
	_, _, err := runSource(t, "+[", DefaultConfig(), "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestCloseBracketMismatch(t *testing.T) {
	m := NewMachine(NewProgram([]byte("+]")), DefaultConfig(), NewReaderSource(strings.NewReader("")), NewWriterSink(&bytes.Buffer{}))
	err := m.Run()

	var ee *ExecError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *ExecError", err)
	}
	if ee.Kind != ErrCloseBracket {
		t.Errorf("kind = %v, want CloseBracket", ee.Kind)
	}
	if ee.IP != 1 {
		t.Errorf("ip = %d, want 1", ee.IP)
	}
}

// ---------------------------------------------------------------------------
// Syntax checking
// ---------------------------------------------------------------------------

func TestSyntaxCheckRejectsUnknownByte(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SyntaxCheck = true
	_, _, err := runSource(t, "+\n+x", cfg, "")

	var ee *ExecError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *ExecError", err)
	}
	if ee.Kind != ErrSyntax {
		t.Errorf("kind = %v, want Syntax", ee.Kind)
	}
	if ee.IP != 3 {
		t.Errorf("ip = %d, want 3", ee.IP)
	}
}

func TestSyntaxCheckAllowsNewline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SyntaxCheck = true
	if _, _, err := runSource(t, "++\n--\n[]", cfg, ""); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Stepping, reset, restore
// ---------------------------------------------------------------------------

func TestStepAdvancesOneInstruction(t *testing.T) {
	m := NewMachine(NewProgram([]byte("++")), DefaultConfig(), NewReaderSource(strings.NewReader("")), NewWriterSink(&bytes.Buffer{}))

	done, err := m.Step()
	if err != nil || done {
		t.Fatalf("Step = (%v, %v), want (false, nil)", done, err)
	}
	if m.IP() != 1 || m.Tape().Get(0) != 1 {
		t.Errorf("after one step: ip=%d cell=%d, want 1 and 1", m.IP(), m.Tape().Get(0))
	}

	if done, err = m.Step(); err != nil || done {
		t.Fatalf("Step = (%v, %v), want (false, nil)", done, err)
	}
	if done, err = m.Step(); err != nil || !done {
		t.Fatalf("Step at sentinel = (%v, %v), want (true, nil)", done, err)
	}
	if m.Steps() != 2 {
		t.Errorf("steps = %d, want 2", m.Steps())
	}
}

func TestResetRewindsMachine(t *testing.T) {
	m := NewMachine(NewProgram([]byte("+>+")), DefaultConfig(), NewReaderSource(strings.NewReader("")), NewWriterSink(&bytes.Buffer{}))
	if err := m.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	m.Reset()
	if m.IP() != 0 || m.DP() != 0 || m.Steps() != 0 {
		t.Errorf("after reset: ip=%d dp=%d steps=%d, want zeros", m.IP(), m.DP(), m.Steps())
	}
	if m.Tape().Get(0) != 0 || m.Tape().Get(1) != 0 {
		t.Error("tape not zeroed by reset")
	}

	if err := m.Run(); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if m.Tape().Get(1) != 1 {
		t.Errorf("cell 1 = %d after rerun, want 1", m.Tape().Get(1))
	}
}

func TestRestoreStateResumes(t *testing.T) {
	cfg := Config{DataSize: 4}
	prog := NewProgram([]byte("+++."))

	var out bytes.Buffer
	m := NewMachine(prog, cfg, NewReaderSource(strings.NewReader("")), NewWriterSink(&out))
	if err := m.RestoreState(3, 0, []int8{65, 0, 0, 0}); err != nil {
		t.Fatalf("RestoreState failed: %v", err)
	}
	if err := m.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if ferr := m.out.(*WriterSink).Flush(); ferr != nil {
		t.Fatalf("flush: %v", ferr)
	}
	if out.String() != "A" {
		t.Errorf("output = %q, want %q", out.String(), "A")
	}
}

func TestRestoreStateValidation(t *testing.T) {
	cfg := Config{DataSize: 4}
	m := NewMachine(NewProgram([]byte("+")), cfg, NewReaderSource(strings.NewReader("")), NewWriterSink(&bytes.Buffer{}))

	if err := m.RestoreState(5, 0, make([]int8, 4)); err == nil {
		t.Error("ip out of range accepted")
	}
	if err := m.RestoreState(0, 4, make([]int8, 4)); err == nil {
		t.Error("dp out of range accepted")
	}
	if err := m.RestoreState(0, 0, make([]int8, 3)); err == nil {
		t.Error("short tape accepted")
	}
}
