package vm

import "fmt"

// ---------------------------------------------------------------------------
// ErrorKind: the failure taxonomy
// ---------------------------------------------------------------------------

// ErrorKind identifies one of the ways a session can fail. The first two
// kinds belong to the loading layer; the rest are raised by the Machine.
type ErrorKind int

const (
	ErrFileRead ErrorKind = iota
	ErrAllocation
	ErrIndexAbove
	ErrIndexBelow
	ErrWrapOver
	ErrWrapUnder
	ErrOpenBracket
	ErrCloseBracket
	ErrSyntax
)

// Message returns the diagnostic text for an error kind.
func (k ErrorKind) Message() string {
	switch k {
	case ErrFileRead:
		return "reading file failed"
	case ErrAllocation:
		return "memory allocation failed"
	case ErrIndexAbove:
		return "indexing above the data segment"
	case ErrIndexBelow:
		return "indexing below the data segment"
	case ErrWrapOver:
		return "data cell value wraps over"
	case ErrWrapUnder:
		return "data cell value wraps under"
	case ErrOpenBracket:
		return "no match for opening bracket"
	case ErrCloseBracket:
		return "no match for closing bracket"
	case ErrSyntax:
		return "unknown command"
	default:
		return fmt.Sprintf("unknown error kind %d", int(k))
	}
}

func (k ErrorKind) String() string {
	switch k {
	case ErrFileRead:
		return "FileRead"
	case ErrAllocation:
		return "Allocation"
	case ErrIndexAbove:
		return "IndexAbove"
	case ErrIndexBelow:
		return "IndexBelow"
	case ErrWrapOver:
		return "WrapOver"
	case ErrWrapUnder:
		return "WrapUnder"
	case ErrOpenBracket:
		return "OpenBracket"
	case ErrCloseBracket:
		return "CloseBracket"
	case ErrSyntax:
		return "Syntax"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ---------------------------------------------------------------------------
// ExecError: a halted session with its state at the point of failure
// ---------------------------------------------------------------------------

// ExecError reports a fatal execution failure. The machine halts at the
// instruction that triggered the violation: IP is the offset of that
// instruction, DP is the data cursor and Cell the value under it, all
// captured before any mutation the instruction would have applied.
type ExecError struct {
	Kind ErrorKind
	IP   int
	DP   int
	Cell int8
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("vm: %s (ip=%d dp=%d cell=%d)", e.Kind.Message(), e.IP, e.DP, e.Cell)
}
