package server

import (
	"fmt"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/tapir/vm"
)

// ---------------------------------------------------------------------------
// Static analysis of brainfuck sources
// ---------------------------------------------------------------------------

// Analyze produces diagnostics for a document: an error for every bracket
// with no structural counterpart, and, when strict is set, an error for
// every byte that is neither an operator nor a newline.
func Analyze(source []byte, strict bool) []protocol.Diagnostic {
	prog := vm.NewProgram(source)
	diagnostics := []protocol.Diagnostic{}

	for ip := 0; ip < prog.Len(); ip++ {
		b := prog.Byte(ip)
		switch b {
		case '[':
			if _, ok := vm.Match(prog, ip, true); !ok {
				diagnostics = append(diagnostics, diagnosticAt(prog, ip,
					fmt.Sprintf("%s: `[`", vm.ErrOpenBracket.Message())))
			}
		case ']':
			if _, ok := vm.Match(prog, ip, false); !ok {
				diagnostics = append(diagnostics, diagnosticAt(prog, ip,
					fmt.Sprintf("%s: `]`", vm.ErrCloseBracket.Message())))
			}
		case '>', '<', '+', '-', '.', ',', '\n':
			// Always fine.
		default:
			if strict {
				diagnostics = append(diagnostics, diagnosticAt(prog, ip,
					fmt.Sprintf("%s: %q", vm.ErrSyntax.Message(), b)))
			}
		}
	}

	return diagnostics
}

// diagnosticAt builds a one-character error diagnostic at instruction
// offset ip, translating the resolver's 1-based coordinates to LSP's
// 0-based ones.
func diagnosticAt(prog *vm.Program, ip int, message string) protocol.Diagnostic {
	row, col := prog.Locate(ip)
	severity := protocol.DiagnosticSeverityError
	source := lspName
	line := protocol.UInteger(row - 1)
	char := protocol.UInteger(col - 1)
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: char},
			End:   protocol.Position{Line: line, Character: char + 1},
		},
		Severity: &severity,
		Source:   &source,
		Message:  message,
	}
}

// byteAt returns the source byte under an LSP position.
func byteAt(text string, pos protocol.Position) (byte, bool) {
	line := 0
	col := protocol.UInteger(0)
	for i := 0; i < len(text); i++ {
		if protocol.UInteger(line) == pos.Line && col == pos.Character {
			return text[i], true
		}
		if text[i] == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}
	return 0, false
}

// operatorDoc returns hover documentation for an operator byte, or "" for
// anything that is not an operator.
func operatorDoc(op byte) string {
	switch op {
	case '>':
		return "`>`: move the data cursor one cell to the right"
	case '<':
		return "`<`: move the data cursor one cell to the left"
	case '+':
		return "`+`: increment the cell under the cursor"
	case '-':
		return "`-`: decrement the cell under the cursor"
	case '.':
		return "`.`: write the cell under the cursor to output"
	case ',':
		return "`,`: read one byte of input into the cell under the cursor"
	case '[':
		return "`[`: if the cell is zero, jump past the matching `]`"
	case ']':
		return "`]`: if the cell is nonzero, jump back to the matching `[`"
	default:
		return ""
	}
}
