// Package vm implements the tapir brainfuck machine.
//
// This package contains:
//   - Program: the immutable instruction buffer with its sentinel terminator
//   - Tape: the fixed-size array of signed 8-bit data cells
//   - Machine: the instruction dispatch loop with optional safety checks
//   - Bracket matching and source-position resolution for diagnostics
package vm
