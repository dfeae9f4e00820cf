package vm

// ---------------------------------------------------------------------------
// Bracket matching
// ---------------------------------------------------------------------------

// Match finds the structurally matching counterpart of the bracket at ip,
// scanning forward or backward one position at a time with a nesting depth
// counter. It returns the matched offset and true, or false when the scan
// runs off either end of the buffer without balancing — an unmatched
// bracket. ip must address a `[` or `]`; the scan never mutates anything.
func Match(p *Program, ip int, forward bool) (int, bool) {
	step := 1
	if !forward {
		step = -1
	}

	depth := 0
	for pos := ip; ; pos += step {
		if pos < 0 || p.code[pos] == programTerminator {
			return 0, false
		}
		switch p.code[pos] {
		case '[':
			depth++
		case ']':
			depth--
		}
		if depth == 0 {
			return pos, true
		}
	}
}

// buildJumpTable pairs up brackets in a single pass so the dispatch loop can
// jump in O(1). table[i] holds the partner offset for a matched bracket at
// i, or -1 for non-brackets and for brackets with no counterpart. Pairing by
// stack is equivalent to the depth-counted scan, so the -1 entries fail in
// exactly the positions Match would.
func buildJumpTable(p *Program) []int {
	table := make([]int, len(p.code))
	for i := range table {
		table[i] = -1
	}

	var open []int
	for i := 0; i < p.Len(); i++ {
		switch p.code[i] {
		case '[':
			open = append(open, i)
		case ']':
			if n := len(open); n > 0 {
				j := open[n-1]
				open = open[:n-1]
				table[j] = i
				table[i] = j
			}
		}
	}
	return table
}
