// Package snapshot serializes paused machine state so a session can be
// suspended to disk and resumed later.
package snapshot

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/tapir/vm"
)

// cborEncMode uses canonical mode for deterministic encoding, so two
// snapshots of the same machine state are byte-identical.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot captures everything needed to resume a session: the program
// text, the session configuration, both cursors and the tape cells.
type Snapshot struct {
	Program []byte    `cbor:"program"`
	Config  vm.Config `cbor:"config"`
	IP      int       `cbor:"ip"`
	DP      int       `cbor:"dp"`
	Cells   []int8    `cbor:"cells"`
	Steps   uint64    `cbor:"steps"`
}

// Capture builds a snapshot of the machine's current state.
func Capture(m *vm.Machine) *Snapshot {
	cells := make([]int8, m.Tape().Len())
	copy(cells, m.Tape().Cells())
	return &Snapshot{
		Program: append([]byte(nil), m.Program().Source()...),
		Config:  m.Config(),
		IP:      m.IP(),
		DP:      m.DP(),
		Cells:   cells,
		Steps:   m.Steps(),
	}
}

// Resume builds a machine from a snapshot, wired to the given I/O, and
// places it at the captured execution state.
func (s *Snapshot) Resume(in vm.InputSource, out vm.OutputSink) (*vm.Machine, error) {
	if err := s.Config.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot: invalid config: %w", err)
	}
	m := vm.NewMachine(vm.NewProgram(s.Program), s.Config, in, out)
	if err := m.RestoreState(s.IP, s.DP, s.Cells); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return m, nil
}

// Marshal serializes a Snapshot to CBOR bytes.
func Marshal(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// Unmarshal deserializes a Snapshot from CBOR bytes.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	return &s, nil
}

// WriteFile captures the machine and writes the encoded snapshot to path.
func WriteFile(path string, m *vm.Machine) error {
	data, err := Marshal(Capture(m))
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	return nil
}

// ReadFile loads an encoded snapshot from path.
func ReadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	return Unmarshal(data)
}
