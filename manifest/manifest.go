// Package manifest handles tapir.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/tapir/vm"
)

// Manifest represents a tapir.toml project configuration.
type Manifest struct {
	Tape    Tape    `toml:"tape"`
	Checks  Checks  `toml:"checks"`
	Run     Run     `toml:"run"`
	History History `toml:"history"`

	// Dir is the directory containing the tapir.toml file (set at load time).
	Dir string `toml:"-"`
}

// Tape configures the data segment.
type Tape struct {
	Size int `toml:"size"`
}

// Checks toggles the optional safety checks.
type Checks struct {
	Bounds bool `toml:"bounds"`
	Wrap   bool `toml:"wrap"`
	Syntax bool `toml:"syntax"`
}

// Run configures execution behavior.
type Run struct {
	Quiet bool `toml:"quiet"`
	// EOF is the cell value `,` stores at end of input.
	EOF int `toml:"eof"`
}

// History configures the run ledger.
type History struct {
	Path string `toml:"path"`
}

// Load parses a tapir.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "tapir.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := defaults()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if m.Tape.Size <= 0 {
		return nil, fmt.Errorf("%s: tape size must be positive, got %d", path, m.Tape.Size)
	}
	if m.Run.EOF < -128 || m.Run.EOF > 127 {
		return nil, fmt.Errorf("%s: eof value %d does not fit a signed 8-bit cell", path, m.Run.EOF)
	}

	return m, nil
}

// FindAndLoad walks up from startDir to find a tapir.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "tapir.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Config translates the manifest into a session configuration record.
func (m *Manifest) Config() vm.Config {
	return vm.Config{
		DataSize:    m.Tape.Size,
		BoundsCheck: m.Checks.Bounds,
		WrapCheck:   m.Checks.Wrap,
		SyntaxCheck: m.Checks.Syntax,
		Quiet:       m.Run.Quiet,
	}
}

// HistoryPath returns the configured run ledger path resolved against the
// manifest directory, or "" when no ledger is configured.
func (m *Manifest) HistoryPath() string {
	if m.History.Path == "" {
		return ""
	}
	if filepath.IsAbs(m.History.Path) {
		return m.History.Path
	}
	return filepath.Join(m.Dir, m.History.Path)
}

func defaults() *Manifest {
	return &Manifest{
		Tape: Tape{Size: vm.DefaultDataSize},
		Run:  Run{EOF: int(vm.EOFSentinel)},
	}
}
