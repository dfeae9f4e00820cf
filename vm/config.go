package vm

import "fmt"

// DefaultDataSize is the data segment size used when none is configured.
const DefaultDataSize = 30000

// Config is the immutable per-session configuration record. Quiet is a
// presentation policy for the surrounding CLI; it is carried here so one
// record describes a whole session, but the Machine never consults it.
type Config struct {
	DataSize    int
	BoundsCheck bool
	WrapCheck   bool
	SyntaxCheck bool
	Quiet       bool
}

// DefaultConfig returns the default session configuration: a 30000-cell
// tape with every check disabled, matching the classic interpreter.
func DefaultConfig() Config {
	return Config{DataSize: DefaultDataSize}
}

// Validate checks the configuration invariants the Machine relies on.
func (c Config) Validate() error {
	if c.DataSize <= 0 {
		return fmt.Errorf("vm: data size must be positive, got %d", c.DataSize)
	}
	return nil
}
