// Package history records completed interpreter runs in a SQLite ledger.
package history

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chazu/tapir/vm"
)

// ErrRunNotFound indicates the requested run doesn't exist.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded interpreter session.
type Run struct {
	ID          int64
	ProgramHash string // hex SHA-256 of the program text
	Source      string
	DataSize    int
	BoundsCheck bool
	WrapCheck   bool
	SyntaxCheck bool
	Output      string
	Outcome     string // "ok" or the failure message with its position
	Steps       uint64
	Duration    time.Duration
	StartedAt   time.Time
}

// Store is the SQLite-backed run ledger.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) the ledger database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		program_hash TEXT NOT NULL,
		source TEXT NOT NULL,
		data_size INTEGER NOT NULL,
		bounds_check INTEGER NOT NULL,
		wrap_check INTEGER NOT NULL,
		syntax_check INTEGER NOT NULL,
		output TEXT NOT NULL,
		outcome TEXT NOT NULL,
		steps INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL,
		started_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: creating table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// HashProgram returns the hex SHA-256 of program text, the ledger's
// program identity.
func HashProgram(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// Record inserts a completed run and returns its assigned ID.
func (s *Store) Record(r *Run) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO runs (program_hash, source, data_size, bounds_check, wrap_check,
			syntax_check, output, outcome, steps, duration_ns, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ProgramHash, r.Source, r.DataSize,
		boolInt(r.BoundsCheck), boolInt(r.WrapCheck), boolInt(r.SyntaxCheck),
		r.Output, r.Outcome, int64(r.Steps), r.Duration.Nanoseconds(), r.StartedAt.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("history: recording run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: reading run id: %w", err)
	}
	r.ID = id
	return id, nil
}

// RecordSession is the convenience path for the CLI: it derives the ledger
// row from a finished machine plus the observed output and outcome.
func (s *Store) RecordSession(m *vm.Machine, output string, runErr error, started time.Time, d time.Duration) (int64, error) {
	cfg := m.Config()
	outcome := "ok"
	if runErr != nil {
		var ee *vm.ExecError
		if errors.As(runErr, &ee) {
			row, col := m.Program().Locate(ee.IP)
			outcome = fmt.Sprintf("%s at %d:%d", ee.Kind.Message(), row, col)
		} else {
			outcome = runErr.Error()
		}
	}

	source := m.Program().Source()
	return s.Record(&Run{
		ProgramHash: HashProgram(source),
		Source:      string(source),
		DataSize:    cfg.DataSize,
		BoundsCheck: cfg.BoundsCheck,
		WrapCheck:   cfg.WrapCheck,
		SyntaxCheck: cfg.SyntaxCheck,
		Output:      output,
		Outcome:     outcome,
		Steps:       m.Steps(),
		Duration:    d,
		StartedAt:   started,
	})
}

// Lookup retrieves a single run by ID.
func (s *Store) Lookup(id int64) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT id, program_hash, source, data_size, bounds_check, wrap_check,
			syntax_check, output, outcome, steps, duration_ns, started_at
		 FROM runs WHERE id = ?`, id)

	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("history: querying run: %w", err)
	}
	return r, nil
}

// List returns the most recent runs, newest first, up to limit.
func (s *Store) List(limit int) ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT id, program_hash, source, data_size, bounds_check, wrap_check,
			syntax_check, output, outcome, steps, duration_ns, started_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: listing runs: %w", err)
	}
	return runs, nil
}

// ByProgram returns every recorded run of the given program text, newest
// first.
func (s *Store) ByProgram(source []byte) ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT id, program_hash, source, data_size, bounds_check, wrap_check,
			syntax_check, output, outcome, steps, duration_ns, started_at
		 FROM runs WHERE program_hash = ? ORDER BY id DESC`, HashProgram(source))
	if err != nil {
		return nil, fmt.Errorf("history: querying program runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: querying program runs: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		r                     Run
		bounds, wrap, syntax  int
		steps, durNS, started int64
	)
	if err := row.Scan(&r.ID, &r.ProgramHash, &r.Source, &r.DataSize, &bounds, &wrap,
		&syntax, &r.Output, &r.Outcome, &steps, &durNS, &started); err != nil {
		return nil, err
	}
	r.BoundsCheck = bounds != 0
	r.WrapCheck = wrap != 0
	r.SyntaxCheck = syntax != 0
	r.Steps = uint64(steps)
	r.Duration = time.Duration(durNS)
	r.StartedAt = time.Unix(0, started)
	return &r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
