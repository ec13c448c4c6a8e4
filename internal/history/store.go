// Package history keeps a ledger of past orchestrations in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	orchestrationTable = "orchestrations"
	testRunTable       = "test_runs"
)

// Orchestration is one invocation of loadgate.
type Orchestration struct {
	RunID string `db:"run_id"`
	// Unix milliseconds.
	Started  int64  `db:"started"`
	Finished int64  `db:"finished"`
	Tests    int    `db:"tests"`
	Errors   int    `db:"errors"`
	Failures int    `db:"failures"`
	Failed   bool   `db:"failed"`
	Message  string `db:"message"`
}

// TestRun is one target of an orchestration.
type TestRun struct {
	RunID      string `db:"run_id"`
	Seq        int    `db:"seq"`
	Target     string `db:"target"`
	Kind       string `db:"kind"`
	Artifact   string `db:"artifact"`
	Errors     int    `db:"errors"`
	Failures   int    `db:"failures"`
	Passed     bool   `db:"passed"`
	DurationMs int64  `db:"duration_ms"`
}

// Store persists orchestrations. Writes are serialised; SQLite only allows one writer at a time.
type Store struct {
	db     *sql.DB
	goquDb *goqu.Database
	lock   sync.RWMutex
}

// Open opens, creating it if needed, the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Errorf("could not make directory for sqlite db at %s: %v", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Errorf("error opening sqlite DB from %s: %v", path, err)
	}
	s := &Store{db: db, goquDb: goqu.New("sqlite3", db)}
	if err := s.setup(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) setup() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	statements := []string{
		"PRAGMA journal_mode=WAL",
		`CREATE TABLE IF NOT EXISTS orchestrations (
		run_id TEXT,
		started INT,
		finished INT,
		tests INT,
		errors INT,
		failures INT,
		failed INT,
		message TEXT,
		PRIMARY KEY(run_id))`,
		`CREATE TABLE IF NOT EXISTS test_runs (
		run_id TEXT,
		seq INT,
		target TEXT,
		kind TEXT,
		artifact TEXT,
		errors INT,
		failures INT,
		passed INT,
		duration_ms INT,
		PRIMARY KEY(run_id, seq))`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.WithMessage(err, "setting up history database")
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores an orchestration and its runs in a single transaction.
func (s *Store) Record(ctx context.Context, o Orchestration, runs []TestRun) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.goquDb.WithTx(func(tx *goqu.TxDatabase) error {
		if _, err := tx.Insert(orchestrationTable).Rows(o).Executor().ExecContext(ctx); err != nil {
			return errors.WithMessagef(err, "recording orchestration %s", o.RunID)
		}
		if len(runs) == 0 {
			return nil
		}
		rows := make([]interface{}, len(runs))
		for i, r := range runs {
			r.RunID = o.RunID
			rows[i] = r
		}
		if _, err := tx.Insert(testRunTable).Rows(rows...).Executor().ExecContext(ctx); err != nil {
			return errors.WithMessagef(err, "recording test runs of %s", o.RunID)
		}
		return nil
	})
}

// Recent returns up to limit orchestrations, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Orchestration, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var result []Orchestration
	ds := s.goquDb.From(orchestrationTable).Order(goqu.C("started").Desc(), goqu.C("run_id").Desc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	if err := ds.ScanStructsContext(ctx, &result); err != nil {
		return nil, errors.WithMessage(err, "reading orchestrations")
	}
	return result, nil
}

// Runs returns the test runs of an orchestration in dispatch order.
func (s *Store) Runs(ctx context.Context, runID string) ([]TestRun, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var result []TestRun
	err := s.goquDb.From(testRunTable).
		Where(goqu.C("run_id").Eq(runID)).
		Order(goqu.C("seq").Asc()).
		ScanStructsContext(ctx, &result)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading test runs of %s", runID)
	}
	return result, nil
}
