// Package store archives the records of every run so past runs can be listed
// and compared, output files only ever hold the latest run.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	devenv "macroscrape/dev/env"
	"macroscrape/internal/config"
	"macroscrape/internal/record"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Run is one archived collection of a source.
type Run struct {
	ID         int64
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Records    int
	Failures   int
	// Output is the path of the file written by the run.
	Output string
}

type Store struct {
	db *sql.DB
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// OpenDB opens a local sqlite database, `:memory:` is accepted.
func OpenDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	return db, nil
}

// Open opens the configured database, a libsql url takes precedence over a
// local file.
func Open(cfg config.StoreConfig) (*Store, error) {
	var db *sql.DB
	switch {
	case cfg.URL != "":
		if !strings.HasPrefix(cfg.URL, "libsql://") && !strings.HasPrefix(cfg.URL, "http") {
			return nil, fmt.Errorf("%w: store url %q", config.ErrInvalidConfig, cfg.URL)
		}
		conn, err := sql.Open("libsql", cfg.URL)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
		db = conn
	case cfg.File != "":
		path, err := devenv.ResolvePath(cfg.File)
		if err != nil {
			return nil, err
		}
		db, err = OpenDB(path)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: store has neither a file nor a url", config.ErrInvalidConfig)
	}
	return New(db)
}

// New applies the schema to an already opened database.
func New(db *sql.DB) (*Store, error) {
	_, err := db.Exec(Schema)
	if err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Push archives a run and its records in a single transaction, it returns the
// id of the new run.
func (s *Store) Push(ctx context.Context, run Run, records []record.Record) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(
		ctx,
		`insert into run(source, started_at, finished_at, record_count, failure_count, output)
		values (?, ?, ?, ?, ?, ?)`,
		run.Source,
		run.StartedAt.Unix(),
		run.FinishedAt.Unix(),
		len(records),
		run.Failures,
		run.Output,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(
		ctx,
		`insert into observation(
			run_id, indicator, date, value, unit, source, note,
			country, country_code, indicator_code, category, year
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, r := range records {
		_, err = stmt.ExecContext(
			ctx,
			id, r.Indicator, r.Date, r.Value, r.Unit, r.Source, r.Note,
			r.Country, r.CountryCode, r.IndicatorCode, r.Category, r.Year,
		)
		if err != nil {
			return 0, fmt.Errorf("insert observation %s: %w", r.Key(), err)
		}
	}

	return id, tx.Commit()
}

// History lists the most recent runs, newest first. An empty source lists runs
// of every source.
func (s *Store) History(ctx context.Context, source string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`select id, source, started_at, finished_at, record_count, failure_count, output
		from run
		where ? = '' or source = ?
		order by started_at desc, id desc
		limit ?`,
		source, source, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		var started, finished int64
		err = rows.Scan(&run.ID, &run.Source, &started, &finished, &run.Records, &run.Failures, &run.Output)
		if err != nil {
			return nil, err
		}
		run.StartedAt = time.Unix(started, 0)
		run.FinishedAt = time.Unix(finished, 0)
		out = append(out, run)
	}
	return out, rows.Err()
}

// Records returns the records archived by a run, in the order they were written.
func (s *Store) Records(ctx context.Context, runID int64) ([]record.Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select indicator, date, value, unit, source, note,
			country, country_code, indicator_code, category, year
		from observation
		where run_id = ?
		order by rowid`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		var r record.Record
		err = rows.Scan(
			&r.Indicator, &r.Date, &r.Value, &r.Unit, &r.Source, &r.Note,
			&r.Country, &r.CountryCode, &r.IndicatorCode, &r.Category, &r.Year,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
