// Package store exports ingestion runs to a SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/FocuswithJustin/xmlinput/core/errors"
	"github.com/FocuswithJustin/xmlinput/core/sqlite"
	"github.com/FocuswithJustin/xmlinput/internal/corpus"
	"github.com/FocuswithJustin/xmlinput/internal/validation"
)

const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		started TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL DEFAULT 0,
		rejected INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS sentences (
		run_id TEXT NOT NULL,
		line INTEGER NOT NULL,
		input TEXT NOT NULL,
		path TEXT,
		tokens TEXT,
		max_distortion INTEGER,
		error_kind TEXT,
		error_message TEXT,
		PRIMARY KEY (run_id, line),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS walls (
		run_id TEXT NOT NULL,
		line INTEGER NOT NULL,
		boundary INTEGER NOT NULL,
		FOREIGN KEY (run_id, line) REFERENCES sentences(run_id, line) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS zones (
		run_id TEXT NOT NULL,
		line INTEGER NOT NULL,
		start_pos INTEGER NOT NULL,
		end_pos INTEGER NOT NULL,
		FOREIGN KEY (run_id, line) REFERENCES sentences(run_id, line) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS forced_translations (
		run_id TEXT NOT NULL,
		line INTEGER NOT NULL,
		start_pos INTEGER NOT NULL,
		length INTEGER NOT NULL,
		translation TEXT,
		prob REAL NOT NULL,
		FOREIGN KEY (run_id, line) REFERENCES sentences(run_id, line) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_walls_sentence ON walls(run_id, line);
	CREATE INDEX IF NOT EXISTS idx_zones_sentence ON zones(run_id, line);
	CREATE INDEX IF NOT EXISTS idx_forced_sentence ON forced_translations(run_id, line);
`

// Store is an export database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the export database at path and applies the schema.
func Open(path string) (*Store, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, errors.NewValidation("db", err.Error())
	}
	if err := checkExisting(path); err != nil {
		return nil, err
	}

	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.NewIO("open export database", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewIO("create export schema", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// checkExisting refuses to open a non-empty file that is not a SQLite
// database.
func checkExisting(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	header := make([]byte, validation.HeaderSize)
	n, _ := io.ReadFull(f, header)
	if n == 0 {
		return nil
	}
	if kind := validation.DetectFileType(header[:n]); kind != validation.FileTypeSQLite {
		return errors.NewIO("open export database", path,
			fmt.Errorf("%w: %s is not a SQLite database", validation.ErrTypeMismatch, kind))
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Run is one exported run.
type Run struct {
	ID          string        `json:"id"`
	Fingerprint string        `json:"fingerprint"`
	Started     time.Time     `json:"started"`
	Duration    time.Duration `json:"duration"`
	Total       int           `json:"total"`
	Rejected    int           `json:"rejected"`
}

// Batch writes the results of one run inside a transaction.
type Batch struct {
	tx    *sql.Tx
	runID string
	path  string

	sentence *sql.Stmt
	wall     *sql.Stmt
	zone     *sql.Stmt
	forced   *sql.Stmt
}

// Begin starts exporting a run. Results are visible once Commit succeeds.
// The batch holds the store's only connection until it is committed or
// rolled back.
func (s *Store) Begin(ctx context.Context, runID, fingerprint string, started time.Time) (*Batch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewIO("begin export", s.path, err)
	}
	b := &Batch{tx: tx, runID: runID, path: s.path}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO runs (id, fingerprint, started) VALUES (?, ?, ?)",
		runID, fingerprint, started.UTC().Format(time.RFC3339Nano)); err != nil {
		tx.Rollback()
		return nil, errors.NewIO("insert run", s.path, err)
	}

	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&b.sentence, "INSERT INTO sentences (run_id, line, input, path, tokens, max_distortion, error_kind, error_message) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"},
		{&b.wall, "INSERT INTO walls (run_id, line, boundary) VALUES (?, ?, ?)"},
		{&b.zone, "INSERT INTO zones (run_id, line, start_pos, end_pos) VALUES (?, ?, ?, ?)"},
		{&b.forced, "INSERT INTO forced_translations (run_id, line, start_pos, length, translation, prob) VALUES (?, ?, ?, ?, ?, ?)"},
	}
	for _, st := range stmts {
		stmt, err := tx.PrepareContext(ctx, st.query)
		if err != nil {
			tx.Rollback()
			return nil, errors.NewIO("prepare export", s.path, err)
		}
		*st.dst = stmt
	}
	return b, nil
}

// Add exports one result. Rejected lines keep their error and no
// constraint rows.
func (b *Batch) Add(ctx context.Context, r corpus.Result) error {
	if r.Rejected() {
		_, err := b.sentence.ExecContext(ctx, b.runID, r.Line, r.Input,
			nil, nil, nil, r.Error.Kind, r.Error.Message)
		return b.wrap(err)
	}

	v := r.Sentence.View()
	tokens, err := json.Marshal(v.Tokens)
	if err != nil {
		return err
	}
	if _, err := b.sentence.ExecContext(ctx, b.runID, r.Line, r.Input,
		string(v.Path), string(tokens), v.MaxDistortion, nil, nil); err != nil {
		return b.wrap(err)
	}
	for _, w := range v.Walls {
		if _, err := b.wall.ExecContext(ctx, b.runID, r.Line, w); err != nil {
			return b.wrap(err)
		}
	}
	for _, z := range v.Zones {
		if _, err := b.zone.ExecContext(ctx, b.runID, r.Line, z.Start, z.End); err != nil {
			return b.wrap(err)
		}
	}
	for _, f := range v.ForcedTranslations {
		translation := sql.NullString{String: f.Translation, Valid: f.HasTranslation}
		if _, err := b.forced.ExecContext(ctx, b.runID, r.Line, f.Start, f.Length, translation, f.Prob); err != nil {
			return b.wrap(err)
		}
	}
	return nil
}

// Emit returns a corpus.EmitFunc that exports every result.
func (b *Batch) Emit(ctx context.Context) corpus.EmitFunc {
	return func(r corpus.Result) error {
		return b.Add(ctx, r)
	}
}

// Commit records the run summary and commits the batch.
func (b *Batch) Commit(ctx context.Context, sum corpus.Summary) error {
	if _, err := b.tx.ExecContext(ctx,
		"UPDATE runs SET duration_ms = ?, total = ?, rejected = ? WHERE id = ?",
		sum.Duration.Milliseconds(), sum.Total, sum.Rejected, b.runID); err != nil {
		b.tx.Rollback()
		return b.wrap(err)
	}
	if err := b.tx.Commit(); err != nil {
		return errors.NewIO("commit export", b.path, err)
	}
	return nil
}

// Rollback discards the batch.
func (b *Batch) Rollback() error {
	return b.tx.Rollback()
}

func (b *Batch) wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.NewIO("write export", b.path, err)
}

// Runs lists exported runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, fingerprint, started, duration_ms, total, rejected FROM runs ORDER BY started, id")
	if err != nil {
		return nil, errors.NewIO("query runs", s.path, err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			started string
			ms      int64
		)
		if err := rows.Scan(&r.ID, &r.Fingerprint, &started, &ms, &r.Total, &r.Rejected); err != nil {
			return nil, errors.NewIO("scan run", s.path, err)
		}
		if r.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, errors.NewParse("timestamp", started, err.Error())
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CountSentences returns the number of accepted and rejected lines
// exported for a run.
func (s *Store) CountSentences(ctx context.Context, runID string) (accepted, rejected int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN error_kind IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN error_kind IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM sentences WHERE run_id = ?`, runID).Scan(&accepted, &rejected)
	if err != nil {
		return 0, 0, errors.NewIO("count sentences", s.path, err)
	}
	return accepted, rejected, nil
}

// Walls returns the exported wall boundaries of one line in ascending order.
func (s *Store) Walls(ctx context.Context, runID string, line int) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT boundary FROM walls WHERE run_id = ? AND line = ? ORDER BY boundary", runID, line)
	if err != nil {
		return nil, errors.NewIO("query walls", s.path, err)
	}
	defer rows.Close()

	var walls []int
	for rows.Next() {
		var w int
		if err := rows.Scan(&w); err != nil {
			return nil, errors.NewIO("scan wall", s.path, err)
		}
		walls = append(walls, w)
	}
	return walls, rows.Err()
}

// RejectionKinds counts the rejected lines of a run by error kind.
func (s *Store) RejectionKinds(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT error_kind, COUNT(*) FROM sentences WHERE run_id = ? AND error_kind IS NOT NULL GROUP BY error_kind",
		runID)
	if err != nil {
		return nil, errors.NewIO("query rejections", s.path, err)
	}
	defer rows.Close()

	kinds := make(map[string]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, errors.NewIO("scan rejection", s.path, err)
		}
		kinds[kind] = n
	}
	return kinds, rows.Err()
}
