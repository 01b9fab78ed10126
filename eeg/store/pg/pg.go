// Package pg stores feature records in PostgreSQL using a pgxpool and
// COPY for the feature rows.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/cwbudde/algo-absence/eeg/absence"
	"github.com/cwbudde/algo-absence/eeg/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FeatureTable receives one row per record and channel.
const FeatureTable = "absence_features"

// RunTable receives one row per recording.
const RunTable = "absence_runs"

// Config configures the pool.
type Config struct {
	URL      string
	MaxConns int32
}

// db is the part of *pgxpool.Pool the sink uses.
type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Sink writes recordings to PostgreSQL.
type Sink struct {
	pool *pgxpool.Pool
	db   db
}

var newPool = pgxpool.NewWithConfig

// Open parses cfg.URL and creates the pool. poolCfgMut, if non-nil, can
// adjust the pool configuration before the pool is created.
func Open(ctx context.Context, cfg Config, poolCfgMut func(*pgxpool.Config)) (*Sink, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("pg: parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if poolCfgMut != nil {
		poolCfgMut(pcfg)
	}
	pool, err := newPool(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: open pool: %w", err)
	}
	return &Sink{pool: pool, db: pool}, nil
}

// Close closes the pool.
func (s *Sink) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the tables if they do not exist.
func (s *Sink) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema()); err != nil {
		return fmt.Errorf("pg: migrate: %w", err)
	}
	return nil
}

func schema() string {
	cols := ""
	for _, name := range absence.FeatureNames {
		cols += fmt.Sprintf(",\n\t%s double precision", name)
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	run_id uuid PRIMARY KEY,
	source text NOT NULL,
	batch_index integer NOT NULL,
	channels text[] NOT NULL,
	sample_rate double precision NOT NULL,
	created_at timestamptz NOT NULL
);
CREATE TABLE IF NOT EXISTS %[2]s (
	run_id uuid NOT NULL REFERENCES %[1]s (run_id) ON DELETE CASCADE,
	epoch integer NOT NULL,
	channel integer NOT NULL,
	label boolean NOT NULL%[3]s,
	PRIMARY KEY (run_id, epoch, channel)
);`, RunTable, FeatureTable, cols)
}

// Columns returns the COPY column list of the feature table.
func Columns() []string {
	cols := []string{"run_id", "epoch", "channel", "label"}
	return append(cols, absence.FeatureNames[:]...)
}

// Rows flattens rec into feature table rows.
func Rows(rec *store.Recording) [][]any {
	id := pgtype.UUID{Bytes: [16]byte(rec.RunID), Valid: true}
	rows := make([][]any, 0, len(rec.Records)*len(rec.Channels))
	for _, r := range rec.Records {
		for c, v := range r.Features {
			row := make([]any, 0, 4+absence.NumFeatures)
			row = append(row, id, int32(r.Epoch), int32(c), r.Label)
			for _, f := range v {
				row = append(row, f)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// Write inserts the run row and copies the feature rows in one
// transaction.
func (s *Sink) Write(ctx context.Context, rec *store.Recording) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pg: begin: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, rollback(ctx, tx))
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO `+RunTable+` (run_id, source, batch_index, channels, sample_rate, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		pgtype.UUID{Bytes: [16]byte(rec.RunID), Valid: true},
		rec.Path, int32(rec.Index), rec.Channels, rec.SampleRate, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("pg: insert run: %w", err)
	}

	rows := Rows(rec)
	n, err := tx.CopyFrom(ctx, pgx.Identifier{FeatureTable}, Columns(), pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("pg: copy features: %w", err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("pg: copied %d of %d rows", n, len(rows))
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("pg: commit: %w", err)
	}
	return nil
}

func rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("pg: rollback: %w", err)
	}
	return nil
}

var _ store.Sink = (*Sink)(nil)
