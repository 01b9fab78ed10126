package pg

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cwbudde/algo-absence/eeg/absence"
	"github.com/cwbudde/algo-absence/eeg/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

func testRecording() *store.Recording {
	rec := store.NewRecording("/data/a.edf", 0, []string{"L", "R"}, 128)
	var v absence.Vector
	for i := range v {
		v[i] = float64(i)
	}
	rec.Records = []store.Record{
		{Epoch: 0, Features: []absence.Vector{v, v}},
		{Epoch: 1, Label: true, Features: []absence.Vector{v, v}},
	}
	return rec
}

type fakeTx struct {
	pgx.Tx
	execs      []string
	copied     int
	copyErr    error
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeTx) CopyFrom(_ context.Context, table pgx.Identifier, cols []string, src pgx.CopyFromSource) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return 0, err
		}
		if len(vals) != len(cols) {
			return 0, errors.New("column count mismatch")
		}
		f.copied++
	}
	return int64(f.copied), nil
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolledBack = true
	return nil
}

type fakeDB struct {
	tx    *fakeTx
	execs []string
}

func (f *fakeDB) Begin(context.Context) (pgx.Tx, error) { return f.tx, nil }

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.CommandTag{}, nil
}

func TestOpenParseError(t *testing.T) {
	if _, err := Open(context.Background(), Config{URL: "://bad"}, nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestOpenNewPoolError(t *testing.T) {
	old := newPool
	t.Cleanup(func() { newPool = old })
	newPool = func(context.Context, *pgxpool.Config) (*pgxpool.Pool, error) {
		return nil, errors.New("boom")
	}

	_, err := Open(context.Background(), Config{URL: "postgres://u:p@h:5432/db?sslmode=disable"}, nil)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("err=%v", err)
	}
}

func TestOpenAppliesConfig(t *testing.T) {
	old := newPool
	t.Cleanup(func() { newPool = old })

	var seen int32
	newPool = func(_ context.Context, pc *pgxpool.Config) (*pgxpool.Pool, error) {
		seen = pc.MaxConns
		return &pgxpool.Pool{}, nil
	}

	mutated := false
	s, err := Open(context.Background(), Config{URL: "postgres://u:p@h:5432/db", MaxConns: 7}, func(*pgxpool.Config) {
		mutated = true
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if seen != 7 || !mutated || s.db == nil {
		t.Fatalf("seen=%d mutated=%v", seen, mutated)
	}
}

func TestCloseNilSafe(t *testing.T) {
	var s *Sink
	s.Close()
	(&Sink{}).Close()
}

func TestRows(t *testing.T) {
	rec := testRecording()
	rows := Rows(rec)
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if len(rows[0]) != len(Columns()) {
		t.Fatalf("row has %d values for %d columns", len(rows[0]), len(Columns()))
	}

	last := rows[3]
	if id := last[0].(pgtype.UUID); !id.Valid || id.Bytes != [16]byte(rec.RunID) {
		t.Fatalf("run id %v", last[0])
	}
	if last[1] != int32(1) || last[2] != int32(1) || last[3] != true {
		t.Fatalf("keys %v", last[:4])
	}
	if last[4+absence.Distance] != 9.0 {
		t.Fatalf("distance %v", last[4+absence.Distance])
	}
}

func TestMigrate(t *testing.T) {
	db := &fakeDB{}
	s := &Sink{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if len(db.execs) != 1 {
		t.Fatalf("execs=%d", len(db.execs))
	}
	for _, want := range []string{RunTable, FeatureTable, "phase_variance double precision", "PRIMARY KEY (run_id, epoch, channel)"} {
		if !strings.Contains(db.execs[0], want) {
			t.Errorf("schema misses %q", want)
		}
	}
}

func TestWriteCommits(t *testing.T) {
	tx := &fakeTx{}
	s := &Sink{db: &fakeDB{tx: tx}}

	if err := s.Write(context.Background(), testRecording()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !tx.committed || tx.rolledBack {
		t.Fatalf("committed=%v rolledBack=%v", tx.committed, tx.rolledBack)
	}
	if tx.copied != 4 || len(tx.execs) != 1 || !strings.Contains(tx.execs[0], RunTable) {
		t.Fatalf("copied=%d execs=%v", tx.copied, tx.execs)
	}
}

func TestWriteRollsBackOnCopyError(t *testing.T) {
	boom := errors.New("copy failed")
	tx := &fakeTx{copyErr: boom}
	s := &Sink{db: &fakeDB{tx: tx}}

	err := s.Write(context.Background(), testRecording())
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if tx.committed || !tx.rolledBack {
		t.Fatalf("committed=%v rolledBack=%v", tx.committed, tx.rolledBack)
	}
}
