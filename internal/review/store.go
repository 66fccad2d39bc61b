// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/groundtruth/pkg/types"
)

var (
	ErrPacketNotFound = errors.New("escalation packet not found")
	ErrRecordNotFound = errors.New("ground-truth record not found")
)

// Store persists packets and ground-truth records in SQLite. Both are kept
// as JSON documents keyed by document id, with the columns needed for
// listing broken out.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the database at cfg.Path and creates the schema
// if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS packets (
			doc_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			decision_rule INTEGER,
			total_issues INTEGER,
			data TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_packets_status ON packets(status)`,
		`CREATE TABLE IF NOT EXISTS ground_truth (
			doc_id TEXT PRIMARY KEY,
			provenance TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS ground_truth_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL,
			provenance TEXT NOT NULL,
			data TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_doc_id ON ground_truth_history(doc_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SavePacket inserts p or replaces a pending packet for the same document.
// A completed packet is never overwritten.
func (s *Store) SavePacket(ctx context.Context, p *types.EscalationPacket) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling packet: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO packets (doc_id, status, decision_rule, total_issues, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(doc_id) DO UPDATE SET
			status=excluded.status, decision_rule=excluded.decision_rule,
			total_issues=excluded.total_issues, data=excluded.data,
			created_at=excluded.created_at, updated_at=excluded.updated_at
		 WHERE packets.status = ?`,
		p.DocumentID, string(p.Status), p.Decision.Rule, p.TotalIssues, string(data),
		formatTime(p.CreatedAt), formatTimePtr(p.UpdatedAt), string(types.ReviewPending),
	)
	if err != nil {
		return fmt.Errorf("saving packet %s: %w", p.DocumentID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyReviewed, p.DocumentID)
	}
	return nil
}

// Packet loads the packet for docID.
func (s *Store) Packet(ctx context.Context, docID string) (*types.EscalationPacket, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM packets WHERE doc_id = ?`, docID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPacketNotFound, docID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading packet %s: %w", docID, err)
	}
	var p types.EscalationPacket
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("decoding packet %s: %w", docID, err)
	}
	return &p, nil
}

// Packets lists packets with the given status, oldest first. An empty
// status lists all packets.
func (s *Store) Packets(ctx context.Context, status types.ReviewStatus) ([]types.EscalationPacket, error) {
	query := `SELECT data FROM packets`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at, doc_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing packets: %w", err)
	}
	defer rows.Close()

	var out []types.EscalationPacket
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning packet: %w", err)
		}
		var p types.EscalationPacket
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("decoding packet: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CompleteReview marks p completed and writes rec in one transaction. The
// status transition is conditional on the stored packet still being
// pending, so two concurrent reviews cannot both succeed.
func (s *Store) CompleteReview(ctx context.Context, p *types.EscalationPacket, rec *types.GroundTruthRecord) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling packet: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE packets SET status = ?, data = ?, updated_at = ? WHERE doc_id = ? AND status = ?`,
		string(types.ReviewCompleted), string(data), formatTimePtr(p.UpdatedAt),
		p.DocumentID, string(types.ReviewPending),
	)
	if err != nil {
		return fmt.Errorf("updating packet %s: %w", p.DocumentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating packet %s: %w", p.DocumentID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyReviewed, p.DocumentID)
	}

	if err := writeRecord(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveRecord creates or amends the record for rec.DocumentID.
func (s *Store) SaveRecord(ctx context.Context, rec *types.GroundTruthRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := writeRecord(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit()
}

// writeRecord upserts rec and appends it to the history table.
func writeRecord(ctx context.Context, ex execer, rec *types.GroundTruthRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	recordedAt := rec.CreatedAt
	if rec.UpdatedAt != nil {
		recordedAt = *rec.UpdatedAt
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO ground_truth (doc_id, provenance, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(doc_id) DO UPDATE SET
			provenance=excluded.provenance, data=excluded.data, updated_at=excluded.updated_at`,
		rec.DocumentID, string(rec.Provenance), string(data),
		formatTime(rec.CreatedAt), formatTimePtr(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving record %s: %w", rec.DocumentID, err)
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO ground_truth_history (doc_id, provenance, data, recorded_at) VALUES (?, ?, ?, ?)`,
		rec.DocumentID, string(rec.Provenance), string(data), formatTime(recordedAt),
	)
	if err != nil {
		return fmt.Errorf("appending history for %s: %w", rec.DocumentID, err)
	}
	return nil
}

// Record loads the current ground-truth record for docID.
func (s *Store) Record(ctx context.Context, docID string) (*types.GroundTruthRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM ground_truth WHERE doc_id = ?`, docID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, docID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading record %s: %w", docID, err)
	}
	var rec types.GroundTruthRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", docID, err)
	}
	return &rec, nil
}

// Records lists every current ground-truth record ordered by document id.
func (s *Store) Records(ctx context.Context) ([]types.GroundTruthRecord, error) {
	return s.queryRecords(ctx, `SELECT data FROM ground_truth ORDER BY doc_id`)
}

// History lists every version written for docID, oldest first.
func (s *Store) History(ctx context.Context, docID string) ([]types.GroundTruthRecord, error) {
	return s.queryRecords(ctx, `SELECT data FROM ground_truth_history WHERE doc_id = ? ORDER BY id`, docID)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]types.GroundTruthRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var out []types.GroundTruthRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		var rec types.GroundTruthRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decoding record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stats summarises review progress and ground-truth provenance.
type Stats struct {
	TotalPackets   int                      `json:"total_packets" yaml:"total_packets"`
	Pending        int                      `json:"pending" yaml:"pending"`
	Completed      int                      `json:"completed" yaml:"completed"`
	CompletionRate float64                  `json:"completion_rate" yaml:"completion_rate"`
	Records        map[types.Provenance]int `json:"records" yaml:"records"`
}

// Stats counts packets by status and records by provenance.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Records: map[types.Provenance]int{}}

	rows, err := s.db.QueryContext(ctx, `SELECT status, count(*) FROM packets GROUP BY status`)
	if err != nil {
		return st, fmt.Errorf("counting packets: %w", err)
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return st, fmt.Errorf("scanning packet count: %w", err)
		}
		st.TotalPackets += n
		switch types.ReviewStatus(status) {
		case types.ReviewPending:
			st.Pending = n
		case types.ReviewCompleted:
			st.Completed = n
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, err
	}
	if st.TotalPackets > 0 {
		st.CompletionRate = float64(st.Completed) / float64(st.TotalPackets)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT provenance, count(*) FROM ground_truth GROUP BY provenance`)
	if err != nil {
		return st, fmt.Errorf("counting records: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var prov string
		var n int
		if err := rows.Scan(&prov, &n); err != nil {
			return st, fmt.Errorf("scanning record count: %w", err)
		}
		st.Records[types.Provenance(prov)] = n
	}
	return st, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
