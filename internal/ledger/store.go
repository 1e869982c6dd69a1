package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/action-kernel/internal/autotune"
	"github.com/danielpatrickdp/action-kernel/internal/chain"
	"github.com/danielpatrickdp/action-kernel/internal/engine"
	"github.com/danielpatrickdp/action-kernel/internal/state"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id      TEXT PRIMARY KEY,
	catalog_version TEXT NOT NULL,
	coefficients    TEXT NOT NULL,
	created_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chain_entries (
	session_id  TEXT NOT NULL,
	idx         INTEGER NOT NULL,
	motion_id   TEXT NOT NULL,
	state_hash  TEXT NOT NULL,
	prev_hash   TEXT NOT NULL,
	entry_hash  TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	created_ns  INTEGER NOT NULL,
	snapshot    BLOB NOT NULL,
	PRIMARY KEY (session_id, idx),
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE TABLE IF NOT EXISTS failure_snapshots (
	snapshot_id TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	averages    BLOB NOT NULL,
	recorded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tuning_log (
	proposal_id  TEXT PRIMARY KEY,
	pattern      TEXT NOT NULL,
	confidence   REAL NOT NULL,
	sample_count INTEGER NOT NULL,
	current      TEXT NOT NULL,
	proposed     TEXT NOT NULL,
	applied      INTEGER NOT NULL,
	reason       TEXT,
	created_at   INTEGER NOT NULL
);
`
// #endregion schema

// ErrSessionNotFound is returned when a session id has no ledger rows.
var ErrSessionNotFound = errors.New("session not found")

// #region store-struct
// Store persists audit chains, failure snapshots and the tuning log in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// Open opens a SQLite database and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #region sessions
// SessionInfo describes one persisted session.
type SessionInfo struct {
	ID             string
	CatalogVersion string
	Coefficients   engine.Coefficients
	CreatedAt      time.Time
	Entries        int
}

// CreateSession registers a session. Entries can only be appended to
// registered sessions.
func (s *Store) CreateSession(ctx context.Context, id, catalogVersion string, coeff engine.Coefficients, at time.Time) error {
	coeffJSON, err := json.Marshal(coeff)
	if err != nil {
		return fmt.Errorf("marshal coefficients: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, catalog_version, coefficients, created_at)
		 VALUES (?, ?, ?, ?)`,
		id, catalogVersion, string(coeffJSON), at.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", id, err)
	}
	return nil
}

// Session reads one session with its entry count.
func (s *Store) Session(ctx context.Context, id string) (SessionInfo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT s.session_id, s.catalog_version, s.coefficients, s.created_at,
		        (SELECT COUNT(*) FROM chain_entries c WHERE c.session_id = s.session_id)
		 FROM sessions s WHERE s.session_id = ?`, id,
	)
	info, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionInfo{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return info, err
}

// Sessions lists sessions newest first.
func (s *Store) Sessions(ctx context.Context, limit int) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.session_id, s.catalog_version, s.coefficients, s.created_at,
		        (SELECT COUNT(*) FROM chain_entries c WHERE c.session_id = s.session_id)
		 FROM sessions s ORDER BY s.created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		info, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (SessionInfo, error) {
	var info SessionInfo
	var coeffJSON string
	var created int64
	if err := sc.Scan(&info.ID, &info.CatalogVersion, &coeffJSON, &created, &info.Entries); err != nil {
		return SessionInfo{}, err
	}
	if err := json.Unmarshal([]byte(coeffJSON), &info.Coefficients); err != nil {
		return SessionInfo{}, fmt.Errorf("unmarshal coefficients: %w", err)
	}
	info.CreatedAt = time.Unix(0, created).UTC()
	return info, nil
}
// #endregion sessions

// #region chain-entries
// AppendEntries persists entries for a session in one transaction. Hashes are
// stored as recorded so a later LoadChain + Verify detects edits made at rest.
func (s *Store) AppendEntries(ctx context.Context, sessionID string, entries ...chain.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chain_entries
		 (session_id, idx, motion_id, state_hash, prev_hash, entry_hash, created_at, created_ns, snapshot)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx,
			sessionID, int64(e.Index), e.MotionID,
			e.StateHash.Hex(), e.PrevHash.Hex(), e.EntryHash.Hex(),
			e.Timestamp.Unix(), e.Timestamp.Nanosecond(), state.Canonical(e.Snapshot),
		)
		if err != nil {
			return fmt.Errorf("insert entry %d: %w", e.Index, err)
		}
	}
	return tx.Commit()
}

// LoadChain reads a session's entries in index order.
func (s *Store) LoadChain(ctx context.Context, sessionID string) ([]chain.Entry, error) {
	if _, err := s.Session(ctx, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, motion_id, state_hash, prev_hash, entry_hash, created_at, created_ns, snapshot
		 FROM chain_entries WHERE session_id = ? ORDER BY idx`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("load chain: %w", err)
	}
	defer rows.Close()

	entries := []chain.Entry{}
	for rows.Next() {
		var (
			e                           chain.Entry
			idx, created, createdNs     int64
			stateHex, prevHex, entryHex string
			snap                        []byte
		)
		if err := rows.Scan(&idx, &e.MotionID, &stateHex, &prevHex, &entryHex, &created, &createdNs, &snap); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if len(snap) != state.CanonicalSize {
			return nil, fmt.Errorf("entry %d: snapshot is %d bytes", idx, len(snap))
		}
		e.Index = uint64(idx)
		e.Timestamp = time.Unix(created, createdNs).UTC()
		e.Snapshot = state.DecodeCanonical(snap)
		for _, f := range []struct {
			dst *state.Digest
			src string
		}{{&e.StateHash, stateHex}, {&e.PrevHash, prevHex}, {&e.EntryHash, entryHex}} {
			d, err := state.ParseDigest(f.src)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", idx, err)
			}
			*f.dst = d
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
// #endregion chain-entries

// #region failures
// RecordFailure stores a failure snapshot. An empty ID or zero RecordedAt is
// filled in; the stored snapshot is returned.
func (s *Store) RecordFailure(ctx context.Context, fs autotune.FailureSnapshot) (autotune.FailureSnapshot, error) {
	if fs.ID == "" {
		fs.ID = uuid.New().String()
	}
	if fs.RecordedAt.IsZero() {
		fs.RecordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO failure_snapshots (snapshot_id, session_id, averages, recorded_at)
		 VALUES (?, ?, ?, ?)`,
		fs.ID, fs.SessionID, state.Canonical(fs.GaugeAverages), fs.RecordedAt.UnixNano(),
	)
	if err != nil {
		return autotune.FailureSnapshot{}, fmt.Errorf("insert failure: %w", err)
	}
	return fs, nil
}

// ScanFailures calls fn for every failure snapshot, oldest first.
func (s *Store) ScanFailures(ctx context.Context, fn func(autotune.FailureSnapshot) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT snapshot_id, session_id, averages, recorded_at
		 FROM failure_snapshots ORDER BY recorded_at, snapshot_id`,
	)
	if err != nil {
		return fmt.Errorf("scan failures: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fs autotune.FailureSnapshot
		var avg []byte
		var recorded int64
		if err := rows.Scan(&fs.ID, &fs.SessionID, &avg, &recorded); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		fs.GaugeAverages = state.DecodeCanonical(avg)
		fs.RecordedAt = time.Unix(0, recorded).UTC()
		if err := fn(fs); err != nil {
			return err
		}
	}
	return rows.Err()
}
// #endregion failures

// #region tuning-log
// AppendProposal appends p to the tuning log.
func (s *Store) AppendProposal(ctx context.Context, p autotune.Proposal) error {
	cur, err := json.Marshal(p.Current)
	if err != nil {
		return fmt.Errorf("marshal current: %w", err)
	}
	prop, err := json.Marshal(p.Proposed)
	if err != nil {
		return fmt.Errorf("marshal proposed: %w", err)
	}
	applied := 0
	if p.Applied {
		applied = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tuning_log
		 (proposal_id, pattern, confidence, sample_count, current, proposed, applied, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, string(p.Pattern), p.Confidence, p.SampleCount,
		string(cur), string(prop), applied, p.Reason, p.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}
	return nil
}

// ListProposals returns the most recent proposals, newest first.
func (s *Store) ListProposals(ctx context.Context, limit int) ([]autotune.Proposal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT proposal_id, pattern, confidence, sample_count, current, proposed, applied, reason, created_at
		 FROM tuning_log ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	var out []autotune.Proposal
	for rows.Next() {
		var p autotune.Proposal
		var pattern, cur, prop string
		var reason sql.NullString
		var applied int
		var created int64
		if err := rows.Scan(&p.ID, &pattern, &p.Confidence, &p.SampleCount, &cur, &prop, &applied, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		p.Pattern = autotune.Pattern(pattern)
		if err := json.Unmarshal([]byte(cur), &p.Current); err != nil {
			return nil, fmt.Errorf("unmarshal current: %w", err)
		}
		if err := json.Unmarshal([]byte(prop), &p.Proposed); err != nil {
			return nil, fmt.Errorf("unmarshal proposed: %w", err)
		}
		p.Applied = applied == 1
		if reason.Valid {
			p.Reason = reason.String
		}
		p.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}
// #endregion tuning-log
