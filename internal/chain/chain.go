package chain

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/danielpatrickdp/action-kernel/internal/state"
)

// #region entry
// Entry is one link of the audit chain. Entries are values; the chain hands
// out copies only.
type Entry struct {
	Index     uint64
	MotionID  string
	StateHash state.Digest
	PrevHash  state.Digest
	Timestamp time.Time
	Snapshot  state.GaugeState
	// EntryHash seals the fields above (snapshot via StateHash).
	EntryHash state.Digest
}

// Sentinel is the PrevHash of the first entry.
var Sentinel state.Digest

// ComputeHash recomputes the entry digest. The next entry carries it as
// PrevHash. The snapshot is bound through StateHash.
func (e Entry) ComputeHash() state.Digest {
	buf := make([]byte, 0, 8+4+len(e.MotionID)+2*sha256.Size+12)
	buf = binary.LittleEndian.AppendUint64(buf, e.Index)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(e.MotionID)))
	buf = append(buf, e.MotionID...)
	buf = append(buf, e.StateHash[:]...)
	buf = append(buf, e.PrevHash[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(e.Timestamp.Unix()))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(e.Timestamp.Nanosecond()))
	return sha256.Sum256(buf)
}

// #endregion entry

// #region chain
// Chain is an append-only hash-linked ledger. Append is exclusive; Verify,
// Export, Len and Last may run concurrently with each other.
type Chain struct {
	mu      sync.RWMutex
	entries []Entry
	now     func() time.Time
}

// Option configures a Chain.
type Option func(*Chain)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Chain) { c.now = now }
}

// New returns an empty chain.
func New(opts ...Option) *Chain {
	c := &Chain{now: func() time.Time { return time.Now().UTC() }}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Restore rebuilds a chain from previously exported or persisted entries. No
// hashes are recomputed; call Verify to check them.
func Restore(entries []Entry, opts ...Option) *Chain {
	c := New(opts...)
	c.entries = make([]Entry, len(entries))
	copy(c.entries, entries)
	return c
}

// Append records motionID and the resulting snapshot.
func (c *Chain) Append(motionID string, snapshot state.GaugeState) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := Sentinel
	if n := len(c.entries); n > 0 {
		prev = c.entries[n-1].EntryHash
	}
	e := Entry{
		Index:     uint64(len(c.entries)),
		MotionID:  motionID,
		StateHash: state.Hash(snapshot),
		PrevHash:  prev,
		Timestamp: c.now(),
		Snapshot:  snapshot,
	}
	e.EntryHash = e.ComputeHash()
	c.entries = append(c.entries, e)
	return e
}

// Export returns a copy of every entry in order.
func (c *Chain) Export() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Last returns the newest entry.
func (c *Chain) Last() (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entries) == 0 {
		return Entry{}, false
	}
	return c.entries[len(c.entries)-1], true
}

// MotionIDs returns the recorded motions in order.
func (c *Chain) MotionIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, len(c.entries))
	for i, e := range c.entries {
		ids[i] = e.MotionID
	}
	return ids
}

// #endregion chain

// #region errors
// FaultKind names a verification check.
type FaultKind string

const (
	FaultIndex     FaultKind = "index_mismatch"
	FaultStateHash FaultKind = "state_hash_mismatch"
	FaultPrevHash  FaultKind = "prev_hash_mismatch"
	FaultEntryHash FaultKind = "entry_hash_mismatch"
)

// Fault is one failed check at one index.
type Fault struct {
	Index uint64
	Kind  FaultKind
}

// TamperError is returned when a chain fails verification. It is never
// auto-corrected.
type TamperError struct {
	Errors []uint64
	Faults []Fault
}

func (e *TamperError) Error() string {
	return fmt.Sprintf("chain tamper detected at %d index(es), first %d", len(e.Errors), e.Errors[0])
}

// #endregion errors
