package chain

import "github.com/danielpatrickdp/action-kernel/internal/state"

// #region verify
// Report is the outcome of Verify.
type Report struct {
	Valid  bool
	Length uint64
	// Errors lists every failing index once, ascending.
	Errors []uint64
	Faults []Fault
	// FirstInvalid is the first index that cannot be trusted; equal to Length
	// when Valid.
	FirstInvalid uint64
}

// Err returns a *TamperError when the report is invalid.
func (r Report) Err() error {
	if r.Valid {
		return nil
	}
	return &TamperError{Errors: r.Errors, Faults: r.Faults}
}

// Verify recomputes every entry's state hash and linkage and reports all
// failures, not only the first.
func (c *Chain) Verify() Report {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return verifyEntries(c.entries)
}

// VerifyEntries runs the same checks over an exported or persisted slice.
func VerifyEntries(entries []Entry) Report {
	return verifyEntries(entries)
}

func verifyEntries(entries []Entry) Report {
	r := Report{Length: uint64(len(entries)), Errors: []uint64{}}

	for i, e := range entries {
		idx := uint64(i)
		var faults []Fault

		if e.Index != idx {
			faults = append(faults, Fault{Index: idx, Kind: FaultIndex})
		}
		if state.Hash(e.Snapshot) != e.StateHash {
			faults = append(faults, Fault{Index: idx, Kind: FaultStateHash})
		}
		if e.ComputeHash() != e.EntryHash {
			faults = append(faults, Fault{Index: idx, Kind: FaultEntryHash})
		}
		// recomputed, so an edited predecessor breaks this link even if its
		// stored EntryHash was left alone
		want := Sentinel
		if i > 0 {
			want = entries[i-1].ComputeHash()
		}
		if e.PrevHash != want {
			faults = append(faults, Fault{Index: idx, Kind: FaultPrevHash})
		}

		if len(faults) > 0 {
			r.Faults = append(r.Faults, faults...)
			r.Errors = append(r.Errors, idx)
		}
	}

	r.Valid = len(r.Errors) == 0
	r.FirstInvalid = r.Length
	if !r.Valid {
		r.FirstInvalid = r.Errors[0]
	}
	return r
}

// #endregion verify
