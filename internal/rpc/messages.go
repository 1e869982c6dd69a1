package rpc

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/action-kernel/internal/catalog"
	"github.com/danielpatrickdp/action-kernel/internal/chain"
	"github.com/danielpatrickdp/action-kernel/internal/state"
	"github.com/danielpatrickdp/action-kernel/internal/validator"
	"google.golang.org/protobuf/types/known/structpb"
)

// Messages travel as google.protobuf.Struct. Hashes are hex strings and
// timestamps RFC 3339 with nanoseconds, so nothing above 2^53 is carried as
// a number.

// #region readers
func field(s *structpb.Struct, key string) *structpb.Value {
	return s.GetFields()[key]
}

func stringField(s *structpb.Struct, key string) string {
	return field(s, key).GetStringValue()
}

func numberField(s *structpb.Struct, key string) float64 {
	return field(s, key).GetNumberValue()
}

func boolField(s *structpb.Struct, key string) bool {
	return field(s, key).GetBoolValue()
}

func structField(s *structpb.Struct, key string) *structpb.Struct {
	return field(s, key).GetStructValue()
}

func listField(s *structpb.Struct, key string) []*structpb.Value {
	return field(s, key).GetListValue().GetValues()
}

func digestField(s *structpb.Struct, key string) (state.Digest, error) {
	d, err := state.ParseDigest(stringField(s, key))
	if err != nil {
		return d, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
// #endregion readers

// #region gauge-state
func stateMap(s state.GaugeState) map[string]any {
	m := make(map[string]any, state.NumGauges+1)
	for _, g := range state.Gauges() {
		m[g.String()] = s.Get(g)
	}
	m["step_count"] = float64(s.StepCount)
	return m
}

func stateFromStruct(st *structpb.Struct) state.GaugeState {
	var s state.GaugeState
	for _, g := range state.Gauges() {
		s = s.With(g, numberField(st, g.String()))
	}
	s.StepCount = uint64(numberField(st, "step_count"))
	return s
}
// #endregion gauge-state

// #region chain-entry
func entryMap(e chain.Entry) map[string]any {
	return map[string]any{
		"index":      float64(e.Index),
		"motion_id":  e.MotionID,
		"state_hash": e.StateHash.Hex(),
		"prev_hash":  e.PrevHash.Hex(),
		"entry_hash": e.EntryHash.Hex(),
		"timestamp":  e.Timestamp.UTC().Format(time.RFC3339Nano),
		"snapshot":   stateMap(e.Snapshot),
	}
}

func entryFromStruct(st *structpb.Struct) (chain.Entry, error) {
	e := chain.Entry{
		Index:    uint64(numberField(st, "index")),
		MotionID: stringField(st, "motion_id"),
		Snapshot: stateFromStruct(structField(st, "snapshot")),
	}
	var err error
	if e.StateHash, err = digestField(st, "state_hash"); err != nil {
		return e, err
	}
	if e.PrevHash, err = digestField(st, "prev_hash"); err != nil {
		return e, err
	}
	if e.EntryHash, err = digestField(st, "entry_hash"); err != nil {
		return e, err
	}
	if e.Timestamp, err = time.Parse(time.RFC3339Nano, stringField(st, "timestamp")); err != nil {
		return e, fmt.Errorf("timestamp: %w", err)
	}
	return e, nil
}
// #endregion chain-entry

// #region report
func reportMap(r chain.Report) map[string]any {
	errs := make([]any, len(r.Errors))
	for i, idx := range r.Errors {
		errs[i] = float64(idx)
	}
	faults := make([]any, len(r.Faults))
	for i, f := range r.Faults {
		faults[i] = map[string]any{"index": float64(f.Index), "kind": string(f.Kind)}
	}
	return map[string]any{
		"valid":         r.Valid,
		"length":        float64(r.Length),
		"errors":        errs,
		"faults":        faults,
		"first_invalid": float64(r.FirstInvalid),
	}
}

func reportFromStruct(st *structpb.Struct) chain.Report {
	r := chain.Report{
		Valid:        boolField(st, "valid"),
		Length:       uint64(numberField(st, "length")),
		FirstInvalid: uint64(numberField(st, "first_invalid")),
		Errors:       []uint64{},
	}
	for _, v := range listField(st, "errors") {
		r.Errors = append(r.Errors, uint64(v.GetNumberValue()))
	}
	for _, v := range listField(st, "faults") {
		f := v.GetStructValue()
		r.Faults = append(r.Faults, chain.Fault{
			Index: uint64(numberField(f, "index")),
			Kind:  chain.FaultKind(stringField(f, "kind")),
		})
	}
	return r
}
// #endregion report

// #region validation
func validationMap(r validator.Result) map[string]any {
	vs := make([]any, len(r.Violations))
	for i, v := range r.Violations {
		vs[i] = map[string]any{
			"type":    string(v.Type),
			"rule":    v.Rule,
			"locale":  v.Locale,
			"excerpt": v.Excerpt,
			"offset":  float64(v.Offset),
		}
	}
	return map[string]any{
		"is_valid":       r.IsValid,
		"policy_version": r.PolicyVersion,
		"violations":     vs,
	}
}

func validationFromStruct(st *structpb.Struct) validator.Result {
	r := validator.Result{
		IsValid:       boolField(st, "is_valid"),
		PolicyVersion: stringField(st, "policy_version"),
		Violations:    []validator.Violation{},
	}
	for _, v := range listField(st, "violations") {
		m := v.GetStructValue()
		r.Violations = append(r.Violations, validator.Violation{
			Type:    validator.ViolationType(stringField(m, "type")),
			Rule:    stringField(m, "rule"),
			Locale:  stringField(m, "locale"),
			Excerpt: stringField(m, "excerpt"),
			Offset:  int(numberField(m, "offset")),
		})
	}
	return r
}
// #endregion validation

// #region motions
func motionMap(m catalog.Motion) map[string]any {
	return map[string]any{
		"id":            m.ID,
		"category":      m.Category.String(),
		"mutates_state": m.MutatesState,
		"description":   m.Description,
	}
}

func motionFromStruct(st *structpb.Struct) (catalog.Motion, error) {
	cat, ok := catalog.ParseCategory(stringField(st, "category"))
	if !ok {
		return catalog.Motion{}, fmt.Errorf("unknown category %q", stringField(st, "category"))
	}
	return catalog.Motion{
		ID:           stringField(st, "id"),
		Category:     cat,
		MutatesState: boolField(st, "mutates_state"),
		Description:  stringField(st, "description"),
	}, nil
}
// #endregion motions

func newStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return st, nil
}
