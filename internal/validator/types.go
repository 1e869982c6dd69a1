package validator

import (
	"fmt"
	"strings"
)

// #region violation-type
// ViolationType enumerates the policy categories.
type ViolationType string

const (
	ForbiddenWord         ViolationType = "forbidden_word"
	RecommendationPattern ViolationType = "recommendation_pattern"
	IdentityLeak          ViolationType = "identity_leak"
)

// #endregion violation-type

// #region violation
// Violation is a single policy hit.
type Violation struct {
	Type    ViolationType `json:"type"`
	Rule    string        `json:"rule"`
	Locale  string        `json:"locale"`
	Excerpt string        `json:"excerpt"` // taken from the normalized text
	Offset  int           `json:"offset"`  // byte offset into the normalized text
}

// #endregion violation

// #region result
// Result is the output of Validate.
type Result struct {
	IsValid       bool        `json:"is_valid"`
	PolicyVersion string      `json:"policy_version"`
	Violations    []Violation `json:"violations"`
}

// Err returns a *RejectedError when the text was rejected.
func (r Result) Err() error {
	if r.IsValid {
		return nil
	}
	return &RejectedError{PolicyVersion: r.PolicyVersion, Violations: r.Violations}
}

// RejectedError signals that text must be regenerated. It is not fatal.
type RejectedError struct {
	PolicyVersion string
	Violations    []Violation
}

func (e *RejectedError) Error() string {
	kinds := make([]string, 0, len(e.Violations))
	seen := make(map[ViolationType]bool)
	for _, v := range e.Violations {
		if !seen[v.Type] {
			seen[v.Type] = true
			kinds = append(kinds, string(v.Type))
		}
	}
	return fmt.Sprintf("text rejected by %s: %d violation(s) [%s]",
		e.PolicyVersion, len(e.Violations), strings.Join(kinds, ", "))
}

// #endregion result
