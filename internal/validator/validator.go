package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// #region validator
type compiledRule struct {
	typ    ViolationType
	name   string
	locale string
	re     *regexp.Regexp
}

// Validator checks text against a compiled Policy. It only accepts or
// rejects; it never rewrites text. Safe for concurrent use.
type Validator struct {
	version string
	rules   []compiledRule
}

// New compiles p. Every rule is matched case-insensitively.
func New(p Policy) (*Validator, error) {
	v := &Validator{version: p.Version}
	groups := []struct {
		typ   ViolationType
		rules []Rule
	}{
		{ForbiddenWord, p.ForbiddenWords},
		{RecommendationPattern, p.RecommendationPatterns},
		{IdentityLeak, p.IdentityLeaks},
	}
	for _, g := range groups {
		for _, r := range g.rules {
			expr := r.Pattern
			switch {
			case r.Literal && r.Locale == "ko":
				expr = spacingTolerant(norm.NFC.String(r.Pattern))
			case r.Literal:
				expr = regexp.QuoteMeta(norm.NFC.String(r.Pattern))
			}
			re, err := regexp.Compile("(?i)" + expr)
			if err != nil {
				return nil, fmt.Errorf("policy %s rule %s: %w", p.Version, r.Name, err)
			}
			v.rules = append(v.rules, compiledRule{typ: g.typ, name: r.Name, locale: r.Locale, re: re})
		}
	}
	return v, nil
}

// spacingTolerant quotes lit rune by rune and allows any run of whitespace
// between runes, since Korean spacing around endings varies.
func spacingTolerant(lit string) string {
	var parts []string
	for _, r := range lit {
		if unicode.IsSpace(r) {
			continue
		}
		parts = append(parts, regexp.QuoteMeta(string(r)))
	}
	return strings.Join(parts, `\s*`)
}

// Default returns a validator for DefaultPolicy.
func Default() *Validator {
	v, err := New(DefaultPolicy())
	if err != nil {
		panic(fmt.Sprintf("built-in policy: %v", err))
	}
	return v
}

// Version returns the policy version this validator enforces.
func (v *Validator) Version() string { return v.version }

// Validate scans text and reports every violation. Any violation makes the
// whole text invalid.
func (v *Validator) Validate(text string) Result {
	normalized := Normalize(text)
	res := Result{PolicyVersion: v.version, Violations: []Violation{}}

	for _, r := range v.rules {
		for _, loc := range r.re.FindAllStringIndex(normalized, -1) {
			res.Violations = append(res.Violations, Violation{
				Type:    r.typ,
				Rule:    r.name,
				Locale:  r.locale,
				Excerpt: normalized[loc[0]:loc[1]],
				Offset:  loc[0],
			})
		}
	}
	res.IsValid = len(res.Violations) == 0
	return res
}

// #endregion validator

// #region normalize
// Normalize folds full-width forms to their narrow equivalents and composes
// Hangul so that visually identical inputs match the same rules.
func Normalize(text string) string {
	return norm.NFC.String(width.Fold.String(text))
}

// #endregion normalize
