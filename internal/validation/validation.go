// Package validation provides centralized input validation for tierstat:
// structural checks of decoded telemetry records and name rules for
// configured labels.
package validation

import (
	"fmt"
	"regexp"
	"unicode"

	"github.com/xtxerr/tierstat/internal/errors"
	"github.com/xtxerr/tierstat/internal/telemetry"
)

// =============================================================================
// Telemetry Records
// =============================================================================

// ValidateSnapshot checks the structural invariants of one timestep:
// the tier count fits the configured layout, every object id is well
// formed and unique across tiers, every size is positive, and every
// request refers to an object resident in the same tier.
func ValidateSnapshot(s *telemetry.TimestepSnapshot, numTiers int) error {
	if len(s.Tiers) == 0 {
		return errors.NewMalformed(s.Index, -1, "", "snapshot has no tiers")
	}
	if len(s.Tiers) > numTiers {
		return errors.NewMalformed(s.Index, -1, "",
			fmt.Sprintf("snapshot has %d tiers, configured for %d", len(s.Tiers), numTiers))
	}

	seen := make(map[uint64]int, s.NumObjects())
	for tier := range s.Tiers {
		ts := &s.Tiers[tier]
		if ts.Files == nil {
			return errors.NewMalformed(s.Index, tier, "", "missing files")
		}
		for id, entry := range ts.Files {
			key, err := telemetry.ParseObjectID(id)
			if err != nil {
				return errors.NewMalformed(s.Index, tier, id, err.Error())
			}
			if prev, dup := seen[key]; dup {
				return errors.NewMalformed(s.Index, tier, id,
					fmt.Sprintf("object also resident in tier %d", prev))
			}
			seen[key] = tier
			if entry.Size <= 0 {
				return errors.NewMalformed(s.Index, tier, id,
					fmt.Sprintf("size must be positive, got %d", entry.Size))
			}
		}
		for id := range ts.Reqs {
			if _, ok := ts.Files[id]; !ok {
				return errors.NewMalformed(s.Index, tier, id, "requests for object not resident in tier")
			}
		}
	}
	return nil
}

// ValidateUsage checks one usage record. Block accounting itself
// (free <= total) is checked by the capacity aggregator, which reports
// it as a capacity invariant violation.
func ValidateUsage(r *telemetry.UsageRecord, numTiers int) error {
	if len(r.Usage) > numTiers {
		return errors.NewMalformed(r.Index, -1, "",
			fmt.Sprintf("usage lists %d tiers, configured for %d", len(r.Usage), numTiers))
	}
	return nil
}

// =============================================================================
// Name Validation
// =============================================================================

// NameRules defines the validation rules for configured labels.
type NameRules struct {
	MinLength    int
	MaxLength    int
	AllowHyphens bool
	AllowUnders  bool
}

// DefaultNameRules returns the rules for cohort and series names.
func DefaultNameRules() NameRules {
	return NameRules{
		MinLength:    1,
		MaxLength:    64,
		AllowHyphens: true,
		AllowUnders:  true,
	}
}

// ValidateName validates a name according to the given rules.
func ValidateName(name string, rules NameRules) error {
	if len(name) < rules.MinLength {
		return fmt.Errorf("name too short: minimum %d characters required", rules.MinLength)
	}
	if len(name) > rules.MaxLength {
		return fmt.Errorf("name too long: maximum %d characters allowed", rules.MaxLength)
	}

	for i, r := range name {
		if r < 32 || r == 127 {
			return fmt.Errorf("name cannot contain control characters at position %d", i)
		}
		if !isAllowedNameChar(r, rules) {
			return fmt.Errorf("invalid character '%c' at position %d", r, i)
		}
	}

	return nil
}

func isAllowedNameChar(r rune, rules NameRules) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '-':
		return rules.AllowHyphens
	case '_':
		return rules.AllowUnders
	}
	return false
}

// ValidateLabel validates a cohort or series label with default rules.
func ValidateLabel(name string) error {
	return ValidateName(name, DefaultNameRules())
}

// =============================================================================
// SQL Patterns
// =============================================================================

var sqlLikeMetaChars = regexp.MustCompile(`[%_\[\]\\]`)

// EscapeLikePattern escapes special characters in a LIKE pattern.
func EscapeLikePattern(pattern string) string {
	return sqlLikeMetaChars.ReplaceAllStringFunc(pattern, func(s string) string {
		return "\\" + s
	})
}

// SafeLikePrefix creates a safe LIKE prefix pattern.
func SafeLikePrefix(prefix string) string {
	return EscapeLikePattern(prefix) + "%"
}
