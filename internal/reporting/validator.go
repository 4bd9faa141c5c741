package reporting

import (
	"fmt"
	"regexp"
	"strings"

	"trade-memory/internal/domain"
)

// Validation rules, in the order they are checked.
const (
	RuleHeader      = "header"
	RulePerformance = "performance"
	RuleWinRate     = "win_rate"
	RuleSections    = "sections"
)

const (
	performanceLabel  = "PERFORMANCE:"
	observationsLabel = "KEY OBSERVATIONS:"
	mistakesLabel     = "MISTAKES:"
	minSections       = 2
)

var (
	headerPattern  = regexp.MustCompile(`(?m)^[ \t]*===[ \t]*([A-Z]+ SUMMARY):[ \t]*(.*?)[ \t]*===[ \t\r]*$`)
	winRatePattern = regexp.MustCompile(`(?i)(?:win[ \t]*rate|\bWR)[ \t]*:?[ \t]*\d+(?:\.\d+)?[ \t]*%`)
)

// ValidationError names the first rule a narrative failed.
type ValidationError struct {
	Rule   string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Detail)
}

// Validate reports whether text satisfies the report contract for p.
func Validate(text string, p domain.Period) bool {
	return Check(text, p) == nil
}

// Check validates text against the report contract for p and returns a
// *ValidationError for the first failed rule.
//
// A valid report has a header line carrying exactly p's title and id, a
// PERFORMANCE: section, a numeric win rate such as "Win Rate: 62.5%", and at
// least two of KEY OBSERVATIONS:, MISTAKES: and p's forward-plan label.
func Check(text string, p domain.Period) error {
	if !hasHeader(text, p) {
		return &ValidationError{Rule: RuleHeader, Detail: fmt.Sprintf("missing header %q", p.Header())}
	}
	if !strings.Contains(text, performanceLabel) {
		return &ValidationError{Rule: RulePerformance, Detail: "missing " + performanceLabel + " section"}
	}
	if !winRatePattern.MatchString(text) {
		return &ValidationError{Rule: RuleWinRate, Detail: "no numeric win rate"}
	}

	found := 0
	for _, label := range []string{observationsLabel, mistakesLabel, p.ForwardLabel()} {
		if strings.Contains(text, label) {
			found++
		}
	}
	if found < minSections {
		return &ValidationError{
			Rule:   RuleSections,
			Detail: fmt.Sprintf("found %d of %s, %s, %s; need %d", found, observationsLabel, mistakesLabel, p.ForwardLabel(), minSections),
		}
	}
	return nil
}

// hasHeader requires an exact id match so that a report for 2026-02 does not
// satisfy 2026-02-23 and vice versa.
func hasHeader(text string, p domain.Period) bool {
	for _, m := range headerPattern.FindAllStringSubmatch(text, -1) {
		if m[1] == p.Title() && m[2] == p.ID() {
			return true
		}
	}
	return false
}
