package password

import (
	"fmt"
	"strings"
	"unicode"
)

// Rule identifies a single strength requirement a password can violate.
type Rule string

const (
	RuleLength        Rule = "length"
	RuleUppercase     Rule = "uppercase"
	RuleLowercase     Rule = "lowercase"
	RuleDigit         Rule = "digit"
	RuleSymbol        Rule = "symbol"
	RuleDenyList      Rule = "deny_list"
	RuleSequentialRun Rule = "sequential_run"
	RuleRepeatedRun   Rule = "repeated_run"
)

// Violation pairs a broken rule with a caller-presentable message.
type Violation struct {
	Rule    Rule
	Message string
}

// Result is the outcome of evaluating one candidate password. Score is
// computed independently of Valid: a short password still earns points for
// the character classes it contains.
type Result struct {
	Valid      bool
	Violations []Violation
	Score      int
}

// Strength buckets a score for display purposes.
type Strength string

const (
	StrengthWeak       Strength = "weak"
	StrengthMedium     Strength = "medium"
	StrengthStrong     Strength = "strong"
	StrengthVeryStrong Strength = "very strong"
)

const (
	// MinLength and MaxLength bound acceptable password lengths, counted
	// in runes.
	MinLength = 8
	MaxLength = 128

	// Symbols is the punctuation set that satisfies the symbol requirement.
	Symbols = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

	// sequentialRunLen is the shortest ascending alphabetic or numeric run
	// that is rejected ("abcd", "3456").
	sequentialRunLen = 4

	// repeatRunLen is the shortest run of identical consecutive characters
	// that is rejected ("aaa").
	repeatRunLen = 3
)

// denyList holds common passwords rejected outright (case-insensitive exact
// match). Kept short on purpose: the length/class/run rules already reject
// most published leaked-password toplists.
var denyList = map[string]struct{}{
	"password":   {},
	"password1":  {},
	"passw0rd":   {},
	"123456":     {},
	"1234567":    {},
	"12345678":   {},
	"123456789":  {},
	"1234567890": {},
	"123123":     {},
	"111111":     {},
	"654321":     {},
	"qwerty":     {},
	"qwerty123":  {},
	"qazwsx":     {},
	"abc123":     {},
	"letmein":    {},
	"iloveyou":   {},
	"admin":      {},
	"welcome":    {},
	"monkey":     {},
	"dragon":     {},
	"sunshine":   {},
	"princess":   {},
	"football":   {},
	"baseball":   {},
	"starwars":   {},
	"superman":   {},
	"whatever":   {},
	"trustno1":   {},
	"shadow":     {},
	"master":     {},
	"freedom":    {},
}

// Evaluate checks a candidate password against every strength rule and
// returns the full violation list; rules are checked independently, never
// short-circuited. Valid is true iff no rule is violated.
func Evaluate(candidate string) Result {
	runes := []rune(candidate)
	var violations []Violation

	if len(runes) < MinLength || len(runes) > MaxLength {
		violations = append(violations, Violation{
			Rule:    RuleLength,
			Message: fmt.Sprintf("password must be between %d and %d characters", MinLength, MaxLength),
		})
	}

	classes := classCoverage(runes)
	if !classes.upper {
		violations = append(violations, Violation{Rule: RuleUppercase, Message: "password must contain an uppercase letter"})
	}
	if !classes.lower {
		violations = append(violations, Violation{Rule: RuleLowercase, Message: "password must contain a lowercase letter"})
	}
	if !classes.digit {
		violations = append(violations, Violation{Rule: RuleDigit, Message: "password must contain a digit"})
	}
	if !classes.symbol {
		violations = append(violations, Violation{Rule: RuleSymbol, Message: "password must contain a symbol"})
	}

	if _, denied := denyList[strings.ToLower(candidate)]; denied {
		violations = append(violations, Violation{Rule: RuleDenyList, Message: "password is too common"})
	}
	if hasSequentialRun(runes) {
		violations = append(violations, Violation{
			Rule:    RuleSequentialRun,
			Message: fmt.Sprintf("password must not contain %d or more sequential characters", sequentialRunLen),
		})
	}
	if hasRepeatRun(runes) {
		violations = append(violations, Violation{
			Rule:    RuleRepeatedRun,
			Message: fmt.Sprintf("password must not repeat the same character %d or more times in a row", repeatRunLen),
		})
	}

	return Result{
		Valid:      len(violations) == 0,
		Violations: violations,
		Score:      score(runes, classes),
	}
}

// Band maps a 0-100 score to its strength bucket.
func Band(score int) Strength {
	switch {
	case score < 40:
		return StrengthWeak
	case score < 70:
		return StrengthMedium
	case score < 90:
		return StrengthStrong
	default:
		return StrengthVeryStrong
	}
}

type coverage struct {
	upper, lower, digit, symbol bool
}

func classCoverage(runes []rune) coverage {
	var c coverage
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			c.upper = true
		case unicode.IsLower(r):
			c.lower = true
		case r >= '0' && r <= '9':
			c.digit = true
		case strings.ContainsRune(Symbols, r):
			c.symbol = true
		}
	}
	return c
}

// score awards 10 points per length threshold crossed at 8/12/16, 10 per
// character class present, and 10 per distinct-character threshold crossed
// at 8/12/16, capped at 100.
func score(runes []rune, classes coverage) int {
	total := 0
	for _, threshold := range [...]int{8, 12, 16} {
		if len(runes) >= threshold {
			total += 10
		}
	}

	for _, present := range [...]bool{classes.upper, classes.lower, classes.digit, classes.symbol} {
		if present {
			total += 10
		}
	}

	distinct := make(map[rune]struct{}, len(runes))
	for _, r := range runes {
		distinct[r] = struct{}{}
	}
	for _, threshold := range [...]int{8, 12, 16} {
		if len(distinct) >= threshold {
			total += 10
		}
	}

	if total > 100 {
		total = 100
	}
	return total
}

// hasSequentialRun reports whether the password contains an ascending
// alphabetic or numeric run of sequentialRunLen or more, case-insensitively.
func hasSequentialRun(runes []rune) bool {
	run := 1
	for i := 1; i < len(runes); i++ {
		if ascends(runes[i-1], runes[i]) {
			run++
			if run >= sequentialRunLen {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

// ascends reports whether b directly follows a within one ordered class
// (a-z folded, or 0-9). Runs never cross class boundaries: "yz01" is two
// runs of two, not one of four.
func ascends(a, b rune) bool {
	a = unicode.ToLower(a)
	b = unicode.ToLower(b)
	if a >= 'a' && a < 'z' {
		return b == a+1
	}
	if a >= '0' && a < '9' {
		return b == a+1
	}
	return false
}

func hasRepeatRun(runes []rune) bool {
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run >= repeatRunLen {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
