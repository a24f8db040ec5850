package password

import (
	"math/rand"
	"strings"
	"testing"
)

func violated(res Result, rule Rule) bool {
	for _, v := range res.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}

func TestEvaluateAcceptsStrongPasswords(t *testing.T) {
	for _, candidate := range []string{
		"Tr0ub4dor&3",
		"correct-Horse-7!",
		"N0t.A.Real.Pw",
		"xK9#mQ2$vL5@",
	} {
		res := Evaluate(candidate)
		if !res.Valid {
			t.Fatalf("Evaluate(%q) = invalid, violations %v", candidate, res.Violations)
		}
		if len(res.Violations) != 0 {
			t.Fatalf("Evaluate(%q) valid but reported violations %v", candidate, res.Violations)
		}
	}
}

func TestEvaluateReportsEveryViolation(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		rules     []Rule
	}{
		{"too short", "aB1!", []Rule{RuleLength}},
		{"too long", strings.Repeat("aB1!", 33), []Rule{RuleLength}},
		{"missing uppercase", "tr0ub4dor&3", []Rule{RuleUppercase}},
		{"missing lowercase", "TR0UB4DOR&3", []Rule{RuleLowercase}},
		{"missing digit", "Troubador&!x", []Rule{RuleDigit}},
		{"missing symbol", "Tr0ub4dor333x", []Rule{RuleSymbol, RuleRepeatedRun}},
		{"common password", "trustno1", []Rule{RuleDenyList, RuleUppercase, RuleSymbol}},
		{"common password cased", "TrustNo1", []Rule{RuleDenyList, RuleSymbol}},
		{"alphabetic run", "Abcd-trope-91", []Rule{RuleSequentialRun}},
		{"numeric run", "Pw!3456zzzQ", []Rule{RuleSequentialRun, RuleRepeatedRun}},
		{"repeated run", "PaaaSword9!", []Rule{RuleRepeatedRun}},
		{"everything wrong", "aaaa", []Rule{RuleLength, RuleUppercase, RuleDigit, RuleSymbol, RuleRepeatedRun}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Evaluate(tc.candidate)
			for _, rule := range tc.rules {
				if !violated(res, rule) {
					t.Fatalf("Evaluate(%q): expected violation %q, got %v", tc.candidate, rule, res.Violations)
				}
			}
			if len(tc.rules) > 0 && res.Valid {
				t.Fatalf("Evaluate(%q): expected invalid", tc.candidate)
			}
		})
	}
}

func TestEvaluateRunsDoNotCrossClassBoundaries(t *testing.T) {
	// y->z ascends but z->0 and 9->a must not: neither string holds a
	// 4-character run even though each looks contiguous in ASCII.
	for _, candidate := range []string{"Wyz01-pass!", "W89ab-pass!"} {
		if res := Evaluate(candidate); violated(res, RuleSequentialRun) {
			t.Fatalf("Evaluate(%q): unexpected sequential_run violation", candidate)
		}
	}
}

func TestScoreBands(t *testing.T) {
	tests := []struct {
		candidate string
		score     int
		band      Strength
	}{
		{"aaaaaaaa", 20, StrengthWeak},                 // len>=8, lowercase only, 1 distinct
		{"Tr0ub4dor&3", 60, StrengthMedium},            // len>=8, 4 classes, 10 distinct
		{"Tr0ub4dor&3xY", 80, StrengthStrong},          // len>=12, 4 classes, 12 distinct
		{"Tr0ub4dor&3xYp#Qz", 100, StrengthVeryStrong}, // all thresholds
	}

	for _, tc := range tests {
		res := Evaluate(tc.candidate)
		if res.Score != tc.score {
			t.Fatalf("Evaluate(%q).Score = %d, want %d", tc.candidate, res.Score, tc.score)
		}
		if got := Band(res.Score); got != tc.band {
			t.Fatalf("Band(%d) = %q, want %q", res.Score, got, tc.band)
		}
	}
}

func TestScoreIndependentOfValidity(t *testing.T) {
	// Invalid passwords still earn class and length points.
	res := Evaluate("Abcd-efgh-1234!!")
	if res.Valid {
		t.Fatal("expected sequential run to invalidate")
	}
	if res.Score < 70 {
		t.Fatalf("score = %d, want >= 70 despite invalidity", res.Score)
	}
}

// TestEvaluateRandomizedProperty checks the validity contract over random
// inputs: whenever Evaluate reports valid, the password must satisfy every
// rule as re-checked by an independent naive implementation, and whenever a
// naive rule fails, the matching violation must be present.
func TestEvaluateRandomizedProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(0x5eed))
	alphabet := []rune(upperChars + lowerChars + digitChars + Symbols)

	for i := 0; i < 2000; i++ {
		n := 1 + rng.Intn(20)
		runes := make([]rune, n)
		for j := range runes {
			runes[j] = alphabet[rng.Intn(len(alphabet))]
		}
		candidate := string(runes)
		res := Evaluate(candidate)

		lengthOK := n >= MinLength && n <= MaxLength
		classes := classCoverage(runes)
		classOK := classes.upper && classes.lower && classes.digit && classes.symbol
		runFree := !naiveSequential(candidate) && !naiveRepeat(candidate)

		if res.Valid && !(lengthOK && classOK && runFree) {
			t.Fatalf("Evaluate(%q) valid but naive checks disagree", candidate)
		}
		if !lengthOK && !violated(res, RuleLength) {
			t.Fatalf("Evaluate(%q): missing length violation", candidate)
		}
		if naiveSequential(candidate) && !violated(res, RuleSequentialRun) {
			t.Fatalf("Evaluate(%q): missing sequential_run violation", candidate)
		}
		if naiveRepeat(candidate) && !violated(res, RuleRepeatedRun) {
			t.Fatalf("Evaluate(%q): missing repeated_run violation", candidate)
		}
	}
}

func naiveSequential(s string) bool {
	low := strings.ToLower(s)
	for i := 0; i+sequentialRunLen <= len(low); i++ {
		ok := true
		for j := 1; j < sequentialRunLen; j++ {
			a, b := low[i+j-1], low[i+j]
			alpha := a >= 'a' && a < 'z' && b == a+1
			num := a >= '0' && a < '9' && b == a+1
			if !alpha && !num {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func naiveRepeat(s string) bool {
	for i := 0; i+repeatRunLen <= len(s); i++ {
		if s[i] == s[i+1] && s[i] == s[i+2] {
			return true
		}
	}
	return false
}

func TestGenerateStrongAlwaysValid(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		length := MinLength + rng.Intn(MaxLength-MinLength+1)
		generated, err := GenerateStrong(length)
		if err != nil {
			t.Fatalf("GenerateStrong(%d) error: %v", length, err)
		}
		if got := len([]rune(generated)); got != length {
			t.Fatalf("GenerateStrong(%d) produced length %d", length, got)
		}
		if res := Evaluate(generated); !res.Valid {
			t.Fatalf("GenerateStrong(%d) = %q failed Evaluate: %v", length, generated, res.Violations)
		}
	}
}

func TestGenerateStrongRejectsBadLengths(t *testing.T) {
	for _, length := range []int{0, 7, 129, -1} {
		if _, err := GenerateStrong(length); err == nil {
			t.Fatalf("GenerateStrong(%d): expected error", length)
		}
	}
}
