package password

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	upperChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars = "abcdefghijklmnopqrstuvwxyz"
	digitChars = "0123456789"

	// DefaultGeneratedLength is used by callers that do not care about an
	// exact length.
	DefaultGeneratedLength = 16

	// maxShuffleAttempts bounds the reshuffle loop. A shuffle that lands a
	// sequential or repeated run is already rare; this many consecutive bad
	// shuffles does not happen with a working entropy source.
	maxShuffleAttempts = 64
)

// GenerateStrong returns a random password of the given length that
// satisfies Evaluate. One character is seeded from each required class, the
// remainder is drawn from the full alphabet, and the result is shuffled.
// Because a pathological shuffle can still produce a sequential or repeated
// run, the run checks are re-applied and the password reshuffled on the rare
// rejection; the seeded symbol guarantees the result never matches a
// deny-list entry.
func GenerateStrong(length int) (string, error) {
	if length < MinLength || length > MaxLength {
		return "", fmt.Errorf("generated length must be between %d and %d", MinLength, MaxLength)
	}

	full := upperChars + lowerChars + digitChars + Symbols

	chars := make([]rune, 0, length)
	for _, class := range [...]string{upperChars, lowerChars, digitChars, Symbols} {
		r, err := randomRune(class)
		if err != nil {
			return "", err
		}
		chars = append(chars, r)
	}
	for len(chars) < length {
		r, err := randomRune(full)
		if err != nil {
			return "", err
		}
		chars = append(chars, r)
	}

	for attempt := 0; attempt < maxShuffleAttempts; attempt++ {
		if err := shuffle(chars); err != nil {
			return "", err
		}
		if !hasSequentialRun(chars) && !hasRepeatRun(chars) {
			return string(chars), nil
		}
	}
	return "", errors.New("password generation failed: entropy source produced runs on every shuffle")
}

func randomRune(alphabet string) (rune, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, err
	}
	return rune(alphabet[n.Int64()]), nil
}

// shuffle is a Fisher-Yates shuffle driven by crypto/rand.
func shuffle(chars []rune) error {
	for i := len(chars) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return err
		}
		j := n.Int64()
		chars[i], chars[j] = chars[j], chars[i]
	}
	return nil
}
