package authcore

import "time"

// Clock abstracts the current time so lockout windows and token expiry
// are testable without sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
