package clock

import (
	"time"
)

// Clock supplies "now" to the services. Operations never read the wall
// clock directly so lifecycle behavior is deterministic under test.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock
type Real struct{}

func (Real) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always returns the same instant
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time {
	return f.T
}
