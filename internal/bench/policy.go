package bench

import (
	"fmt"
	"time"
)

// Policy decides when the loop stops. Each bound is optional; an unset bound
// never stops the run, and a policy with no bound runs until cancelled.
type Policy struct {
	timeLimit    time.Duration
	hasTimeLimit bool

	requestLimit    uint64
	hasRequestLimit bool
}

func (p Policy) WithTimeLimit(d time.Duration) Policy {
	p.timeLimit = d
	p.hasTimeLimit = true
	return p
}

func (p Policy) WithRequestLimit(n uint64) Policy {
	p.requestLimit = n
	p.hasRequestLimit = true
	return p
}

func (p Policy) TimeLimit() (time.Duration, bool) {
	return p.timeLimit, p.hasTimeLimit
}

func (p Policy) RequestLimit() (uint64, bool) {
	return p.requestLimit, p.hasRequestLimit
}

// Continue reports whether another request may start.
func (p Policy) Continue(elapsed time.Duration, total uint64) bool {
	if p.hasTimeLimit && elapsed >= p.timeLimit {
		return false
	}
	if p.hasRequestLimit && total >= p.requestLimit {
		return false
	}
	return true
}

func (p Policy) String() string {
	switch {
	case p.hasTimeLimit && p.hasRequestLimit:
		return fmt.Sprintf("%s or %d requests", p.timeLimit, p.requestLimit)
	case p.hasTimeLimit:
		return p.timeLimit.String()
	case p.hasRequestLimit:
		return fmt.Sprintf("%d requests", p.requestLimit)
	default:
		return "unbounded"
	}
}
