package clock

import "time"

// Clock abstracts time.Now so bank-change-window and SLA-deadline logic
// can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func New() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now().UTC() }
