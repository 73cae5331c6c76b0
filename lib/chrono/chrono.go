package chrono

import "time"

// API is the clock interface used by anything that needs the current time.
// passing it explicitly keeps retention and scheduling math testable.
type API interface {
	Now() time.Time
	Location() *time.Location
}

// StandardImpl is the real clock. it is pinned to UTC so schedules and
// retention windows do not drift with the host timezone.
type StandardImpl struct{}

func NewStandardImpl() StandardImpl {
	return StandardImpl{}
}

func (StandardImpl) Now() time.Time {
	return time.Now().UTC()
}

func (StandardImpl) Location() *time.Location {
	return time.UTC
}
