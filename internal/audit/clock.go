package audit

import "sync/atomic"

// Clock is a monotonic logical clock stamping audit entries with a strictly
// increasing seq. Wall-clock timestamps are kept for humans; seq is the
// ordering authority, so entries written within the same nanosecond still
// have a total order.
//
// Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClockAt creates a clock that will issue start+1 next. Pass the highest
// seq already persisted to resume an existing log.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number. Each call returns a unique,
// increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
