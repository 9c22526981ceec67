package gateway

import (
	"sync/atomic"
	"time"
)

// Clock hands out epoch millisecond stamps that strictly increase, even when
// two calls land in the same millisecond or the wall clock steps back.
type Clock struct {
	now  func() time.Time
	last atomic.Int64
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

func (c *Clock) NowMillis() int64 {
	for {
		last := c.last.Load()
		next := max(c.now().UnixMilli(), last+1)
		if c.last.CompareAndSwap(last, next) {
			return next
		}
	}
}
