package breaker

import (
	"sync/atomic"

	"github.com/rbramwell/crate/errors"
)

// Breaker is a shared byte budget with a hard ceiling. Charges accumulate
// monotonically; the charge that takes the total over the limit trips the
// breaker and surfaces the fatal memory-limit condition. A tripped breaker
// never resets for the operation that tripped it.
type Breaker struct {
	name  string
	limit int64
	used  int64
}

func NewBreaker(name string, limit int64) *Breaker {
	return &Breaker{name: name, limit: limit}
}

func (b *Breaker) AddBytes(bytes int64) error {
	newUsed := atomic.AddInt64(&b.used, bytes)
	if b.limit > 0 && newUsed > b.limit {
		return errors.NewMemoryLimitExceededError(
			"[%s] data for operation would be larger than limit of [%d] bytes, used [%d]", b.name, b.limit, newUsed)
	}
	return nil
}

func (b *Breaker) Used() int64 {
	return atomic.LoadInt64(&b.used)
}

func (b *Breaker) Limit() int64 {
	return b.limit
}

func (b *Breaker) Name() string {
	return b.name
}

// RamAccounting tracks the bytes one grouping operation has charged against
// a shared breaker. The total only ever grows; nothing is released until the
// whole operation is discarded.
type RamAccounting struct {
	breaker *Breaker
	total   int64
}

func NewRamAccounting(breaker *Breaker) *RamAccounting {
	return &RamAccounting{breaker: breaker}
}

func (r *RamAccounting) AddBytes(bytes int64) error {
	atomic.AddInt64(&r.total, bytes)
	return r.breaker.AddBytes(bytes)
}

func (r *RamAccounting) TotalBytes() int64 {
	return atomic.LoadInt64(&r.total)
}
