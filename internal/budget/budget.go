package budget

import (
	"errors"
	"sync/atomic"

	"github.com/nao1215/tunguard/internal/config"
)

// DefaultCeiling is the number of failures after which a run is aborted.
const DefaultCeiling = config.DefaultErrorCeiling

// ErrExhausted is returned by components that stop because the error
// budget has run out.
var ErrExhausted = errors.New("error budget exhausted")

// Budget counts recoverable failures against a fixed ceiling.
type Budget struct {
	count   atomic.Int64
	ceiling int64
}

// New creates a Budget with the given ceiling.
// A non-positive ceiling falls back to DefaultCeiling.
func New(ceiling int) *Budget {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Budget{ceiling: int64(ceiling)}
}

// Record counts one failure. It returns the updated count and whether the
// budget is now exhausted. The increment and the comparison use the value
// returned by the same atomic operation, so concurrent callers never both
// observe the same count.
func (b *Budget) Record() (int, bool) {
	n := b.count.Add(1)
	return int(n), n >= b.ceiling
}

// Exhausted reports whether the ceiling has been reached.
func (b *Budget) Exhausted() bool {
	return b.count.Load() >= b.ceiling
}

// Count returns the number of failures recorded so far.
func (b *Budget) Count() int {
	return int(b.count.Load())
}

// Ceiling returns the configured ceiling.
func (b *Budget) Ceiling() int {
	return int(b.ceiling)
}

// Remaining returns how many more failures can be recorded before the
// budget is exhausted.
func (b *Budget) Remaining() int {
	r := b.ceiling - b.count.Load()
	if r < 0 {
		return 0
	}
	return int(r)
}
