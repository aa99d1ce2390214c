package retry

import (
	"context"
	"errors"
	"time"
)

// Policy is a bounded-attempt exponential backoff schedule. Attempt n waits
// BaseDelay << (n-1) before retrying, up to Attempts total tries.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
}

// Permanent marks an error as not worth retrying.
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

// Do runs fn until it succeeds, returns a *Permanent error, the context is
// cancelled, or the attempt budget is spent. The backoff sleep only blocks the
// calling goroutine.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if perm, ok := asPermanent(err); ok {
			return perm.Err
		}
		if attempt == attempts {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return err
}

func asPermanent(err error) (*Permanent, bool) {
	var perm *Permanent
	if errors.As(err, &perm) {
		return perm, true
	}
	return nil, false
}
