package limiters

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/blogAuth/kv"
)

// ErrLimiterUnavailable wraps directory failures.
var ErrLimiterUnavailable = errors.New("rate limiter unavailable")

// hit counts one event on key and reports whether the count now exceeds limit.
// The window starts with the first hit and does not slide.
func hit(ctx context.Context, store kv.Store, key string, window time.Duration, limit int) (bool, error) {
	count, err := store.Incr(ctx, key, window)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return count > int64(limit), nil
}

// count reads the counter at key without touching it. Missing keys read as zero.
func count(ctx context.Context, store kv.Store, key string) (int64, error) {
	raw, err := store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: counter %q: %v", ErrLimiterUnavailable, key, err)
	}
	return n, nil
}
