package syncache

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch wraps every fetcher failure returned by Fetch. Nothing is
	// cached when it is returned; the next call retries.
	ErrFetch = errors.New("syncache: fetch failed")

	ErrClosed = errors.New("syncache: store closed")
)

// InvalidateError is returned only when both the generation bump and the
// provider delete failed. Either one alone still guarantees the next read misses.
type InvalidateError struct {
	Key     string
	BumpErr error
	DelErr  error
}

func (e *InvalidateError) Error() string {
	switch {
	case e.BumpErr != nil && e.DelErr != nil:
		return fmt.Sprintf("invalidate %q failed: gen bump and delete failed: bump=%v; delete=%v",
			e.Key, e.BumpErr, e.DelErr)
	case e.BumpErr != nil:
		return fmt.Sprintf("invalidate %q: gen bump failed: %v", e.Key, e.BumpErr)
	case e.DelErr != nil:
		return fmt.Sprintf("invalidate %q: delete failed: %v", e.Key, e.DelErr)
	default:
		return fmt.Sprintf("invalidate %q: unknown error", e.Key)
	}
}

func (e *InvalidateError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}

func fetchErr(key string, err error) error {
	return fmt.Errorf("%w: key %q: %w", ErrFetch, key, err)
}
