// Package sizelimit rejects uploads above a configured size.
package sizelimit

import (
	"context"
	"fmt"

	"github.com/ruteri/storageitem-service/upload"
)

// Hook is a pre-validate hook enforcing a maximum staged size.
type Hook struct {
	maxBytes int64
}

// New returns a hook rejecting uploads larger than maxBytes.
// A non-positive maxBytes disables the limit but keeps the size consistency check.
func New(maxBytes int64) *Hook {
	return &Hook{maxBytes: maxBytes}
}

// PreValidate checks the staged size against the limit and the declared size.
func (h *Hook) PreValidate(_ context.Context, sc *upload.StagingContext) error {
	part := sc.Part()
	staged := sc.Staged().Size()

	if h.maxBytes > 0 && staged > h.maxBytes {
		return fmt.Errorf("%w: file [%s] is %d bytes, limit is %d", upload.ErrRejected, part.Name, staged, h.maxBytes)
	}

	if part.Size > 0 && part.Size != staged {
		return fmt.Errorf("%w: file [%s] declared %d bytes but %d were received", upload.ErrRejected, part.Name, part.Size, staged)
	}

	return nil
}
