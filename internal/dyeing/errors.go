package dyeing

import (
	"fmt"
	"strings"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
)

// TransitionError reports sections whose state forbids the requested action.
// Nothing is mutated when it is returned.
type TransitionError struct {
	Action   Action
	Sections []string
	Reason   string
}

func (e *TransitionError) Error() string {
	if len(e.Sections) == 0 {
		return fmt.Sprintf("cannot %s: %s", e.Action, e.Reason)
	}
	return fmt.Sprintf("cannot %s %s: %s", e.Action, strings.Join(e.Sections, ", "), e.Reason)
}

// Unwrap lets errors.Is match httpx.ErrValidation.
func (e *TransitionError) Unwrap() error { return httpx.ErrValidation }

// Details implements httpx.Detailer.
func (e *TransitionError) Details() any {
	return map[string]any{"sections": e.Sections, "reason": e.Reason}
}

var (
	// ErrNotesRequired is returned for rejections without notes.
	ErrNotesRequired = httpx.FieldErrors{"notes": "rejection notes are required"}
	// ErrUserMismatch is returned when the body names a different user than the caller.
	ErrUserMismatch = fmt.Errorf("%w: userId does not match the signed-in user", httpx.ErrForbidden)
)
