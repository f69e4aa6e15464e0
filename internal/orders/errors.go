package orders

import (
	"fmt"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
)

// Common errors
var (
	ErrOrderNotFound = fmt.Errorf("order %w", httpx.ErrNotFound)
	ErrItemNotFound  = fmt.Errorf("order item %w", httpx.ErrNotFound)
	ErrCannotCancel  = fmt.Errorf("%w: order cannot be cancelled in its current status", httpx.ErrValidation)
)
