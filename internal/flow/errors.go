package flow

import "errors"

// ErrInvalidParameter is the sentinel for whole-call validation
// failures. Every parameter error wraps it, so callers can test with
// errors.Is regardless of the specific message. Per-point tracking
// failures are never errors; they surface as FlowResult statuses.
var ErrInvalidParameter = errors.New("flow: invalid parameter")
