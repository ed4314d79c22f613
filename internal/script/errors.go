package script

import "errors"

// ErrStateClosed is returned when operating on a closed state.
var ErrStateClosed = errors.New("lua state is closed")
