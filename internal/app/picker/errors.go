package picker

import "errors"

// ErrUnknownSlot is returned for a slot name outside avatar, course and
// background.
var ErrUnknownSlot = errors.New("unknown picker slot")
