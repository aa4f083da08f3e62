package domain

import "errors"

// requested entity is not found in the store.
var ErrMissing = errors.New("missing")
