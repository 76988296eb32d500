package types

import (
	"errors"
	"fmt"
)

// Item store errors.
var (
	ErrNotFound  = errors.New("item not found")
	ErrInvalidID = errors.New("invalid item ID")
)

// Item validation errors. Both wrap ErrInvalidText so callers can match the
// whole family with errors.Is.
var (
	ErrInvalidText  = errors.New("invalid item text")
	ErrTextRequired = fmt.Errorf("%w: text is required", ErrInvalidText)
	ErrTextTooLong  = fmt.Errorf("%w: text cannot exceed %d characters", ErrInvalidText, MaxTextLength)
)

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)
