package storage

import "errors"

// Storage-kind errors (see the engine's error taxonomy: Storage, Internal,
// Plan, Execution, NotSupport).
var (
	ErrNoSpace         = errors.New("storage: no space left on page")
	ErrBadSlot         = errors.New("storage: slot does not exist or tuple was deleted")
	ErrInvalidPageSize = errors.New("storage: file length is not a whole number of pages")
	ErrEvictionFailed  = errors.New("storage: buffer pool is full and no frame is evictable")
	ErrPagePinned      = errors.New("storage: page is pinned")
)
