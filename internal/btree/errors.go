package btree

import "errors"

var (
	ErrDuplicateKey = errors.New("btree: key already exists")
	ErrKeyNotFound  = errors.New("btree: key not found")
)
