package btree

import (
	"github.com/tuannm99/novadb/internal/storage"
	"github.com/tuannm99/novadb/internal/types"
)

// DefaultCapacities computes leaf and internal max_size values so that
// max_size+1 entries (the transient overflow slot used during a split)
// always fits in a single physical page, given the on-disk width of an
// encoded key for keySchema.
func DefaultCapacities(keySchema *types.Schema) (leafMaxSize, internalMaxSize int) {
	avail := storage.PageSize - nodeHeaderSize

	leafWidth := leafEntryWidth(keySchema)
	leafMaxSize = avail/leafWidth - 1
	if leafMaxSize < 3 {
		leafMaxSize = 3
	}

	internalWidth := internalEntryWidth(keySchema)
	internalMaxSize = avail/internalWidth - 1
	if internalMaxSize < 3 {
		internalMaxSize = 3
	}
	return leafMaxSize, internalMaxSize
}
