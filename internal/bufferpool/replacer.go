// Package bufferpool implements the buffer pool manager and its LRU-K
// page replacement policy.
package bufferpool

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

// FrameID identifies a slot in the buffer pool, dense in [0, pool_size).
type FrameID int

var ErrReplacerFull = errors.New("bufferpool: replacer already tracks its maximum number of frames")

type lruKNode struct {
	history     []uint64 // FIFO, length <= k, oldest first
	isEvictable bool
}

// LRUKReplacer tracks per-frame access history and selects eviction
// victims by backward k-distance: the age of the kth-most-recent access,
// or +Inf if a frame has fewer than k recorded accesses (such frames are
// preferred for eviction over ones with a full k-window). Ties are
// broken deterministically in favor of the frame with the older earliest
// recorded access.
type LRUKReplacer struct {
	mu sync.Mutex

	k            int
	replacerSize int
	currentTime  uint64
	currentSize  int // number of evictable frames
	nodes        map[FrameID]*lruKNode
}

func NewLRUKReplacer(replacerSize, k int) *LRUKReplacer {
	return &LRUKReplacer{
		k:            k,
		replacerSize: replacerSize,
		nodes:        make(map[FrameID]*lruKNode),
	}
}

// RecordAccess registers an access to fid, creating a tracked node for it
// if this is its first access. Fails if the replacer already tracks
// replacer_size distinct frames and fid is not among them.
func (r *LRUKReplacer) RecordAccess(fid FrameID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[fid]
	if !ok {
		if len(r.nodes) >= r.replacerSize {
			return fmt.Errorf("%w: frame %d", ErrReplacerFull, fid)
		}
		n = &lruKNode{}
		r.nodes[fid] = n
	}

	n.history = append(n.history, r.currentTime)
	if len(n.history) > r.k {
		n.history = n.history[1:]
	}
	r.currentTime++
	return nil
}

// SetEvictable updates whether fid's frame may be chosen as a victim.
// A no-op if fid is not tracked.
func (r *LRUKReplacer) SetEvictable(fid FrameID, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[fid]
	if !ok {
		return
	}
	if n.isEvictable == evictable {
		return
	}
	n.isEvictable = evictable
	if evictable {
		r.currentSize++
	} else {
		r.currentSize--
	}
}

// Evict selects and removes the highest-priority victim frame, returning
// (frameID, true), or (_, false) if no frame is evictable.
func (r *LRUKReplacer) Evict() (FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]FrameID, 0, len(r.nodes))
	for fid, n := range r.nodes {
		if n.isEvictable {
			ids = append(ids, fid)
		}
	}
	if len(ids) == 0 {
		return 0, false
	}
	// Deterministic base ordering so ties resolve the same way regardless
	// of map iteration order.
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	best := ids[0]
	bestDist := r.kDistance(best)
	bestFront := r.nodes[best].history[0]

	for _, fid := range ids[1:] {
		dist := r.kDistance(fid)
		front := r.nodes[fid].history[0]
		if dist > bestDist || (dist == bestDist && front < bestFront) {
			best, bestDist, bestFront = fid, dist, front
		}
	}

	delete(r.nodes, best)
	r.currentSize--
	return best, true
}

// kDistance returns the backward k-distance for a tracked frame, using
// +Inf (represented as MaxUint64) when fewer than k accesses have been
// recorded. Must be called with r.mu held.
func (r *LRUKReplacer) kDistance(fid FrameID) uint64 {
	n := r.nodes[fid]
	if len(n.history) < r.k {
		return math.MaxUint64
	}
	return r.currentTime - n.history[0]
}

// Remove drops a tracked frame. It must currently be evictable.
func (r *LRUKReplacer) Remove(fid FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[fid]
	if !ok {
		return
	}
	if !n.isEvictable {
		panic("bufferpool: Remove called on a non-evictable frame")
	}
	delete(r.nodes, fid)
	r.currentSize--
}

// Size returns the number of currently evictable frames.
func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentSize
}
