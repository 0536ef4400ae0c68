package bufferpool

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	locking "github.com/tuannm99/novadb/internal/lock"
	"github.com/tuannm99/novadb/internal/storage"
)

var poolLog = zap.NewNop().Sugar()

// SetLogger installs the sugared zap logger used for non-fatal pool
// warnings (e.g. replacer bookkeeping failures that shouldn't abort the
// calling operation). Database wires this to its configured logger.
func SetLogger(l *zap.SugaredLogger) { poolLog = l }

// Page is a buffer-pool-resident page: a fixed-size byte buffer shared
// between the pool and any caller holding a pin. Table/index code views
// Bytes() through storage.TablePage or the btree node wrappers; the pool
// itself is layout-agnostic. There is no per-page reader/writer lock:
// see DESIGN.md's Open Questions for the single-goroutine-per-Database
// assumption this relies on.
type Page struct {
	id  uint32
	buf []byte
}

func (p *Page) ID() uint32    { return p.id }
func (p *Page) Bytes() []byte { return p.buf }

// frame wraps a resident page with its pin count, tracked with the same
// RefCount used elsewhere for reference-counted resource lifetimes: a
// frame starts pinned once (by whoever fetched or created it) and only
// becomes evictable once that count decays to zero.
type frame struct {
	page  *Page
	pin   *locking.RefCount
	dirty bool
}

// Pool is a fixed-capacity buffer pool backed by a shared DiskManager and
// an LRU-K replacer. It is safe for concurrent use; every operation holds
// pool.mu for its duration (the replacer and page table are only ever
// touched while that mutex is held, per the spec's concurrency model).
type Pool struct {
	mu sync.Mutex

	dm       *storage.DiskManager
	replacer *LRUKReplacer

	frames    []*frame // len == capacity; nil entries are free
	pageTable map[uint32]FrameID
	freeList  []FrameID
	capacity  int
}

// NewPool creates a pool of the given capacity (number of frames), with
// an LRU-K replacer configured for k historical accesses.
func NewPool(dm *storage.DiskManager, capacity, k int) *Pool {
	if capacity <= 0 {
		capacity = 1
	}
	free := make([]FrameID, capacity)
	for i := range free {
		free[i] = FrameID(capacity - 1 - i) // so popping from the back yields 0,1,2,...
	}
	return &Pool{
		dm:        dm,
		replacer:  NewLRUKReplacer(capacity, k),
		frames:    make([]*frame, capacity),
		pageTable: make(map[uint32]FrameID),
		freeList:  free,
		capacity:  capacity,
	}
}

// frameFor obtains a frame for a page about to be installed: from the
// free list if available, otherwise by evicting via the replacer
// (flushing the victim first if dirty). Must be called with pool.mu held.
func (p *Pool) frameFor() (FrameID, error) {
	if n := len(p.freeList); n > 0 {
		fid := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return fid, nil
	}

	fid, ok := p.replacer.Evict()
	if !ok {
		return 0, storage.ErrEvictionFailed
	}

	victim := p.frames[fid]
	if victim.dirty {
		if err := p.dm.WritePage(victim.page.id, victim.page.buf); err != nil {
			return 0, err
		}
	}
	delete(p.pageTable, victim.page.id)
	p.frames[fid] = nil
	return fid, nil
}

// NewPage allocates a fresh page id via the disk manager and installs it
// pinned (pin_count=1, non-evictable) into a frame.
func (p *Pool) NewPage() (*Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, err := p.frameFor()
	if err != nil {
		return nil, err
	}
	pid, err := p.dm.AllocatePage()
	if err != nil {
		return nil, err
	}

	pg := &Page{id: pid, buf: make([]byte, storage.PageSize)}
	p.frames[fid] = &frame{page: pg, pin: locking.NewRefCount()}
	p.pageTable[pid] = fid

	if err := p.replacer.RecordAccess(fid); err != nil {
		poolLog.Warnw("replacer record access failed on new page", "err", err)
	}
	p.replacer.SetEvictable(fid, false)
	return pg, nil
}

// FetchPage returns pid, reading it from disk if it is not already
// resident, and increments its pin count.
func (p *Pool) FetchPage(pid uint32) (*Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if fid, ok := p.pageTable[pid]; ok {
		f := p.frames[fid]
		f.pin.Inc()
		if err := p.replacer.RecordAccess(fid); err != nil {
			poolLog.Warnw("replacer record access failed", "err", err)
		}
		p.replacer.SetEvictable(fid, false)
		return f.page, nil
	}

	fid, err := p.frameFor()
	if err != nil {
		return nil, err
	}
	buf, err := p.dm.ReadPage(pid)
	if err != nil {
		return nil, err
	}
	pg := &Page{id: pid, buf: buf}
	p.frames[fid] = &frame{page: pg, pin: locking.NewRefCount()}
	p.pageTable[pid] = fid

	if err := p.replacer.RecordAccess(fid); err != nil {
		poolLog.Warnw("replacer record access failed", "err", err)
	}
	p.replacer.SetEvictable(fid, false)
	return pg, nil
}

// UnpinPage decrements pid's pin count, ORing in the dirty flag. Once the
// pin count reaches zero the frame becomes evictable. Returns false if
// pid is not resident or its pin count was already zero.
func (p *Pool) UnpinPage(pid uint32, dirty bool) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, ok := p.pageTable[pid]
	if !ok {
		return false, nil
	}
	f := p.frames[fid]
	if f.pin.Get() <= 0 {
		return false, nil
	}
	if dirty {
		f.dirty = true
	}
	if f.pin.Dec() {
		p.replacer.SetEvictable(fid, true)
	}
	return true, nil
}

// FlushPage writes pid's bytes to disk if resident, clearing its dirty
// flag.
func (p *Pool) FlushPage(pid uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, ok := p.pageTable[pid]
	if !ok {
		return nil
	}
	f := p.frames[fid]
	if err := p.dm.WritePage(pid, f.page.buf); err != nil {
		return err
	}
	f.dirty = false
	return nil
}

// FlushAllPages writes every dirty resident page to disk.
func (p *Pool) FlushAllPages() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, f := range p.frames {
		if f == nil || !f.dirty {
			continue
		}
		if err := p.dm.WritePage(f.page.id, f.page.buf); err != nil {
			return err
		}
		f.dirty = false
	}
	return nil
}

// DeletePage removes pid from the pool and deallocates it on disk. Fails
// if the page is currently pinned.
func (p *Pool) DeletePage(pid uint32) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, ok := p.pageTable[pid]
	if !ok {
		return true, nil
	}
	f := p.frames[fid]
	if f.pin.Get() > 0 {
		return false, nil
	}

	delete(p.pageTable, pid)
	p.frames[fid] = nil
	p.replacer.Remove(fid)
	p.freeList = append(p.freeList, fid)

	if err := p.dm.DeallocatePage(pid); err != nil {
		return false, err
	}
	return true, nil
}

// Size reports how many frames currently hold a page (for invariant 2 in
// the spec's testable properties).
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pageTable)
}

// Capacity is the pool's fixed frame count.
func (p *Pool) Capacity() int { return p.capacity }

var _ fmt.Stringer = (*Page)(nil)

func (p *Page) String() string { return fmt.Sprintf("Page(%d)", p.id) }
