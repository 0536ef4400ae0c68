package bufferpool

// Guard is a scoped pin: it unpins its page exactly once, on Drop. Callers
// mark it dirty as they mutate the page; Drop is idempotent so defer
// guard.Drop() is always safe even after an explicit early Drop.
//
// Grounded on the teacher's RefCount pin-count helper (internal/lock),
// generalized here into a page-scoped guard per the design note that
// callers should "prefer a scoped guard that unpins on drop" rather than
// pairing FetchPage/UnpinPage by hand.
type Guard struct {
	pool    *Pool
	page    *Page
	dirty   bool
	dropped bool
}

// FetchGuarded fetches pid and wraps it in a Guard.
func (p *Pool) FetchGuarded(pid uint32) (*Guard, error) {
	pg, err := p.FetchPage(pid)
	if err != nil {
		return nil, err
	}
	return &Guard{pool: p, page: pg}, nil
}

// NewGuarded allocates a fresh page and wraps it in a Guard.
func (p *Pool) NewGuarded() (*Guard, error) {
	pg, err := p.NewPage()
	if err != nil {
		return nil, err
	}
	return &Guard{pool: p, page: pg}, nil
}

func (g *Guard) Page() *Page { return g.page }

// MarkDirty records that the page was mutated so Drop passes the dirty
// bit to UnpinPage; Drop itself does not write the page to disk.
func (g *Guard) MarkDirty() { g.dirty = true }

// Drop unpins the underlying page. Safe to call more than once.
func (g *Guard) Drop() {
	if g.dropped {
		return
	}
	g.dropped = true
	_, _ = g.pool.UnpinPage(g.page.id, g.dirty)
}
