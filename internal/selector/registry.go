package selector

import "fmt"

// Handle addresses a node slot in a graph's arena. A handle is only valid
// while the node it was issued for is still registered: once the slot is
// reclaimed the handle resolves to nothing, even if the slot is reused.
type Handle struct {
	index uint32
	gen   uint64
}

// IsZero reports whether h was never issued.
func (h Handle) IsZero() bool {
	return h.gen == 0
}

// String returns a compact debugging representation.
func (h Handle) String() string {
	return fmt.Sprintf("%d#%d", h.index, h.gen)
}

// entry is the untyped view of a node that the registry sweeps over.
type entry interface {
	forwardIfNeeded()
	forwardError(err error)
	forwardCompleted()
	isReleased() bool
	reclaim()
	Name() string
}

type slot struct {
	gen  uint64
	node entry // nil when free
}

// registry is the arena of nodes owned by a graph.
//
// Every occupancy gets a fresh generation from a registry-wide counter, so
// trimming trailing free slots never lets a stale handle match a new node.
type registry struct {
	slots []slot
	free  []uint32
	gen   uint64
	live  int
}

func (r *registry) add(e entry) Handle {
	r.gen++
	r.live++

	if n := len(r.free); n > 0 {
		idx := r.free[n-1]
		r.free = r.free[:n-1]
		r.slots[idx] = slot{gen: r.gen, node: e}
		return Handle{index: idx, gen: r.gen}
	}

	r.slots = append(r.slots, slot{gen: r.gen, node: e})
	return Handle{index: uint32(len(r.slots) - 1), gen: r.gen}
}

func (r *registry) lookup(h Handle) (entry, bool) {
	if h.IsZero() || int(h.index) >= len(r.slots) {
		return nil, false
	}
	s := r.slots[h.index]
	if s.node == nil || s.gen != h.gen {
		return nil, false
	}
	return s.node, true
}

// sweep visits every live entry once, in slot order. Released entries are
// reclaimed instead of visited. Reclaiming a node releases its dependencies;
// those sitting later in the arena are reclaimed by this same sweep, the
// others by the next one.
//
// Entries registered while the sweep is running are visited too, which is
// harmless: synchronization is idempotent per tick.
func (r *registry) sweep(visit func(entry), reclaimed func(entry)) {
	for i := 0; i < len(r.slots); i++ {
		e := r.slots[i].node
		if e == nil {
			continue
		}
		if e.isReleased() {
			r.slots[i].node = nil
			r.free = append(r.free, uint32(i))
			r.live--
			e.reclaim()
			if reclaimed != nil {
				reclaimed(e)
			}
			continue
		}
		visit(e)
	}
	r.compact()
}

// compact drops trailing free slots.
func (r *registry) compact() {
	end := len(r.slots)
	for end > 0 && r.slots[end-1].node == nil {
		end--
	}
	if end == len(r.slots) {
		return
	}

	clear(r.slots[end:])
	r.slots = r.slots[:end]

	kept := r.free[:0]
	for _, idx := range r.free {
		if int(idx) < end {
			kept = append(kept, idx)
		}
	}
	r.free = kept
}
