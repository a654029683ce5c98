package broker

// Pool is a fixed-capacity slot allocator for session, topic and
// subscription state (§9's resource-pool guidance). The C original links
// free and in-use slots with pointer fields embedded in each struct; Go's
// moving garbage collector makes that unsafe; a Pool instead threads free
// and in-use lists through parallel int32 next/prev arrays indexed by slot
// position, and hands callers an opaque Handle (index + generation) rather
// than a pointer. A generation counter invalidates any Handle still held
// after its slot is released and reused, the same protection the C
// original got for free from pointer identity.
//
// A Pool owns no goroutine and takes no lock: every method must be called
// from the single task-stepping goroutine that owns the broker.
type Pool[T any] struct {
	values      []T
	generations []uint32
	next        []int32
	prev        []int32
	inUse       []bool

	freeHead  int32
	inUseHead int32
	inUseTail int32
	count     int
}

// Handle names one slot in a Pool. The zero Handle never names a valid
// slot (slot 0 uses generation 1 on its first allocation), so a zero
// Handle field can double as "unset" without a separate bool.
type Handle struct {
	index      int32
	generation uint32
}

// Valid reports whether h could possibly name a slot (zero Handle is
// never valid); it does not check liveness against a particular pool.
func (h Handle) Valid() bool { return h.generation != 0 }

const nilIndex int32 = -1

// NewPool preallocates capacity slots, all initially free.
func NewPool[T any](capacity int) *Pool[T] {
	p := &Pool[T]{
		values:      make([]T, capacity),
		generations: make([]uint32, capacity),
		next:        make([]int32, capacity),
		prev:        make([]int32, capacity),
		inUse:       make([]bool, capacity),
		freeHead:    nilIndex,
		inUseHead:   nilIndex,
		inUseTail:   nilIndex,
	}
	for i := capacity - 1; i >= 0; i-- {
		p.next[i] = p.freeHead
		p.freeHead = int32(i)
	}
	return p
}

// Cap returns the pool's fixed capacity.
func (p *Pool[T]) Cap() int { return len(p.values) }

// Len returns the number of slots currently in use.
func (p *Pool[T]) Len() int { return p.count }

// Alloc reserves a free slot, appending it to the in-use list in
// insertion order (the order broker.Task's round-robin relies on), and
// returns its Handle. It fails with ErrPoolExhausted once every slot is
// in use.
func (p *Pool[T]) Alloc() (Handle, error) {
	if p.freeHead == nilIndex {
		var zero Handle
		return zero, ErrPoolExhausted
	}
	idx := p.freeHead
	p.freeHead = p.next[idx]

	p.inUse[idx] = true
	p.next[idx] = nilIndex
	p.prev[idx] = p.inUseTail
	if p.inUseTail != nilIndex {
		p.next[p.inUseTail] = idx
	} else {
		p.inUseHead = idx
	}
	p.inUseTail = idx
	p.count++

	if p.generations[idx] == 0 {
		p.generations[idx] = 1
	}
	var zero T
	p.values[idx] = zero
	return Handle{index: idx, generation: p.generations[idx]}, nil
}

// Release returns h's slot to the free list. It is a no-op (returning
// false) if h is stale - already released, or naming a slot reallocated
// since h was taken.
func (p *Pool[T]) Release(h Handle) bool {
	idx := h.index
	if idx < 0 || int(idx) >= len(p.values) || !p.inUse[idx] || p.generations[idx] != h.generation {
		return false
	}

	if p.prev[idx] != nilIndex {
		p.next[p.prev[idx]] = p.next[idx]
	} else {
		p.inUseHead = p.next[idx]
	}
	if p.next[idx] != nilIndex {
		p.prev[p.next[idx]] = p.prev[idx]
	} else {
		p.inUseTail = p.prev[idx]
	}

	p.inUse[idx] = false
	p.count--
	p.generations[idx]++
	if p.generations[idx] == 0 {
		p.generations[idx] = 1
	}
	p.next[idx] = p.freeHead
	p.freeHead = idx
	return true
}

// Get returns a pointer to h's value, or (nil, false) if h is stale. The
// pointer is only valid until the next Alloc/Release of the same pool.
func (p *Pool[T]) Get(h Handle) (*T, bool) {
	idx := h.index
	if idx < 0 || int(idx) >= len(p.values) || !p.inUse[idx] || p.generations[idx] != h.generation {
		return nil, false
	}
	return &p.values[idx], true
}

// ForEach visits every in-use slot in insertion (in-use-list) order,
// oldest first, passing each slot's current Handle. Visiting stops early
// if fn returns false. fn may call Release on the handle it was just
// given (that slot's own list linkage has already been read); releasing
// any other handle mid-iteration is undefined.
func (p *Pool[T]) ForEach(fn func(h Handle, v *T) bool) {
	idx := p.inUseHead
	for idx != nilIndex {
		nextIdx := p.next[idx]
		h := Handle{index: idx, generation: p.generations[idx]}
		if !fn(h, &p.values[idx]) {
			return
		}
		idx = nextIdx
	}
}
