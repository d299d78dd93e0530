package vapor

// byteSlabPool and commandSlicePool reuse the teacher's objectpools.go
// accordion-capacity pool shape (baseCapacity/maxCapacity/resizeThreshold,
// growing or shrinking by resizeThreshold as occupancy crosses a band)
// applied to the two allocation-heavy shapes vapor's render loop churns
// through every pass: scratch byte slabs feeding the arena's backing
// buffers, and Command slices feeding the reconciler's Result arrays. The
// teacher's pools are monomorphic per concrete type rather than generic
// (it predates Go generics); this keeps that same one-pool-per-shape
// pattern instead of introducing a generic pool where the teacher's idiom
// is concrete pools.
type byteSlabPool struct {
	slabs           [][]byte
	capacity        int
	maxCapacity     int
	baseCapacity    int
	resizeThreshold int
	slabSize        int
}

func newByteSlabPool(baseCapacity, resizeThreshold, slabSize int) *byteSlabPool {
	return &byteSlabPool{
		slabs:           make([][]byte, 0, baseCapacity),
		capacity:        baseCapacity,
		maxCapacity:     baseCapacity,
		baseCapacity:    baseCapacity,
		resizeThreshold: resizeThreshold,
		slabSize:        slabSize,
	}
}

func (p *byteSlabPool) Get() []byte {
	if len(p.slabs) == 0 {
		return make([]byte, p.slabSize)
	}
	last := len(p.slabs) - 1
	s := p.slabs[last]
	p.slabs = p.slabs[:last]
	return s
}

func (p *byteSlabPool) Put(s []byte) {
	for i := range s {
		s[i] = 0
	}
	p.slabs = append(p.slabs, s)
	if len(p.slabs) <= p.capacity-p.resizeThreshold {
		p.adjustCapacity(p.capacity - p.resizeThreshold)
	} else if len(p.slabs) >= p.capacity+p.resizeThreshold {
		p.adjustCapacity(p.capacity + p.resizeThreshold)
	}
}

func (p *byteSlabPool) adjustCapacity(newCapacity int) {
	if newCapacity < p.baseCapacity {
		newCapacity = p.baseCapacity
	} else if newCapacity > p.maxCapacity {
		newCapacity = p.maxCapacity
	}
	if newCapacity < p.capacity && newCapacity < len(p.slabs) {
		p.slabs = p.slabs[:newCapacity]
	}
	p.capacity = newCapacity
}

// commandSlicePool recycles the []Command backing arrays the reconciler
// allocates for each pass's Result.Add/Remove/Update, avoiding a fresh
// allocation per pass for the common case of a steady-state tree with few
// changes.
type commandSlicePool struct {
	slices          [][]Command
	capacity        int
	maxCapacity     int
	baseCapacity    int
	resizeThreshold int
}

func newCommandSlicePool(baseCapacity, resizeThreshold int) *commandSlicePool {
	return &commandSlicePool{
		slices:          make([][]Command, 0, baseCapacity),
		capacity:        baseCapacity,
		maxCapacity:     baseCapacity,
		baseCapacity:    baseCapacity,
		resizeThreshold: resizeThreshold,
	}
}

func (p *commandSlicePool) Get() []Command {
	if len(p.slices) == 0 {
		return make([]Command, 0, 16)
	}
	last := len(p.slices) - 1
	s := p.slices[last]
	p.slices = p.slices[:last]
	return s[:0]
}

func (p *commandSlicePool) Put(s []Command) {
	p.slices = append(p.slices, s)
	if len(p.slices) <= p.capacity-p.resizeThreshold {
		p.adjustCapacity(p.capacity - p.resizeThreshold)
	} else if len(p.slices) >= p.capacity+p.resizeThreshold {
		p.adjustCapacity(p.capacity + p.resizeThreshold)
	}
}

func (p *commandSlicePool) adjustCapacity(newCapacity int) {
	if newCapacity < p.baseCapacity {
		newCapacity = p.baseCapacity
	} else if newCapacity > p.maxCapacity {
		newCapacity = p.maxCapacity
	}
	if newCapacity < p.capacity && newCapacity < len(p.slices) {
		p.slices = p.slices[:newCapacity]
	}
	p.capacity = newCapacity
}

// frameSlicePool recycles the []frame backing arrays behind a lifecycle
// Stack, the pool lifecycle.go's doc comment refers to: the engine builds a
// fresh Stack every pass (runWith), so without pooling every pass would
// allocate a new growing slice for its open-node frames.
type frameSlicePool struct {
	slices          [][]frame
	capacity        int
	maxCapacity     int
	baseCapacity    int
	resizeThreshold int
}

func newFrameSlicePool(baseCapacity, resizeThreshold int) *frameSlicePool {
	return &frameSlicePool{
		slices:          make([][]frame, 0, baseCapacity),
		capacity:        baseCapacity,
		maxCapacity:     baseCapacity,
		baseCapacity:    baseCapacity,
		resizeThreshold: resizeThreshold,
	}
}

func (p *frameSlicePool) Get() []frame {
	if len(p.slices) == 0 {
		return make([]frame, 0, 16)
	}
	last := len(p.slices) - 1
	s := p.slices[last]
	p.slices = p.slices[:last]
	return s[:0]
}

func (p *frameSlicePool) Put(s []frame) {
	for i := range s {
		s[i] = frame{}
	}
	p.slices = append(p.slices, s[:0])
	if len(p.slices) <= p.capacity-p.resizeThreshold {
		p.adjustCapacity(p.capacity - p.resizeThreshold)
	} else if len(p.slices) >= p.capacity+p.resizeThreshold {
		p.adjustCapacity(p.capacity + p.resizeThreshold)
	}
}

func (p *frameSlicePool) adjustCapacity(newCapacity int) {
	if newCapacity < p.baseCapacity {
		newCapacity = p.baseCapacity
	} else if newCapacity > p.maxCapacity {
		newCapacity = p.maxCapacity
	}
	if newCapacity < p.capacity && newCapacity < len(p.slices) {
		p.slices = p.slices[:newCapacity]
	}
	p.capacity = newCapacity
}

var scratchSlabs = newByteSlabPool(64, 16, defaultArenaCapacity)
var commandSlices = newCommandSlicePool(64, 16)
var frameSlices = newFrameSlicePool(64, 16)

// newScratchArena builds the scratch arena with its initial backing buffer
// drawn from scratchSlabs instead of a fresh make(), so repeatedly
// constructing engines (every New, every test) recycles slab memory rather
// than allocating a new buffer each time.
func newScratchArena() *Arena {
	return &Arena{kind: ArenaScratch, buf: scratchSlabs.Get()}
}
