package segment

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/lattice-forensics/goewf/internal/ewferr"
)

// DefaultHeadroom is subtracted from RLIMIT_NOFILE when deriving the
// pool's default capacity, leaving room for stdio, the verification
// driver's report file, and any sockets the embedding process holds open.
const DefaultHeadroom = 16

// FallbackCapacity is used when RLIMIT_NOFILE cannot be queried.
const FallbackCapacity = 1000 - DefaultHeadroom

// DefaultCapacity returns the file-descriptor pool size implied by the
// process's current RLIMIT_NOFILE soft limit, minus DefaultHeadroom. It
// never returns fewer than 1.
func DefaultCapacity() int {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return FallbackCapacity
	}
	n := int(lim.Cur) - DefaultHeadroom
	if n < 1 {
		n = 1
	}
	return n
}

// handle tracks one pooled segment file and its position in the LRU
// list via a doubly linked list node.
type handle struct {
	name string
	file *os.File
	prev *handle
	next *handle
}

// FilePool bounds the number of simultaneously open segment files,
// transparently closing the least-recently-used one and reopening on
// demand when the cap is reached.
type FilePool struct {
	mu       sync.Mutex
	capacity int
	open     map[string]*handle
	lruHead  *handle // most recently used
	lruTail  *handle // least recently used
}

// NewFilePool returns a pool capped at capacity simultaneously open
// files. capacity <= 0 uses DefaultCapacity.
func NewFilePool(capacity int) *FilePool {
	if capacity <= 0 {
		capacity = DefaultCapacity()
	}
	return &FilePool{capacity: capacity, open: make(map[string]*handle)}
}

// Get returns an open *os.File for name, opening it (read-only) if not
// already pooled, evicting the least-recently-used entry first if the
// pool is at capacity.
func (p *FilePool) Get(name string) (*os.File, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.open[name]; ok {
		p.touch(h)
		return h.file, nil
	}

	if len(p.open) >= p.capacity {
		if err := p.evictLocked(); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, ewferr.Wrap(err, ewferr.Io, "segment", "FilePool.Get", "opening segment file")
	}
	h := &handle{name: name, file: f}
	p.open[name] = h
	p.pushFront(h)
	return f, nil
}

// Close closes every pooled file descriptor and discards the pool's
// state.
func (p *FilePool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var first error
	for _, h := range p.open {
		if err := h.file.Close(); err != nil && first == nil {
			first = err
		}
	}
	p.open = make(map[string]*handle)
	p.lruHead, p.lruTail = nil, nil
	if first != nil {
		return ewferr.Wrap(first, ewferr.Io, "segment", "FilePool.Close", "closing pooled segment file")
	}
	return nil
}

// Len returns the number of currently open pooled files.
func (p *FilePool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.open)
}

func (p *FilePool) evictLocked() error {
	if p.lruTail == nil {
		return nil
	}
	victim := p.lruTail
	p.removeLocked(victim)
	delete(p.open, victim.name)
	if err := victim.file.Close(); err != nil {
		return ewferr.Wrap(err, ewferr.Io, "segment", "FilePool.evict", "closing evicted segment file")
	}
	return nil
}

func (p *FilePool) touch(h *handle) {
	if p.lruHead == h {
		return
	}
	p.removeLocked(h)
	p.pushFront(h)
}

func (p *FilePool) pushFront(h *handle) {
	h.prev = nil
	h.next = p.lruHead
	if p.lruHead != nil {
		p.lruHead.prev = h
	}
	p.lruHead = h
	if p.lruTail == nil {
		p.lruTail = h
	}
}

func (p *FilePool) removeLocked(h *handle) {
	if h.prev != nil {
		h.prev.next = h.next
	} else {
		p.lruHead = h.next
	}
	if h.next != nil {
		h.next.prev = h.prev
	} else {
		p.lruTail = h.prev
	}
	h.prev, h.next = nil, nil
}
