package capture

import "sync"

// DefaultNodeSize is the analysis size of a stream that was never connected.
const DefaultNodeSize = 2048

// Node keeps the newest captured samples in a ring so an analysis pass can
// read a full window at any time, like a browser analyser node.
type Node struct {
	mu     sync.Mutex
	ring   []float64
	pos    int // next write index, the oldest sample once full
	filled int
}

// NewNode returns a Node holding up to size samples.
func NewNode(size int) *Node {
	if size < 1 {
		size = 1
	}
	return &Node{ring: make([]float64, size)}
}

// Size returns the ring capacity.
func (n *Node) Size() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.ring)
}

// Resize changes the capacity, keeping as many of the newest samples as fit.
func (n *Node) Resize(size int) {
	if size < 1 {
		size = 1
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if size == len(n.ring) {
		return
	}
	keep := min(n.filled, size)
	ring := make([]float64, size)
	n.newest(ring[:keep])
	n.ring = ring
	n.pos = keep % size
	n.filled = keep
}

// Write appends samples, overwriting the oldest ones once the ring is full.
func (n *Node) Write(samples []float32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	size := len(n.ring)
	if len(samples) >= size {
		tail := samples[len(samples)-size:]
		for i, v := range tail {
			n.ring[i] = float64(v)
		}
		n.pos = 0
		n.filled = size
		return
	}
	for _, v := range samples {
		n.ring[n.pos] = float64(v)
		n.pos++
		if n.pos == size {
			n.pos = 0
		}
	}
	n.filled = min(n.filled+len(samples), size)
}

// TimeDomainData copies the newest len(dst) samples into dst, oldest first.
// When fewer have been captured the front of dst is zeroed.
func (n *Node) TimeDomainData(dst []float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := min(len(dst), n.filled)
	lead := len(dst) - count
	for i := 0; i < lead; i++ {
		dst[i] = 0
	}
	n.newest(dst[lead:])
}

// newest copies the newest len(dst) samples into dst. len(dst) must not
// exceed filled. Callers hold mu.
func (n *Node) newest(dst []float64) {
	count := len(dst)
	if count == 0 {
		return
	}
	size := len(n.ring)
	start := (n.pos - count + size) % size
	if start+count <= size {
		copy(dst, n.ring[start:start+count])
		return
	}
	head := copy(dst, n.ring[start:])
	copy(dst[head:], n.ring[:count-head])
}
