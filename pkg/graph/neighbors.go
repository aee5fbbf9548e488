package graph

import (
	"container/heap"
	"sort"
	"strings"
)

// NodeNeighbors is an immutable, ascending, duplicate-free set of node ids.
// Sets are built inside this package in strictly ascending order; anything
// else is an invariant violation. The ordering lets every set operation run
// as a single merge-style scan.
type NodeNeighbors struct {
	ids []NodeID
}

// NewNodeNeighbors creates a set from ids, which must be strictly ascending
func NewNodeNeighbors(ids ...NodeID) *NodeNeighbors {
	n := &NodeNeighbors{ids: make([]NodeID, 0, len(ids))}
	for _, id := range ids {
		n.addNeighbor(id)
	}
	return n
}

// addNeighbor appends id; it must be greater than every id already present
func (n *NodeNeighbors) addNeighbor(id NodeID) {
	if len(n.ids) > 0 && n.ids[len(n.ids)-1] >= id {
		invariantf("neighbor %d added after %d", id, n.ids[len(n.ids)-1])
	}
	n.ids = append(n.ids, id)
}

// Size returns the number of ids in the set
func (n *NodeNeighbors) Size() int { return len(n.ids) }

// At returns the i-th smallest id
func (n *NodeNeighbors) At(i int) NodeID { return n.ids[i] }

// Contains reports whether id is in the set
func (n *NodeNeighbors) Contains(id NodeID) bool {
	pos := sort.Search(len(n.ids), func(i int) bool { return n.ids[i] >= id })
	return pos < len(n.ids) && n.ids[pos] == id
}

// IDs returns a copy of the ids in ascending order
func (n *NodeNeighbors) IDs() []NodeID {
	out := make([]NodeID, len(n.ids))
	copy(out, n.ids)
	return out
}

// CommonNeighborsSize returns |n ∩ other|
func (n *NodeNeighbors) CommonNeighborsSize(other *NodeNeighbors) int {
	i, j, count := 0, 0, 0
	for i < len(n.ids) && j < len(other.ids) {
		switch {
		case n.ids[i] < other.ids[j]:
			i++
		case n.ids[i] > other.ids[j]:
			j++
		default:
			count++
			i++
			j++
		}
	}
	return count
}

// Difference returns the ids of n that are not in other
func (n *NodeNeighbors) Difference(other *NodeNeighbors) *NodeNeighbors {
	result := &NodeNeighbors{ids: make([]NodeID, 0, len(n.ids))}
	j := 0
	for _, id := range n.ids {
		for j < len(other.ids) && other.ids[j] < id {
			j++
		}
		if j < len(other.ids) && other.ids[j] == id {
			continue
		}
		result.addNeighbor(id)
	}
	return result
}

// Equal reports whether both sets hold the same ids
func (n *NodeNeighbors) Equal(other *NodeNeighbors) bool {
	if len(n.ids) != len(other.ids) {
		return false
	}
	for i, id := range n.ids {
		if other.ids[i] != id {
			return false
		}
	}
	return true
}

func (n *NodeNeighbors) String() string {
	parts := make([]string, len(n.ids))
	for i, id := range n.ids {
		parts[i] = id.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// UnionNeighbors merges any number of sets into a new set.
// The heads of all inputs sit in a min-heap, so the output is produced in
// ascending order without hashing.
func UnionNeighbors(sets ...*NodeNeighbors) *NodeNeighbors {
	total := 0
	h := make(headHeap, 0, len(sets))
	for _, s := range sets {
		total += s.Size()
		if s.Size() > 0 {
			h = append(h, head{set: s})
		}
	}
	heap.Init(&h)

	result := &NodeNeighbors{ids: make([]NodeID, 0, total)}
	for h.Len() > 0 {
		top := &h[0]
		id := top.set.ids[top.pos]
		if len(result.ids) == 0 || result.ids[len(result.ids)-1] != id {
			result.addNeighbor(id)
		}

		top.pos++
		if top.pos == len(top.set.ids) {
			heap.Pop(&h)
		} else {
			heap.Fix(&h, 0)
		}
	}
	return result
}

type head struct {
	set *NodeNeighbors
	pos int
}

type headHeap []head

func (h headHeap) Len() int            { return len(h) }
func (h headHeap) Less(i, j int) bool  { return h[i].set.ids[h[i].pos] < h[j].set.ids[h[j].pos] }
func (h headHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *headHeap) Push(x interface{}) { *h = append(*h, x.(head)) }
func (h *headHeap) Pop() interface{} {
	old := *h
	item := old[len(old)-1]
	*h = old[:len(old)-1]
	return item
}
