// Package hashring implements a consistent-hash ring mapping account keys
// to shard owners. The source uses the Rust hashring crate for this; no
// equivalent library turned up anywhere in the retrieved Go corpus, so this
// is a deliberate, documented exception to sourcing every component from a
// third-party dependency (see DESIGN.md).
package hashring

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
)

// ErrEmpty is returned by Owner when the ring has no nodes.
var ErrEmpty = errors.New("hashring: no nodes available")

// replicas is the number of virtual nodes placed per real node, spreading
// keys evenly without needing a key distribution to tune against.
const replicas = 128

// Ring maps uint64 keys onto a fixed set of values of type V (typically a
// client handle) via consistent hashing with virtual nodes, so adding or
// removing a node only reshuffles the keys owned by its neighbors on the
// ring rather than the whole keyspace.
type Ring[V any] struct {
	mu sync.RWMutex

	points []uint64
	owners map[uint64]V
	names  map[uint64]string
}

// New returns an empty ring.
func New[V any]() *Ring[V] {
	return &Ring[V]{
		owners: make(map[uint64]V),
		names:  make(map[uint64]string),
	}
}

// Add places name's virtual nodes on the ring, all owned by value. Adding
// the same name twice replaces its previous value.
func (r *Ring[V]) Add(name string, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(name)
	for i := 0; i < replicas; i++ {
		h := hashVirtualNode(name, i)
		r.owners[h] = value
		r.names[h] = name
		r.points = append(r.points, h)
	}
	sort.Slice(r.points, func(i, j int) bool { return r.points[i] < r.points[j] })
}

// Remove takes name's virtual nodes off the ring.
func (r *Ring[V]) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(name)
}

func (r *Ring[V]) removeLocked(name string) {
	kept := r.points[:0]
	for _, h := range r.points {
		if r.names[h] == name {
			delete(r.owners, h)
			delete(r.names, h)
			continue
		}
		kept = append(kept, h)
	}
	r.points = kept
}

// Owner returns the value owning key: the first virtual node clockwise of
// key's hash, wrapping around to the first point if key's hash is past the
// last one. ErrEmpty is returned if the ring has no nodes.
func (r *Ring[V]) Owner(key uint64) (V, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero V
	if len(r.points) == 0 {
		return zero, ErrEmpty
	}
	h := hashKey(key)
	idx := sort.Search(len(r.points), func(i int) bool { return r.points[i] >= h })
	if idx == len(r.points) {
		idx = 0
	}
	return r.owners[r.points[idx]], nil
}

// Len reports the number of distinct node names currently on the ring.
func (r *Ring[V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, name := range r.names {
		seen[name] = struct{}{}
	}
	return len(seen)
}

func hashVirtualNode(name string, replica int) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s#%d", name, replica)
	return h.Sum64()
}

func hashKey(key uint64) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d", key)
	return h.Sum64()
}
