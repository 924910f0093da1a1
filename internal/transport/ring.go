package transport

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultVirtualNodes is the number of virtual nodes per endpoint.
const DefaultVirtualNodes = 256

// Ring routes datatype addresses to endpoints with consistent hashing.
//
// Each endpoint is expanded into virtual nodes for balanced distribution, so
// adding or removing one endpoint only remaps the keys it owned.
type Ring struct {
	mu           sync.RWMutex
	virtualNodes map[uint64]string
	sortedHashes []uint64
	endpoints    map[string]struct{}
}

// NewRing creates a ring over the given endpoints.
func NewRing(endpoints ...string) *Ring {
	r := &Ring{
		virtualNodes: make(map[uint64]string),
		sortedHashes: []uint64{},
		endpoints:    make(map[string]struct{}),
	}
	for _, endpoint := range endpoints {
		r.Add(endpoint)
	}
	return r
}

// Add inserts an endpoint into the ring.
func (r *Ring) Add(endpoint string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.endpoints[endpoint]; exists {
		return
	}
	r.endpoints[endpoint] = struct{}{}

	for i := 0; i < DefaultVirtualNodes; i++ {
		hash := hashVirtualNode(endpoint, i)
		r.virtualNodes[hash] = endpoint
	}
	r.rebuildSortedHashes()
}

// Remove deletes an endpoint from the ring.
func (r *Ring) Remove(endpoint string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.endpoints[endpoint]; !exists {
		return
	}
	delete(r.endpoints, endpoint)

	for i := 0; i < DefaultVirtualNodes; i++ {
		hash := hashVirtualNode(endpoint, i)
		delete(r.virtualNodes, hash)
	}
	r.rebuildSortedHashes()
}

// Pick returns the preferred endpoint for a key. The second return is false
// when the ring is empty.
func (r *Ring) Pick(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.sortedHashes) == 0 {
		return "", false
	}
	idx := r.search(murmur3.Sum64([]byte(key)))
	return r.virtualNodes[r.sortedHashes[idx]], true
}

// Sequence returns all distinct endpoints in ring order starting from the
// key's preferred endpoint. Callers walk it for failover.
func (r *Ring) Sequence(key string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.sortedHashes) == 0 {
		return nil
	}
	idx := r.search(murmur3.Sum64([]byte(key)))

	seen := make(map[string]struct{}, len(r.endpoints))
	seq := make([]string, 0, len(r.endpoints))
	for i := 0; i < len(r.sortedHashes) && len(seq) < len(r.endpoints); i++ {
		endpoint := r.virtualNodes[r.sortedHashes[(idx+i)%len(r.sortedHashes)]]
		if _, ok := seen[endpoint]; ok {
			continue
		}
		seen[endpoint] = struct{}{}
		seq = append(seq, endpoint)
	}
	return seq
}

// Endpoints returns the ring members in sorted order.
func (r *Ring) Endpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	endpoints := make([]string, 0, len(r.endpoints))
	for endpoint := range r.endpoints {
		endpoints = append(endpoints, endpoint)
	}
	sort.Strings(endpoints)
	return endpoints
}

// Len returns the number of endpoints in the ring.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.endpoints)
}

// search finds the index of the first virtual node at or after the hash,
// wrapping around at the end of the ring. Callers hold at least a read lock.
func (r *Ring) search(hash uint64) int {
	idx := sort.Search(len(r.sortedHashes), func(i int) bool {
		return r.sortedHashes[i] >= hash
	})
	if idx == len(r.sortedHashes) {
		idx = 0
	}
	return idx
}

// rebuildSortedHashes rebuilds the sorted hash array. Callers hold the
// write lock.
func (r *Ring) rebuildSortedHashes() {
	r.sortedHashes = make([]uint64, 0, len(r.virtualNodes))
	for hash := range r.virtualNodes {
		r.sortedHashes = append(r.sortedHashes, hash)
	}
	sort.Slice(r.sortedHashes, func(i, j int) bool {
		return r.sortedHashes[i] < r.sortedHashes[j]
	})
}

// hashVirtualNode computes the MurmurHash3 position of one virtual node.
func hashVirtualNode(endpoint string, index int) uint64 {
	h := murmur3.New64()
	h.Write([]byte(endpoint))

	indexBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(indexBytes, uint32(index))
	h.Write(indexBytes)

	return h.Sum64()
}
