package cluster

import (
	"sort"
	"sync"

	"github.com/buraksezer/consistent"
	"github.com/mohitkumar/tokenflow/logger"
	"github.com/spaolacci/murmur3"
	"go.uber.org/zap"
)

type hasher struct{}

func (h hasher) Sum64(data []byte) uint64 {
	return murmur3.Sum64(data)
}

type RingConfig struct {
	PartitionCount int
}

type Member string

func (m Member) String() string {
	return string(m)
}

// Ring maps routing keys to partitions and partitions to the worker replicas
// that own them. Keys sharing a partition are consumed in order by one replica.
type Ring struct {
	RingConfig
	hring   *consistent.Consistent
	members map[string]Member
	mu      sync.RWMutex
}

func NewRing(c RingConfig) *Ring {
	if c.PartitionCount <= 0 {
		c.PartitionCount = 16
	}
	cfg := consistent.Config{
		PartitionCount:    c.PartitionCount,
		ReplicationFactor: 20,
		Load:              1.25,
		Hasher:            hasher{},
	}
	return &Ring{
		RingConfig: c,
		hring:      consistent.New(nil, cfg),
		members:    make(map[string]Member),
	}
}

func (r *Ring) Join(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[name]; ok {
		return
	}
	logger.Info("adding member to ring", zap.String("member", name))
	m := Member(name)
	r.members[name] = m
	r.hring.Add(m)
}

func (r *Ring) Leave(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[name]; !ok {
		return
	}
	logger.Info("removing member from ring", zap.String("member", name))
	delete(r.members, name)
	r.hring.Remove(name)
}

func (r *Ring) Partition(key string) int {
	return r.hring.FindPartitionID([]byte(key))
}

// Owner returns the member owning partition, empty when the ring has no members.
func (r *Ring) Owner(partition int) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.members) == 0 {
		return ""
	}
	m := r.hring.GetPartitionOwner(partition)
	if m == nil {
		return ""
	}
	return m.String()
}

func (r *Ring) OwnedBy(name string) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.members[name]; !ok {
		return nil
	}
	var out []int
	for p := 0; p < r.PartitionCount; p++ {
		if m := r.hring.GetPartitionOwner(p); m != nil && m.String() == name {
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}

func (r *Ring) Members() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.members))
	for name := range r.members {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
