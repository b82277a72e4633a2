package loadbalance

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/softliumin/Jprotobuf-rpc-socket/naming"
)

// Random elects targets by weighted random draw instead of a fixed rotation.
// Same membership contract as RoundRobin (active/failed partition, idempotent
// remove/recover, registry-driven ReInit), different election: each call
// picks a target with probability proportional to its weight, so there is no
// sequence to rebuild and no cross-call ordering guarantee.
type Random struct {
	mu     sync.Mutex
	active map[string]int
	failed map[string]int
	total  int // sum of active weights, maintained on every membership change
}

var _ NamingStrategy = (*Random)(nil)

// NewRandom builds a weighted random strategy from an explicit weight table.
func NewRandom(factors map[string]int) *Random {
	r := &Random{}
	active := make(map[string]int, len(factors))
	for addr, w := range factors {
		if w < minFactor {
			w = minFactor
		}
		active[addr] = w
	}
	r.init(active)
	return r
}

// NewRandomNaming builds a weighted random strategy by resolving the service
// once from the naming service; the lookup error is fatal to construction.
func NewRandomNaming(ctx context.Context, service string, ns naming.NamingService) (*Random, error) {
	lists, err := ns.List(ctx, []string{service})
	if err != nil {
		return nil, fmt.Errorf("loadbalance: resolve %q: %w", service, err)
	}
	r := &Random{}
	r.init(factorsFrom(lists[service]))
	return r, nil
}

func (r *Random) init(active map[string]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = active
	r.failed = make(map[string]int, len(active))
	r.retotal()
}

func (r *Random) retotal() {
	r.total = 0
	for _, w := range r.active {
		r.total += w
	}
}

// Elect draws a random point in [0, total) and walks the weight table until
// the running sum passes it.
func (r *Random) Elect() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.active) == 0 {
		return "", ErrNoTargetAvailable
	}
	n := rand.Intn(r.total)
	for addr, w := range r.active {
		n -= w
		if n < 0 {
			return addr, nil
		}
	}
	return "", ErrNoTargetAvailable
}

func (r *Random) Targets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.active))
	for addr := range r.active {
		out = append(out, addr)
	}
	return out
}

func (r *Random) HasTargets() bool {
	return len(r.Targets()) > 0
}

func (r *Random) RemoveTarget(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.active[addr]
	if !ok {
		return
	}
	r.failed[addr] = w
	delete(r.active, addr)
	r.retotal()
}

func (r *Random) RecoverTarget(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.failed[addr]
	if !ok {
		return
	}
	r.active[addr] = w
	delete(r.failed, addr)
	r.retotal()
}

func (r *Random) FailedTargets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.failed))
	for addr := range r.failed {
		out = append(out, addr)
	}
	return out
}

func (r *Random) ReInit(service string, endpoints []naming.Endpoint) {
	r.init(factorsFrom(endpoints))
}
