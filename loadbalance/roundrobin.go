package loadbalance

import (
	"context"
	"fmt"
	"sync"

	"github.com/softliumin/Jprotobuf-rpc-socket/naming"
)

// defaultFactor is the weight assigned to endpoints resolved from a naming
// service, which carries no weight information.
const defaultFactor = 1

// RoundRobin is a weighted round-robin election strategy. The weight table is
// expanded once into a flat election sequence (see initTargets) and Elect
// walks it with a wrapping cursor, so steady-state election is a slice index,
// not a weight computation.
//
// All state — the sequence, the cursor, and the active/failed weight tables —
// lives under one mutex. Elections, removals, recoveries and registry-driven
// re-initialization all serialize on it, so a reader never observes a
// half-rebuilt sequence.
type RoundRobin struct {
	mu      sync.Mutex
	targets []string // election sequence; nil until first non-empty init
	pos     int      // cursor into targets, reset on every rebuild

	active map[string]int // address → weight, eligible for election
	failed map[string]int // address → last known weight, out of service
}

var _ NamingStrategy = (*RoundRobin)(nil)

// NewRoundRobin builds a strategy from an explicit target→weight table.
// The table is copied. An empty table is legal here; Elect reports
// ErrNoTargetAvailable until the strategy is initialized with targets.
func NewRoundRobin(factors map[string]int) *RoundRobin {
	rr := &RoundRobin{}
	active := make(map[string]int, len(factors))
	for addr, w := range factors {
		active[addr] = w
	}
	rr.init(active)
	return rr
}

// NewRoundRobinNaming builds a strategy by resolving the service once from
// the naming service. A lookup failure is fatal to construction and is
// returned, not retried; keeping the strategy current afterwards is the
// Refresher's job.
func NewRoundRobinNaming(ctx context.Context, service string, ns naming.NamingService) (*RoundRobin, error) {
	lists, err := ns.List(ctx, []string{service})
	if err != nil {
		return nil, fmt.Errorf("loadbalance: resolve %q: %w", service, err)
	}
	rr := &RoundRobin{}
	rr.init(factorsFrom(lists[service]))
	return rr, nil
}

// factorsFrom assigns every resolved endpoint the uniform default weight.
func factorsFrom(endpoints []naming.Endpoint) map[string]int {
	factors := make(map[string]int, len(endpoints))
	for _, ep := range endpoints {
		factors[ep.Addr()] = defaultFactor
	}
	return factors
}

// init installs a fresh active table and empty failed table, then rebuilds.
func (rr *RoundRobin) init(active map[string]int) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	rr.active = active
	rr.failed = make(map[string]int, len(active))
	rr.rebuild()
}

// rebuild regenerates the election sequence from the active table and resets
// the cursor, so a membership change restarts the rotation. Callers must
// hold rr.mu.
func (rr *RoundRobin) rebuild() {
	rr.targets = initTargets(rr.active)
	rr.pos = 0
}

// Elect returns the target at the cursor and advances it, wrapping past the
// end of the sequence.
func (rr *RoundRobin) Elect() (string, error) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if rr.targets == nil {
		return "", ErrNoTargetAvailable
	}
	if rr.pos >= len(rr.targets) {
		rr.pos = 0
	}
	addr := rr.targets[rr.pos]
	rr.pos++
	return addr, nil
}

// Targets returns the distinct addresses in the current election sequence.
func (rr *RoundRobin) Targets() []string {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	seen := make(map[string]bool, len(rr.active))
	out := make([]string, 0, len(rr.active))
	for _, addr := range rr.targets {
		if !seen[addr] {
			seen[addr] = true
			out = append(out, addr)
		}
	}
	return out
}

// HasTargets reports whether the strategy currently has anything to elect.
func (rr *RoundRobin) HasTargets() bool {
	return len(rr.Targets()) > 0
}

// RemoveTarget takes an active target out of rotation, remembering its weight
// for a later recovery. Removing an unknown or already failed target is a
// no-op, so callers reacting to health signals need no precise bookkeeping.
func (rr *RoundRobin) RemoveTarget(addr string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	w, ok := rr.active[addr]
	if !ok {
		return
	}
	rr.failed[addr] = w
	delete(rr.active, addr)
	rr.rebuild()
}

// RecoverTarget restores a failed target at its previously recorded weight.
// No-op if the target is not in the failed set.
func (rr *RoundRobin) RecoverTarget(addr string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	w, ok := rr.failed[addr]
	if !ok {
		return
	}
	rr.active[addr] = w
	delete(rr.failed, addr)
	rr.rebuild()
}

// FailedTargets returns the addresses currently out of service.
func (rr *RoundRobin) FailedTargets() []string {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	out := make([]string, 0, len(rr.failed))
	for addr := range rr.failed {
		out = append(out, addr)
	}
	return out
}

// ReInit replaces the whole active set with the endpoints from the naming
// service at the default weight. Failure bookkeeping is discarded: a
// registry-driven update overrides any manual RemoveTarget state, since the
// registry's view of liveness is authoritative.
func (rr *RoundRobin) ReInit(service string, endpoints []naming.Endpoint) {
	rr.init(factorsFrom(endpoints))
}
