// Package loadbalance implements client-side target election for the HA RPC
// client. A strategy owns the set of eligible backend targets, hands one out
// per call, and moves targets between the active and failed sets as the
// caller reports health signals.
//
// Two strategies are implemented:
//   - RoundRobin: weighted round-robin over a precomputed election sequence
//   - Random:     uniform random pick over the active set
//
// Strategies constructed from a NamingService can additionally be kept in
// sync with the registry by a Refresher (see refresh.go).
package loadbalance

import (
	"errors"

	"github.com/softliumin/Jprotobuf-rpc-socket/naming"
)

// ErrNoTargetAvailable is returned by Elect when the strategy has never been
// initialized with a non-empty target set. This is an ordering error on the
// caller's side and is never retried internally.
var ErrNoTargetAvailable = errors.New("loadbalance: no target is available")

// LoadBalanceStrategy is the election contract consumed by the RPC client.
// All methods are goroutine-safe; a single lock per strategy instance
// serializes elections against membership changes.
type LoadBalanceStrategy interface {
	// Elect returns the next target address ("host:port") to dispatch to.
	Elect() (string, error)

	// HasTargets reports whether at least one target is eligible for election.
	HasTargets() bool

	// Targets returns the distinct addresses currently eligible for election.
	// Never nil; empty when uninitialized.
	Targets() []string

	// RemoveTarget moves an active target into the failed set, remembering
	// its weight. Unknown addresses are a no-op.
	RemoveTarget(addr string)

	// RecoverTarget moves a failed target back into the active set at its
	// previously recorded weight. Unknown addresses are a no-op.
	RecoverTarget(addr string)

	// FailedTargets returns the distinct addresses currently out of service.
	FailedTargets() []string
}

// NamingStrategy is a LoadBalanceStrategy whose target set is derived from a
// naming service. ReInit is the entry point the Refresher invokes when the
// registry's endpoint list changes; each concrete policy rebuilds its own
// election state from the fresh list.
type NamingStrategy interface {
	LoadBalanceStrategy

	// ReInit replaces the entire active set with the given endpoints at a
	// uniform default weight and clears all failure bookkeeping.
	ReInit(service string, endpoints []naming.Endpoint)
}
