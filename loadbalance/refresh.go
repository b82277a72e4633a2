package loadbalance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fuyao-w/deepcopy"
	"github.com/sirupsen/logrus"
	clocks "github.com/vimeo/go-clocks"

	"github.com/softliumin/Jprotobuf-rpc-socket/naming"
)

// ReInitFunc is invoked by the Refresher when a tracked service's endpoint
// list changes. Implementations typically forward to NamingStrategy.ReInit.
type ReInitFunc func(service string, endpoints []naming.Endpoint) error

// Refresher keeps election strategies synchronized with the naming service.
// It polls periodically, compares each tracked service's endpoint list to its
// last known snapshot, and invokes the re-init callback only on change.
//
// The snapshot is the Refresher's private state: it is deep-copied at Start,
// so callers mutating their map afterwards cannot corrupt change detection.
// Comparison is ordered and element-wise — a mere reordering of the registry's
// answer counts as a change and triggers a re-init.
//
// Lookup and callback errors are logged and swallowed; one bad cycle never
// stops the loop, the next period simply tries again. The Refresher does no
// network I/O while the strategy's lock is held: the List call completes
// before the callback (which takes the lock) runs.
type Refresher struct {
	ns     naming.NamingService
	reinit ReInitFunc
	clock  clocks.Clock
	log    *logrus.Entry

	snapshot map[string][]naming.Endpoint

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// RefresherOption customizes a Refresher.
type RefresherOption func(*Refresher)

// WithClock substitutes the clock used for scheduling. Tests drive the loop
// with a fake clock instead of sleeping.
func WithClock(c clocks.Clock) RefresherOption {
	return func(r *Refresher) { r.clock = c }
}

// NewRefresher builds a refresher tracking the services named in snapshot.
// ns may be nil, in which case Start is a no-op — mirrors a client configured
// with explicit weights and no registry.
func NewRefresher(ns naming.NamingService, snapshot map[string][]naming.Endpoint, reinit ReInitFunc, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		ns:       ns,
		reinit:   reinit,
		clock:    clocks.DefaultClock(),
		log:      logrus.WithField("component", "loadbalance.refresher"),
		snapshot: snapshot,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the background refresh loop: first cycle after delay, then
// one cycle every period. Both durations must be positive. Calling Start on
// a refresher without a naming service does nothing.
func (r *Refresher) Start(delay, period time.Duration) error {
	if r.ns == nil {
		return nil
	}
	if delay <= 0 || period <= 0 {
		return fmt.Errorf("loadbalance: refresh delay and period must be positive, got delay=%v period=%v", delay, period)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return fmt.Errorf("loadbalance: refresher already started")
	}

	// Private copy of the tracked snapshot; the caller keeps its map.
	r.snapshot = deepcopy.Copy(r.snapshot).(map[string][]naming.Endpoint)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	go r.run(ctx, done, delay, period)
	return nil
}

func (r *Refresher) run(ctx context.Context, done chan struct{}, delay, period time.Duration) {
	defer close(done)

	if !r.clock.SleepFor(ctx, delay) {
		return
	}
	for {
		r.cycle(ctx)
		if !r.clock.SleepFor(ctx, period) {
			return
		}
	}
}

// cycle performs one refresh pass: a single batched List for every tracked
// service, then per-service comparison and callback.
func (r *Refresher) cycle(ctx context.Context) {
	services := make([]string, 0, len(r.snapshot))
	for service := range r.snapshot {
		services = append(services, service)
	}

	lists, err := r.ns.List(ctx, services)
	if err != nil {
		r.log.WithError(err).Warn("naming service lookup failed, keeping previous targets")
		return
	}
	// Stop raced the lookup; do not apply a half-detected change.
	if ctx.Err() != nil {
		return
	}

	for service, oldList := range r.snapshot {
		newList := lists[service]
		if equalEndpoints(oldList, newList) {
			continue
		}

		r.log.WithFields(logrus.Fields{
			"service":   service,
			"endpoints": newList,
		}).Warn("naming service returned a changed endpoint list")

		r.snapshot[service] = append([]naming.Endpoint(nil), newList...)
		if err := r.reinit(service, newList); err != nil {
			r.log.WithError(err).WithField("service", service).Warn("re-init callback failed")
		}
	}
}

// Stop cancels the refresh loop and waits for any in-flight cycle to finish,
// so no callback fires after it returns. Idempotent; a Stop before Start is
// a no-op and does not prevent a later Start/Stop pair from working.
func (r *Refresher) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// equalEndpoints reports ordered element-wise equality. nil and empty lists
// compare equal.
func equalEndpoints(a, b []naming.Endpoint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
