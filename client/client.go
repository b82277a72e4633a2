// Package client implements the high-availability RPC client. Every call
// elects one backend target from a load balancing strategy, dispatches over
// a pooled multiplexed transport, and reports transport-level failures back
// to the strategy so the dead target leaves the rotation. A background
// refresher keeps each service's target set in sync with the naming service.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/softliumin/Jprotobuf-rpc-socket/codec"
	"github.com/softliumin/Jprotobuf-rpc-socket/loadbalance"
	"github.com/softliumin/Jprotobuf-rpc-socket/message"
	"github.com/softliumin/Jprotobuf-rpc-socket/naming"
	"github.com/softliumin/Jprotobuf-rpc-socket/transport"
)

const defaultPoolSize = 4

// StrategyBuilder constructs the election strategy for one service from its
// resolved endpoints. The default builds a weighted round-robin strategy;
// swapping the builder is how alternative policies plug in.
type StrategyBuilder func(service string, endpoints []naming.Endpoint) loadbalance.NamingStrategy

func defaultStrategyBuilder(service string, endpoints []naming.Endpoint) loadbalance.NamingStrategy {
	rr := loadbalance.NewRoundRobin(nil)
	rr.ReInit(service, endpoints)
	return rr
}

// Client is an HA RPC client for one or more logical services.
type Client struct {
	ns        naming.NamingService // nil when built from explicit weights
	codecType codec.CodecType
	poolSize  int
	warm      int
	build     StrategyBuilder
	log       *logrus.Entry
	logID     atomic.Uint64

	mu         sync.Mutex
	strategies map[string]loadbalance.NamingStrategy
	pools      map[string]*transport.TransportPool
	refresher  *loadbalance.Refresher
	snapshot   map[string][]naming.Endpoint
}

// Option customizes a Client.
type Option func(*Client)

// WithCodec selects the wire codec (default binary).
func WithCodec(c codec.CodecType) Option {
	return func(cl *Client) { cl.codecType = c }
}

// WithPoolSize caps the transports kept per target address.
func WithPoolSize(n int) Option {
	return func(cl *Client) { cl.poolSize = n }
}

// WithStrategyBuilder replaces the default round-robin election policy.
func WithStrategyBuilder(b StrategyBuilder) Option {
	return func(cl *Client) { cl.build = b }
}

// WithWarmUp pre-dials n transports per target the first time it is elected,
// instead of paying the dial cost on the first n calls.
func WithWarmUp(n int) Option {
	return func(cl *Client) { cl.warm = n }
}

func newClient(opts []Option) *Client {
	cl := &Client{
		codecType:  codec.CodecTypeBinary,
		poolSize:   defaultPoolSize,
		build:      defaultStrategyBuilder,
		log:        logrus.WithField("component", "client"),
		strategies: make(map[string]loadbalance.NamingStrategy),
		pools:      make(map[string]*transport.TransportPool),
		snapshot:   make(map[string][]naming.Endpoint),
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// NewClient resolves every service once from the naming service, synchronously.
// A lookup failure here is fatal — a client that cannot see the registry at
// startup has nothing to elect from later either. StartRefresh keeps the
// resolved sets current afterwards.
func NewClient(ctx context.Context, ns naming.NamingService, services []string, opts ...Option) (*Client, error) {
	cl := newClient(opts)
	cl.ns = ns

	lists, err := ns.List(ctx, services)
	if err != nil {
		return nil, fmt.Errorf("client: resolve services: %w", err)
	}
	for _, service := range services {
		eps := lists[service]
		cl.strategies[service] = cl.build(service, eps)
		cl.snapshot[service] = append([]naming.Endpoint(nil), eps...)
	}
	return cl, nil
}

// NewClientWithTargets builds a client for one service from an explicit
// target→weight table, with no naming service behind it. StartRefresh on
// such a client is a no-op.
func NewClientWithTargets(service string, factors map[string]int, opts ...Option) *Client {
	cl := newClient(opts)
	cl.strategies[service] = loadbalance.NewRoundRobin(factors)
	return cl
}

// StartRefresh launches the background naming refresh: first poll after
// delay, then one per period. Each detected change re-initializes the
// affected service's strategy, discarding its failure bookkeeping.
func (cl *Client) StartRefresh(delay, period time.Duration) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.refresher != nil {
		return fmt.Errorf("client: refresh already started")
	}
	cl.refresher = loadbalance.NewRefresher(cl.ns, cl.snapshot, cl.reInit)
	return cl.refresher.Start(delay, period)
}

// StopRefresh stops the background refresh. Idempotent; safe without a
// preceding StartRefresh.
func (cl *Client) StopRefresh() {
	cl.mu.Lock()
	r := cl.refresher
	cl.mu.Unlock()
	if r != nil {
		r.Stop()
	}
}

func (cl *Client) reInit(service string, endpoints []naming.Endpoint) error {
	cl.mu.Lock()
	strategy, ok := cl.strategies[service]
	cl.mu.Unlock()
	if !ok {
		return fmt.Errorf("client: no strategy for service %q", service)
	}
	strategy.ReInit(service, endpoints)
	return nil
}

// Strategy exposes the election strategy for a service (status page, manual
// RecoverTarget after an operator fixed a backend). Nil if unknown.
func (cl *Client) Strategy(service string) loadbalance.LoadBalanceStrategy {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if s, ok := cl.strategies[service]; ok {
		return s
	}
	return nil
}

// Services returns the service names this client dispatches for.
func (cl *Client) Services() []string {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	names := make([]string, 0, len(cl.strategies))
	for name := range cl.strategies {
		names = append(names, name)
	}
	return names
}

func (cl *Client) pool(addr string) *transport.TransportPool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	p, ok := cl.pools[addr]
	if !ok {
		p = transport.NewTransportPool(addr, cl.poolSize, func() (*transport.ClientTransport, error) {
			conn, err := net.Dial("tcp", addr)
			if err != nil {
				return nil, err
			}
			return transport.NewClientTransport(conn, cl.codecType), nil
		})
		cl.pools[addr] = p
		if cl.warm > 0 {
			go func() {
				if err := p.WarmUp(context.Background(), cl.warm); err != nil {
					cl.log.WithError(err).WithField("target", addr).Warn("transport warm-up failed")
				}
			}()
		}
	}
	return p
}

// Call elects a target for the request's service and performs one RPC.
// serviceMethod is "Service.Method"; args and reply travel as JSON payloads.
//
// Failure handling: an error dialing or writing to the elected target moves
// it into the strategy's failed set before the error is returned, so the
// next Call rotates past it. A response carrying a server-side error does
// not — the backend is alive, the call merely failed.
func (cl *Client) Call(ctx context.Context, serviceMethod string, args any, reply any) error {
	split := strings.Split(serviceMethod, ".")
	if len(split) != 2 {
		return fmt.Errorf("client: invalid serviceMethod format: %v", serviceMethod)
	}
	service := split[0]

	strategy := cl.Strategy(service)
	if strategy == nil {
		return fmt.Errorf("client: unknown service %q", service)
	}

	addr, err := strategy.Elect()
	if err != nil {
		return err
	}

	t, err := cl.pool(addr).Get()
	if err != nil {
		cl.failTarget(strategy, service, addr, err)
		return err
	}
	defer cl.pool(addr).Put(t)

	logID := cl.logID.Add(1)
	_, ch, err := t.Send(serviceMethod, logID, args)
	if err != nil {
		cl.failTarget(strategy, service, addr, err)
		return err
	}

	var resp *message.Message
	select {
	case resp = <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}

	if resp.Error != "" {
		if t.Broken() {
			cl.failTarget(strategy, service, addr, fmt.Errorf("%s", resp.Error))
		}
		return fmt.Errorf("client: %s failed: %s", serviceMethod, resp.Error)
	}

	return json.Unmarshal(resp.Payload, reply)
}

func (cl *Client) failTarget(strategy loadbalance.LoadBalanceStrategy, service, addr string, err error) {
	cl.log.WithFields(logrus.Fields{
		"service": service,
		"target":  addr,
	}).WithError(err).Warn("removing failed target from rotation")
	strategy.RemoveTarget(addr)
}

// Close stops the refresher and tears down every transport pool.
func (cl *Client) Close() {
	cl.StopRefresh()
	cl.mu.Lock()
	defer cl.mu.Unlock()
	for _, p := range cl.pools {
		p.Close()
	}
	cl.pools = make(map[string]*transport.TransportPool)
}
