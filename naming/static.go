package naming

import (
	"context"
	"sync"
)

// StaticNaming is a NamingService backed by a fixed in-memory table.
// Useful for tests and for deployments that ship an endpoint list in
// configuration instead of running a registry.
type StaticNaming struct {
	mu       sync.RWMutex
	services map[string][]Endpoint
}

// NewStaticNaming builds a static naming service from a service→endpoints
// table. The table is copied, later mutation of the argument has no effect.
func NewStaticNaming(services map[string][]Endpoint) *StaticNaming {
	m := make(map[string][]Endpoint, len(services))
	for name, eps := range services {
		m[name] = append([]Endpoint(nil), eps...)
	}
	return &StaticNaming{services: m}
}

func (n *StaticNaming) List(ctx context.Context, services []string) (map[string][]Endpoint, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[string][]Endpoint, len(services))
	for _, service := range services {
		out[service] = append([]Endpoint(nil), n.services[service]...)
	}
	return out, nil
}

// Register adds the endpoint to the service's list. TTL is ignored —
// static entries never expire.
func (n *StaticNaming) Register(ctx context.Context, service string, ep Endpoint, ttl int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, cur := range n.services[service] {
		if cur == ep {
			return nil
		}
	}
	n.services[service] = append(n.services[service], ep)
	return nil
}

func (n *StaticNaming) Deregister(ctx context.Context, service string, ep Endpoint) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	eps := n.services[service]
	for i, cur := range eps {
		if cur == ep {
			n.services[service] = append(eps[:i:i], eps[i+1:]...)
			break
		}
	}
	return nil
}

// Watch on a static table never fires; the returned channel stays open and
// silent for the lifetime of ctx.
func (n *StaticNaming) Watch(ctx context.Context, service string) <-chan []Endpoint {
	ch := make(chan []Endpoint)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}
