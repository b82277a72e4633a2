// Package naming defines the service discovery contract consumed by the
// HA client: a NamingService resolves logical service names into lists of
// backend endpoints. Implementations include an etcd-backed registry and a
// static in-memory table for tests and registry-less deployments.
package naming

import (
	"context"
	"fmt"
	"net"
	"strconv"
)

// Endpoint is one addressable backend instance of a logical service.
// Equality is by value, so endpoints can be compared and used as map keys.
type Endpoint struct {
	Host string
	Port int
}

// Addr renders the endpoint in "host:port" form — the opaque target key
// used throughout the load balancing layer.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ParseAddr parses a "host:port" string back into an Endpoint.
func ParseAddr(addr string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint port %q: %w", portStr, err)
	}
	return Endpoint{Host: host, Port: port}, nil
}

// NamingService is the discovery collaborator. List is the one operation the
// load balancing core depends on; the registration surface is used by servers
// announcing themselves.
type NamingService interface {
	// List resolves every requested service name in a single batched call.
	// The returned map contains an entry per requested name; a service with
	// no live instances maps to an empty list.
	List(ctx context.Context, services []string) (map[string][]Endpoint, error)

	// Register announces an endpoint under the given service name with a
	// TTL in seconds. The entry is kept alive until Deregister or process death.
	Register(ctx context.Context, service string, ep Endpoint, ttl int64) error

	// Deregister removes a previously registered endpoint.
	Deregister(ctx context.Context, service string, ep Endpoint) error

	// Watch emits the full endpoint list for a service whenever it changes.
	Watch(ctx context.Context, service string) <-chan []Endpoint
}
