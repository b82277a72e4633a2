// etcd-backed NamingService.
//
// etcd v3 acts as the service registry:
//
//	Key:   /pbrpc/{service}/{host:port}
//	Value: JSON-encoded record with the endpoint fields
//
// Registration uses TTL leases with KeepAlive renewal, so an endpoint whose
// process dies disappears from lookups once its lease expires — no ghost
// instances for the refresh loop to keep electing.
package naming

import (
	"context"
	"encoding/json"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const keyPrefix = "/pbrpc/"

// EtcdNaming implements NamingService on top of an etcd v3 cluster.
// The embedded client is goroutine-safe and shared across all operations.
type EtcdNaming struct {
	client *clientv3.Client
}

// NewEtcdNaming connects to the given etcd endpoints.
func NewEtcdNaming(endpoints []string) (*EtcdNaming, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdNaming{client: c}, nil
}

type record struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func serviceKey(service string, ep Endpoint) string {
	return keyPrefix + service + "/" + ep.Addr()
}

// Register grants a TTL lease, stores the endpoint record under it, and keeps
// the lease alive in the background. When KeepAlive stops (process death,
// partition), the entry auto-expires.
func (n *EtcdNaming) Register(ctx context.Context, service string, ep Endpoint, ttl int64) error {
	lease, err := n.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	val, err := json.Marshal(record{Host: ep.Host, Port: ep.Port})
	if err != nil {
		return err
	}

	_, err = n.client.Put(ctx, serviceKey(service, ep), string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return err
	}

	ch, err := n.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}
	// Drain KeepAlive responses so the channel never fills up.
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Deregister removes the endpoint record. Called during graceful shutdown
// before the listener closes.
func (n *EtcdNaming) Deregister(ctx context.Context, service string, ep Endpoint) error {
	_, err := n.client.Delete(ctx, serviceKey(service, ep))
	return err
}

// List resolves every requested service in one pass over etcd. Each name is a
// prefix Get; malformed values are skipped rather than failing the lookup.
// A service with no registrations yields an empty (non-nil) list, so callers
// can tell "no instances" apart from "lookup failed".
func (n *EtcdNaming) List(ctx context.Context, services []string) (map[string][]Endpoint, error) {
	out := make(map[string][]Endpoint, len(services))
	for _, service := range services {
		resp, err := n.client.Get(ctx, keyPrefix+service+"/", clientv3.WithPrefix())
		if err != nil {
			return nil, err
		}

		eps := make([]Endpoint, 0, len(resp.Kvs))
		for _, kv := range resp.Kvs {
			var rec record
			if err := json.Unmarshal(kv.Value, &rec); err != nil {
				continue
			}
			eps = append(eps, Endpoint{Host: rec.Host, Port: rec.Port})
		}
		out[service] = eps
	}
	return out, nil
}

// Watch re-lists the service on every etcd event under its prefix and emits
// the full endpoint list. Re-listing is simpler than folding individual
// watch events into the previous state.
func (n *EtcdNaming) Watch(ctx context.Context, service string) <-chan []Endpoint {
	ch := make(chan []Endpoint, 1)

	go func() {
		watchChan := n.client.Watch(ctx, keyPrefix+service+"/", clientv3.WithPrefix())
		for range watchChan {
			lists, err := n.List(ctx, []string{service})
			if err != nil {
				continue
			}
			ch <- lists[service]
		}
	}()

	return ch
}

// Close releases the underlying etcd client.
func (n *EtcdNaming) Close() error {
	return n.client.Close()
}
