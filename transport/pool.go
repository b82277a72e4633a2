package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	errPoolExhausted = errors.New("transport pool exhausted")
	errPoolClosed    = errors.New("transport pool closed")
)

// recheckInterval bounds how long a Get blocked on an empty pool waits before
// re-checking capacity. Discarding a broken transport frees a slot without a
// corresponding send on idle, so the waiter has to poll for it.
const recheckInterval = 50 * time.Millisecond

// TransportPool manages a bounded set of multiplexed transports to a single
// address, handed out borrow/return style. A buffered channel serves as the
// queue: it is goroutine-safe and blocking-on-empty for free.
//
// Transports are multiplexed, so borrowing exclusively is not strictly
// required for correctness — the pool exists to spread load over several
// connections and to retire broken ones centrally.
type TransportPool struct {
	mu      sync.Mutex
	idle    chan *ClientTransport
	addr    string
	max     int  // connection cap
	cur     int  // live connections, may be below max
	closed  bool // set by Close; Get fails, Put discards
	factory func() (*ClientTransport, error)
}

// NewTransportPool creates an empty pool; connections are dialed on demand
// or up front via WarmUp.
func NewTransportPool(addr string, max int, factory func() (*ClientTransport, error)) *TransportPool {
	return &TransportPool{
		idle:    make(chan *ClientTransport, max),
		addr:    addr,
		max:     max,
		factory: factory,
	}
}

// WarmUp dials up to n connections concurrently and parks them in the pool.
// Dial failures abort the whole warm-up; the pool remains usable, it just
// dials lazily from then on.
func (p *TransportPool) WarmUp(ctx context.Context, n int) error {
	if n > p.max {
		n = p.max
	}
	g, _ := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			t, err := p.create()
			if err != nil {
				return err
			}
			p.Put(t)
			return nil
		})
	}
	return g.Wait()
}

// Get borrows a transport:
//  1. an idle one if available (skipping any that broke while parked),
//  2. a freshly dialed one while under the cap,
//  3. otherwise block until a borrower returns one or a discard frees a slot.
//
// Fails immediately once the pool is closed.
func (p *TransportPool) Get() (*ClientTransport, error) {
	for {
		p.mu.Lock()
		closed := p.closed
		underCap := p.cur < p.max
		p.mu.Unlock()
		if closed {
			return nil, fmt.Errorf("%w for %s", errPoolClosed, p.addr)
		}

		select {
		case t := <-p.idle:
			if t.Broken() {
				p.discard(t)
				continue
			}
			return t, nil
		default:
		}

		if underCap {
			t, err := p.create()
			if err == nil {
				return t, nil
			}
			if !errors.Is(err, errPoolExhausted) {
				return nil, err
			}
			// lost the last slot to a concurrent Get; fall through and wait
		}

		select {
		case t := <-p.idle:
			if t.Broken() {
				p.discard(t)
				continue
			}
			return t, nil
		case <-time.After(recheckInterval):
			// a broken transport may have been discarded, or the pool
			// closed; loop and re-check
		}
	}
}

// Put returns a transport to the pool; broken ones are closed and dropped so
// the next Get dials a replacement. After Close every returned transport is
// discarded, so borrowers with deferred Puts stay safe during shutdown.
func (p *TransportPool) Put(t *ClientTransport) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed || t.Broken() {
		p.discard(t)
		return
	}
	select {
	case p.idle <- t:
	default:
		// pool already full, excess transport is not worth keeping
		p.discard(t)
	}
}

// Close marks the pool closed and shuts down all idle transports. The idle
// channel stays open: borrowed transports drain through Put, which discards
// them once the closed flag is set. Idempotent.
func (p *TransportPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case t := <-p.idle:
			p.discard(t)
		default:
			return nil
		}
	}
}

func (p *TransportPool) discard(t *ClientTransport) {
	t.Close()
	p.mu.Lock()
	p.cur--
	p.mu.Unlock()
}

func (p *TransportPool) create() (*ClientTransport, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w for %s", errPoolClosed, p.addr)
	}
	if p.cur >= p.max {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w for %s", errPoolExhausted, p.addr)
	}
	p.cur++
	p.mu.Unlock()

	t, err := p.factory()
	if err != nil {
		p.mu.Lock()
		p.cur--
		p.mu.Unlock()
		return nil, err
	}
	return t, nil
}
