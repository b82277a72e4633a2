// Package transport implements the client-side transport: a multiplexed
// connection plus a borrow/return pool of such connections per address.
//
// ClientTransport lets many concurrent RPC calls share one TCP connection.
// Every request carries a unique sequence id; a single receive goroutine
// reads response frames and routes each one to the caller waiting on that id.
//
//	goroutine-1 ──Send(seq=1)──┐
//	goroutine-2 ──Send(seq=2)──┼──→ one TCP conn ──→ server
//	goroutine-3 ──Send(seq=3)──┘
//
//	recvLoop: response(seq=2) → pending[2] chan → goroutine-2 wakes up
package transport

import (
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/softliumin/Jprotobuf-rpc-socket/codec"
	"github.com/softliumin/Jprotobuf-rpc-socket/message"
	"github.com/softliumin/Jprotobuf-rpc-socket/protocol"
)

// ClientTransport manages a single multiplexed connection.
type ClientTransport struct {
	conn    net.Conn
	codec   codec.CodecType
	seq     uint32      // next sequence id, protected by sending
	pending sync.Map    // map[uint32]chan *message.Message
	sending sync.Mutex  // serializes writes; interleaved frames corrupt the stream
	broken  atomic.Bool // set when the connection dies; pool discards broken transports
}

// NewClientTransport wraps conn and starts the receive and heartbeat loops.
func NewClientTransport(conn net.Conn, codecType codec.CodecType) *ClientTransport {
	t := &ClientTransport{
		conn:  conn,
		codec: codecType,
	}
	go t.recvLoop()
	go t.heartbeatLoop(30 * time.Second)
	return t
}

// Send serializes and writes one request frame, returning the sequence id
// and the channel on which the response will arrive. The response channel is
// registered before the write so a fast server cannot race the bookkeeping.
func (t *ClientTransport) Send(serviceMethod string, logID uint64, args any) (uint32, <-chan *message.Message, error) {
	t.sending.Lock()
	defer t.sending.Unlock()

	t.seq++
	seq := t.seq

	payload, err := json.Marshal(args)
	if err != nil {
		return 0, nil, err
	}

	msg := message.Message{
		ServiceMethod: serviceMethod,
		LogID:         logID,
		Payload:       payload,
	}
	cdc := codec.GetCodec(t.codec)
	body, err := cdc.Encode(&msg)
	if err != nil {
		return 0, nil, err
	}

	header := protocol.Header{
		CodecType: byte(t.codec),
		MsgType:   protocol.MsgTypeRequest,
		Seq:       seq,
		BodyLen:   uint32(len(body)),
	}

	respChan := make(chan *message.Message, 1)
	t.pending.Store(seq, respChan)

	if err := protocol.Encode(t.conn, &header, body); err != nil {
		t.pending.Delete(seq)
		t.broken.Store(true)
		return 0, nil, err
	}

	return seq, respChan, nil
}

// recvLoop is the single reader for this connection. Frame boundaries only
// parse correctly with sequential reads, so there is exactly one of these
// per transport.
func (t *ClientTransport) recvLoop() {
	for {
		header, body, err := protocol.Decode(t.conn)
		if err != nil {
			t.broken.Store(true)
			t.failAllPending(err)
			return
		}

		resp := message.Message{}
		cdc := codec.GetCodec(codec.CodecType(header.CodecType))
		if err := cdc.Decode(body, &resp); err != nil {
			continue
		}

		if ch, ok := t.pending.LoadAndDelete(header.Seq); ok {
			ch.(chan *message.Message) <- &resp
		}
	}
}

// failAllPending wakes every in-flight caller with an error response so
// nobody blocks forever on a dead connection.
func (t *ClientTransport) failAllPending(err error) {
	t.pending.Range(func(key, value any) bool {
		ch := value.(chan *message.Message)
		ch <- &message.Message{Error: err.Error()}
		return true
	})
	t.pending.Range(func(key, value any) bool {
		t.pending.Delete(key)
		return true
	})
}

// heartbeatLoop keeps the connection warm with empty heartbeat frames and
// exits once the connection breaks.
func (t *ClientTransport) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		header := &protocol.Header{
			MsgType: protocol.MsgTypeHeartbeat,
			BodyLen: 0,
		}
		t.sending.Lock()
		err := protocol.Encode(t.conn, header, nil)
		t.sending.Unlock()
		if err != nil {
			t.broken.Store(true)
			return
		}
	}
}

// Broken reports whether the transport's connection has failed.
func (t *ClientTransport) Broken() bool {
	return t.broken.Load()
}

// Close tears down the underlying connection; recvLoop exits on the next read.
func (t *ClientTransport) Close() error {
	t.broken.Store(true)
	return t.conn.Close()
}

// Conn returns the underlying connection.
func (t *ClientTransport) Conn() net.Conn {
	return t.conn
}
