// Package server implements the RPC server: reflection-based service
// registration, a middleware chain, parallel request processing, naming
// service announcement, and graceful shutdown.
//
// Request pipeline:
//
//	Accept conn → handleConn (single goroutine reads frames)
//	  → per request: go handleRequest
//	    → Codec.Decode → middleware chain → business handler → Codec.Encode → write
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/softliumin/Jprotobuf-rpc-socket/codec"
	"github.com/softliumin/Jprotobuf-rpc-socket/message"
	"github.com/softliumin/Jprotobuf-rpc-socket/middleware"
	"github.com/softliumin/Jprotobuf-rpc-socket/naming"
	"github.com/softliumin/Jprotobuf-rpc-socket/protocol"
)

// registrationTTL is the naming-service lease in seconds; KeepAlive renews it
// until shutdown.
const registrationTTL = 10

// Server registers services and handles incoming framed requests.
type Server struct {
	serviceMap  map[string]*service
	listener    net.Listener
	wg          sync.WaitGroup // in-flight requests, for graceful shutdown
	shutdown    atomic.Bool
	middlewares []middleware.Middleware
	handler     middleware.HandlerFunc
	log         *logrus.Entry

	naming        naming.NamingService // nil when not announcing to a registry
	advertiseAddr naming.Endpoint
}

// NewServer creates a server with an empty service map.
func NewServer() *Server {
	return &Server{
		serviceMap: make(map[string]*service),
		log:        logrus.WithField("component", "server"),
	}
}

// Register makes the exported RPC-shaped methods of rcvr callable remotely.
func (svr *Server) Register(rcvr any) error {
	svc, err := newService(rcvr)
	if err != nil {
		return err
	}
	svr.serviceMap[svc.name] = svc
	return nil
}

// Use appends a middleware; middlewares run in registration order.
func (svr *Server) Use(mw middleware.Middleware) {
	svr.middlewares = append(svr.middlewares, mw)
}

// Services returns the registered service names.
func (svr *Server) Services() []string {
	names := make([]string, 0, len(svr.serviceMap))
	for name := range svr.serviceMap {
		names = append(names, name)
	}
	return names
}

// Serve listens on address, optionally announces every registered service to
// the naming service under advertiseAddr, and runs the accept loop until
// Shutdown. advertiseAddr must be routable ("10.1.2.3:8080"), unlike the
// listen address, which is often just ":8080".
func (svr *Server) Serve(network, address, advertiseAddr string, ns naming.NamingService) error {
	listener, err := net.Listen(network, address)
	if err != nil {
		return err
	}
	svr.listener = listener

	// Build the chain once at startup, not per request.
	svr.handler = middleware.Chain(svr.middlewares...)(svr.businessHandler)

	if ns != nil {
		ep, err := naming.ParseAddr(advertiseAddr)
		if err != nil {
			return fmt.Errorf("server: bad advertise address: %w", err)
		}
		svr.naming = ns
		svr.advertiseAddr = ep
		for serviceName := range svr.serviceMap {
			if err := ns.Register(context.Background(), serviceName, ep, registrationTTL); err != nil {
				svr.log.WithError(err).WithField("service", serviceName).Warn("naming registration failed")
			}
		}
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			// Shutdown closes the listener; that Accept error is expected.
			if svr.shutdown.Load() {
				return nil
			}
			return err
		}
		go svr.handleConn(conn)
	}
}

// handleConn reads frames sequentially off one connection and dispatches each
// request to its own goroutine. The shared write mutex keeps concurrent
// response frames from interleaving.
func (svr *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	writeMu := &sync.Mutex{}
	for {
		header, body, err := protocol.Decode(conn)
		if err != nil {
			return
		}
		if header.MsgType == protocol.MsgTypeHeartbeat {
			continue
		}
		// Counted here, not in the goroutine, so Shutdown's Wait cannot miss
		// a request that is dispatched but not yet running.
		svr.wg.Add(1)
		go svr.handleRequest(header, body, conn, writeMu)
	}
}

func (svr *Server) handleRequest(header *protocol.Header, body []byte, conn net.Conn, writeMu *sync.Mutex) {
	defer svr.wg.Done()

	c := codec.GetCodec(codec.CodecType(header.CodecType))
	req := message.Message{}
	if err := c.Decode(body, &req); err != nil {
		svr.log.WithError(err).Warn("undecodable request body")
		return
	}

	resp := svr.handler(context.Background(), &req)

	writeMu.Lock()
	defer writeMu.Unlock()

	result, err := c.Encode(resp)
	if err != nil {
		svr.log.WithError(err).Warn("failed to encode response")
		return
	}

	replyHeader := protocol.Header{
		CodecType: header.CodecType,
		MsgType:   protocol.MsgTypeResponse,
		Seq:       header.Seq, // echoed so the client routes the response
		BodyLen:   uint32(len(result)),
	}
	if err := protocol.Encode(conn, &replyHeader, result); err != nil {
		svr.log.WithError(err).Warn("failed to write response frame")
	}
}

// Shutdown deregisters from the naming service, stops accepting, and waits
// for in-flight requests up to timeout. Deregistration happens first so
// clients stop electing this endpoint before it goes away.
func (svr *Server) Shutdown(timeout time.Duration) error {
	if svr.naming != nil {
		for serviceName := range svr.serviceMap {
			if err := svr.naming.Deregister(context.Background(), serviceName, svr.advertiseAddr); err != nil {
				svr.log.WithError(err).WithField("service", serviceName).Warn("naming deregistration failed")
			}
		}
	}

	// Flag before close, so the accept loop reads the close as intentional.
	svr.shutdown.Store(true)
	svr.listener.Close()

	done := make(chan struct{})
	go func() {
		svr.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for ongoing requests to finish")
	}
}

// businessHandler resolves "Service.Method", builds args and reply values by
// reflection, invokes the method, and wraps the outcome in a response message.
func (svr *Server) businessHandler(ctx context.Context, req *message.Message) *message.Message {
	fail := func(msg string) *message.Message {
		return &message.Message{ServiceMethod: req.ServiceMethod, LogID: req.LogID, Error: msg}
	}

	split := strings.Split(req.ServiceMethod, ".")
	if len(split) != 2 {
		return fail("invalid service method format")
	}

	svc, ok := svr.serviceMap[split[0]]
	if !ok {
		return fail("unknown service: " + split[0])
	}
	method, ok := svc.method[split[1]]
	if !ok {
		return fail("unknown method: " + req.ServiceMethod)
	}

	argv := reflect.New(method.ArgType)
	replyv := reflect.New(method.ReplyType)

	if err := json.Unmarshal(req.Payload, argv.Interface()); err != nil {
		return fail(err.Error())
	}

	methodErr := svc.call(method, argv, replyv)

	payload, err := json.Marshal(replyv.Interface())
	if err != nil {
		return fail(err.Error())
	}

	resp := &message.Message{
		ServiceMethod: req.ServiceMethod,
		LogID:         req.LogID,
		Payload:       payload,
	}
	if methodErr != nil {
		resp.Error = methodErr.Error()
	}
	return resp
}
