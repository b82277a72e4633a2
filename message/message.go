// Package message defines the RPC message exchanged between client and server.
//
// Message is the envelope for every call. The codec layer serializes it and
// the protocol layer wraps the result in a wire frame.
package message

// Message carries the data for a single RPC request or response.
//
//   - Request:  ServiceMethod set, Payload holds the serialized args.
//   - Response: Payload holds the serialized reply; Error is non-empty when
//     the handler failed.
//
// LogID is a caller-assigned correlation id carried end-to-end, so one
// logical operation can be traced across client, server, and downstream logs.
type Message struct {
	ServiceMethod string // "ServiceName.MethodName", e.g. "Echo.Say"
	Error         string
	LogID         uint64
	Payload       []byte
}
