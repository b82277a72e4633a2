// Package protocol implements the framed wire format.
//
// TCP delivers a byte stream with no record boundaries, so every message is
// wrapped in a frame: a fixed 16-byte header followed by a variable-length
// body. The receiver reads the header first, learns the body length, then
// reads exactly that many bytes.
//
// Frame layout:
//
//	0        4   5   6   7   8         12        16
//	┌────────┬───┬───┬───┬───┬─────────┬─────────┬──────────────┐
//	│ magic  │ v │ct │mt │ - │   seq   │ bodyLen │   body ...   │
//	│ "PRPC" │01 │   │   │   │ uint32  │ uint32  │ bodyLen bytes│
//	└────────┴───┴───┴───┴───┴─────────┴─────────┴──────────────┘
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic identifies a frame as ours and lets the decoder reject stray
// connections (an HTTP client hitting the RPC port, for instance).
var Magic = [4]byte{'P', 'R', 'P', 'C'}

const (
	Version    byte = 0x01
	HeaderSize int  = 16 // 4 magic + 1 version + 1 codec + 1 msgType + 1 reserved + 4 seq + 4 bodyLen
)

// MsgType distinguishes request, response, and heartbeat frames.
type MsgType byte

const (
	MsgTypeRequest   MsgType = 0
	MsgTypeResponse  MsgType = 1
	MsgTypeHeartbeat MsgType = 2 // keepalive probe, no body
)

// Codec type constants, mirrored from the codec package to avoid a
// circular import.
const (
	CodecTypeJSON   byte = 0
	CodecTypeBinary byte = 1
)

// Header is the fixed frame header. Seq ties a response back to its request:
// the server echoes the request's Seq, and the client transport uses it to
// wake the right caller.
type Header struct {
	CodecType byte
	MsgType   MsgType
	Seq       uint32
	BodyLen   uint32
}

// Encode writes a complete frame (header + body) to w. When several
// goroutines share one writer the caller must serialize Encode calls,
// otherwise frames interleave and corrupt the stream.
func Encode(w io.Writer, h *Header, body []byte) error {
	buf := make([]byte, HeaderSize)

	copy(buf[0:4], Magic[:])
	buf[4] = Version
	buf[5] = h.CodecType
	buf[6] = byte(h.MsgType)
	// buf[7] reserved
	binary.BigEndian.PutUint32(buf[8:12], h.Seq)
	binary.BigEndian.PutUint32(buf[12:16], h.BodyLen)

	if _, err := w.Write(buf); err != nil {
		return err
	}
	// body is nil for heartbeat frames
	if _, err := w.Write(body); err != nil {
		return err
	}
	return nil
}

// Decode reads one complete frame from r, validating magic, version, codec
// and message type. io.ReadFull guarantees exact reads, so a slow sender
// never causes a partial header or body to be parsed.
func Decode(r io.Reader) (*Header, []byte, error) {
	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return nil, nil, err
	}

	if headerBuf[0] != Magic[0] || headerBuf[1] != Magic[1] || headerBuf[2] != Magic[2] || headerBuf[3] != Magic[3] {
		return nil, nil, fmt.Errorf("invalid magic number: %x", headerBuf[0:4])
	}
	if headerBuf[4] != Version {
		return nil, nil, fmt.Errorf("unsupported version: %d", headerBuf[4])
	}
	if headerBuf[5] != CodecTypeJSON && headerBuf[5] != CodecTypeBinary {
		return nil, nil, fmt.Errorf("unsupported codec type: %d", headerBuf[5])
	}
	msgType := headerBuf[6]
	if msgType != byte(MsgTypeRequest) && msgType != byte(MsgTypeResponse) && msgType != byte(MsgTypeHeartbeat) {
		return nil, nil, fmt.Errorf("unsupported message type: %d", msgType)
	}

	seq := binary.BigEndian.Uint32(headerBuf[8:12])
	bodyLen := binary.BigEndian.Uint32(headerBuf[12:16])

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, err
	}

	return &Header{
		CodecType: headerBuf[5],
		MsgType:   MsgType(msgType),
		Seq:       seq,
		BodyLen:   bodyLen,
	}, body, nil
}
