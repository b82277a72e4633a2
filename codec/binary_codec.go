package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/softliumin/Jprotobuf-rpc-socket/message"
)

// BinaryCodec is a hand-rolled length-prefixed encoding of message.Message.
// Layout, all integers big-endian:
//
//	2B method len | method | 8B log id | 4B payload len | payload | 2B error len | error
type BinaryCodec struct{}

func (c *BinaryCodec) Encode(v any) ([]byte, error) {
	msg, ok := v.(*message.Message)
	if !ok {
		return nil, errors.New("BinaryCodec: v must be *message.Message")
	}

	total := 2 + len(msg.ServiceMethod) + 8 + 4 + len(msg.Payload) + 2 + len(msg.Error)
	buf := make([]byte, total)

	offset := 0
	binary.BigEndian.PutUint16(buf[offset:offset+2], uint16(len(msg.ServiceMethod)))
	offset += 2
	copy(buf[offset:], msg.ServiceMethod)
	offset += len(msg.ServiceMethod)

	binary.BigEndian.PutUint64(buf[offset:offset+8], msg.LogID)
	offset += 8

	binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(len(msg.Payload)))
	offset += 4
	copy(buf[offset:], msg.Payload)
	offset += len(msg.Payload)

	binary.BigEndian.PutUint16(buf[offset:offset+2], uint16(len(msg.Error)))
	offset += 2
	copy(buf[offset:], msg.Error)

	return buf, nil
}

func (c *BinaryCodec) Decode(data []byte, v any) error {
	msg, ok := v.(*message.Message)
	if !ok {
		return errors.New("BinaryCodec: v must be *message.Message")
	}

	offset := 0
	if len(data) < offset+2 {
		return fmt.Errorf("BinaryCodec: truncated message (%d bytes)", len(data))
	}
	strLen := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2
	if len(data) < offset+strLen+8+4 {
		return fmt.Errorf("BinaryCodec: truncated message (%d bytes)", len(data))
	}
	msg.ServiceMethod = string(data[offset : offset+strLen])
	offset += strLen

	msg.LogID = binary.BigEndian.Uint64(data[offset : offset+8])
	offset += 8

	payloadLen := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4
	if len(data) < offset+payloadLen+2 {
		return fmt.Errorf("BinaryCodec: truncated message (%d bytes)", len(data))
	}
	msg.Payload = make([]byte, payloadLen)
	copy(msg.Payload, data[offset:offset+payloadLen])
	offset += payloadLen

	errLen := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2
	if len(data) < offset+errLen {
		return fmt.Errorf("BinaryCodec: truncated message (%d bytes)", len(data))
	}
	msg.Error = string(data[offset : offset+errLen])

	return nil
}

func (c *BinaryCodec) Type() CodecType {
	return CodecTypeBinary
}
