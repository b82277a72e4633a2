package codec

import (
	"testing"

	"github.com/softliumin/Jprotobuf-rpc-socket/message"
)

func roundTrip(t *testing.T, c Codec) {
	t.Helper()
	original := &message.Message{
		ServiceMethod: "Echo.Say",
		LogID:         77,
		Error:         "boom",
		Payload:       []byte(`{"text":"hello"}`),
	}

	data, err := c.Encode(original)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var decoded message.Message
	if err := c.Decode(data, &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if decoded.ServiceMethod != original.ServiceMethod {
		t.Errorf("ServiceMethod: expect %s, got %s", original.ServiceMethod, decoded.ServiceMethod)
	}
	if decoded.LogID != original.LogID {
		t.Errorf("LogID: expect %d, got %d", original.LogID, decoded.LogID)
	}
	if string(decoded.Payload) != string(original.Payload) {
		t.Errorf("Payload: expect %s, got %s", original.Payload, decoded.Payload)
	}
	if decoded.Error != original.Error {
		t.Errorf("Error: expect %s, got %s", original.Error, decoded.Error)
	}
}

func TestJSONCodec(t *testing.T) {
	roundTrip(t, &JSONCodec{})
}

func TestBinaryCodec(t *testing.T) {
	roundTrip(t, &BinaryCodec{})
}

func TestBinaryCodecRejectsWrongType(t *testing.T) {
	c := &BinaryCodec{}
	if _, err := c.Encode("not a message"); err == nil {
		t.Fatal("expect error for non-message value")
	}
	var s string
	if err := c.Decode([]byte{0, 0}, &s); err == nil {
		t.Fatal("expect error for non-message target")
	}
}

func TestBinaryCodecTruncated(t *testing.T) {
	c := &BinaryCodec{}
	data, err := c.Encode(&message.Message{ServiceMethod: "Echo.Say", Payload: []byte("x")})
	if err != nil {
		t.Fatal(err)
	}

	var decoded message.Message
	if err := c.Decode(data[:len(data)-3], &decoded); err == nil {
		t.Fatal("expect error for truncated input")
	}
}

func TestGetCodec(t *testing.T) {
	if GetCodec(CodecTypeJSON).Type() != CodecTypeJSON {
		t.Fatal("expect JSON codec")
	}
	if GetCodec(CodecTypeBinary).Type() != CodecTypeBinary {
		t.Fatal("expect binary codec")
	}
}
