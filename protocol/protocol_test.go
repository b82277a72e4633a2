package protocol

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeFrame(t *testing.T) {
	body := []byte("hello frame")
	header := &Header{
		CodecType: CodecTypeBinary,
		MsgType:   MsgTypeRequest,
		Seq:       42,
		BodyLen:   uint32(len(body)),
	}

	var buf bytes.Buffer
	if err := Encode(&buf, header, body); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != HeaderSize+len(body) {
		t.Fatalf("expect frame of %d bytes, got %d", HeaderSize+len(body), buf.Len())
	}

	got, gotBody, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Seq != 42 || got.MsgType != MsgTypeRequest || got.CodecType != CodecTypeBinary {
		t.Fatalf("header mismatch: %+v", got)
	}
	if !bytes.Equal(gotBody, body) {
		t.Fatalf("expect body %q, got %q", body, gotBody)
	}
}

func TestDecodeHeartbeatNoBody(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, &Header{MsgType: MsgTypeHeartbeat}, nil); err != nil {
		t.Fatal(err)
	}

	got, body, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.MsgType != MsgTypeHeartbeat || len(body) != 0 {
		t.Fatalf("expect empty heartbeat frame, got %+v body=%d bytes", got, len(body))
	}
}

func TestDecodeMultipleFramesFromOneStream(t *testing.T) {
	// Frames back to back on one stream must come apart cleanly
	var buf bytes.Buffer
	for seq := uint32(1); seq <= 3; seq++ {
		body := []byte{byte(seq)}
		if err := Encode(&buf, &Header{MsgType: MsgTypeResponse, Seq: seq, BodyLen: 1}, body); err != nil {
			t.Fatal(err)
		}
	}

	for seq := uint32(1); seq <= 3; seq++ {
		header, body, err := Decode(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if header.Seq != seq || body[0] != byte(seq) {
			t.Fatalf("frame %d: got seq %d body %v", seq, header.Seq, body)
		}
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	raw := make([]byte, HeaderSize)
	copy(raw, "HTTP")
	if _, _, err := Decode(bytes.NewReader(raw)); err == nil {
		t.Fatal("expect error for bad magic")
	}
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, &Header{MsgType: MsgTypeRequest}, nil); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()
	raw[4] = 0x7f
	if _, _, err := Decode(bytes.NewReader(raw)); err == nil {
		t.Fatal("expect error for unsupported version")
	}
}

func TestDecodeTruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, &Header{MsgType: MsgTypeRequest, BodyLen: 10}, []byte("short")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Decode(&buf); err == nil {
		t.Fatal("expect error for truncated body")
	}
}
