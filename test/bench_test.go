package test

import (
	"context"
	"testing"
	"time"

	"github.com/softliumin/Jprotobuf-rpc-socket/client"
	"github.com/softliumin/Jprotobuf-rpc-socket/codec"
	"github.com/softliumin/Jprotobuf-rpc-socket/message"
	"github.com/softliumin/Jprotobuf-rpc-socket/server"
)

func setupServerAndClient(b *testing.B, addr string) (*server.Server, *client.Client) {
	svr := server.NewServer()
	if err := svr.Register(&Arith{}); err != nil {
		b.Fatal(err)
	}
	go svr.Serve("tcp", addr, "", nil)
	time.Sleep(100 * time.Millisecond)

	cli := client.NewClientWithTargets("Arith", map[string]int{addr: 1},
		client.WithPoolSize(8))
	return svr, cli
}

// Single goroutine, serial calls.
func BenchmarkSerialCall(b *testing.B) {
	svr, cli := setupServerAndClient(b, "127.0.0.1:29090")
	b.Cleanup(func() {
		cli.Close()
		svr.Shutdown(3 * time.Second)
	})

	args := &Args{A: 1, B: 2}
	reply := &Reply{}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := cli.Call(context.Background(), "Arith.Add", args, reply); err != nil {
			b.Fatal(err)
		}
	}
}

// Many goroutines sharing the pooled multiplexed transports.
func BenchmarkConcurrentCall(b *testing.B) {
	svr, cli := setupServerAndClient(b, "127.0.0.1:29091")
	b.Cleanup(func() {
		cli.Close()
		svr.Shutdown(3 * time.Second)
	})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		args := &Args{A: 1, B: 2}
		reply := &Reply{}
		for pb.Next() {
			if err := cli.Call(context.Background(), "Arith.Add", args, reply); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

// Pure codec round trip, no network.
func BenchmarkCodecJSON(b *testing.B) {
	cdc := codec.GetCodec(codec.CodecTypeJSON)
	msg := &message.Message{
		ServiceMethod: "Arith.Add",
		LogID:         42,
		Payload:       []byte(`{"A":1,"B":2}`),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data, _ := cdc.Encode(msg)
		var out message.Message
		cdc.Decode(data, &out)
	}
}

func BenchmarkCodecBinary(b *testing.B) {
	cdc := codec.GetCodec(codec.CodecTypeBinary)
	msg := &message.Message{
		ServiceMethod: "Arith.Add",
		LogID:         42,
		Payload:       []byte(`{"A":1,"B":2}`),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data, _ := cdc.Encode(msg)
		var out message.Message
		cdc.Decode(data, &out)
	}
}
