package naming

import (
	"context"
	"testing"
)

func TestEndpointAddr(t *testing.T) {
	ep := Endpoint{Host: "10.0.0.1", Port: 8080}
	if ep.Addr() != "10.0.0.1:8080" {
		t.Fatalf("expect 10.0.0.1:8080, got %s", ep.Addr())
	}
}

func TestParseAddr(t *testing.T) {
	ep, err := ParseAddr("127.0.0.1:9090")
	if err != nil {
		t.Fatal(err)
	}
	if ep.Host != "127.0.0.1" || ep.Port != 9090 {
		t.Fatalf("expect 127.0.0.1:9090, got %+v", ep)
	}

	if _, err := ParseAddr("no-port"); err == nil {
		t.Fatal("expect error for address without port")
	}
	if _, err := ParseAddr("host:notanumber"); err == nil {
		t.Fatal("expect error for non-numeric port")
	}
}

func TestStaticNamingList(t *testing.T) {
	ns := NewStaticNaming(map[string][]Endpoint{
		"Echo": {{Host: "127.0.0.1", Port: 8001}, {Host: "127.0.0.1", Port: 8002}},
	})

	lists, err := ns.List(context.Background(), []string{"Echo", "Unknown"})
	if err != nil {
		t.Fatal(err)
	}
	if len(lists["Echo"]) != 2 {
		t.Fatalf("expect 2 endpoints, got %d", len(lists["Echo"]))
	}
	if lists["Unknown"] == nil {
		t.Fatal("expect empty non-nil list for unknown service")
	}
	if len(lists["Unknown"]) != 0 {
		t.Fatalf("expect 0 endpoints, got %d", len(lists["Unknown"]))
	}
}

func TestStaticNamingCopiesInput(t *testing.T) {
	table := map[string][]Endpoint{
		"Echo": {{Host: "127.0.0.1", Port: 8001}},
	}
	ns := NewStaticNaming(table)
	table["Echo"][0].Port = 9999

	lists, _ := ns.List(context.Background(), []string{"Echo"})
	if lists["Echo"][0].Port != 8001 {
		t.Fatalf("expect 8001, got %d", lists["Echo"][0].Port)
	}
}

func TestStaticNamingRegisterDeregister(t *testing.T) {
	ns := NewStaticNaming(nil)
	ep := Endpoint{Host: "127.0.0.1", Port: 8001}

	if err := ns.Register(context.Background(), "Echo", ep, 0); err != nil {
		t.Fatal(err)
	}
	// Registering twice keeps a single entry
	if err := ns.Register(context.Background(), "Echo", ep, 0); err != nil {
		t.Fatal(err)
	}
	lists, _ := ns.List(context.Background(), []string{"Echo"})
	if len(lists["Echo"]) != 1 {
		t.Fatalf("expect 1 endpoint, got %d", len(lists["Echo"]))
	}

	if err := ns.Deregister(context.Background(), "Echo", ep); err != nil {
		t.Fatal(err)
	}
	lists, _ = ns.List(context.Background(), []string{"Echo"})
	if len(lists["Echo"]) != 0 {
		t.Fatalf("expect 0 endpoints, got %d", len(lists["Echo"]))
	}

	// Removing an entry that is not there is a no-op
	if err := ns.Deregister(context.Background(), "Echo", ep); err != nil {
		t.Fatal(err)
	}
}

func TestStaticNamingWatchClosesOnCancel(t *testing.T) {
	ns := NewStaticNaming(nil)
	ctx, cancel := context.WithCancel(context.Background())
	ch := ns.Watch(ctx, "Echo")
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("expect channel closed after cancel")
	}
}
