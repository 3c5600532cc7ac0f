package preview

import (
	"testing"
	"time"
)

func TestAllocateAndLookup(t *testing.T) {
	reg, err := NewRegistry(time.Minute, 4000, 4002)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()

	id, port := reg.Allocate()
	if port != 4000 {
		t.Fatalf("expected first port 4000, got %d", port)
	}

	got, ok := reg.Lookup(id)
	if !ok || got != port {
		t.Fatalf("lookup(%s) = %d, %v; want %d, true", id, got, ok, port)
	}

	if _, ok := reg.Lookup("no-such-id"); ok {
		t.Fatal("unknown id must not resolve")
	}
}

func TestPortRangeWrapsAround(t *testing.T) {
	reg, err := NewRegistry(time.Minute, 4000, 4001)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()

	_, p1 := reg.Allocate()
	_, p2 := reg.Allocate()
	_, p3 := reg.Allocate()
	if p1 != 4000 || p2 != 4001 || p3 != 4000 {
		t.Fatalf("expected 4000,4001,4000; got %d,%d,%d", p1, p2, p3)
	}
}

func TestEntriesExpire(t *testing.T) {
	reg, err := NewRegistry(20*time.Millisecond, 4000, 4010)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()

	id, _ := reg.Allocate()
	time.Sleep(100 * time.Millisecond)
	if _, ok := reg.Lookup(id); ok {
		t.Fatal("mapping should have expired")
	}
}

func TestRejectsBadRange(t *testing.T) {
	if _, err := NewRegistry(time.Minute, 5000, 4000); err == nil {
		t.Fatal("inverted port range accepted")
	}
	if _, err := NewRegistry(0, 4000, 5000); err == nil {
		t.Fatal("zero ttl accepted")
	}
}
