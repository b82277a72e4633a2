package loadbalance

import (
	"errors"
	"testing"
)

func TestRandomElectDistribution(t *testing.T) {
	r := NewRandom(map[string]int{"A": 10, "B": 5})

	counts := map[string]int{}
	n := 10000
	for i := 0; i < n; i++ {
		addr, err := r.Elect()
		if err != nil {
			t.Fatal(err)
		}
		counts[addr]++
	}

	// Weight ratio 10:5 → A should land around 2x of B
	ratio := float64(counts["A"]) / float64(counts["B"])
	if ratio < 1.5 || ratio > 2.5 {
		t.Fatalf("weight ratio A/B = %.2f, expect ~2.0", ratio)
	}
}

func TestRandomElectEmpty(t *testing.T) {
	r := NewRandom(nil)
	if _, err := r.Elect(); !errors.Is(err, ErrNoTargetAvailable) {
		t.Fatalf("expect ErrNoTargetAvailable, got %v", err)
	}
}

func TestRandomRemoveAndRecover(t *testing.T) {
	r := NewRandom(map[string]int{"A": 1, "B": 1})

	r.RemoveTarget("A")
	for i := 0; i < 100; i++ {
		addr, err := r.Elect()
		if err != nil {
			t.Fatal(err)
		}
		if addr == "A" {
			t.Fatal("elected a removed target")
		}
	}

	r.RecoverTarget("A")
	if !contains(r.Targets(), "A") {
		t.Fatal("expect A back after recovery")
	}
}
