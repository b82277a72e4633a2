package loadbalance

import "testing"

func countOf(targets []string, addr string) int {
	n := 0
	for _, t := range targets {
		if t == addr {
			n++
		}
	}
	return n
}

func TestInitTargetsSingleEntry(t *testing.T) {
	targets := initTargets(map[string]int{":8001": 42})
	if len(targets) != 1 {
		t.Fatalf("expect 1 target, got %d", len(targets))
	}
	if targets[0] != ":8001" {
		t.Fatalf("expect :8001, got %s", targets[0])
	}
}

func TestInitTargetsEmpty(t *testing.T) {
	if targets := initTargets(nil); targets != nil {
		t.Fatalf("expect nil for empty table, got %v", targets)
	}
	if targets := initTargets(map[string]int{}); targets != nil {
		t.Fatalf("expect nil for empty table, got %v", targets)
	}
}

func TestInitTargetsEqualWeightsReduced(t *testing.T) {
	// 2:2 reduces by factor 2 → one occurrence each
	targets := initTargets(map[string]int{"A": 2, "B": 2})
	if len(targets) != 2 {
		t.Fatalf("expect sequence length 2, got %d (%v)", len(targets), targets)
	}
	if countOf(targets, "A") != 1 || countOf(targets, "B") != 1 {
		t.Fatalf("expect one A and one B, got %v", targets)
	}
}

func TestInitTargetsReductionFactorDividesAll(t *testing.T) {
	factors := map[string]int{"A": 3, "B": 6}
	targets := initTargets(factors)

	// The chosen factor must divide every weight; recover it from the counts.
	factor := factors["A"] / countOf(targets, "A")
	for addr, w := range factors {
		if w%factor != 0 {
			t.Fatalf("factor %d does not divide weight %d of %s", factor, w, addr)
		}
		if countOf(targets, addr) != w/factor {
			t.Fatalf("expect %d occurrences of %s, got %d", w/factor, addr, countOf(targets, addr))
		}
	}
	if len(targets) != 3 {
		t.Fatalf("expect sequence length 3 for 3:6, got %d", len(targets))
	}
}

func TestInitTargetsMinWeightOne(t *testing.T) {
	// min weight 1 forces factor 1 — no reduction possible
	targets := initTargets(map[string]int{"A": 1, "B": 5})
	if len(targets) != 6 {
		t.Fatalf("expect sequence length 6, got %d", len(targets))
	}
	if countOf(targets, "A") != 1 || countOf(targets, "B") != 5 {
		t.Fatalf("expect 1xA and 5xB, got %v", targets)
	}
}

func TestInitTargetsClampsBadWeights(t *testing.T) {
	// weights below 1 are fixed up to 1, not rejected
	targets := initTargets(map[string]int{"A": 0, "B": -7})
	if countOf(targets, "A") != 1 || countOf(targets, "B") != 1 {
		t.Fatalf("expect clamped weights to yield one occurrence each, got %v", targets)
	}
}

func TestInitTargetsContiguousRepeats(t *testing.T) {
	// Repeats of one address are never interleaved with another's
	targets := initTargets(map[string]int{"A": 2, "B": 4})
	// factor 2 → A once, B twice
	if len(targets) != 3 {
		t.Fatalf("expect sequence length 3, got %d (%v)", len(targets), targets)
	}
	switches := 0
	for i := 1; i < len(targets); i++ {
		if targets[i] != targets[i-1] {
			switches++
		}
	}
	if switches != 1 {
		t.Fatalf("expect contiguous runs (1 switch), got %d in %v", switches, targets)
	}
}

func TestDivisorsDescending(t *testing.T) {
	divisors := divisorsOf(12)
	want := []int{12, 6, 4, 3, 2, 1}
	if len(divisors) != len(want) {
		t.Fatalf("expect %v, got %v", want, divisors)
	}
	for i := range want {
		if divisors[i] != want[i] {
			t.Fatalf("expect %v, got %v", want, divisors)
		}
	}
}
