package loadbalance

// minFactor is the smallest legal load factor. Factors below it are clamped
// up before the sequence is built.
const minFactor = 1

// initTargets expands a target→weight table into the election sequence: each
// address appears weight/reduction-factor times, repeats contiguous, so the
// occurrence counts keep the configured ratios at the shortest length the
// reduction finds. Returns nil for an empty table — the strategy treats a nil
// sequence as "not initialized".
//
// The reduction factor is the largest divisor of the minimum weight that
// divides every weight in the table. Note this searches only the minimum
// weight's divisors, which is not a true GCD of the whole set; it can settle
// on a smaller factor (and a longer sequence) than the GCD would give.
// Downstream consumers depend on the resulting sequence lengths, so the
// search is kept as is.
func initTargets(factors map[string]int) []string {
	if len(factors) == 0 {
		return nil
	}
	if len(factors) == 1 {
		for addr := range factors {
			return []string{addr}
		}
	}

	fixFactors(factors)

	min := minWeight(factors)
	if min > minFactor {
		return buildTargets(factors, maxCommonDivisor(divisorsOf(min), factors))
	}
	return buildTargets(factors, minFactor)
}

// fixFactors clamps every weight below minFactor up to minFactor, in place.
func fixFactors(factors map[string]int) {
	for addr, w := range factors {
		if w < minFactor {
			factors[addr] = minFactor
		}
	}
}

func minWeight(factors map[string]int) int {
	min := 0
	first := true
	for _, w := range factors {
		if first || w < min {
			min = w
			first = false
		}
	}
	return min
}

// divisorsOf enumerates the divisors of value in descending order: value
// itself first, then every integer from value/2 down to 1 that divides it.
func divisorsOf(value int) []int {
	if value <= minFactor {
		return nil
	}
	divisors := make([]int, 0, value/2+1)
	divisors = append(divisors, value)
	for d := value / 2; d > 0; d-- {
		if value%d == 0 {
			divisors = append(divisors, d)
		}
	}
	return divisors
}

// maxCommonDivisor picks the first (largest) candidate divisor that evenly
// divides every weight in the table, falling back to 1.
func maxCommonDivisor(divisors []int, factors map[string]int) int {
	for _, d := range divisors {
		if dividesAll(d, factors) {
			return d
		}
	}
	return 1
}

func dividesAll(base int, factors map[string]int) bool {
	for _, w := range factors {
		if w%base != 0 {
			return false
		}
	}
	return true
}

// buildTargets appends each address weight/baseFactor times. Iteration order
// follows the map, so the inter-address order is unspecified; only the
// per-address counts are contractual.
func buildTargets(factors map[string]int, baseFactor int) []string {
	targets := make([]string, 0, len(factors))
	for addr, w := range factors {
		for i := 0; i < w/baseFactor; i++ {
			targets = append(targets, addr)
		}
	}
	return targets
}
