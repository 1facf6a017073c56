package opt

// 2-opt local search over a single route. Reversing the segment between
// two edges removes crossings; the scan restarts after every accepted
// improvement and the pass count is capped so pathological instances
// still terminate.

const twoOptMaxPasses = 100

// ImproveOrder returns an order with full-trip distance no worse than
// the input. Routes of two or fewer stops are returned as-is.
func ImproveOrder(p Problem, order []int) []int {
	if len(order) <= 2 {
		return order
	}
	best := append([]int{}, order...)
	bestDist := RouteDistance(p, best)

	for pass := 0; pass < twoOptMaxPasses; pass++ {
		improved := false
		for i := 0; i < len(best)-1 && !improved; i++ {
			for j := i + 1; j < len(best); j++ {
				cand := append([]int{}, best...)
				for a, b := i, j; a < b; a, b = a+1, b-1 {
					cand[a], cand[b] = cand[b], cand[a]
				}
				if d := RouteDistance(p, cand); d < bestDist-1e-9 {
					best = cand
					bestDist = d
					improved = true
					break
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}
