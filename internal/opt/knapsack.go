package opt

import (
	"math"
	"sort"
)

// Cargo admission when the fleet cannot carry everything.
//
// SelectByWeight solves 0/1 knapsack exactly over integer kilograms:
// maximize carried weight subject to total fleet capacity. Cargo weights
// are rounded up for the DP's weight dimension so the selection can
// never overpack.
func SelectByWeight(cargos []CargoItem, capacityKg float64) (selected, rejected []CargoItem) {
	limit := int(capacityKg)
	if limit <= 0 || len(cargos) == 0 {
		return nil, append([]CargoItem{}, cargos...)
	}
	n := len(cargos)
	w := make([]int, n)
	for i, c := range cargos {
		w[i] = int(math.Ceil(c.WeightKg))
	}

	// dp[i][c] = max carried weight using the first i cargos within c.
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, limit+1)
	}
	for i := 1; i <= n; i++ {
		for c := 0; c <= limit; c++ {
			dp[i][c] = dp[i-1][c]
			if w[i-1] <= c {
				if cand := dp[i-1][c-w[i-1]] + w[i-1]; cand > dp[i][c] {
					dp[i][c] = cand
				}
			}
		}
	}

	// Backtrack the chosen set.
	take := make([]bool, n)
	c := limit
	for i := n; i > 0; i-- {
		if dp[i][c] != dp[i-1][c] {
			take[i-1] = true
			c -= w[i-1]
		}
	}
	for i, c := range cargos {
		if take[i] {
			selected = append(selected, c)
		} else {
			rejected = append(rejected, c)
		}
	}
	return selected, rejected
}

// SelectByCount admits as many cargos as possible: lightest first until
// the capacity runs out.
func SelectByCount(cargos []CargoItem, capacityKg float64) (selected, rejected []CargoItem) {
	order := append([]CargoItem{}, cargos...)
	sort.SliceStable(order, func(a, b int) bool { return order[a].WeightKg < order[b].WeightKg })
	var load float64
	for _, c := range order {
		if load+c.WeightKg <= capacityKg {
			selected = append(selected, c)
			load += c.WeightKg
		} else {
			rejected = append(rejected, c)
		}
	}
	return selected, rejected
}
