package opt

import (
	"testing"
)

func gaTestProblem() Problem {
	// Six districts around a depot, everything reachable via the fallback
	// road factor on straight-line distance.
	stops := []Stop{
		{ID: "a", Lat: 40.77, Lng: 29.94, WeightKg: 150, CargoCount: 1},
		{ID: "b", Lat: 40.80, Lng: 29.43, WeightKg: 200, CargoCount: 1},
		{ID: "c", Lat: 40.77, Lng: 29.38, WeightKg: 100, CargoCount: 1},
		{ID: "d2", Lat: 40.75, Lng: 29.76, WeightKg: 250, CargoCount: 1},
		{ID: "e", Lat: 40.72, Lng: 29.83, WeightKg: 120, CargoCount: 1},
		{ID: "f", Lat: 40.73, Lng: 30.03, WeightKg: 80, CargoCount: 1},
	}
	dist := mapDist{}
	ids := append([]string{"depot"}, "a", "b", "c", "d2", "e", "f")
	coords := map[string][2]float64{
		"depot": {40.8225, 29.9213},
		"a":     {40.77, 29.94}, "b": {40.80, 29.43}, "c": {40.77, 29.38},
		"d2": {40.75, 29.76}, "e": {40.72, 29.83}, "f": {40.73, 30.03},
	}
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			x, y := ids[i], ids[j]
			if x > y {
				x, y = y, x
			}
			dx := (coords[ids[i]][0] - coords[ids[j]][0]) * 111
			dy := (coords[ids[i]][1] - coords[ids[j]][1]) * 85
			if dx < 0 {
				dx = -dx
			}
			if dy < 0 {
				dy = -dy
			}
			dist[x+"|"+y] = dx + dy
		}
	}
	var cargos []CargoItem
	for _, s := range stops {
		cargos = append(cargos, CargoItem{ID: "cargo-" + s.ID, WeightKg: s.WeightKg, StopID: s.ID})
	}
	return Problem{
		DepotID: "depot",
		Stops:   stops,
		Vehicles: []Vehicle{
			{ID: "v1", CapacityKg: 500, CostPerKm: 1},
			{ID: "v2", CapacityKg: 600, CostPerKm: 1},
		},
		Cargos: cargos,
		Dist:   dist,
	}
}

func solutionStops(t *testing.T, p Problem, sol Solution) map[int]int {
	t.Helper()
	seen := map[int]int{}
	for _, plan := range sol.Plans {
		for _, idx := range plan.Order {
			seen[idx]++
		}
	}
	return seen
}

func TestSolveGeneticVisitsEveryStopOnce(t *testing.T) {
	p := gaTestProblem()
	sol, m := SolveGenetic(p, Params{PopulationSize: 30, Generations: 60, Seed: 42}, nil)
	seen := solutionStops(t, p, sol)
	for i := range p.Stops {
		if seen[i] != 1 {
			t.Fatalf("stop %d visited %d times", i, seen[i])
		}
	}
	if m.Generations == 0 {
		t.Fatal("metrics missing generation count")
	}
	if m.BestCost <= 0 {
		t.Fatalf("best cost = %v", m.BestCost)
	}
}

func TestSolveGeneticFindsFeasiblePlan(t *testing.T) {
	p := gaTestProblem()
	// 900kg demand against 1100kg fleet: a feasible split exists.
	sol, _ := SolveGenetic(p, Params{PopulationSize: 40, Generations: 100, Seed: 7}, nil)
	if !sol.Feasible {
		t.Fatal("expected a capacity-feasible plan")
	}
	if !SolutionFeasible(p, sol) {
		t.Fatal("reported feasible but a route exceeds capacity")
	}
}

func TestSolveGeneticDeterministicWithSeed(t *testing.T) {
	p := gaTestProblem()
	params := Params{PopulationSize: 20, Generations: 40, Seed: 99}
	a, _ := SolveGenetic(p, params, nil)
	b, _ := SolveGenetic(p, params, nil)
	if a.Cost != b.Cost {
		t.Fatalf("same seed produced costs %v and %v", a.Cost, b.Cost)
	}
}

func TestSolveGeneticProgressCallback(t *testing.T) {
	p := gaTestProblem()
	var calls int
	var lastBest float64
	SolveGenetic(p, Params{PopulationSize: 20, Generations: 30, NoImproveLimit: 1000, Seed: 5},
		func(gen, total int, best float64) {
			calls++
			if total != 30 {
				t.Fatalf("total = %d, want 30", total)
			}
			lastBest = best
		})
	if calls != 30 {
		t.Fatalf("progress called %d times, want 30", calls)
	}
	if lastBest <= 0 {
		t.Fatalf("final best = %v", lastBest)
	}
}

func TestSolveGeneticEmptyProblem(t *testing.T) {
	p := Problem{DepotID: "d", Vehicles: []Vehicle{{ID: "v1", CapacityKg: 100}}}
	sol, _ := SolveGenetic(p, Params{Seed: 1}, nil)
	if !sol.Feasible {
		t.Fatal("no demand should be trivially feasible")
	}
	if len(sol.Plans) != 1 || len(sol.Plans[0].Order) != 0 {
		t.Fatalf("plans = %+v, want one parked vehicle", sol.Plans)
	}
}
