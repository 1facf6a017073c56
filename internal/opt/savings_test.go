package opt

import "testing"

func TestComputeSavingsOrdering(t *testing.T) {
	p := triProblem([]Vehicle{{ID: "v1", CapacityKg: 1000, CostPerKm: 1}})
	savings := ComputeSavings(p, false)
	if len(savings) != 3 {
		t.Fatalf("got %d savings, want 3", len(savings))
	}
	// s(b,c)=5+7-2=10, s(a,b)=4+5-3=6, s(a,c)=4+7-6=5
	want := []float64{10, 6, 5}
	for i, s := range savings {
		if s.Value != want[i] {
			t.Fatalf("savings[%d] = %v, want %v", i, s.Value, want[i])
		}
	}
	if savings[0].A != 1 || savings[0].B != 2 {
		t.Fatalf("best saving pair = (%d,%d), want (1,2)", savings[0].A, savings[0].B)
	}
}

func TestComputeSavingsRegionalBonus(t *testing.T) {
	p := Problem{
		DepotID: "d",
		Stops: []Stop{
			{ID: "a", Lat: 40.80, Lng: 29.43, WeightKg: 10}, // BATI
			{ID: "b", Lat: 40.77, Lng: 29.38, WeightKg: 10}, // BATI
		},
		Dist: mapDist{"a|d": 4, "b|d": 5, "a|b": 3},
	}
	plain := ComputeSavings(p, false)
	boosted := ComputeSavings(p, true)
	if boosted[0].Value != plain[0].Value*1.2 {
		t.Fatalf("regional saving = %v, want %v", boosted[0].Value, plain[0].Value*1.2)
	}
}

func TestSolveSavingsAssignsEveryStopOnce(t *testing.T) {
	p := triProblem([]Vehicle{{ID: "v1", CapacityKg: 1000, CostPerKm: 1}})
	res := SolveSavings(p, SavingsParams{})
	if !res.Solution.Feasible {
		t.Fatalf("expected feasible, unassigned=%v", res.Unassigned)
	}
	if len(res.Unassigned) != 0 {
		t.Fatalf("unexpected unassigned cargo: %v", res.Unassigned)
	}
	seen := map[int]int{}
	for _, plan := range res.Solution.Plans {
		for _, idx := range plan.Order {
			seen[idx]++
		}
	}
	for i := range p.Stops {
		if seen[i] != 1 {
			t.Fatalf("stop %d visited %d times", i, seen[i])
		}
	}
	for _, c := range p.Cargos {
		if res.CargoVehicle[c.ID] != "v1" {
			t.Fatalf("cargo %s assigned to %q", c.ID, res.CargoVehicle[c.ID])
		}
	}
}

func TestSolveSavingsReportsUnassigned(t *testing.T) {
	p := triProblem([]Vehicle{{ID: "v1", CapacityKg: 250, CostPerKm: 1}})
	res := SolveSavings(p, SavingsParams{})
	if res.Solution.Feasible {
		t.Fatal("450kg demand on a 250kg fleet cannot be feasible")
	}
	if len(res.Unassigned) == 0 {
		t.Fatal("overflow cargo must be reported, not dropped")
	}
	var carried float64
	for _, plan := range res.Solution.Plans {
		carried += routeWeight(p, plan.Order)
	}
	if carried > 250 {
		t.Fatalf("carried %vkg exceeds capacity", carried)
	}
}

func TestSolveSavingsNoVehicles(t *testing.T) {
	p := triProblem(nil)
	res := SolveSavings(p, SavingsParams{})
	if res.Solution.Feasible {
		t.Fatal("no fleet cannot be feasible with pending cargo")
	}
	if len(res.Unassigned) != len(p.Cargos) {
		t.Fatalf("unassigned = %d, want %d", len(res.Unassigned), len(p.Cargos))
	}
}

func TestMergeBySavingsRespectsRouteCap(t *testing.T) {
	p := triProblem([]Vehicle{{ID: "v1", CapacityKg: 1000, CostPerKm: 1}})
	savings := ComputeSavings(p, false)
	// Cap below any two-stop trip: every route stays a singleton.
	merged := mergeBySavings(p, savings, 1000, 10)
	if len(merged) != 3 {
		t.Fatalf("got %d routes, want 3 singletons", len(merged))
	}
	// Generous cap: b and c merge first on the best saving.
	merged = mergeBySavings(p, savings, 1000, 0)
	for _, route := range merged {
		if RouteDistance(p, route) <= 0 {
			t.Fatalf("merged route %v has no distance", route)
		}
	}
}

func TestOrderStopsFarthestFirst(t *testing.T) {
	p := triProblem([]Vehicle{{ID: "v1", CapacityKg: 1000, CostPerKm: 1}})
	order := orderStops(p, []int{0, 1, 2})
	// c is farthest from the depot (7km), then nearest-neighbor chains b, a.
	want := []int{2, 1, 0}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
