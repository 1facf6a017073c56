package geo

import (
	"math"
	"testing"
)

var (
	izmit = Point{40.7654, 29.9408}
	gebze = Point{40.8027, 29.4307}
	depot = Point{40.8225, 29.9213}
)

func TestHaversineBasics(t *testing.T) {
	if d := Haversine(izmit, izmit); d != 0 {
		t.Fatalf("zero-distance = %v", d)
	}
	ab := Haversine(izmit, gebze)
	ba := Haversine(gebze, izmit)
	if math.Abs(ab-ba) > 1e-9 {
		t.Fatalf("asymmetric: %v vs %v", ab, ba)
	}
	// İzmit to Gebze is roughly 43km as the crow flies.
	if ab < 35 || ab > 55 {
		t.Fatalf("İzmit-Gebze = %vkm, expected ~43", ab)
	}
}

func TestRoadDistanceAppliesFactor(t *testing.T) {
	h := Haversine(izmit, gebze)
	if got := RoadDistance(izmit, gebze); math.Abs(got-h*RoadFactor) > 1e-9 {
		t.Fatalf("RoadDistance = %v, want %v", got, h*RoadFactor)
	}
}

func TestInterpolateEvenSpacing(t *testing.T) {
	pts := Interpolate(izmit, gebze, 3)
	if len(pts) != 3 {
		t.Fatalf("got %d points, want 3", len(pts))
	}
	mid := pts[1]
	if math.Abs(mid.Lat-(izmit.Lat+gebze.Lat)/2) > 1e-9 {
		t.Fatalf("midpoint lat = %v", mid.Lat)
	}
}

func TestOracleGraphDistances(t *testing.T) {
	sites := []Site{
		{ID: "a", Pt: Point{40.80, 29.90}},
		{ID: "b", Pt: Point{40.80, 29.95}},
		{ID: "c", Pt: Point{40.80, 30.00}},
	}
	edges := []Edge{
		{From: "a", To: "b", WeightKm: 5},
		{From: "b", To: "c", WeightKm: 5},
		{From: "a", To: "c", WeightKm: 20},
	}
	o, err := NewOracle(sites, edges)
	if err != nil {
		t.Fatal(err)
	}
	// Shortest path a-c goes through b, not the direct 20km edge.
	if d := o.Between("a", "c"); d != 10 {
		t.Fatalf("a-c = %v, want 10 via b", d)
	}
	if o.Between("a", "b") != o.Between("b", "a") {
		t.Fatal("oracle must be symmetric")
	}
	if d := o.Between("a", "a"); d != 0 {
		t.Fatalf("self distance = %v", d)
	}
}

func TestOracleFallsBackToRoadEstimate(t *testing.T) {
	sites := []Site{
		{ID: "a", Pt: izmit},
		{ID: "b", Pt: gebze},
	}
	o, err := NewOracle(sites, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := RoadDistance(izmit, gebze)
	if got := o.Between("a", "b"); math.Abs(got-want) > 1e-9 {
		t.Fatalf("fallback = %v, want %v", got, want)
	}
}

func TestOracleUnknownSiteIsInfinite(t *testing.T) {
	o, err := NewOracle([]Site{{ID: "a", Pt: izmit}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if d := o.Between("a", "ghost"); !math.IsInf(d, 1) {
		t.Fatalf("unknown site distance = %v, want +Inf", d)
	}
}

func TestOracleRejectsDuplicates(t *testing.T) {
	_, err := NewOracle([]Site{{ID: "a"}, {ID: "a"}}, nil)
	if err == nil {
		t.Fatal("duplicate site ids must error")
	}
}

func TestOracleMatrixComplete(t *testing.T) {
	sites := []Site{
		{ID: "a", Pt: izmit}, {ID: "b", Pt: gebze}, {ID: "c", Pt: depot},
	}
	o, err := NewOracle(sites, nil)
	if err != nil {
		t.Fatal(err)
	}
	m := o.Matrix()
	if len(m) != 3 {
		t.Fatalf("matrix has %d rows", len(m))
	}
	for a, row := range m {
		for b, d := range row {
			if a == b && d != 0 {
				t.Fatalf("diagonal %s = %v", a, d)
			}
			if d != m[b][a] {
				t.Fatalf("matrix asymmetric at %s,%s", a, b)
			}
		}
	}
}

func TestKocaeliNetworkConnected(t *testing.T) {
	n := Kocaeli()
	// Every intersection must reach K1 (İzmit Merkez).
	for _, id := range []string{"K4", "K9", "K11", "K14", "K6", "K13"} {
		path, dist, ok := n.AStar(id, "K1")
		if !ok {
			t.Fatalf("%s cannot reach K1", id)
		}
		if len(path) < 2 || path[0] != id || path[len(path)-1] != "K1" {
			t.Fatalf("%s path = %v", id, path)
		}
		if dist <= 0 {
			t.Fatalf("%s dist = %v", id, dist)
		}
	}
}

func TestAStarShorterThanDetour(t *testing.T) {
	n := Kocaeli()
	_, direct, ok := n.AStar("K9", "K1")
	if !ok {
		t.Fatal("no K9-K1 path")
	}
	_, half, ok := n.AStar("K9", "K4")
	if !ok {
		t.Fatal("no K9-K4 path")
	}
	_, rest, ok := n.AStar("K4", "K1")
	if !ok {
		t.Fatal("no K4-K1 path")
	}
	if direct > half+rest+1e-9 {
		t.Fatalf("K9-K1 = %v worse than via K4 = %v", direct, half+rest)
	}
}

func TestNearestStable(t *testing.T) {
	n := Kocaeli()
	if got := n.Nearest(Point{40.7654, 29.9408}); got != "K1" {
		t.Fatalf("nearest to İzmit = %s, want K1", got)
	}
}

func TestPathCoordinatesEndpoints(t *testing.T) {
	n := Kocaeli()
	pts := n.PathCoordinates(gebze, izmit)
	if len(pts) < 2 {
		t.Fatalf("path has %d points", len(pts))
	}
	if pts[0] != gebze || pts[len(pts)-1] != izmit {
		t.Fatal("path must start and end at the query points")
	}
}
