// Package opt contains the route construction and improvement engines:
// Clarke-Wright savings, a genetic metaheuristic, 2-opt local search and
// the capacity allocator that decides which cargo travels at all.
package opt

import (
	"math/rand"
	"time"
)

// Distancer answers symmetric station-to-station distance queries in km.
type Distancer interface {
	Between(a, b string) float64
}

// Stop is a demand point: one district station with its aggregated
// pending cargo.
type Stop struct {
	ID         string
	Name       string
	Lat        float64
	Lng        float64
	WeightKg   float64
	CargoCount int
}

type Vehicle struct {
	ID         string
	Name       string
	CapacityKg float64
	CostPerKm  float64
	Rental     bool
	RentalCost float64
}

// CargoItem keeps per-cargo granularity for bin packing and admission.
type CargoItem struct {
	ID       string
	WeightKg float64
	StopID   string
}

// Problem is a self-contained optimization instance. Stops hold only
// stations with demand; the depot never appears in Stops.
type Problem struct {
	DepotID  string
	Stops    []Stop
	Vehicles []Vehicle
	Cargos   []CargoItem
	Dist     Distancer
}

// RoutePlan is one vehicle's collection order as indices into
// Problem.Stops. An empty Order means the vehicle stays parked.
type RoutePlan struct {
	VehicleID string
	Order     []int
}

// Solution assigns every stop to exactly one plan. Feasible reports
// whether all plans respect their vehicle capacity.
type Solution struct {
	Plans    []RoutePlan
	Cost     float64
	Feasible bool
}

func newRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
