package opt

import "sort"

// Clarke-Wright savings construction. Routes start as singletons and are
// merged at their endpoints in descending savings order, then cargo is
// packed onto vehicles first-fit-decreasing and each route's stop order
// is rebuilt farthest-first.

// Saving is the benefit of serving two stops on one route instead of
// two depot round trips: s(i,j) = d(0,i) + d(0,j) - d(i,j).
type Saving struct {
	A     int // index into Problem.Stops, A < B
	B     int
	Value float64
}

// SavingsParams tunes the construction. Zero MaxRouteKm disables the
// route length cap.
type SavingsParams struct {
	Regional   bool
	MaxRouteKm float64
}

// SavingsResult carries the constructed solution plus the cargos no
// vehicle could take. Unassigned cargo is a hard planning failure the
// caller must surface, not drop.
type SavingsResult struct {
	Solution   Solution
	Unassigned []CargoItem
	// CargoVehicle maps cargo id to the vehicle carrying it. Cargo from
	// one station may split across vehicles when no single vehicle has
	// room for all of it.
	CargoVehicle map[string]string
	Merged       [][]int
}

// Kocaeli region bands used for the regional savings bonus. Same-region
// pairs score 1.2x so merges prefer geographic clusters.
func regionOf(s Stop) string {
	switch {
	case s.Lng < 29.6:
		return "BATI"
	case s.Lng < 29.9:
		return "MERKEZ"
	case s.Lat < 40.72 && s.Lng < 29.95:
		return "GUNEY"
	default:
		return "DOGU"
	}
}

// ComputeSavings returns all positive savings pairs in descending value
// order. Equal values fall back to the (A, B) index pair so the merge
// order is reproducible.
func ComputeSavings(p Problem, regional bool) []Saving {
	out := make([]Saving, 0, len(p.Stops)*(len(p.Stops)-1)/2)
	for i := range p.Stops {
		for j := i + 1; j < len(p.Stops); j++ {
			di := p.Dist.Between(p.DepotID, p.Stops[i].ID)
			dj := p.Dist.Between(p.DepotID, p.Stops[j].ID)
			dij := p.Dist.Between(p.Stops[i].ID, p.Stops[j].ID)
			v := di + dj - dij
			if regional && regionOf(p.Stops[i]) == regionOf(p.Stops[j]) {
				v *= 1.2
			}
			if v > 0 {
				out = append(out, Saving{A: i, B: j, Value: v})
			}
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Value != out[b].Value {
			return out[a].Value > out[b].Value
		}
		if out[a].A != out[b].A {
			return out[a].A < out[b].A
		}
		return out[a].B < out[b].B
	})
	return out
}

// mergeBySavings runs the endpoint-merge phase over a route arena.
// routes holds the live routes; stopRoute maps each stop index to the id
// of the route currently containing it, so the endpoint test is O(1)
// per saving.
func mergeBySavings(p Problem, savings []Saving, maxCapacity, maxRouteKm float64) [][]int {
	routes := make(map[int][]int, len(p.Stops))
	stopRoute := make(map[int]int, len(p.Stops))
	for i := range p.Stops {
		routes[i] = []int{i}
		stopRoute[i] = i
	}
	nextID := len(p.Stops)

	for _, sv := range savings {
		r1, ok1 := stopRoute[sv.A]
		r2, ok2 := stopRoute[sv.B]
		if !ok1 || !ok2 || r1 == r2 {
			continue
		}
		route1 := routes[r1]
		route2 := routes[r2]

		aAtStart := route1[0] == sv.A
		aAtEnd := route1[len(route1)-1] == sv.A
		bAtStart := route2[0] == sv.B
		bAtEnd := route2[len(route2)-1] == sv.B
		if !(aAtStart || aAtEnd) || !(bAtStart || bAtEnd) {
			continue
		}

		if routeWeight(p, route1)+routeWeight(p, route2) > maxCapacity {
			continue
		}

		var merged []int
		switch {
		case aAtEnd && bAtStart:
			merged = append(append([]int{}, route1...), route2...)
		case aAtEnd && bAtEnd:
			merged = append(append([]int{}, route1...), reversed(route2)...)
		case aAtStart && bAtEnd:
			merged = append(append([]int{}, route2...), route1...)
		default: // aAtStart && bAtStart
			merged = append(reversed(route1), route2...)
		}

		if maxRouteKm > 0 && RouteDistance(p, merged) > maxRouteKm {
			continue
		}

		routes[nextID] = merged
		for _, idx := range merged {
			stopRoute[idx] = nextID
		}
		delete(routes, r1)
		delete(routes, r2)
		nextID++
	}

	ids := make([]int, 0, len(routes))
	for id := range routes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([][]int, 0, len(ids))
	for _, id := range ids {
		out = append(out, routes[id])
	}
	return out
}

func reversed(in []int) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

// assignFFD packs cargos onto vehicles first-fit-decreasing: vehicles
// by capacity descending, cargos by weight descending, each cargo onto
// the first vehicle with room. Capacity is never exceeded; cargo that
// fits nowhere comes back in unassigned.
func assignFFD(p Problem) (stopsByVehicle [][]int, cargoVehicle map[string]string, unassigned []CargoItem) {
	cargoVehicle = map[string]string{}
	stopIndex := make(map[string]int, len(p.Stops))
	for i, s := range p.Stops {
		stopIndex[s.ID] = i
	}

	vehOrder := make([]int, len(p.Vehicles))
	for i := range vehOrder {
		vehOrder[i] = i
	}
	sort.SliceStable(vehOrder, func(a, b int) bool {
		return p.Vehicles[vehOrder[a]].CapacityKg > p.Vehicles[vehOrder[b]].CapacityKg
	})

	cargos := append([]CargoItem{}, p.Cargos...)
	sort.SliceStable(cargos, func(a, b int) bool { return cargos[a].WeightKg > cargos[b].WeightKg })

	stopsByVehicle = make([][]int, len(p.Vehicles))
	loads := make([]float64, len(p.Vehicles))
	seen := make([]map[int]bool, len(p.Vehicles))
	for i := range seen {
		seen[i] = map[int]bool{}
	}

	for _, c := range cargos {
		si, ok := stopIndex[c.StopID]
		if !ok {
			unassigned = append(unassigned, c)
			continue
		}
		placed := false
		for _, vi := range vehOrder {
			if loads[vi]+c.WeightKg <= p.Vehicles[vi].CapacityKg {
				if !seen[vi][si] {
					stopsByVehicle[vi] = append(stopsByVehicle[vi], si)
					seen[vi][si] = true
				}
				loads[vi] += c.WeightKg
				cargoVehicle[c.ID] = p.Vehicles[vi].ID
				placed = true
				break
			}
		}
		if !placed {
			unassigned = append(unassigned, c)
		}
	}
	return stopsByVehicle, cargoVehicle, unassigned
}

// orderStops rebuilds a route's visiting order: start from the stop
// farthest from the depot and greedily chain nearest neighbors, so the
// route works its way home.
func orderStops(p Problem, stops []int) []int {
	if len(stops) <= 2 {
		return stops
	}
	remaining := append([]int{}, stops...)

	far := 0
	for i := 1; i < len(remaining); i++ {
		if p.Dist.Between(p.DepotID, p.Stops[remaining[i]].ID) > p.Dist.Between(p.DepotID, p.Stops[remaining[far]].ID) {
			far = i
		}
	}
	out := []int{remaining[far]}
	remaining = append(remaining[:far], remaining[far+1:]...)

	for len(remaining) > 0 {
		cur := p.Stops[out[len(out)-1]].ID
		best := 0
		for i := 1; i < len(remaining); i++ {
			if p.Dist.Between(cur, p.Stops[remaining[i]].ID) < p.Dist.Between(cur, p.Stops[remaining[best]].ID) {
				best = i
			}
		}
		out = append(out, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return out
}

// SolveSavings runs the full construction. The merge phase shapes
// geographic clusters; the packing phase decides which vehicle carries
// what without ever exceeding capacity.
func SolveSavings(p Problem, params SavingsParams) SavingsResult {
	res := SavingsResult{}
	if len(p.Stops) == 0 || len(p.Vehicles) == 0 {
		res.Unassigned = append(res.Unassigned, p.Cargos...)
		res.Solution.Feasible = len(res.Unassigned) == 0
		for _, v := range p.Vehicles {
			res.Solution.Plans = append(res.Solution.Plans, RoutePlan{VehicleID: v.ID})
		}
		return res
	}

	maxCap := p.Vehicles[0].CapacityKg
	for _, v := range p.Vehicles[1:] {
		if v.CapacityKg > maxCap {
			maxCap = v.CapacityKg
		}
	}

	savings := ComputeSavings(p, params.Regional)
	res.Merged = mergeBySavings(p, savings, maxCap, params.MaxRouteKm)

	stopsByVehicle, cargoVehicle, unassigned := assignFFD(p)
	res.CargoVehicle = cargoVehicle
	res.Unassigned = unassigned

	for vi, v := range p.Vehicles {
		order := orderStops(p, stopsByVehicle[vi])
		res.Solution.Plans = append(res.Solution.Plans, RoutePlan{VehicleID: v.ID, Order: order})
	}
	res.Solution.Cost = SolutionCost(p, res.Solution)
	res.Solution.Feasible = SolutionFeasible(p, res.Solution) && len(unassigned) == 0
	return res
}
