package opt

// Shared evaluation used by every engine so their results are directly
// comparable. A route distance always covers the full trip:
// depot -> first stop -> ... -> last stop -> depot.

const capacityPenaltyPerKg = 100.0

// RouteDistance returns the full-trip distance in km for an order over
// p.Stops. Empty orders cost nothing.
func RouteDistance(p Problem, order []int) float64 {
	if len(order) == 0 {
		return 0
	}
	total := p.Dist.Between(p.DepotID, p.Stops[order[0]].ID)
	for i := 0; i < len(order)-1; i++ {
		total += p.Dist.Between(p.Stops[order[i]].ID, p.Stops[order[i+1]].ID)
	}
	total += p.Dist.Between(p.Stops[order[len(order)-1]].ID, p.DepotID)
	return total
}

// RouteCost is fuel plus the fixed rental fee when the vehicle is rented.
func RouteCost(p Problem, v Vehicle, order []int) float64 {
	if len(order) == 0 {
		return 0
	}
	cost := RouteDistance(p, order) * v.CostPerKm
	if v.Rental {
		cost += v.RentalCost
	}
	return cost
}

func routeWeight(p Problem, order []int) float64 {
	var w float64
	for _, idx := range order {
		w += p.Stops[idx].WeightKg
	}
	return w
}

// SolutionCost sums the route costs of all non-empty plans.
func SolutionCost(p Problem, s Solution) float64 {
	var total float64
	for _, plan := range s.Plans {
		v, ok := p.vehicleByID(plan.VehicleID)
		if !ok {
			continue
		}
		total += RouteCost(p, v, plan.Order)
	}
	return total
}

// SolutionFeasible reports whether every plan respects its vehicle
// capacity.
func SolutionFeasible(p Problem, s Solution) bool {
	for _, plan := range s.Plans {
		v, ok := p.vehicleByID(plan.VehicleID)
		if !ok {
			return false
		}
		if routeWeight(p, plan.Order) > v.CapacityKg {
			return false
		}
	}
	return true
}

func (p Problem) vehicleByID(id string) (Vehicle, bool) {
	for _, v := range p.Vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return Vehicle{}, false
}

// penalizedCost is the GA objective: raw cost plus penalties for
// capacity excess, overlong routes and long individual legs.
func penalizedCost(p Problem, plans [][]int, maxRouteKm, longLegKm float64) float64 {
	var cost, penalty float64
	for vi, order := range plans {
		if len(order) == 0 {
			continue
		}
		v := p.Vehicles[vi]
		d := RouteDistance(p, order)
		cost += d * v.CostPerKm
		if v.Rental {
			cost += v.RentalCost
		}
		if excess := routeWeight(p, order) - v.CapacityKg; excess > 0 {
			penalty += excess * capacityPenaltyPerKg
		}
		if maxRouteKm > 0 && d > maxRouteKm {
			penalty += (d - maxRouteKm) * 10
		}
		if longLegKm > 0 {
			prev := p.DepotID
			for _, idx := range order {
				if leg := p.Dist.Between(prev, p.Stops[idx].ID); leg > longLegKm {
					penalty += leg - longLegKm
				}
				prev = p.Stops[idx].ID
			}
		}
	}
	return cost + penalty
}

func fitness(p Problem, plans [][]int, maxRouteKm, longLegKm float64) float64 {
	return 1.0 / (penalizedCost(p, plans, maxRouteKm, longLegKm) + 1.0)
}

func plansFeasible(p Problem, plans [][]int) bool {
	for vi, order := range plans {
		if routeWeight(p, order) > p.Vehicles[vi].CapacityKg {
			return false
		}
	}
	return true
}

func plansCost(p Problem, plans [][]int) float64 {
	var total float64
	for vi, order := range plans {
		total += RouteCost(p, p.Vehicles[vi], order)
	}
	return total
}
