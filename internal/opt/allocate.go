package opt

import "fmt"

// Capacity allocation happens before route construction: it decides the
// fleet and which cargos ride at all.

const (
	ModeUnlimited = "unlimited_vehicles"
	ModeFixed     = "fixed_vehicles"

	CriteriaMaxCount  = "max_count"
	CriteriaMaxWeight = "max_weight"
)

// Rental policy defaults, overridable per request.
const (
	DefaultRentalCapacityKg = 500.0
	DefaultRentalFixedCost  = 200.0
	DefaultRentalCostPerKm  = 1.0
)

type AllocateInput struct {
	Vehicles []Vehicle
	Cargos   []CargoItem
	Mode     string
	Criteria string

	RentalCapacityKg float64
	RentalFixedCost  float64
	RentalCostPerKm  float64
}

type AllocateResult struct {
	Vehicles []Vehicle   // working fleet, rentals appended
	Rented   []Vehicle   // synthesized rentals only
	Accepted []CargoItem
	Rejected []CargoItem
}

// Allocate sizes the fleet against total demand. In unlimited mode the
// shortfall is covered by synthesizing rentals; in fixed mode excess
// demand is trimmed by the admission criterion and rejected cargo is
// reported back, never silently dropped.
func Allocate(in AllocateInput) (AllocateResult, error) {
	res := AllocateResult{Vehicles: append([]Vehicle{}, in.Vehicles...)}

	var demand, capacity float64
	for _, c := range in.Cargos {
		demand += c.WeightKg
	}
	for _, v := range in.Vehicles {
		capacity += v.CapacityKg
	}

	switch in.Mode {
	case ModeUnlimited:
		res.Accepted = append([]CargoItem{}, in.Cargos...)
		if demand <= capacity {
			return res, nil
		}
		rcap := in.RentalCapacityKg
		if rcap <= 0 {
			rcap = DefaultRentalCapacityKg
		}
		rfixed := in.RentalFixedCost
		if rfixed <= 0 {
			rfixed = DefaultRentalFixedCost
		}
		rkm := in.RentalCostPerKm
		if rkm <= 0 {
			rkm = DefaultRentalCostPerKm
		}
		n := int((demand-capacity)/rcap) + 1
		for i := 1; i <= n; i++ {
			v := Vehicle{
				ID:         fmt.Sprintf("rental-%d", i),
				Name:       fmt.Sprintf("Kiralık Araç %d", i),
				CapacityKg: rcap,
				CostPerKm:  rkm,
				Rental:     true,
				RentalCost: rfixed,
			}
			res.Vehicles = append(res.Vehicles, v)
			res.Rented = append(res.Rented, v)
		}
		return res, nil

	case ModeFixed:
		if demand <= capacity {
			res.Accepted = append([]CargoItem{}, in.Cargos...)
			return res, nil
		}
		switch in.Criteria {
		case CriteriaMaxCount:
			res.Accepted, res.Rejected = SelectByCount(in.Cargos, capacity)
		case CriteriaMaxWeight:
			res.Accepted, res.Rejected = SelectByWeight(in.Cargos, capacity)
		default:
			return res, fmt.Errorf("unknown accept criteria %q", in.Criteria)
		}
		return res, nil

	default:
		return res, fmt.Errorf("unknown mode %q", in.Mode)
	}
}
