package api

import (
	"fmt"

	"cargoroute/internal/model"
	"cargoroute/internal/opt"
)

func validateOptimizeRequest(req model.OptimizeRequest) error {
	switch req.Mode {
	case opt.ModeUnlimited, opt.ModeFixed:
	case "":
		return fmt.Errorf("mode is required")
	default:
		return fmt.Errorf("mode must be %s or %s", opt.ModeUnlimited, opt.ModeFixed)
	}
	if req.Mode == opt.ModeFixed {
		switch req.AcceptCriteria {
		case opt.CriteriaMaxCount, opt.CriteriaMaxWeight:
		case "":
			return fmt.Errorf("acceptCriteria is required in fixed mode")
		default:
			return fmt.Errorf("acceptCriteria must be %s or %s", opt.CriteriaMaxCount, opt.CriteriaMaxWeight)
		}
	}
	switch req.Algorithm {
	case "", "genetic", "savings":
	default:
		return fmt.Errorf("algorithm must be genetic or savings")
	}
	if req.MutationRate < 0 || req.MutationRate > 1 {
		return fmt.Errorf("mutationRate must be in [0,1]")
	}
	if req.CrossoverRate < 0 || req.CrossoverRate > 1 {
		return fmt.Errorf("crossoverRate must be in [0,1]")
	}
	if req.PopulationSize < 0 || req.Generations < 0 || req.EliteSize < 0 || req.TournamentK < 0 {
		return fmt.Errorf("population parameters must be non-negative")
	}
	if req.PopulationSize > 0 && req.EliteSize > req.PopulationSize {
		return fmt.Errorf("eliteSize cannot exceed populationSize")
	}
	if req.MaxRouteKm < 0 || req.LongLegKm < 0 {
		return fmt.Errorf("distance limits must be non-negative")
	}
	if req.RentalCapacityKg < 0 || req.RentalFixedCost < 0 || req.RentalCostPerKm < 0 {
		return fmt.Errorf("rental parameters must be non-negative")
	}
	return nil
}

func validateStationInput(in model.StationInput) error {
	if in.Name == "" {
		return fmt.Errorf("name is required")
	}
	if in.Lat < -90 || in.Lat > 90 {
		return fmt.Errorf("lat must be in [-90,90]")
	}
	if in.Lng < -180 || in.Lng > 180 {
		return fmt.Errorf("lng must be in [-180,180]")
	}
	return nil
}

func validateVehicleInput(in model.VehicleInput) error {
	if in.Name == "" {
		return fmt.Errorf("name is required")
	}
	if in.CapacityKg <= 0 {
		return fmt.Errorf("capacityKg must be positive")
	}
	if in.CostPerKm < 0 {
		return fmt.Errorf("costPerKm must be non-negative")
	}
	return nil
}

func validateCargoInput(in model.CargoInput) error {
	if in.WeightKg <= 0 {
		return fmt.Errorf("weightKg must be positive")
	}
	if in.SourceStationID == "" {
		return fmt.Errorf("sourceStationId is required")
	}
	return nil
}
