package model

// Core domain types for the cargo collection network.

type GeoPoint struct {
    Lat float64 `json:"lat"`
    Lng float64 `json:"lng"`
}

type Station struct {
    ID      string  `json:"id"`
    Name    string  `json:"name"`
    Lat     float64 `json:"lat"`
    Lng     float64 `json:"lng"`
    IsDepot bool    `json:"isDepot"`
}

type StationInput struct {
    Name    string  `json:"name"`
    Lat     float64 `json:"lat"`
    Lng     float64 `json:"lng"`
    IsDepot bool    `json:"isDepot,omitempty"`
}

type Vehicle struct {
    ID         string  `json:"id"`
    Name       string  `json:"name"`
    CapacityKg float64 `json:"capacityKg"`
    CostPerKm  float64 `json:"costPerKm"`
    Rental     bool    `json:"rental"`
    RentalCost float64 `json:"rentalCost,omitempty"`
    Status     string  `json:"status"` // idle, on_trip
}

type VehicleInput struct {
    Name       string  `json:"name"`
    CapacityKg float64 `json:"capacityKg"`
    CostPerKm  float64 `json:"costPerKm,omitempty"`
    Rental     bool    `json:"rental,omitempty"`
    RentalCost float64 `json:"rentalCost,omitempty"`
}

// Cargo always travels from a district station to the depot.
type Cargo struct {
    ID              string  `json:"id"`
    Description     string  `json:"description,omitempty"`
    WeightKg        float64 `json:"weightKg"`
    SourceStationID string  `json:"sourceStationId"`
    DestStationID   string  `json:"destStationId"`
    Status          string  `json:"status"` // pending, in_transit, delivered, rejected
    Accepted        *bool   `json:"accepted,omitempty"`
    VehicleID       string  `json:"vehicleId,omitempty"`
    CreatedAt       string  `json:"createdAt,omitempty"`
}

type CargoInput struct {
    Description     string  `json:"description,omitempty"`
    WeightKg        float64 `json:"weightKg"`
    SourceStationID string  `json:"sourceStationId"`
}

type RoutePlan struct {
    ID         string   `json:"id"`
    RunID      string   `json:"runId"`
    VehicleID  string   `json:"vehicleId"`
    StationIDs []string `json:"stationIds"` // collection order, depot excluded
    DistanceKm float64  `json:"distanceKm"`
    Cost       float64  `json:"cost"`
    Status     string   `json:"status"` // planned, in_progress, completed
    CreatedAt  string   `json:"createdAt,omitempty"`
}

type TripStop struct {
    Seq        int     `json:"seq"`
    StationID  string  `json:"stationId"`
    Name       string  `json:"name"`
    WeightKg   float64 `json:"weightKg"`
    CargoCount int     `json:"cargoCount"`
}

type Trip struct {
    ID            string     `json:"id"`
    RouteID       string     `json:"routeId"`
    VehicleID     string     `json:"vehicleId"`
    Status        string     `json:"status"` // planned, in_progress, completed
    CargoCount    int        `json:"cargoCount"`
    TotalWeightKg float64    `json:"totalWeightKg"`
    DistanceKm    float64    `json:"distanceKm"`
    FuelCost      float64    `json:"fuelCost"`
    RentalCost    float64    `json:"rentalCost,omitempty"`
    Stops         []TripStop `json:"stops"`
    Path          []GeoPoint `json:"path,omitempty"`
    StartedAt     string     `json:"startedAt,omitempty"`
    CompletedAt   string     `json:"completedAt,omitempty"`
}

type OptimizeRequest struct {
    Mode           string `json:"mode"`                     // unlimited_vehicles, fixed_vehicles
    AcceptCriteria string `json:"acceptCriteria,omitempty"` // max_count, max_weight
    Algorithm      string `json:"algorithm,omitempty"`      // genetic, savings
    Regional       bool   `json:"regional,omitempty"`

    PopulationSize int     `json:"populationSize,omitempty"`
    Generations    int     `json:"generations,omitempty"`
    MutationRate   float64 `json:"mutationRate,omitempty"`
    CrossoverRate  float64 `json:"crossoverRate,omitempty"`
    EliteSize      int     `json:"eliteSize,omitempty"`
    TournamentK    int     `json:"tournamentK,omitempty"`
    NoImproveLimit int     `json:"noImproveLimit,omitempty"`
    MaxRouteKm     float64 `json:"maxRouteKm,omitempty"`
    LongLegKm      float64 `json:"longLegKm,omitempty"`
    Seed           int64   `json:"seed,omitempty"`

    RentalCapacityKg float64 `json:"rentalCapacityKg,omitempty"`
    RentalFixedCost  float64 `json:"rentalFixedCost,omitempty"`
    RentalCostPerKm  float64 `json:"rentalCostPerKm,omitempty"`
}

type RouteDetail struct {
    RouteID     string     `json:"routeId"`
    TripID      string     `json:"tripId"`
    VehicleID   string     `json:"vehicleId"`
    VehicleName string     `json:"vehicleName"`
    Rental      bool       `json:"rental"`
    Stops       []TripStop `json:"stops"`
    DistanceKm  float64    `json:"distanceKm"`
    Cost        float64    `json:"cost"`
    LoadKg      float64    `json:"loadKg"`
    CapacityKg  float64    `json:"capacityKg"`
    Utilization float64    `json:"utilization"`
    Path        []GeoPoint `json:"path,omitempty"`
}

type OptimizeMetrics struct {
    Generations  int     `json:"generations"`
    Improvements int     `json:"improvements"`
    BestCost     float64 `json:"bestCost"`
    MeanCost     float64 `json:"meanCost,omitempty"`
    StddevCost   float64 `json:"stddevCost,omitempty"`
    EarlyStopped bool    `json:"earlyStopped,omitempty"`
    MergedRoutes int     `json:"mergedRoutes,omitempty"`
    ElapsedMs    int64   `json:"elapsedMs"`
}

type OptimizeResult struct {
    RunID           string          `json:"runId"`
    Algorithm       string          `json:"algorithm"`
    Mode            string          `json:"mode"`
    Feasible        bool            `json:"feasible"`
    TotalDistanceKm float64         `json:"totalDistanceKm"`
    TotalCost       float64         `json:"totalCost"`
    FuelCost        float64         `json:"fuelCost"`
    RentalFixedCost float64         `json:"rentalFixedCost,omitempty"`
    AcceptedCargos  []string        `json:"acceptedCargos"`
    RejectedCargos  []string        `json:"rejectedCargos,omitempty"`
    RentedVehicles  []Vehicle       `json:"rentedVehicles,omitempty"`
    Routes          []RouteDetail   `json:"routes"`
    Metrics         OptimizeMetrics `json:"metrics"`
}

// Parameters are the server-side optimization defaults exposed over the API.
type Parameters struct {
    PopulationSize   int     `json:"populationSize"`
    Generations      int     `json:"generations"`
    MutationRate     float64 `json:"mutationRate"`
    CrossoverRate    float64 `json:"crossoverRate"`
    EliteSize        int     `json:"eliteSize"`
    TournamentK      int     `json:"tournamentK"`
    MaxRouteKm       float64 `json:"maxRouteKm"`
    LongLegKm        float64 `json:"longLegKm"`
    RentalCapacityKg float64 `json:"rentalCapacityKg"`
    RentalFixedCost  float64 `json:"rentalFixedCost"`
    RentalCostPerKm  float64 `json:"rentalCostPerKm"`
}

type Scenario struct {
    ID            int     `json:"id"`
    Name          string  `json:"name"`
    Description   string  `json:"description"`
    CargoCount    int     `json:"cargoCount"`
    TotalWeightKg float64 `json:"totalWeightKg"`
}

// Analytics read models

type AnalyticsSummary struct {
    Stations       int     `json:"stations"`
    Vehicles       int     `json:"vehicles"`
    RentedVehicles int     `json:"rentedVehicles"`
    PendingCargos  int     `json:"pendingCargos"`
    InTransit      int     `json:"inTransitCargos"`
    Delivered      int     `json:"deliveredCargos"`
    Rejected       int     `json:"rejectedCargos"`
    ActiveTrips    int     `json:"activeTrips"`
    CompletedTrips int     `json:"completedTrips"`
    TotalDistance  float64 `json:"totalDistanceKm"`
    TotalCost      float64 `json:"totalCost"`
}

type CostBreakdown struct {
    FuelCost   float64 `json:"fuelCost"`
    RentalCost float64 `json:"rentalCost"`
    TotalCost  float64 `json:"totalCost"`
    Trips      int     `json:"trips"`
}

type VehicleBreakdown struct {
    VehicleID  string  `json:"vehicleId"`
    Name       string  `json:"name"`
    Rental     bool    `json:"rental"`
    Trips      int     `json:"trips"`
    CargoCount int     `json:"cargoCount"`
    WeightKg   float64 `json:"weightKg"`
    DistanceKm float64 `json:"distanceKm"`
    Cost       float64 `json:"cost"`
}

type StationSummary struct {
    StationID     string  `json:"stationId"`
    Name          string  `json:"name"`
    PendingCargos int     `json:"pendingCargos"`
    PendingKg     float64 `json:"pendingKg"`
}

// CargoTrack is the tracking view for a single cargo.
type CargoTrack struct {
    Cargo   Cargo      `json:"cargo"`
    Trip    *Trip      `json:"trip,omitempty"`
    Path    []GeoPoint `json:"path,omitempty"`
    Message string     `json:"message,omitempty"`
}
