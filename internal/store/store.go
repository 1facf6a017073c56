package store

import (
    "context"
    "errors"
    "fmt"

    "cargoroute/internal/model"
)

var ErrNotFound = errors.New("not found")

// Store is the persistence boundary. Memory backs tests and local runs;
// Postgres is selected when DATABASE_URL is set.
type Store interface {
    // Stations
    ListStations(ctx context.Context) ([]model.Station, error)
    GetStation(ctx context.Context, id string) (model.Station, error)
    CreateStation(ctx context.Context, in model.StationInput) (model.Station, error)
    DeleteStation(ctx context.Context, id string) error
    Depot(ctx context.Context) (model.Station, error)

    // Vehicles
    ListVehicles(ctx context.Context, includeRentals bool) ([]model.Vehicle, error)
    GetVehicle(ctx context.Context, id string) (model.Vehicle, error)
    CreateVehicle(ctx context.Context, in model.VehicleInput) (model.Vehicle, error)
    UpdateVehicle(ctx context.Context, id string, in model.VehicleInput) (model.Vehicle, error)
    DeleteVehicle(ctx context.Context, id string) error
    DeleteRentals(ctx context.Context) (int, error)
    SetVehicleStatus(ctx context.Context, id, status string) error

    // Cargos
    ListCargos(ctx context.Context, status string) ([]model.Cargo, error)
    GetCargo(ctx context.Context, id string) (model.Cargo, error)
    CreateCargo(ctx context.Context, in model.CargoInput, destStationID string) (model.Cargo, error)
    DeleteCargo(ctx context.Context, id string) error
    DeletePendingCargos(ctx context.Context) (int, error)
    AssignCargos(ctx context.Context, ids []string, vehicleID string) error
    RejectCargos(ctx context.Context, ids []string) error
    UpdateCargoStatusByVehicle(ctx context.Context, vehicleID, from, to string) (int, error)

    // Route plans and trips
    CreateRoutePlan(ctx context.Context, rp model.RoutePlan) (model.RoutePlan, error)
    ListRoutePlans(ctx context.Context, status string) ([]model.RoutePlan, error)
    GetRoutePlan(ctx context.Context, id string) (model.RoutePlan, error)
    SetRouteStatus(ctx context.Context, id, status string) error

    CreateTrip(ctx context.Context, t model.Trip) (model.Trip, error)
    ListTrips(ctx context.Context, status string) ([]model.Trip, error)
    GetTrip(ctx context.Context, id string) (model.Trip, error)
    TripsByVehicle(ctx context.Context, vehicleID string) ([]model.Trip, error)
    SetTripStatus(ctx context.Context, id, status string) error

    // Analytics
    Summary(ctx context.Context) (model.AnalyticsSummary, error)
    CostBreakdown(ctx context.Context) (model.CostBreakdown, error)
    VehicleBreakdown(ctx context.Context) ([]model.VehicleBreakdown, error)
    StationSummaries(ctx context.Context) ([]model.StationSummary, error)

    // Optimizer run metrics
    SaveRunMetrics(ctx context.Context, runID string, m model.OptimizeMetrics) error
    RunMetrics(ctx context.Context) (map[string]model.OptimizeMetrics, error)
}

// Seed inserts the Kocaeli station set and the default fleet when the
// store is empty. Safe to call on every startup.
func Seed(ctx context.Context, s Store) error {
    stations, err := s.ListStations(ctx)
    if err != nil {
        return err
    }
    if len(stations) == 0 {
        for _, st := range seedStations {
            if _, err := s.CreateStation(ctx, st); err != nil {
                return fmt.Errorf("seed station %s: %w", st.Name, err)
            }
        }
    }
    vehicles, err := s.ListVehicles(ctx, true)
    if err != nil {
        return err
    }
    if len(vehicles) == 0 {
        for _, v := range seedVehicles {
            if _, err := s.CreateVehicle(ctx, v); err != nil {
                return fmt.Errorf("seed vehicle %s: %w", v.Name, err)
            }
        }
    }
    return nil
}

// seedStations is the depot plus the twelve district collection points.
var seedStations = []model.StationInput{
    {Name: "Kocaeli Üniversitesi", Lat: 40.8225, Lng: 29.9213, IsDepot: true},
    {Name: "İzmit", Lat: 40.7654, Lng: 29.9408},
    {Name: "Gebze", Lat: 40.8027, Lng: 29.4307},
    {Name: "Darıca", Lat: 40.7692, Lng: 29.3753},
    {Name: "Çayırova", Lat: 40.8261, Lng: 29.3689},
    {Name: "Dilovası", Lat: 40.7847, Lng: 29.5372},
    {Name: "Körfez", Lat: 40.7539, Lng: 29.7628},
    {Name: "Derince", Lat: 40.7531, Lng: 29.8142},
    {Name: "Gölcük", Lat: 40.7167, Lng: 29.8333},
    {Name: "Karamürsel", Lat: 40.6917, Lng: 29.6167},
    {Name: "Kandıra", Lat: 41.0711, Lng: 30.1528},
    {Name: "Kartepe", Lat: 40.7333, Lng: 30.0333},
    {Name: "Başiskele", Lat: 40.7381, Lng: 30.0001},
}

var seedVehicles = []model.VehicleInput{
    {Name: "Araç 1", CapacityKg: 500, CostPerKm: 1.0},
    {Name: "Araç 2", CapacityKg: 750, CostPerKm: 1.0},
    {Name: "Araç 3", CapacityKg: 1000, CostPerKm: 1.0},
}
