package store

import (
    "context"
    "errors"
    "testing"

    "cargoroute/internal/model"
)

func seededMemory(t *testing.T) *Memory {
    t.Helper()
    m := NewMemory()
    if err := Seed(context.Background(), m); err != nil {
        t.Fatalf("seed: %v", err)
    }
    return m
}

func TestSeedIdempotent(t *testing.T) {
    ctx := context.Background()
    m := seededMemory(t)
    if err := Seed(ctx, m); err != nil { t.Fatalf("second seed: %v", err) }

    stations, _ := m.ListStations(ctx)
    if len(stations) != 13 { t.Fatalf("stations = %d, want depot + 12 districts", len(stations)) }
    vehicles, _ := m.ListVehicles(ctx, true)
    if len(vehicles) != 3 { t.Fatalf("vehicles = %d, want 3", len(vehicles)) }

    depot, err := m.Depot(ctx)
    if err != nil { t.Fatalf("depot: %v", err) }
    if depot.Name != "Kocaeli Üniversitesi" { t.Fatalf("depot = %s", depot.Name) }
}

func TestStationCRUD(t *testing.T) {
    ctx := context.Background()
    m := NewMemory()
    st, err := m.CreateStation(ctx, model.StationInput{Name: "Test", Lat: 40.8, Lng: 29.9})
    if err != nil { t.Fatal(err) }
    got, err := m.GetStation(ctx, st.ID)
    if err != nil || got.Name != "Test" { t.Fatalf("get: %v %+v", err, got) }
    if err := m.DeleteStation(ctx, st.ID); err != nil { t.Fatal(err) }
    if _, err := m.GetStation(ctx, st.ID); !errors.Is(err, ErrNotFound) {
        t.Fatalf("deleted station lookup: %v", err)
    }
    if _, err := m.Depot(ctx); !errors.Is(err, ErrNotFound) {
        t.Fatalf("empty store depot: %v", err)
    }
}

func TestVehicleRentalLifecycle(t *testing.T) {
    ctx := context.Background()
    m := seededMemory(t)
    r, err := m.CreateVehicle(ctx, model.VehicleInput{Name: "Kiralık Araç 1", CapacityKg: 500, Rental: true, RentalCost: 200})
    if err != nil { t.Fatal(err) }
    if r.Status != "idle" { t.Fatalf("new vehicle status = %s", r.Status) }

    all, _ := m.ListVehicles(ctx, true)
    owned, _ := m.ListVehicles(ctx, false)
    if len(all) != 4 || len(owned) != 3 {
        t.Fatalf("all=%d owned=%d", len(all), len(owned))
    }

    n, err := m.DeleteRentals(ctx)
    if err != nil || n != 1 { t.Fatalf("delete rentals: %v n=%d", err, n) }
    if _, err := m.GetVehicle(ctx, r.ID); !errors.Is(err, ErrNotFound) {
        t.Fatalf("rental survived bulk delete: %v", err)
    }
}

func TestCargoLifecycle(t *testing.T) {
    ctx := context.Background()
    m := seededMemory(t)
    depot, _ := m.Depot(ctx)
    stations, _ := m.ListStations(ctx)
    var src model.Station
    for _, st := range stations {
        if !st.IsDepot { src = st; break }
    }

    c, err := m.CreateCargo(ctx, model.CargoInput{WeightKg: 150, SourceStationID: src.ID}, depot.ID)
    if err != nil { t.Fatal(err) }
    if c.Status != "pending" || c.DestStationID != depot.ID {
        t.Fatalf("new cargo = %+v", c)
    }

    if err := m.AssignCargos(ctx, []string{c.ID}, "veh-1"); err != nil { t.Fatal(err) }
    got, _ := m.GetCargo(ctx, c.ID)
    if got.VehicleID != "veh-1" || got.Accepted == nil || !*got.Accepted {
        t.Fatalf("assigned cargo = %+v", got)
    }
    if got.Status != "pending" { t.Fatalf("assignment must not advance status, got %s", got.Status) }

    n, err := m.UpdateCargoStatusByVehicle(ctx, "veh-1", "pending", "in_transit")
    if err != nil || n != 1 { t.Fatalf("to in_transit: %v n=%d", err, n) }
    n, err = m.UpdateCargoStatusByVehicle(ctx, "veh-1", "in_transit", "delivered")
    if err != nil || n != 1 { t.Fatalf("to delivered: %v n=%d", err, n) }
    got, _ = m.GetCargo(ctx, c.ID)
    if got.Status != "delivered" { t.Fatalf("final status = %s", got.Status) }
}

func TestRejectCargosClearsAssignment(t *testing.T) {
    ctx := context.Background()
    m := seededMemory(t)
    depot, _ := m.Depot(ctx)
    stations, _ := m.ListStations(ctx)
    c, _ := m.CreateCargo(ctx, model.CargoInput{WeightKg: 999, SourceStationID: stations[1].ID}, depot.ID)
    _ = m.AssignCargos(ctx, []string{c.ID}, "veh-1")

    if err := m.RejectCargos(ctx, []string{c.ID}); err != nil { t.Fatal(err) }
    got, _ := m.GetCargo(ctx, c.ID)
    if got.Status != "rejected" || got.VehicleID != "" { t.Fatalf("rejected cargo = %+v", got) }
    if got.Accepted == nil || *got.Accepted { t.Fatal("rejected cargo must carry accepted=false") }
}

func TestDeletePendingKeepsOthers(t *testing.T) {
    ctx := context.Background()
    m := seededMemory(t)
    depot, _ := m.Depot(ctx)
    stations, _ := m.ListStations(ctx)
    a, _ := m.CreateCargo(ctx, model.CargoInput{WeightKg: 10, SourceStationID: stations[1].ID}, depot.ID)
    b, _ := m.CreateCargo(ctx, model.CargoInput{WeightKg: 20, SourceStationID: stations[2].ID}, depot.ID)
    _ = m.AssignCargos(ctx, []string{b.ID}, "veh-1")
    _, _ = m.UpdateCargoStatusByVehicle(ctx, "veh-1", "pending", "in_transit")

    n, err := m.DeletePendingCargos(ctx)
    if err != nil || n != 1 { t.Fatalf("delete pending: %v n=%d", err, n) }
    if _, err := m.GetCargo(ctx, a.ID); !errors.Is(err, ErrNotFound) {
        t.Fatal("pending cargo survived")
    }
    if _, err := m.GetCargo(ctx, b.ID); err != nil {
        t.Fatal("in-transit cargo was deleted")
    }
}

func TestTripAndRouteStatus(t *testing.T) {
    ctx := context.Background()
    m := NewMemory()
    rp, err := m.CreateRoutePlan(ctx, model.RoutePlan{VehicleID: "v1", StationIDs: []string{"s1"}})
    if err != nil { t.Fatal(err) }
    if rp.Status != "planned" { t.Fatalf("route status = %s", rp.Status) }

    tr, err := m.CreateTrip(ctx, model.Trip{RouteID: rp.ID, VehicleID: "v1"})
    if err != nil { t.Fatal(err) }

    if err := m.SetTripStatus(ctx, tr.ID, "in_progress"); err != nil { t.Fatal(err) }
    got, _ := m.GetTrip(ctx, tr.ID)
    if got.StartedAt == "" { t.Fatal("start must stamp StartedAt") }
    if err := m.SetTripStatus(ctx, tr.ID, "completed"); err != nil { t.Fatal(err) }
    got, _ = m.GetTrip(ctx, tr.ID)
    if got.CompletedAt == "" { t.Fatal("completion must stamp CompletedAt") }

    byVeh, _ := m.TripsByVehicle(ctx, "v1")
    if len(byVeh) != 1 { t.Fatalf("trips by vehicle = %d", len(byVeh)) }

    active, _ := m.ListTrips(ctx, "in_progress")
    if len(active) != 0 { t.Fatalf("active trips = %d after completion", len(active)) }
}

func TestLoadScenarioReplacesBacklog(t *testing.T) {
    ctx := context.Background()
    m := seededMemory(t)
    depot, _ := m.Depot(ctx)
    stations, _ := m.ListStations(ctx)
    _, _ = m.CreateCargo(ctx, model.CargoInput{WeightKg: 42, SourceStationID: stations[1].ID}, depot.ID)
    _, _ = m.CreateVehicle(ctx, model.VehicleInput{Name: "Kiralık", CapacityKg: 500, Rental: true})

    sc, n, err := LoadScenario(ctx, m, 1)
    if err != nil { t.Fatal(err) }
    if sc.ID != 1 || n != 5 { t.Fatalf("scenario=%+v n=%d", sc, n) }

    pending, _ := m.ListCargos(ctx, "pending")
    if len(pending) != 5 { t.Fatalf("pending = %d, want scenario's 5", len(pending)) }
    var total float64
    for _, c := range pending {
        total += c.WeightKg
        if c.DestStationID != depot.ID { t.Fatalf("cargo dest = %s, want depot", c.DestStationID) }
    }
    if total != 880 { t.Fatalf("total = %vkg, want 880", total) }

    vehicles, _ := m.ListVehicles(ctx, true)
    for _, v := range vehicles {
        if v.Rental { t.Fatal("rental survived scenario load") }
    }
}

func TestLoadScenarioUnknown(t *testing.T) {
    m := seededMemory(t)
    if _, _, err := LoadScenario(context.Background(), m, 99); !errors.Is(err, ErrNotFound) {
        t.Fatalf("unknown scenario: %v", err)
    }
}

func TestAnalyticsViews(t *testing.T) {
    ctx := context.Background()
    m := seededMemory(t)
    if _, _, err := LoadScenario(ctx, m, 2); err != nil { t.Fatal(err) }
    vehicles, _ := m.ListVehicles(ctx, true)
    v := vehicles[0]

    _, _ = m.CreateTrip(ctx, model.Trip{VehicleID: v.ID, Status: "completed", CargoCount: 3, TotalWeightKg: 700, DistanceKm: 120, FuelCost: 120, RentalCost: 0})

    s, err := m.Summary(ctx)
    if err != nil { t.Fatal(err) }
    if s.PendingCargos != 8 || s.CompletedTrips != 1 {
        t.Fatalf("summary = %+v", s)
    }
    if s.TotalCost != 120 { t.Fatalf("total cost = %v", s.TotalCost) }

    cb, _ := m.CostBreakdown(ctx)
    if cb.FuelCost != 120 || cb.Trips != 1 { t.Fatalf("cost breakdown = %+v", cb) }

    vb, _ := m.VehicleBreakdown(ctx)
    var found bool
    for _, row := range vb {
        if row.VehicleID == v.ID {
            found = true
            if row.Trips != 1 || row.WeightKg != 700 { t.Fatalf("vehicle row = %+v", row) }
        }
    }
    if !found { t.Fatal("vehicle missing from breakdown") }

    ss, _ := m.StationSummaries(ctx)
    if len(ss) != 12 { t.Fatalf("station summaries = %d, want 12 districts", len(ss)) }
    var pendingKg float64
    for _, row := range ss {
        pendingKg += row.PendingKg
    }
    if pendingKg != 2100 { t.Fatalf("pending kg = %v, want 2100", pendingKg) }
}

func TestRunMetricsRoundTrip(t *testing.T) {
    ctx := context.Background()
    m := NewMemory()
    in := model.OptimizeMetrics{Generations: 42, BestCost: 314.15}
    if err := m.SaveRunMetrics(ctx, "run-1", in); err != nil { t.Fatal(err) }
    all, err := m.RunMetrics(ctx)
    if err != nil { t.Fatal(err) }
    if got := all["run-1"]; got.Generations != 42 || got.BestCost != 314.15 {
        t.Fatalf("run metrics = %+v", got)
    }
}
