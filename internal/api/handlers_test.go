package api

import (
    "bytes"
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strconv"
    "testing"
    "time"

    "golang.org/x/time/rate"

    "cargoroute/internal/model"
    "cargoroute/internal/store"
)

func newTestServer(t *testing.T) (*Server, *http.ServeMux) {
    t.Helper()
    m := store.NewMemory()
    if err := store.Seed(context.Background(), m); err != nil { t.Fatalf("seed: %v", err) }
    s := NewServerWith(m, NewBroker())
    // Unroutable OSRM base: geometry falls back to the road graph fast.
    s.osrm = NewOSRMClient("http://127.0.0.1:9")
    return s, s.Routes()
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
    t.Helper()
    var rdr *bytes.Reader
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil { t.Fatalf("marshal: %v", err) }
        rdr = bytes.NewReader(b)
    } else {
        rdr = bytes.NewReader(nil)
    }
    req := httptest.NewRequest(method, path, rdr)
    req.Header.Set("Content-Type", "application/json")
    rr := httptest.NewRecorder()
    mux.ServeHTTP(rr, req)
    return rr
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v any) {
    t.Helper()
    if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
        t.Fatalf("decode %q: %v", rr.Body.String(), err)
    }
}

func TestHealthReady(t *testing.T) {
    _, mux := newTestServer(t)
    if rr := doJSON(t, mux, http.MethodGet, "/healthz", nil); rr.Code != 200 { t.Fatalf("health: %d", rr.Code) }
    if rr := doJSON(t, mux, http.MethodGet, "/readyz", nil); rr.Code != 200 { t.Fatalf("ready: %d", rr.Code) }
}

func TestStationsCRUD(t *testing.T) {
    _, mux := newTestServer(t)
    rr := doJSON(t, mux, http.MethodGet, "/api/stations", nil)
    if rr.Code != 200 { t.Fatalf("list: %d", rr.Code) }
    var list struct{ Stations []model.Station `json:"stations"` }
    decodeInto(t, rr, &list)
    if len(list.Stations) != 13 { t.Fatalf("stations = %d", len(list.Stations)) }

    rr = doJSON(t, mux, http.MethodPost, "/api/stations", model.StationInput{Name: "Yeni Nokta", Lat: 40.79, Lng: 29.91})
    if rr.Code != http.StatusCreated { t.Fatalf("create: %d %s", rr.Code, rr.Body.String()) }
    var st model.Station
    decodeInto(t, rr, &st)

    rr = doJSON(t, mux, http.MethodGet, "/api/stations/"+st.ID, nil)
    if rr.Code != 200 { t.Fatalf("get: %d", rr.Code) }
    rr = doJSON(t, mux, http.MethodDelete, "/api/stations/"+st.ID, nil)
    if rr.Code != 200 { t.Fatalf("delete: %d", rr.Code) }
    rr = doJSON(t, mux, http.MethodGet, "/api/stations/"+st.ID, nil)
    if rr.Code != http.StatusNotFound { t.Fatalf("get deleted: %d", rr.Code) }
}

func TestStationsSecondDepotRejected(t *testing.T) {
    _, mux := newTestServer(t)
    rr := doJSON(t, mux, http.MethodPost, "/api/stations", model.StationInput{Name: "İkinci Depo", Lat: 40.8, Lng: 29.9, IsDepot: true})
    if rr.Code != http.StatusConflict { t.Fatalf("second depot: %d", rr.Code) }
}

func TestStationValidation(t *testing.T) {
    _, mux := newTestServer(t)
    rr := doJSON(t, mux, http.MethodPost, "/api/stations", model.StationInput{Name: "", Lat: 40, Lng: 29})
    if rr.Code != http.StatusBadRequest { t.Fatalf("empty name: %d", rr.Code) }
    rr = doJSON(t, mux, http.MethodPost, "/api/stations", model.StationInput{Name: "x", Lat: 120, Lng: 29})
    if rr.Code != http.StatusBadRequest { t.Fatalf("bad lat: %d", rr.Code) }
}

func TestVehicleRentAndRelease(t *testing.T) {
    _, mux := newTestServer(t)
    rr := doJSON(t, mux, http.MethodPost, "/api/vehicles/rent", nil)
    if rr.Code != http.StatusCreated { t.Fatalf("rent: %d %s", rr.Code, rr.Body.String()) }
    var v model.Vehicle
    decodeInto(t, rr, &v)
    if !v.Rental || v.CapacityKg != 500 || v.RentalCost != 200 {
        t.Fatalf("rental defaults = %+v", v)
    }

    rr = doJSON(t, mux, http.MethodGet, "/api/vehicles?includeRentals=false", nil)
    var owned struct{ Vehicles []model.Vehicle `json:"vehicles"` }
    decodeInto(t, rr, &owned)
    if len(owned.Vehicles) != 3 { t.Fatalf("owned = %d", len(owned.Vehicles)) }

    rr = doJSON(t, mux, http.MethodDelete, "/api/vehicles/rental", nil)
    if rr.Code != 200 { t.Fatalf("release: %d", rr.Code) }
    var del struct{ Deleted int `json:"deleted"` }
    decodeInto(t, rr, &del)
    if del.Deleted != 1 { t.Fatalf("released = %d", del.Deleted) }
}

func TestCargoCreateValidation(t *testing.T) {
    s, mux := newTestServer(t)
    depot, err := s.store.Depot(context.Background())
    if err != nil { t.Fatal(err) }

    rr := doJSON(t, mux, http.MethodPost, "/api/cargos", model.CargoInput{WeightKg: 0, SourceStationID: "x"})
    if rr.Code != http.StatusBadRequest { t.Fatalf("zero weight: %d", rr.Code) }

    rr = doJSON(t, mux, http.MethodPost, "/api/cargos", model.CargoInput{WeightKg: 10, SourceStationID: "ghost"})
    if rr.Code != http.StatusBadRequest { t.Fatalf("unknown source: %d", rr.Code) }

    rr = doJSON(t, mux, http.MethodPost, "/api/cargos", model.CargoInput{WeightKg: 10, SourceStationID: depot.ID})
    if rr.Code != http.StatusBadRequest { t.Fatalf("depot source: %d", rr.Code) }
}

func TestCargoDestinationForcedToDepot(t *testing.T) {
    s, mux := newTestServer(t)
    ctx := context.Background()
    depot, _ := s.store.Depot(ctx)
    stations, _ := s.store.ListStations(ctx)
    var src model.Station
    for _, st := range stations {
        if !st.IsDepot { src = st; break }
    }
    rr := doJSON(t, mux, http.MethodPost, "/api/cargos", model.CargoInput{WeightKg: 50, SourceStationID: src.ID})
    if rr.Code != http.StatusCreated { t.Fatalf("create: %d %s", rr.Code, rr.Body.String()) }
    var c model.Cargo
    decodeInto(t, rr, &c)
    if c.DestStationID != depot.ID { t.Fatalf("dest = %s, want depot", c.DestStationID) }
    if c.Status != "pending" { t.Fatalf("status = %s", c.Status) }
}

func TestScenarioLoadAndPending(t *testing.T) {
    _, mux := newTestServer(t)
    rr := doJSON(t, mux, http.MethodGet, "/api/scenarios/list", nil)
    var sl struct{ Scenarios []model.Scenario `json:"scenarios"` }
    decodeInto(t, rr, &sl)
    if len(sl.Scenarios) != 4 { t.Fatalf("scenarios = %d", len(sl.Scenarios)) }

    rr = doJSON(t, mux, http.MethodPost, "/api/scenarios/load/1", nil)
    if rr.Code != 200 { t.Fatalf("load: %d %s", rr.Code, rr.Body.String()) }

    rr = doJSON(t, mux, http.MethodGet, "/api/cargos/pending", nil)
    var pending struct {
        Cargos        []model.Cargo `json:"cargos"`
        TotalWeightKg float64       `json:"totalWeightKg"`
    }
    decodeInto(t, rr, &pending)
    if len(pending.Cargos) != 5 || pending.TotalWeightKg != 880 {
        t.Fatalf("pending = %d / %vkg", len(pending.Cargos), pending.TotalWeightKg)
    }

    if rr := doJSON(t, mux, http.MethodPost, "/api/scenarios/load/42", nil); rr.Code != http.StatusNotFound {
        t.Fatalf("unknown scenario: %d", rr.Code)
    }
}

func optimizeScenario(t *testing.T, mux *http.ServeMux, scenario int, req model.OptimizeRequest) model.OptimizeResult {
    t.Helper()
    if rr := doJSON(t, mux, http.MethodPost, "/api/scenarios/load/"+strconv.Itoa(scenario), nil); rr.Code != 200 {
        t.Fatalf("load scenario: %d %s", rr.Code, rr.Body.String())
    }
    rr := doJSON(t, mux, http.MethodPost, "/api/routes/optimize", req)
    if rr.Code != 200 { t.Fatalf("optimize: %d %s", rr.Code, rr.Body.String()) }
    var res model.OptimizeResult
    decodeInto(t, rr, &res)
    return res
}

func TestOptimizeGeneticEndToEnd(t *testing.T) {
    _, mux := newTestServer(t)
    res := optimizeScenario(t, mux, 1, model.OptimizeRequest{
        Mode: "unlimited_vehicles", Algorithm: "genetic",
        PopulationSize: 30, Generations: 40, Seed: 3,
    })
    if res.RunID == "" { t.Fatal("missing run id") }
    if !res.Feasible { t.Fatal("880kg over a 2250kg fleet must be feasible") }
    if len(res.AcceptedCargos) != 5 { t.Fatalf("accepted = %d", len(res.AcceptedCargos)) }
    if len(res.RejectedCargos) != 0 { t.Fatalf("rejected = %v", res.RejectedCargos) }
    if len(res.Routes) == 0 { t.Fatal("no routes") }
    if res.TotalDistanceKm <= 0 || res.TotalCost <= 0 {
        t.Fatalf("distance=%v cost=%v", res.TotalDistanceKm, res.TotalCost)
    }
    for _, rt := range res.Routes {
        if len(rt.Stops) == 0 { t.Fatalf("route %s has no stops", rt.RouteID) }
        if rt.LoadKg > rt.CapacityKg { t.Fatalf("route %s overloaded", rt.RouteID) }
        if len(rt.Path) < 2 { t.Fatalf("route %s has no display path", rt.RouteID) }
    }

    // Plans and trips were persisted.
    rr := doJSON(t, mux, http.MethodGet, "/api/routes?status=planned", nil)
    var routes struct{ Routes []model.RoutePlan `json:"routes"` }
    decodeInto(t, rr, &routes)
    if len(routes.Routes) != len(res.Routes) { t.Fatalf("stored routes = %d", len(routes.Routes)) }

    rr = doJSON(t, mux, http.MethodGet, "/api/trips", nil)
    var trips struct{ Trips []model.Trip `json:"trips"` }
    decodeInto(t, rr, &trips)
    if len(trips.Trips) != len(res.Routes) { t.Fatalf("stored trips = %d", len(trips.Trips)) }
}

func TestOptimizeSavingsEndToEnd(t *testing.T) {
    _, mux := newTestServer(t)
    // Scenario 2: 2100kg fits the 2250kg fleet without rentals.
    res := optimizeScenario(t, mux, 2, model.OptimizeRequest{
        Mode: "unlimited_vehicles", Algorithm: "savings", Regional: true,
    })
    if len(res.RentedVehicles) != 0 { t.Fatalf("rented %d with spare capacity", len(res.RentedVehicles)) }
    if len(res.RejectedCargos) != 0 { t.Fatalf("rejected %v", res.RejectedCargos) }
    if !res.Feasible { t.Fatal("2100kg over a 2250kg fleet must pack") }
    if len(res.AcceptedCargos) != 8 { t.Fatalf("accepted = %d", len(res.AcceptedCargos)) }
    if res.Metrics.MergedRoutes == 0 { t.Fatal("savings run must report its merge cluster count") }
}

func TestOptimizeUnlimitedRentsForOverflow(t *testing.T) {
    s, mux := newTestServer(t)
    // Scenario 3: 2700kg against a 2250kg fleet needs one rental.
    res := optimizeScenario(t, mux, 3, model.OptimizeRequest{
        Mode: "unlimited_vehicles", Algorithm: "genetic",
        PopulationSize: 40, Generations: 80, Seed: 11,
    })
    if len(res.RentedVehicles) != 1 { t.Fatalf("rented = %d, want 1", len(res.RentedVehicles)) }
    if len(res.RejectedCargos) != 0 { t.Fatalf("unlimited mode rejected %v", res.RejectedCargos) }
    if len(res.AcceptedCargos) != 9 { t.Fatalf("accepted = %d", len(res.AcceptedCargos)) }

    vehicles, err := s.store.ListVehicles(context.Background(), true)
    if err != nil { t.Fatal(err) }
    if len(vehicles) != 4 { t.Fatalf("fleet = %d vehicles, want 3 owned + 1 rental", len(vehicles)) }
}

func TestOptimizeFixedModeRejects(t *testing.T) {
    s, mux := newTestServer(t)
    res := optimizeScenario(t, mux, 3, model.OptimizeRequest{
        Mode: "fixed_vehicles", AcceptCriteria: "max_weight", Algorithm: "savings",
    })
    if len(res.RentedVehicles) != 0 { t.Fatal("fixed mode must never rent") }
    if len(res.RejectedCargos) == 0 { t.Fatal("overflow demand must reject cargo") }

    // Rejected cargo is visible in the store, not dropped.
    rejected, err := s.store.ListCargos(context.Background(), "rejected")
    if err != nil { t.Fatal(err) }
    if len(rejected) != len(res.RejectedCargos) {
        t.Fatalf("store rejected = %d, result = %d", len(rejected), len(res.RejectedCargos))
    }
    for _, c := range rejected {
        if c.Accepted == nil || *c.Accepted { t.Fatalf("rejected cargo %s not flagged", c.ID) }
    }
}

func TestOptimizeValidation(t *testing.T) {
    _, mux := newTestServer(t)
    if rr := doJSON(t, mux, http.MethodGet, "/api/routes/optimize", nil); rr.Code != http.StatusMethodNotAllowed {
        t.Fatalf("GET optimize: %d", rr.Code)
    }
    rr := doJSON(t, mux, http.MethodPost, "/api/routes/optimize", model.OptimizeRequest{Mode: "warp"})
    if rr.Code != http.StatusBadRequest { t.Fatalf("bad mode: %d", rr.Code) }
    rr = doJSON(t, mux, http.MethodPost, "/api/routes/optimize", model.OptimizeRequest{Mode: "fixed_vehicles"})
    if rr.Code != http.StatusBadRequest { t.Fatalf("fixed without criteria: %d", rr.Code) }
    // No pending cargo yet.
    rr = doJSON(t, mux, http.MethodPost, "/api/routes/optimize", model.OptimizeRequest{Mode: "unlimited_vehicles"})
    if rr.Code != http.StatusBadRequest { t.Fatalf("empty backlog: %d", rr.Code) }
}

func TestOptimizeRateLimited(t *testing.T) {
    s, mux := newTestServer(t)
    s.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
    doJSON(t, mux, http.MethodPost, "/api/scenarios/load/1", nil)
    rr := doJSON(t, mux, http.MethodPost, "/api/routes/optimize", model.OptimizeRequest{
        Mode: "unlimited_vehicles", Algorithm: "savings",
    })
    if rr.Code != 200 { t.Fatalf("first run: %d %s", rr.Code, rr.Body.String()) }
    rr = doJSON(t, mux, http.MethodPost, "/api/routes/optimize", model.OptimizeRequest{
        Mode: "unlimited_vehicles", Algorithm: "savings",
    })
    if rr.Code != http.StatusTooManyRequests { t.Fatalf("second run: %d", rr.Code) }
}

func TestRouteLifecycleCascade(t *testing.T) {
    s, mux := newTestServer(t)
    res := optimizeScenario(t, mux, 1, model.OptimizeRequest{
        Mode: "unlimited_vehicles", Algorithm: "savings",
    })
    if len(res.Routes) == 0 { t.Fatal("no routes") }
    rt := res.Routes[0]
    ctx := context.Background()

    rr := doJSON(t, mux, http.MethodPost, "/api/routes/"+rt.RouteID+"/start", nil)
    if rr.Code != 200 { t.Fatalf("start: %d %s", rr.Code, rr.Body.String()) }

    v, _ := s.store.GetVehicle(ctx, rt.VehicleID)
    if v.Status != "on_trip" { t.Fatalf("vehicle status = %s", v.Status) }
    inTransit, _ := s.store.ListCargos(ctx, "in_transit")
    if len(inTransit) == 0 { t.Fatal("no cargo in transit after start") }

    rr = doJSON(t, mux, http.MethodGet, "/api/routes/active", nil)
    var active struct{ Routes []model.RoutePlan `json:"routes"` }
    decodeInto(t, rr, &active)
    if len(active.Routes) != 1 { t.Fatalf("active routes = %d", len(active.Routes)) }

    rr = doJSON(t, mux, http.MethodGet, "/api/trips/active", nil)
    var activeTrips struct{ Trips []model.Trip `json:"trips"` }
    decodeInto(t, rr, &activeTrips)
    if len(activeTrips.Trips) != 1 { t.Fatalf("active trips = %d", len(activeTrips.Trips)) }

    // Double start conflicts.
    if rr := doJSON(t, mux, http.MethodPost, "/api/routes/"+rt.RouteID+"/start", nil); rr.Code != http.StatusConflict {
        t.Fatalf("double start: %d", rr.Code)
    }

    rr = doJSON(t, mux, http.MethodPost, "/api/routes/"+rt.RouteID+"/complete", nil)
    if rr.Code != 200 { t.Fatalf("complete: %d %s", rr.Code, rr.Body.String()) }

    v, _ = s.store.GetVehicle(ctx, rt.VehicleID)
    if v.Status != "idle" { t.Fatalf("vehicle status after complete = %s", v.Status) }
    delivered, _ := s.store.ListCargos(ctx, "delivered")
    if len(delivered) == 0 { t.Fatal("no cargo delivered after completion") }

    trip, _ := s.store.GetTrip(ctx, rt.TripID)
    if trip.Status != "completed" || trip.CompletedAt == "" {
        t.Fatalf("trip = %+v", trip)
    }
}

func TestTripStartDelegatesToRoute(t *testing.T) {
    _, mux := newTestServer(t)
    res := optimizeScenario(t, mux, 1, model.OptimizeRequest{
        Mode: "unlimited_vehicles", Algorithm: "savings",
    })
    rt := res.Routes[0]
    rr := doJSON(t, mux, http.MethodPost, "/api/trips/"+rt.TripID+"/start", nil)
    if rr.Code != 200 { t.Fatalf("trip start: %d %s", rr.Code, rr.Body.String()) }
    var rp model.RoutePlan
    decodeInto(t, rr, &rp)
    if rp.Status != "in_progress" { t.Fatalf("route status = %s", rp.Status) }
}

func TestCargoTrack(t *testing.T) {
    s, mux := newTestServer(t)
    res := optimizeScenario(t, mux, 1, model.OptimizeRequest{
        Mode: "unlimited_vehicles", Algorithm: "savings",
    })
    rt := res.Routes[0]
    doJSON(t, mux, http.MethodPost, "/api/routes/"+rt.RouteID+"/start", nil)

    inTransit, _ := s.store.ListCargos(context.Background(), "in_transit")
    if len(inTransit) == 0 { t.Fatal("no cargo in transit") }
    c := inTransit[0]

    rr := doJSON(t, mux, http.MethodGet, "/api/cargos/"+c.ID+"/track", nil)
    if rr.Code != 200 { t.Fatalf("track: %d %s", rr.Code, rr.Body.String()) }
    var track model.CargoTrack
    decodeInto(t, rr, &track)
    if track.Cargo.ID != c.ID { t.Fatalf("track cargo = %s", track.Cargo.ID) }
    if track.Trip == nil { t.Fatal("track missing trip") }
    if len(track.Path) == 0 { t.Fatal("track missing path") }
}

func TestDistanceMatrix(t *testing.T) {
    _, mux := newTestServer(t)
    rr := doJSON(t, mux, http.MethodGet, "/api/distance-matrix", nil)
    if rr.Code != 200 { t.Fatalf("matrix: %d", rr.Code) }
    var out struct {
        Stations map[string]string             `json:"stations"`
        MatrixKm map[string]map[string]float64 `json:"matrixKm"`
    }
    decodeInto(t, rr, &out)
    if len(out.MatrixKm) != 13 { t.Fatalf("matrix rows = %d", len(out.MatrixKm)) }
    for a, row := range out.MatrixKm {
        if row[a] != 0 { t.Fatalf("diagonal %s = %v", a, row[a]) }
    }
}

func TestAnalyticsEndpoints(t *testing.T) {
    _, mux := newTestServer(t)
    optimizeScenario(t, mux, 2, model.OptimizeRequest{
        Mode: "unlimited_vehicles", Algorithm: "savings",
    })
    for _, view := range []string{"summary", "cost-breakdown", "vehicle-breakdown", "station-summary", "runs"} {
        rr := doJSON(t, mux, http.MethodGet, "/api/analytics/"+view, nil)
        if rr.Code != 200 { t.Fatalf("%s: %d %s", view, rr.Code, rr.Body.String()) }
    }
    if rr := doJSON(t, mux, http.MethodGet, "/api/analytics/nope", nil); rr.Code != http.StatusNotFound {
        t.Fatalf("unknown view: %d", rr.Code)
    }

    rr := doJSON(t, mux, http.MethodGet, "/api/analytics/summary", nil)
    var sum model.AnalyticsSummary
    decodeInto(t, rr, &sum)
    if sum.Stations != 13 || sum.TotalCost <= 0 {
        t.Fatalf("summary = %+v", sum)
    }
}

func TestParametersGetPut(t *testing.T) {
    _, mux := newTestServer(t)
    rr := doJSON(t, mux, http.MethodGet, "/api/parameters", nil)
    var p model.Parameters
    decodeInto(t, rr, &p)
    if p.PopulationSize != 100 || p.Generations != 300 {
        t.Fatalf("defaults = %+v", p)
    }

    rr = doJSON(t, mux, http.MethodPut, "/api/parameters", model.Parameters{Generations: 500, MutationRate: 0.2})
    if rr.Code != 200 { t.Fatalf("put: %d %s", rr.Code, rr.Body.String()) }
    var updated model.Parameters
    decodeInto(t, rr, &updated)
    if updated.Generations != 500 || updated.MutationRate != 0.2 {
        t.Fatalf("updated = %+v", updated)
    }
    // Untouched fields keep their defaults.
    if updated.PopulationSize != 100 { t.Fatalf("population = %d", updated.PopulationSize) }

    rr = doJSON(t, mux, http.MethodPut, "/api/parameters", model.Parameters{MutationRate: 3})
    if rr.Code != http.StatusBadRequest { t.Fatalf("bad rate: %d", rr.Code) }
}
