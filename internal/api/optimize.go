package api

import (
    "context"
    "encoding/json"
    "net/http"
    "sort"
    "time"

    "github.com/google/uuid"
    "github.com/sirupsen/logrus"

    "cargoroute/internal/geo"
    "cargoroute/internal/metrics"
    "cargoroute/internal/model"
    "cargoroute/internal/opt"
)

// handleOptimize runs the full planning pipeline: admission, route
// construction, persistence and event publishing. Progress events for
// the run stream over /ws/optimize?runId=<id>.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
        return
    }
    if !s.limiter.Allow() {
        writeProblem(w, http.StatusTooManyRequests, "rate limited", "optimization already in progress, retry shortly", r.URL.Path)
        return
    }
    var req model.OptimizeRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := validateOptimizeRequest(req); err != nil {
        writeProblem(w, http.StatusBadRequest, "invalid optimize request", err.Error(), r.URL.Path)
        return
    }
    ctx := r.Context()

    depot, err := s.store.Depot(ctx)
    if err != nil {
        writeProblem(w, http.StatusConflict, "no depot", "a depot station must exist before optimizing", r.URL.Path)
        return
    }
    stations, err := s.store.ListStations(ctx)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "store error", err.Error(), r.URL.Path)
        return
    }
    pending, err := s.store.ListCargos(ctx, "pending")
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "store error", err.Error(), r.URL.Path)
        return
    }
    if len(pending) == 0 {
        writeProblem(w, http.StatusBadRequest, "nothing to optimize", "no pending cargo", r.URL.Path)
        return
    }
    owned, err := s.store.ListVehicles(ctx, false)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "store error", err.Error(), r.URL.Path)
        return
    }
    if len(owned) == 0 {
        writeProblem(w, http.StatusBadRequest, "no vehicles", "at least one owned vehicle is required", r.URL.Path)
        return
    }
    // Rentals from earlier runs do not carry over.
    if _, err := s.store.DeleteRentals(ctx); err != nil {
        writeProblem(w, http.StatusInternalServerError, "store error", err.Error(), r.URL.Path)
        return
    }

    defaults := s.parameters()
    req = mergeDefaults(req, defaults)

    cargos := make([]opt.CargoItem, 0, len(pending))
    for _, c := range pending {
        cargos = append(cargos, opt.CargoItem{ID: c.ID, WeightKg: c.WeightKg, StopID: c.SourceStationID})
    }
    fleet := make([]opt.Vehicle, 0, len(owned))
    for _, v := range owned {
        fleet = append(fleet, opt.Vehicle{ID: v.ID, Name: v.Name, CapacityKg: v.CapacityKg, CostPerKm: v.CostPerKm})
    }

    alloc, err := opt.Allocate(opt.AllocateInput{
        Vehicles:         fleet,
        Cargos:           cargos,
        Mode:             req.Mode,
        Criteria:         req.AcceptCriteria,
        RentalCapacityKg: req.RentalCapacityKg,
        RentalFixedCost:  req.RentalFixedCost,
        RentalCostPerKm:  req.RentalCostPerKm,
    })
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "allocation failed", err.Error(), r.URL.Path)
        return
    }

    // Persist synthesized rentals so trips can reference them, and swap
    // the placeholder ids for store ids.
    var rented []model.Vehicle
    for i, rv := range alloc.Rented {
        created, err := s.store.CreateVehicle(ctx, model.VehicleInput{
            Name: rv.Name, CapacityKg: rv.CapacityKg, CostPerKm: rv.CostPerKm,
            Rental: true, RentalCost: rv.RentalCost,
        })
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "store error", err.Error(), r.URL.Path)
            return
        }
        for j := range alloc.Vehicles {
            if alloc.Vehicles[j].ID == rv.ID {
                alloc.Vehicles[j].ID = created.ID
            }
        }
        alloc.Rented[i].ID = created.ID
        rented = append(rented, created)
    }

    problem, err := s.buildProblem(depot, stations, alloc.Vehicles, alloc.Accepted)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "problem build failed", err.Error(), r.URL.Path)
        return
    }

    // Callers streaming progress over the WebSocket pick the run id up
    // front and subscribe before posting.
    runID := r.URL.Query().Get("runId")
    if runID == "" {
        runID = uuid.NewString()
    }
    algorithm := req.Algorithm
    if algorithm == "" {
        algorithm = "genetic"
    }
    log := s.log.WithFields(logrus.Fields{"runId": runID, "mode": req.Mode, "algorithm": algorithm})
    log.WithFields(logrus.Fields{"cargos": len(alloc.Accepted), "vehicles": len(alloc.Vehicles)}).Info("optimize run started")
    s.broker.Publish(runID, Event{Type: "optimize.started", Data: map[string]any{
        "runId": runID, "algorithm": algorithm, "cargos": len(alloc.Accepted), "vehicles": len(alloc.Vehicles),
    }})

    start := time.Now()
    var (
        solution     opt.Solution
        runMetrics   opt.Metrics
        cargoVehicle map[string]string
        rejectedIDs  []string
    )
    for _, c := range alloc.Rejected {
        rejectedIDs = append(rejectedIDs, c.ID)
    }

    switch algorithm {
    case "savings":
        res := opt.SolveSavings(problem, opt.SavingsParams{Regional: req.Regional, MaxRouteKm: req.MaxRouteKm})
        solution = res.Solution
        cargoVehicle = res.CargoVehicle
        for _, c := range res.Unassigned {
            rejectedIDs = append(rejectedIDs, c.ID)
        }
        runMetrics = opt.Metrics{BestCost: solution.Cost, MergedRoutes: len(res.Merged), Elapsed: time.Since(start)}
    default:
        params := opt.Params{
            PopulationSize: req.PopulationSize,
            Generations:    req.Generations,
            MutationRate:   req.MutationRate,
            CrossoverRate:  req.CrossoverRate,
            EliteSize:      req.EliteSize,
            TournamentK:    req.TournamentK,
            NoImproveLimit: req.NoImproveLimit,
            MaxRouteKm:     req.MaxRouteKm,
            LongLegKm:      req.LongLegKm,
            Seed:           req.Seed,
        }
        solution, runMetrics = opt.SolveGenetic(problem, params, func(gen, total int, best float64) {
            s.broker.Publish(runID, Event{Type: "optimize.progress", Data: map[string]any{
                "runId": runID, "generation": gen, "total": total, "bestCost": best,
            }})
        })
        cargoVehicle = stopAssignments(problem, solution, alloc.Accepted)
        metrics.OptimizeGenerations.Observe(float64(runMetrics.Generations))
    }

    result, err := s.persistSolution(ctx, runID, algorithm, req, depot, problem, solution, runMetrics, cargoVehicle, rejectedIDs, rented)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "persist failed", err.Error(), r.URL.Path)
        return
    }

    metrics.OptimizeRuns.WithLabelValues(req.Mode, algorithm).Inc()
    metrics.OptimizeBestCost.Set(result.TotalCost)
    metrics.RejectedCargos.Add(float64(len(rejectedIDs)))

    s.broker.Publish(runID, Event{Type: "optimize.done", Data: map[string]any{
        "runId": runID, "totalCost": result.TotalCost, "totalDistanceKm": result.TotalDistanceKm,
        "feasible": result.Feasible, "routes": len(result.Routes),
    }})
    log.WithFields(logrus.Fields{
        "cost": result.TotalCost, "distanceKm": result.TotalDistanceKm,
        "generations": runMetrics.Generations, "rejected": len(rejectedIDs),
    }).Info("optimize run finished")

    writeJSON(w, http.StatusOK, result)
}

// buildProblem aggregates accepted cargo per source station and wires
// the distance oracle over all stations.
func (s *Server) buildProblem(depot model.Station, stations []model.Station, vehicles []opt.Vehicle, accepted []opt.CargoItem) (opt.Problem, error) {
    sites := make([]geo.Site, 0, len(stations))
    byID := make(map[string]model.Station, len(stations))
    for _, st := range stations {
        sites = append(sites, geo.Site{ID: st.ID, Name: st.Name, Pt: geo.Point{Lat: st.Lat, Lng: st.Lng}})
        byID[st.ID] = st
    }
    oracle, err := geo.NewOracle(sites, nil)
    if err != nil {
        return opt.Problem{}, err
    }

    type agg struct {
        weight float64
        count  int
    }
    demand := map[string]*agg{}
    for _, c := range accepted {
        if demand[c.StopID] == nil {
            demand[c.StopID] = &agg{}
        }
        demand[c.StopID].weight += c.WeightKg
        demand[c.StopID].count++
    }

    var stops []opt.Stop
    for _, st := range stations {
        d, ok := demand[st.ID]
        if !ok || st.IsDepot {
            continue
        }
        stops = append(stops, opt.Stop{
            ID: st.ID, Name: st.Name, Lat: st.Lat, Lng: st.Lng,
            WeightKg: d.weight, CargoCount: d.count,
        })
    }

    return opt.Problem{
        DepotID:  depot.ID,
        Stops:    stops,
        Vehicles: vehicles,
        Cargos:   accepted,
        Dist:     oracle,
    }, nil
}

// stopAssignments maps each accepted cargo to the vehicle whose route
// serves its station.
func stopAssignments(p opt.Problem, sol opt.Solution, accepted []opt.CargoItem) map[string]string {
    stopVehicle := map[string]string{}
    for _, plan := range sol.Plans {
        for _, idx := range plan.Order {
            stopVehicle[p.Stops[idx].ID] = plan.VehicleID
        }
    }
    out := map[string]string{}
    for _, c := range accepted {
        if v, ok := stopVehicle[c.StopID]; ok {
            out[c.ID] = v
        }
    }
    return out
}

func mergeDefaults(req model.OptimizeRequest, d model.Parameters) model.OptimizeRequest {
    if req.PopulationSize == 0 {
        req.PopulationSize = d.PopulationSize
    }
    if req.Generations == 0 {
        req.Generations = d.Generations
    }
    if req.MutationRate == 0 {
        req.MutationRate = d.MutationRate
    }
    if req.CrossoverRate == 0 {
        req.CrossoverRate = d.CrossoverRate
    }
    if req.EliteSize == 0 {
        req.EliteSize = d.EliteSize
    }
    if req.TournamentK == 0 {
        req.TournamentK = d.TournamentK
    }
    if req.MaxRouteKm == 0 {
        req.MaxRouteKm = d.MaxRouteKm
    }
    if req.LongLegKm == 0 {
        req.LongLegKm = d.LongLegKm
    }
    if req.RentalCapacityKg == 0 {
        req.RentalCapacityKg = d.RentalCapacityKg
    }
    if req.RentalFixedCost == 0 {
        req.RentalFixedCost = d.RentalFixedCost
    }
    if req.RentalCostPerKm == 0 {
        req.RentalCostPerKm = d.RentalCostPerKm
    }
    return req
}

func (s *Server) parameters() model.Parameters {
    s.paramsMu.Lock()
    defer s.paramsMu.Unlock()
    return s.params
}

// persistSolution writes route plans, trips and cargo assignments for
// every non-empty route, then returns the API result document.
func (s *Server) persistSolution(ctx context.Context, runID, algorithm string, req model.OptimizeRequest, depot model.Station, p opt.Problem, sol opt.Solution, m opt.Metrics, cargoVehicle map[string]string, rejectedIDs []string, rented []model.Vehicle) (model.OptimizeResult, error) {
    result := model.OptimizeResult{
        RunID:     runID,
        Algorithm: algorithm,
        Mode:      req.Mode,
        Feasible:  sol.Feasible,
        Metrics: model.OptimizeMetrics{
            Generations:  m.Generations,
            Improvements: m.Improvements,
            BestCost:     m.BestCost,
            MeanCost:     m.MeanCost,
            StddevCost:   m.StddevCost,
            EarlyStopped: m.EarlyStopped,
            MergedRoutes: m.MergedRoutes,
            ElapsedMs:    m.Elapsed.Milliseconds(),
        },
        RentedVehicles: rented,
    }

    if len(rejectedIDs) > 0 {
        if err := s.store.RejectCargos(ctx, rejectedIDs); err != nil {
            return result, err
        }
        result.RejectedCargos = rejectedIDs
    }

    vehCargos := map[string][]string{}
    for cargoID, vehID := range cargoVehicle {
        vehCargos[vehID] = append(vehCargos[vehID], cargoID)
        result.AcceptedCargos = append(result.AcceptedCargos, cargoID)
    }
    sort.Strings(result.AcceptedCargos)
    for _, ids := range vehCargos {
        sort.Strings(ids)
    }

    vehicleByID := map[string]opt.Vehicle{}
    for _, v := range p.Vehicles {
        vehicleByID[v.ID] = v
    }

    for _, plan := range sol.Plans {
        if len(plan.Order) == 0 {
            continue
        }
        v := vehicleByID[plan.VehicleID]

        dist := opt.RouteDistance(p, plan.Order)
        fuel := dist * v.CostPerKm
        var rentalCost float64
        if v.Rental {
            rentalCost = v.RentalCost
        }

        stationIDs := make([]string, 0, len(plan.Order))
        stops := make([]model.TripStop, 0, len(plan.Order))
        points := []geo.Point{{Lat: depot.Lat, Lng: depot.Lng}}
        var load float64
        var cargoCount int
        for i, idx := range plan.Order {
            st := p.Stops[idx]
            stationIDs = append(stationIDs, st.ID)
            stops = append(stops, model.TripStop{
                Seq: i + 1, StationID: st.ID, Name: st.Name,
                WeightKg: st.WeightKg, CargoCount: st.CargoCount,
            })
            points = append(points, geo.Point{Lat: st.Lat, Lng: st.Lng})
            load += st.WeightKg
            cargoCount += st.CargoCount
        }
        points = append(points, geo.Point{Lat: depot.Lat, Lng: depot.Lng})
        path := s.routeGeometry(ctx, points)

        rp, err := s.store.CreateRoutePlan(ctx, model.RoutePlan{
            RunID: runID, VehicleID: plan.VehicleID, StationIDs: stationIDs,
            DistanceKm: dist, Cost: fuel + rentalCost,
        })
        if err != nil {
            return result, err
        }
        trip, err := s.store.CreateTrip(ctx, model.Trip{
            RouteID: rp.ID, VehicleID: plan.VehicleID,
            CargoCount: cargoCount, TotalWeightKg: load, DistanceKm: dist,
            FuelCost: fuel, RentalCost: rentalCost, Stops: stops, Path: path,
        })
        if err != nil {
            return result, err
        }
        if ids := vehCargos[plan.VehicleID]; len(ids) > 0 {
            if err := s.store.AssignCargos(ctx, ids, plan.VehicleID); err != nil {
                return result, err
            }
        }

        var utilization float64
        if v.CapacityKg > 0 {
            utilization = load / v.CapacityKg
        }
        result.Routes = append(result.Routes, model.RouteDetail{
            RouteID: rp.ID, TripID: trip.ID, VehicleID: plan.VehicleID,
            VehicleName: v.Name, Rental: v.Rental, Stops: stops,
            DistanceKm: dist, Cost: fuel + rentalCost, LoadKg: load,
            CapacityKg: v.CapacityKg, Utilization: utilization, Path: path,
        })
        result.TotalDistanceKm += dist
        result.FuelCost += fuel
        result.RentalFixedCost += rentalCost
    }
    result.TotalCost = result.FuelCost + result.RentalFixedCost

    if err := s.store.SaveRunMetrics(ctx, runID, result.Metrics); err != nil {
        return result, err
    }
    return result, nil
}
