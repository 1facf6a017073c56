package api

import (
    "encoding/json"
    "errors"
    "net/http"
    "strconv"
    "strings"

    "cargoroute/internal/geo"
    "cargoroute/internal/model"
    "cargoroute/internal/opt"
    "cargoroute/internal/store"
)

func notFoundOr500(w http.ResponseWriter, r *http.Request, err error) {
    if errors.Is(err, store.ErrNotFound) {
        writeProblem(w, http.StatusNotFound, "not found", err.Error(), r.URL.Path)
        return
    }
    writeProblem(w, http.StatusInternalServerError, "store error", err.Error(), r.URL.Path)
}

// Stations

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodGet:
        stations, err := s.store.ListStations(r.Context())
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"stations": stations})
    case http.MethodPost:
        var in model.StationInput
        if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
            writeProblem(w, http.StatusBadRequest, "invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if err := validateStationInput(in); err != nil {
            writeProblem(w, http.StatusBadRequest, "invalid station", err.Error(), r.URL.Path)
            return
        }
        if in.IsDepot {
            if _, err := s.store.Depot(r.Context()); err == nil {
                writeProblem(w, http.StatusConflict, "depot exists", "exactly one depot is allowed", r.URL.Path)
                return
            }
        }
        st, err := s.store.CreateStation(r.Context(), in)
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusCreated, st)
    default:
        writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
    }
}

func (s *Server) handleStationByID(w http.ResponseWriter, r *http.Request) {
    id := strings.TrimPrefix(r.URL.Path, "/api/stations/")
    if id == "" || strings.Contains(id, "/") {
        writeProblem(w, http.StatusNotFound, "not found", "", r.URL.Path)
        return
    }
    switch r.Method {
    case http.MethodGet:
        st, err := s.store.GetStation(r.Context(), id)
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, st)
    case http.MethodDelete:
        if err := s.store.DeleteStation(r.Context(), id); err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
    default:
        writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
    }
}

// Vehicles

func (s *Server) handleVehicles(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodGet:
        includeRentals := r.URL.Query().Get("includeRentals") != "false"
        vehicles, err := s.store.ListVehicles(r.Context(), includeRentals)
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"vehicles": vehicles})
    case http.MethodPost:
        var in model.VehicleInput
        if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
            writeProblem(w, http.StatusBadRequest, "invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if err := validateVehicleInput(in); err != nil {
            writeProblem(w, http.StatusBadRequest, "invalid vehicle", err.Error(), r.URL.Path)
            return
        }
        v, err := s.store.CreateVehicle(r.Context(), in)
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusCreated, v)
    default:
        writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
    }
}

// handleVehicleRent creates a rental with the standard rental policy
// when fields are omitted.
func (s *Server) handleVehicleRent(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
        return
    }
    var in model.VehicleInput
    if r.ContentLength > 0 {
        if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
            writeProblem(w, http.StatusBadRequest, "invalid JSON", err.Error(), r.URL.Path)
            return
        }
    }
    if in.Name == "" {
        in.Name = "Kiralık Araç"
    }
    if in.CapacityKg <= 0 {
        in.CapacityKg = opt.DefaultRentalCapacityKg
    }
    if in.RentalCost <= 0 {
        in.RentalCost = opt.DefaultRentalFixedCost
    }
    if in.CostPerKm <= 0 {
        in.CostPerKm = opt.DefaultRentalCostPerKm
    }
    in.Rental = true
    v, err := s.store.CreateVehicle(r.Context(), in)
    if err != nil {
        notFoundOr500(w, r, err)
        return
    }
    writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleVehicleRentalBulk(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodDelete {
        writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
        return
    }
    n, err := s.store.DeleteRentals(r.Context())
    if err != nil {
        notFoundOr500(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

func (s *Server) handleVehicleByID(w http.ResponseWriter, r *http.Request) {
    id := strings.TrimPrefix(r.URL.Path, "/api/vehicles/")
    if id == "" || strings.Contains(id, "/") {
        writeProblem(w, http.StatusNotFound, "not found", "", r.URL.Path)
        return
    }
    switch r.Method {
    case http.MethodGet:
        v, err := s.store.GetVehicle(r.Context(), id)
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, v)
    case http.MethodPut:
        var in model.VehicleInput
        if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
            writeProblem(w, http.StatusBadRequest, "invalid JSON", err.Error(), r.URL.Path)
            return
        }
        v, err := s.store.UpdateVehicle(r.Context(), id, in)
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, v)
    case http.MethodDelete:
        if err := s.store.DeleteVehicle(r.Context(), id); err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
    default:
        writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
    }
}

// Cargos

func (s *Server) handleCargos(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodGet:
        cargos, err := s.store.ListCargos(r.Context(), r.URL.Query().Get("status"))
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"cargos": cargos})
    case http.MethodPost:
        var in model.CargoInput
        if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
            writeProblem(w, http.StatusBadRequest, "invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if err := validateCargoInput(in); err != nil {
            writeProblem(w, http.StatusBadRequest, "invalid cargo", err.Error(), r.URL.Path)
            return
        }
        src, err := s.store.GetStation(r.Context(), in.SourceStationID)
        if err != nil {
            writeProblem(w, http.StatusBadRequest, "invalid cargo", "source station not found", r.URL.Path)
            return
        }
        if src.IsDepot {
            writeProblem(w, http.StatusBadRequest, "invalid cargo", "cargo cannot originate at the depot", r.URL.Path)
            return
        }
        depot, err := s.store.Depot(r.Context())
        if err != nil {
            writeProblem(w, http.StatusConflict, "no depot", "create a depot station first", r.URL.Path)
            return
        }
        c, err := s.store.CreateCargo(r.Context(), in, depot.ID)
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusCreated, c)
    default:
        writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
    }
}

func (s *Server) handleCargosPending(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
        return
    }
    cargos, err := s.store.ListCargos(r.Context(), "pending")
    if err != nil {
        notFoundOr500(w, r, err)
        return
    }
    var total float64
    for _, c := range cargos {
        total += c.WeightKg
    }
    writeJSON(w, http.StatusOK, map[string]any{"cargos": cargos, "totalWeightKg": total})
}

func (s *Server) handleCargoByID(w http.ResponseWriter, r *http.Request) {
    rest := strings.TrimPrefix(r.URL.Path, "/api/cargos/")
    parts := strings.Split(rest, "/")
    id := parts[0]
    if id == "" {
        writeProblem(w, http.StatusNotFound, "not found", "", r.URL.Path)
        return
    }
    if len(parts) == 2 && parts[1] == "track" && r.Method == http.MethodGet {
        s.handleCargoTrack(w, r, id)
        return
    }
    if len(parts) != 1 {
        writeProblem(w, http.StatusNotFound, "not found", "", r.URL.Path)
        return
    }
    switch r.Method {
    case http.MethodGet:
        c, err := s.store.GetCargo(r.Context(), id)
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, c)
    case http.MethodDelete:
        if err := s.store.DeleteCargo(r.Context(), id); err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
    default:
        writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
    }
}

// handleCargoTrack returns the cargo plus, when a vehicle is assigned,
// the trip carrying it and that trip's display path.
func (s *Server) handleCargoTrack(w http.ResponseWriter, r *http.Request, id string) {
    c, err := s.store.GetCargo(r.Context(), id)
    if err != nil {
        notFoundOr500(w, r, err)
        return
    }
    track := model.CargoTrack{Cargo: c}
    switch c.Status {
    case "pending":
        track.Message = "awaiting optimization"
    case "rejected":
        track.Message = "rejected by capacity planning"
    case "delivered":
        track.Message = "delivered to depot"
    }
    if c.VehicleID != "" {
        trips, err := s.store.TripsByVehicle(r.Context(), c.VehicleID)
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        for i := len(trips) - 1; i >= 0; i-- {
            t := trips[i]
            if t.Status == "completed" && c.Status != "delivered" {
                continue
            }
            for _, stop := range t.Stops {
                if stop.StationID == c.SourceStationID {
                    trip := t
                    track.Trip = &trip
                    track.Path = t.Path
                    break
                }
            }
            if track.Trip != nil {
                break
            }
        }
    }
    writeJSON(w, http.StatusOK, track)
}

// Routes

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
        return
    }
    routes, err := s.store.ListRoutePlans(r.Context(), r.URL.Query().Get("status"))
    if err != nil {
        notFoundOr500(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"routes": routes})
}

func (s *Server) handleRoutesActive(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
        return
    }
    routes, err := s.store.ListRoutePlans(r.Context(), "in_progress")
    if err != nil {
        notFoundOr500(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"routes": routes})
}

func (s *Server) handleRouteByID(w http.ResponseWriter, r *http.Request) {
    rest := strings.TrimPrefix(r.URL.Path, "/api/routes/")
    parts := strings.Split(rest, "/")
    id := parts[0]
    if id == "" {
        writeProblem(w, http.StatusNotFound, "not found", "", r.URL.Path)
        return
    }
    if len(parts) == 2 && r.Method == http.MethodPost {
        switch parts[1] {
        case "start":
            s.transitionRoute(w, r, id, "in_progress")
            return
        case "complete":
            s.transitionRoute(w, r, id, "completed")
            return
        }
    }
    if len(parts) == 1 && r.Method == http.MethodGet {
        rp, err := s.store.GetRoutePlan(r.Context(), id)
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, rp)
        return
    }
    writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
}

// transitionRoute moves a route and its trip through the lifecycle and
// cascades status to the vehicle and its assigned cargo.
func (s *Server) transitionRoute(w http.ResponseWriter, r *http.Request, id, status string) {
    ctx := r.Context()
    rp, err := s.store.GetRoutePlan(ctx, id)
    if err != nil {
        notFoundOr500(w, r, err)
        return
    }
    if status == "in_progress" && rp.Status != "planned" {
        writeProblem(w, http.StatusConflict, "invalid transition", "route is "+rp.Status, r.URL.Path)
        return
    }
    if status == "completed" && rp.Status != "in_progress" {
        writeProblem(w, http.StatusConflict, "invalid transition", "route is "+rp.Status, r.URL.Path)
        return
    }
    if err := s.store.SetRouteStatus(ctx, id, status); err != nil {
        notFoundOr500(w, r, err)
        return
    }

    trips, err := s.store.TripsByVehicle(ctx, rp.VehicleID)
    if err != nil {
        notFoundOr500(w, r, err)
        return
    }
    var tripID string
    for _, t := range trips {
        if t.RouteID == rp.ID {
            tripID = t.ID
            if err := s.store.SetTripStatus(ctx, t.ID, status); err != nil {
                notFoundOr500(w, r, err)
                return
            }
            break
        }
    }

    switch status {
    case "in_progress":
        _ = s.store.SetVehicleStatus(ctx, rp.VehicleID, "on_trip")
        _, _ = s.store.UpdateCargoStatusByVehicle(ctx, rp.VehicleID, "pending", "in_transit")
        s.broker.Publish(tripID, Event{Type: "trip.started", Data: map[string]any{"routeId": rp.ID, "tripId": tripID, "vehicleId": rp.VehicleID}})
    case "completed":
        _ = s.store.SetVehicleStatus(ctx, rp.VehicleID, "idle")
        _, _ = s.store.UpdateCargoStatusByVehicle(ctx, rp.VehicleID, "in_transit", "delivered")
        s.broker.Publish(tripID, Event{Type: "trip.completed", Data: map[string]any{"routeId": rp.ID, "tripId": tripID, "vehicleId": rp.VehicleID}})
    }

    rp.Status = status
    writeJSON(w, http.StatusOK, rp)
}

// Trips

func (s *Server) handleTrips(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
        return
    }
    trips, err := s.store.ListTrips(r.Context(), r.URL.Query().Get("status"))
    if err != nil {
        notFoundOr500(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"trips": trips})
}

func (s *Server) handleTripsActive(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
        return
    }
    trips, err := s.store.ListTrips(r.Context(), "in_progress")
    if err != nil {
        notFoundOr500(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"trips": trips})
}

func (s *Server) handleTripByID(w http.ResponseWriter, r *http.Request) {
    rest := strings.TrimPrefix(r.URL.Path, "/api/trips/")
    parts := strings.Split(rest, "/")
    if parts[0] == "by-vehicle" && len(parts) == 2 && r.Method == http.MethodGet {
        trips, err := s.store.TripsByVehicle(r.Context(), parts[1])
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"trips": trips})
        return
    }
    id := parts[0]
    if id == "" {
        writeProblem(w, http.StatusNotFound, "not found", "", r.URL.Path)
        return
    }
    if len(parts) == 2 && r.Method == http.MethodPost {
        t, err := s.store.GetTrip(r.Context(), id)
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        switch parts[1] {
        case "start":
            s.transitionRoute(w, r, t.RouteID, "in_progress")
            return
        case "complete":
            s.transitionRoute(w, r, t.RouteID, "completed")
            return
        }
    }
    if len(parts) == 1 && r.Method == http.MethodGet {
        t, err := s.store.GetTrip(r.Context(), id)
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, t)
        return
    }
    writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
}

// Distance matrix

func (s *Server) handleDistanceMatrix(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
        return
    }
    stations, err := s.store.ListStations(r.Context())
    if err != nil {
        notFoundOr500(w, r, err)
        return
    }
    sites := make([]geo.Site, 0, len(stations))
    names := map[string]string{}
    for _, st := range stations {
        sites = append(sites, geo.Site{ID: st.ID, Name: st.Name, Pt: geo.Point{Lat: st.Lat, Lng: st.Lng}})
        names[st.ID] = st.Name
    }
    oracle, err := geo.NewOracle(sites, nil)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "oracle build failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"stations": names, "matrixKm": oracle.Matrix()})
}

// Analytics

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
        return
    }
    view := strings.TrimPrefix(r.URL.Path, "/api/analytics/")
    ctx := r.Context()
    switch view {
    case "summary":
        out, err := s.store.Summary(ctx)
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, out)
    case "cost-breakdown":
        out, err := s.store.CostBreakdown(ctx)
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, out)
    case "vehicle-breakdown":
        out, err := s.store.VehicleBreakdown(ctx)
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"vehicles": out})
    case "station-summary":
        out, err := s.store.StationSummaries(ctx)
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"stations": out})
    case "runs":
        out, err := s.store.RunMetrics(ctx)
        if err != nil {
            notFoundOr500(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"runs": out})
    default:
        writeProblem(w, http.StatusNotFound, "unknown analytics view", view, r.URL.Path)
    }
}

// Parameters

func (s *Server) handleParameters(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodGet:
        writeJSON(w, http.StatusOK, s.parameters())
    case http.MethodPut:
        var in model.Parameters
        if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
            writeProblem(w, http.StatusBadRequest, "invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if in.MutationRate < 0 || in.MutationRate > 1 || in.CrossoverRate < 0 || in.CrossoverRate > 1 {
            writeProblem(w, http.StatusBadRequest, "invalid parameters", "rates must be in [0,1]", r.URL.Path)
            return
        }
        cur := s.parameters()
        merged := mergeDefaults(model.OptimizeRequest{
            PopulationSize: in.PopulationSize, Generations: in.Generations,
            MutationRate: in.MutationRate, CrossoverRate: in.CrossoverRate,
            EliteSize: in.EliteSize, TournamentK: in.TournamentK,
            MaxRouteKm: in.MaxRouteKm, LongLegKm: in.LongLegKm,
            RentalCapacityKg: in.RentalCapacityKg, RentalFixedCost: in.RentalFixedCost,
            RentalCostPerKm: in.RentalCostPerKm,
        }, cur)
        next := model.Parameters{
            PopulationSize: merged.PopulationSize, Generations: merged.Generations,
            MutationRate: merged.MutationRate, CrossoverRate: merged.CrossoverRate,
            EliteSize: merged.EliteSize, TournamentK: merged.TournamentK,
            MaxRouteKm: merged.MaxRouteKm, LongLegKm: merged.LongLegKm,
            RentalCapacityKg: merged.RentalCapacityKg, RentalFixedCost: merged.RentalFixedCost,
            RentalCostPerKm: merged.RentalCostPerKm,
        }
        s.paramsMu.Lock()
        s.params = next
        s.paramsMu.Unlock()
        writeJSON(w, http.StatusOK, next)
    default:
        writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
    }
}

// Scenarios

func (s *Server) handleScenariosList(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"scenarios": store.Scenarios()})
}

func (s *Server) handleScenarioLoad(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
        return
    }
    idStr := strings.TrimPrefix(r.URL.Path, "/api/scenarios/load/")
    id, err := strconv.Atoi(idStr)
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "invalid scenario id", idStr, r.URL.Path)
        return
    }
    sc, inserted, err := store.LoadScenario(r.Context(), s.store, id)
    if err != nil {
        notFoundOr500(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"scenario": sc, "cargosLoaded": inserted})
}
