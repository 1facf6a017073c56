package store

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/google/uuid"

    "cargoroute/internal/model"
)

// Memory is the in-process Store used for tests and local runs.
type Memory struct {
    mu       sync.Mutex
    stations map[string]model.Station
    vehicles map[string]model.Vehicle
    cargos   map[string]model.Cargo
    routes   map[string]model.RoutePlan
    trips    map[string]model.Trip
    metrics  map[string]model.OptimizeMetrics

    order struct {
        stations []string
        vehicles []string
        cargos   []string
        routes   []string
        trips    []string
    }
}

func NewMemory() *Memory {
    m := &Memory{
        stations: map[string]model.Station{},
        vehicles: map[string]model.Vehicle{},
        cargos:   map[string]model.Cargo{},
        routes:   map[string]model.RoutePlan{},
        trips:    map[string]model.Trip{},
        metrics:  map[string]model.OptimizeMetrics{},
    }
    return m
}

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }

// Stations

func (m *Memory) ListStations(ctx context.Context) ([]model.Station, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := make([]model.Station, 0, len(m.stations))
    for _, id := range m.order.stations {
        out = append(out, m.stations[id])
    }
    return out, nil
}

func (m *Memory) GetStation(ctx context.Context, id string) (model.Station, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    st, ok := m.stations[id]
    if !ok {
        return model.Station{}, ErrNotFound
    }
    return st, nil
}

func (m *Memory) CreateStation(ctx context.Context, in model.StationInput) (model.Station, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    st := model.Station{ID: uuid.NewString(), Name: in.Name, Lat: in.Lat, Lng: in.Lng, IsDepot: in.IsDepot}
    m.stations[st.ID] = st
    m.order.stations = append(m.order.stations, st.ID)
    return st, nil
}

func (m *Memory) DeleteStation(ctx context.Context, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    if _, ok := m.stations[id]; !ok {
        return ErrNotFound
    }
    delete(m.stations, id)
    m.order.stations = removeID(m.order.stations, id)
    return nil
}

func (m *Memory) Depot(ctx context.Context) (model.Station, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    for _, id := range m.order.stations {
        if m.stations[id].IsDepot {
            return m.stations[id], nil
        }
    }
    return model.Station{}, ErrNotFound
}

// Vehicles

func (m *Memory) ListVehicles(ctx context.Context, includeRentals bool) ([]model.Vehicle, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := make([]model.Vehicle, 0, len(m.vehicles))
    for _, id := range m.order.vehicles {
        v := m.vehicles[id]
        if !includeRentals && v.Rental {
            continue
        }
        out = append(out, v)
    }
    return out, nil
}

func (m *Memory) GetVehicle(ctx context.Context, id string) (model.Vehicle, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    v, ok := m.vehicles[id]
    if !ok {
        return model.Vehicle{}, ErrNotFound
    }
    return v, nil
}

func (m *Memory) CreateVehicle(ctx context.Context, in model.VehicleInput) (model.Vehicle, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    costPerKm := in.CostPerKm
    if costPerKm <= 0 {
        costPerKm = 1.0
    }
    v := model.Vehicle{
        ID:         uuid.NewString(),
        Name:       in.Name,
        CapacityKg: in.CapacityKg,
        CostPerKm:  costPerKm,
        Rental:     in.Rental,
        RentalCost: in.RentalCost,
        Status:     "idle",
    }
    m.vehicles[v.ID] = v
    m.order.vehicles = append(m.order.vehicles, v.ID)
    return v, nil
}

func (m *Memory) UpdateVehicle(ctx context.Context, id string, in model.VehicleInput) (model.Vehicle, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    v, ok := m.vehicles[id]
    if !ok {
        return model.Vehicle{}, ErrNotFound
    }
    if in.Name != "" {
        v.Name = in.Name
    }
    if in.CapacityKg > 0 {
        v.CapacityKg = in.CapacityKg
    }
    if in.CostPerKm > 0 {
        v.CostPerKm = in.CostPerKm
    }
    if in.RentalCost > 0 {
        v.RentalCost = in.RentalCost
    }
    m.vehicles[id] = v
    return v, nil
}

func (m *Memory) DeleteVehicle(ctx context.Context, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    if _, ok := m.vehicles[id]; !ok {
        return ErrNotFound
    }
    delete(m.vehicles, id)
    m.order.vehicles = removeID(m.order.vehicles, id)
    return nil
}

func (m *Memory) DeleteRentals(ctx context.Context) (int, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    n := 0
    kept := m.order.vehicles[:0]
    for _, id := range m.order.vehicles {
        if m.vehicles[id].Rental {
            delete(m.vehicles, id)
            n++
            continue
        }
        kept = append(kept, id)
    }
    m.order.vehicles = kept
    return n, nil
}

func (m *Memory) SetVehicleStatus(ctx context.Context, id, status string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    v, ok := m.vehicles[id]
    if !ok {
        return ErrNotFound
    }
    v.Status = status
    m.vehicles[id] = v
    return nil
}

// Cargos

func (m *Memory) ListCargos(ctx context.Context, status string) ([]model.Cargo, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := make([]model.Cargo, 0, len(m.cargos))
    for _, id := range m.order.cargos {
        c := m.cargos[id]
        if status != "" && c.Status != status {
            continue
        }
        out = append(out, c)
    }
    return out, nil
}

func (m *Memory) GetCargo(ctx context.Context, id string) (model.Cargo, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    c, ok := m.cargos[id]
    if !ok {
        return model.Cargo{}, ErrNotFound
    }
    return c, nil
}

func (m *Memory) CreateCargo(ctx context.Context, in model.CargoInput, destStationID string) (model.Cargo, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    c := model.Cargo{
        ID:              uuid.NewString(),
        Description:     in.Description,
        WeightKg:        in.WeightKg,
        SourceStationID: in.SourceStationID,
        DestStationID:   destStationID,
        Status:          "pending",
        CreatedAt:       nowRFC3339(),
    }
    m.cargos[c.ID] = c
    m.order.cargos = append(m.order.cargos, c.ID)
    return c, nil
}

func (m *Memory) DeleteCargo(ctx context.Context, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    if _, ok := m.cargos[id]; !ok {
        return ErrNotFound
    }
    delete(m.cargos, id)
    m.order.cargos = removeID(m.order.cargos, id)
    return nil
}

func (m *Memory) DeletePendingCargos(ctx context.Context) (int, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    n := 0
    kept := m.order.cargos[:0]
    for _, id := range m.order.cargos {
        if m.cargos[id].Status == "pending" {
            delete(m.cargos, id)
            n++
            continue
        }
        kept = append(kept, id)
    }
    m.order.cargos = kept
    return n, nil
}

func (m *Memory) AssignCargos(ctx context.Context, ids []string, vehicleID string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    t := true
    for _, id := range ids {
        c, ok := m.cargos[id]
        if !ok {
            return ErrNotFound
        }
        c.VehicleID = vehicleID
        c.Accepted = &t
        m.cargos[id] = c
    }
    return nil
}

func (m *Memory) RejectCargos(ctx context.Context, ids []string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    f := false
    for _, id := range ids {
        c, ok := m.cargos[id]
        if !ok {
            return ErrNotFound
        }
        c.Accepted = &f
        c.Status = "rejected"
        c.VehicleID = ""
        m.cargos[id] = c
    }
    return nil
}

func (m *Memory) UpdateCargoStatusByVehicle(ctx context.Context, vehicleID, from, to string) (int, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    n := 0
    for id, c := range m.cargos {
        if c.VehicleID == vehicleID && c.Status == from {
            c.Status = to
            m.cargos[id] = c
            n++
        }
    }
    return n, nil
}

// Route plans

func (m *Memory) CreateRoutePlan(ctx context.Context, rp model.RoutePlan) (model.RoutePlan, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if rp.ID == "" {
        rp.ID = uuid.NewString()
    }
    if rp.Status == "" {
        rp.Status = "planned"
    }
    rp.CreatedAt = nowRFC3339()
    m.routes[rp.ID] = rp
    m.order.routes = append(m.order.routes, rp.ID)
    return rp, nil
}

func (m *Memory) ListRoutePlans(ctx context.Context, status string) ([]model.RoutePlan, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := make([]model.RoutePlan, 0, len(m.routes))
    for _, id := range m.order.routes {
        rp := m.routes[id]
        if status != "" && rp.Status != status {
            continue
        }
        out = append(out, rp)
    }
    return out, nil
}

func (m *Memory) GetRoutePlan(ctx context.Context, id string) (model.RoutePlan, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    rp, ok := m.routes[id]
    if !ok {
        return model.RoutePlan{}, ErrNotFound
    }
    return rp, nil
}

func (m *Memory) SetRouteStatus(ctx context.Context, id, status string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    rp, ok := m.routes[id]
    if !ok {
        return ErrNotFound
    }
    rp.Status = status
    m.routes[id] = rp
    return nil
}

// Trips

func (m *Memory) CreateTrip(ctx context.Context, t model.Trip) (model.Trip, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if t.ID == "" {
        t.ID = uuid.NewString()
    }
    if t.Status == "" {
        t.Status = "planned"
    }
    m.trips[t.ID] = t
    m.order.trips = append(m.order.trips, t.ID)
    return t, nil
}

func (m *Memory) ListTrips(ctx context.Context, status string) ([]model.Trip, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := make([]model.Trip, 0, len(m.trips))
    for _, id := range m.order.trips {
        t := m.trips[id]
        if status != "" && t.Status != status {
            continue
        }
        out = append(out, t)
    }
    return out, nil
}

func (m *Memory) GetTrip(ctx context.Context, id string) (model.Trip, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    t, ok := m.trips[id]
    if !ok {
        return model.Trip{}, ErrNotFound
    }
    return t, nil
}

func (m *Memory) TripsByVehicle(ctx context.Context, vehicleID string) ([]model.Trip, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    var out []model.Trip
    for _, id := range m.order.trips {
        if m.trips[id].VehicleID == vehicleID {
            out = append(out, m.trips[id])
        }
    }
    return out, nil
}

func (m *Memory) SetTripStatus(ctx context.Context, id, status string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    t, ok := m.trips[id]
    if !ok {
        return ErrNotFound
    }
    t.Status = status
    switch status {
    case "in_progress":
        t.StartedAt = nowRFC3339()
    case "completed":
        t.CompletedAt = nowRFC3339()
    }
    m.trips[id] = t
    return nil
}

// Analytics

func (m *Memory) Summary(ctx context.Context) (model.AnalyticsSummary, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    var s model.AnalyticsSummary
    s.Stations = len(m.stations)
    for _, v := range m.vehicles {
        s.Vehicles++
        if v.Rental {
            s.RentedVehicles++
        }
    }
    for _, c := range m.cargos {
        switch c.Status {
        case "pending":
            s.PendingCargos++
        case "in_transit":
            s.InTransit++
        case "delivered":
            s.Delivered++
        case "rejected":
            s.Rejected++
        }
    }
    for _, t := range m.trips {
        switch t.Status {
        case "in_progress":
            s.ActiveTrips++
        case "completed":
            s.CompletedTrips++
        }
        s.TotalDistance += t.DistanceKm
        s.TotalCost += t.FuelCost + t.RentalCost
    }
    return s, nil
}

func (m *Memory) CostBreakdown(ctx context.Context) (model.CostBreakdown, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    var cb model.CostBreakdown
    for _, t := range m.trips {
        cb.FuelCost += t.FuelCost
        cb.RentalCost += t.RentalCost
        cb.Trips++
    }
    cb.TotalCost = cb.FuelCost + cb.RentalCost
    return cb, nil
}

func (m *Memory) VehicleBreakdown(ctx context.Context) ([]model.VehicleBreakdown, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    byVehicle := map[string]*model.VehicleBreakdown{}
    for _, id := range m.order.vehicles {
        v := m.vehicles[id]
        byVehicle[id] = &model.VehicleBreakdown{VehicleID: id, Name: v.Name, Rental: v.Rental}
    }
    for _, t := range m.trips {
        vb, ok := byVehicle[t.VehicleID]
        if !ok {
            continue
        }
        vb.Trips++
        vb.CargoCount += t.CargoCount
        vb.WeightKg += t.TotalWeightKg
        vb.DistanceKm += t.DistanceKm
        vb.Cost += t.FuelCost + t.RentalCost
    }
    out := make([]model.VehicleBreakdown, 0, len(byVehicle))
    for _, id := range m.order.vehicles {
        out = append(out, *byVehicle[id])
    }
    return out, nil
}

func (m *Memory) StationSummaries(ctx context.Context) ([]model.StationSummary, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    byStation := map[string]*model.StationSummary{}
    for _, id := range m.order.stations {
        st := m.stations[id]
        if st.IsDepot {
            continue
        }
        byStation[id] = &model.StationSummary{StationID: id, Name: st.Name}
    }
    for _, c := range m.cargos {
        if c.Status != "pending" {
            continue
        }
        ss, ok := byStation[c.SourceStationID]
        if !ok {
            continue
        }
        ss.PendingCargos++
        ss.PendingKg += c.WeightKg
    }
    out := make([]model.StationSummary, 0, len(byStation))
    for _, id := range m.order.stations {
        if ss, ok := byStation[id]; ok {
            out = append(out, *ss)
        }
    }
    return out, nil
}

// Run metrics

func (m *Memory) SaveRunMetrics(ctx context.Context, runID string, om model.OptimizeMetrics) error {
    m.mu.Lock(); defer m.mu.Unlock()
    m.metrics[runID] = om
    return nil
}

func (m *Memory) RunMetrics(ctx context.Context) (map[string]model.OptimizeMetrics, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := make(map[string]model.OptimizeMetrics, len(m.metrics))
    keys := make([]string, 0, len(m.metrics))
    for k := range m.metrics {
        keys = append(keys, k)
    }
    sort.Strings(keys)
    for _, k := range keys {
        out[k] = m.metrics[k]
    }
    return out, nil
}

func removeID(ids []string, id string) []string {
    out := ids[:0]
    for _, v := range ids {
        if v != id {
            out = append(out, v)
        }
    }
    return out
}
