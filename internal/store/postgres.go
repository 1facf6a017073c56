package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    "github.com/google/uuid"
    _ "github.com/jackc/pgx/v5/stdlib"

    "cargoroute/internal/model"
)

// Postgres implements Store on database/sql with the pgx driver.
type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    db.SetMaxOpenConns(10)
    db.SetConnMaxLifetime(30 * time.Minute)
    if err := db.Ping(); err != nil {
        return nil, fmt.Errorf("postgres ping: %w", err)
    }
    p := &Postgres{db: db}
    if err := p.migrate(context.Background()); err != nil {
        return nil, err
    }
    return p, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) migrate(ctx context.Context) error {
    stmts := []string{
        `CREATE TABLE IF NOT EXISTS stations (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            lat DOUBLE PRECISION NOT NULL,
            lng DOUBLE PRECISION NOT NULL,
            is_depot BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
        `CREATE TABLE IF NOT EXISTS vehicles (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            capacity_kg DOUBLE PRECISION NOT NULL,
            cost_per_km DOUBLE PRECISION NOT NULL DEFAULT 1.0,
            rental BOOLEAN NOT NULL DEFAULT FALSE,
            rental_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'idle',
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
        `CREATE TABLE IF NOT EXISTS cargos (
            id TEXT PRIMARY KEY,
            description TEXT NOT NULL DEFAULT '',
            weight_kg DOUBLE PRECISION NOT NULL,
            source_station_id TEXT NOT NULL REFERENCES stations(id),
            dest_station_id TEXT NOT NULL REFERENCES stations(id),
            status TEXT NOT NULL DEFAULT 'pending',
            accepted BOOLEAN,
            vehicle_id TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
        `CREATE TABLE IF NOT EXISTS route_plans (
            id TEXT PRIMARY KEY,
            run_id TEXT NOT NULL,
            vehicle_id TEXT NOT NULL,
            station_ids JSONB NOT NULL,
            distance_km DOUBLE PRECISION NOT NULL,
            cost DOUBLE PRECISION NOT NULL,
            status TEXT NOT NULL DEFAULT 'planned',
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
        `CREATE TABLE IF NOT EXISTS trips (
            id TEXT PRIMARY KEY,
            route_id TEXT NOT NULL,
            vehicle_id TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'planned',
            cargo_count INT NOT NULL DEFAULT 0,
            total_weight_kg DOUBLE PRECISION NOT NULL DEFAULT 0,
            distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
            fuel_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
            rental_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
            stops JSONB NOT NULL DEFAULT '[]',
            path JSONB NOT NULL DEFAULT '[]',
            started_at TIMESTAMPTZ,
            completed_at TIMESTAMPTZ
        )`,
        `CREATE TABLE IF NOT EXISTS run_metrics (
            run_id TEXT PRIMARY KEY,
            doc JSONB NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
        `CREATE INDEX IF NOT EXISTS idx_cargos_status ON cargos(status)`,
        `CREATE INDEX IF NOT EXISTS idx_trips_vehicle ON trips(vehicle_id)`,
    }
    for _, s := range stmts {
        if _, err := p.db.ExecContext(ctx, s); err != nil {
            return fmt.Errorf("migrate: %w", err)
        }
    }
    return nil
}

// Stations

func (p *Postgres) ListStations(ctx context.Context) ([]model.Station, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT id, name, lat, lng, is_depot FROM stations ORDER BY created_at, id`)
    if err != nil {
        return nil, err
    }
    defer func() { _ = rows.Close() }()
    var out []model.Station
    for rows.Next() {
        var st model.Station
        if err := rows.Scan(&st.ID, &st.Name, &st.Lat, &st.Lng, &st.IsDepot); err != nil {
            return nil, err
        }
        out = append(out, st)
    }
    return out, rows.Err()
}

func (p *Postgres) GetStation(ctx context.Context, id string) (model.Station, error) {
    var st model.Station
    err := p.db.QueryRowContext(ctx, `SELECT id, name, lat, lng, is_depot FROM stations WHERE id=$1`, id).
        Scan(&st.ID, &st.Name, &st.Lat, &st.Lng, &st.IsDepot)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Station{}, ErrNotFound
    }
    return st, err
}

func (p *Postgres) CreateStation(ctx context.Context, in model.StationInput) (model.Station, error) {
    st := model.Station{ID: uuid.NewString(), Name: in.Name, Lat: in.Lat, Lng: in.Lng, IsDepot: in.IsDepot}
    _, err := p.db.ExecContext(ctx, `INSERT INTO stations (id, name, lat, lng, is_depot) VALUES ($1,$2,$3,$4,$5)`,
        st.ID, st.Name, st.Lat, st.Lng, st.IsDepot)
    return st, err
}

func (p *Postgres) DeleteStation(ctx context.Context, id string) error {
    res, err := p.db.ExecContext(ctx, `DELETE FROM stations WHERE id=$1`, id)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrNotFound
    }
    return nil
}

func (p *Postgres) Depot(ctx context.Context) (model.Station, error) {
    var st model.Station
    err := p.db.QueryRowContext(ctx, `SELECT id, name, lat, lng, is_depot FROM stations WHERE is_depot LIMIT 1`).
        Scan(&st.ID, &st.Name, &st.Lat, &st.Lng, &st.IsDepot)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Station{}, ErrNotFound
    }
    return st, err
}

// Vehicles

func (p *Postgres) ListVehicles(ctx context.Context, includeRentals bool) ([]model.Vehicle, error) {
    q := `SELECT id, name, capacity_kg, cost_per_km, rental, rental_cost, status FROM vehicles`
    if !includeRentals {
        q += ` WHERE NOT rental`
    }
    q += ` ORDER BY created_at, id`
    rows, err := p.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer func() { _ = rows.Close() }()
    var out []model.Vehicle
    for rows.Next() {
        var v model.Vehicle
        if err := rows.Scan(&v.ID, &v.Name, &v.CapacityKg, &v.CostPerKm, &v.Rental, &v.RentalCost, &v.Status); err != nil {
            return nil, err
        }
        out = append(out, v)
    }
    return out, rows.Err()
}

func (p *Postgres) GetVehicle(ctx context.Context, id string) (model.Vehicle, error) {
    var v model.Vehicle
    err := p.db.QueryRowContext(ctx, `SELECT id, name, capacity_kg, cost_per_km, rental, rental_cost, status FROM vehicles WHERE id=$1`, id).
        Scan(&v.ID, &v.Name, &v.CapacityKg, &v.CostPerKm, &v.Rental, &v.RentalCost, &v.Status)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Vehicle{}, ErrNotFound
    }
    return v, err
}

func (p *Postgres) CreateVehicle(ctx context.Context, in model.VehicleInput) (model.Vehicle, error) {
    costPerKm := in.CostPerKm
    if costPerKm <= 0 {
        costPerKm = 1.0
    }
    v := model.Vehicle{
        ID: uuid.NewString(), Name: in.Name, CapacityKg: in.CapacityKg,
        CostPerKm: costPerKm, Rental: in.Rental, RentalCost: in.RentalCost, Status: "idle",
    }
    _, err := p.db.ExecContext(ctx,
        `INSERT INTO vehicles (id, name, capacity_kg, cost_per_km, rental, rental_cost, status) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
        v.ID, v.Name, v.CapacityKg, v.CostPerKm, v.Rental, v.RentalCost, v.Status)
    return v, err
}

func (p *Postgres) UpdateVehicle(ctx context.Context, id string, in model.VehicleInput) (model.Vehicle, error) {
    v, err := p.GetVehicle(ctx, id)
    if err != nil {
        return model.Vehicle{}, err
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
    _, err = p.db.ExecContext(ctx,
        `UPDATE vehicles SET name=$2, capacity_kg=$3, cost_per_km=$4, rental_cost=$5 WHERE id=$1`,
        id, v.Name, v.CapacityKg, v.CostPerKm, v.RentalCost)
    return v, err
}

func (p *Postgres) DeleteVehicle(ctx context.Context, id string) error {
    res, err := p.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id=$1`, id)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrNotFound
    }
    return nil
}

func (p *Postgres) DeleteRentals(ctx context.Context) (int, error) {
    res, err := p.db.ExecContext(ctx, `DELETE FROM vehicles WHERE rental`)
    if err != nil {
        return 0, err
    }
    n, _ := res.RowsAffected()
    return int(n), nil
}

func (p *Postgres) SetVehicleStatus(ctx context.Context, id, status string) error {
    res, err := p.db.ExecContext(ctx, `UPDATE vehicles SET status=$2 WHERE id=$1`, id, status)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrNotFound
    }
    return nil
}

// Cargos

func scanCargo(row interface{ Scan(...any) error }) (model.Cargo, error) {
    var c model.Cargo
    var accepted sql.NullBool
    var vehicleID sql.NullString
    var created time.Time
    err := row.Scan(&c.ID, &c.Description, &c.WeightKg, &c.SourceStationID, &c.DestStationID,
        &c.Status, &accepted, &vehicleID, &created)
    if err != nil {
        return model.Cargo{}, err
    }
    if accepted.Valid {
        c.Accepted = &accepted.Bool
    }
    if vehicleID.Valid {
        c.VehicleID = vehicleID.String
    }
    c.CreatedAt = created.UTC().Format(time.RFC3339)
    return c, nil
}

const cargoCols = `id, description, weight_kg, source_station_id, dest_station_id, status, accepted, vehicle_id, created_at`

func (p *Postgres) ListCargos(ctx context.Context, status string) ([]model.Cargo, error) {
    q := `SELECT ` + cargoCols + ` FROM cargos`
    var args []any
    if status != "" {
        q += ` WHERE status=$1`
        args = append(args, status)
    }
    q += ` ORDER BY created_at, id`
    rows, err := p.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer func() { _ = rows.Close() }()
    var out []model.Cargo
    for rows.Next() {
        c, err := scanCargo(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, c)
    }
    return out, rows.Err()
}

func (p *Postgres) GetCargo(ctx context.Context, id string) (model.Cargo, error) {
    c, err := scanCargo(p.db.QueryRowContext(ctx, `SELECT `+cargoCols+` FROM cargos WHERE id=$1`, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Cargo{}, ErrNotFound
    }
    return c, err
}

func (p *Postgres) CreateCargo(ctx context.Context, in model.CargoInput, destStationID string) (model.Cargo, error) {
    c := model.Cargo{
        ID: uuid.NewString(), Description: in.Description, WeightKg: in.WeightKg,
        SourceStationID: in.SourceStationID, DestStationID: destStationID,
        Status: "pending", CreatedAt: time.Now().UTC().Format(time.RFC3339),
    }
    _, err := p.db.ExecContext(ctx,
        `INSERT INTO cargos (id, description, weight_kg, source_station_id, dest_station_id, status) VALUES ($1,$2,$3,$4,$5,$6)`,
        c.ID, c.Description, c.WeightKg, c.SourceStationID, c.DestStationID, c.Status)
    return c, err
}

func (p *Postgres) DeleteCargo(ctx context.Context, id string) error {
    res, err := p.db.ExecContext(ctx, `DELETE FROM cargos WHERE id=$1`, id)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrNotFound
    }
    return nil
}

func (p *Postgres) DeletePendingCargos(ctx context.Context) (int, error) {
    res, err := p.db.ExecContext(ctx, `DELETE FROM cargos WHERE status='pending'`)
    if err != nil {
        return 0, err
    }
    n, _ := res.RowsAffected()
    return int(n), nil
}

func (p *Postgres) AssignCargos(ctx context.Context, ids []string, vehicleID string) error {
    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    defer func() { _ = tx.Rollback() }()
    for _, id := range ids {
        res, err := tx.ExecContext(ctx, `UPDATE cargos SET vehicle_id=$2, accepted=TRUE WHERE id=$1`, id, vehicleID)
        if err != nil {
            return err
        }
        if n, _ := res.RowsAffected(); n == 0 {
            return ErrNotFound
        }
    }
    return tx.Commit()
}

func (p *Postgres) RejectCargos(ctx context.Context, ids []string) error {
    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    defer func() { _ = tx.Rollback() }()
    for _, id := range ids {
        res, err := tx.ExecContext(ctx, `UPDATE cargos SET accepted=FALSE, status='rejected', vehicle_id=NULL WHERE id=$1`, id)
        if err != nil {
            return err
        }
        if n, _ := res.RowsAffected(); n == 0 {
            return ErrNotFound
        }
    }
    return tx.Commit()
}

func (p *Postgres) UpdateCargoStatusByVehicle(ctx context.Context, vehicleID, from, to string) (int, error) {
    res, err := p.db.ExecContext(ctx, `UPDATE cargos SET status=$3 WHERE vehicle_id=$1 AND status=$2`, vehicleID, from, to)
    if err != nil {
        return 0, err
    }
    n, _ := res.RowsAffected()
    return int(n), nil
}

// Route plans

func (p *Postgres) CreateRoutePlan(ctx context.Context, rp model.RoutePlan) (model.RoutePlan, error) {
    if rp.ID == "" {
        rp.ID = uuid.NewString()
    }
    if rp.Status == "" {
        rp.Status = "planned"
    }
    rp.CreatedAt = time.Now().UTC().Format(time.RFC3339)
    ids, err := json.Marshal(rp.StationIDs)
    if err != nil {
        return model.RoutePlan{}, err
    }
    _, err = p.db.ExecContext(ctx,
        `INSERT INTO route_plans (id, run_id, vehicle_id, station_ids, distance_km, cost, status) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
        rp.ID, rp.RunID, rp.VehicleID, ids, rp.DistanceKm, rp.Cost, rp.Status)
    return rp, err
}

func (p *Postgres) ListRoutePlans(ctx context.Context, status string) ([]model.RoutePlan, error) {
    q := `SELECT id, run_id, vehicle_id, station_ids, distance_km, cost, status, created_at FROM route_plans`
    var args []any
    if status != "" {
        q += ` WHERE status=$1`
        args = append(args, status)
    }
    q += ` ORDER BY created_at DESC, id`
    rows, err := p.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer func() { _ = rows.Close() }()
    var out []model.RoutePlan
    for rows.Next() {
        rp, err := scanRoutePlan(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, rp)
    }
    return out, rows.Err()
}

func scanRoutePlan(row interface{ Scan(...any) error }) (model.RoutePlan, error) {
    var rp model.RoutePlan
    var ids []byte
    var created time.Time
    if err := row.Scan(&rp.ID, &rp.RunID, &rp.VehicleID, &ids, &rp.DistanceKm, &rp.Cost, &rp.Status, &created); err != nil {
        return model.RoutePlan{}, err
    }
    if err := json.Unmarshal(ids, &rp.StationIDs); err != nil {
        return model.RoutePlan{}, err
    }
    rp.CreatedAt = created.UTC().Format(time.RFC3339)
    return rp, nil
}

func (p *Postgres) GetRoutePlan(ctx context.Context, id string) (model.RoutePlan, error) {
    rp, err := scanRoutePlan(p.db.QueryRowContext(ctx,
        `SELECT id, run_id, vehicle_id, station_ids, distance_km, cost, status, created_at FROM route_plans WHERE id=$1`, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.RoutePlan{}, ErrNotFound
    }
    return rp, err
}

func (p *Postgres) SetRouteStatus(ctx context.Context, id, status string) error {
    res, err := p.db.ExecContext(ctx, `UPDATE route_plans SET status=$2 WHERE id=$1`, id, status)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrNotFound
    }
    return nil
}

// Trips

const tripCols = `id, route_id, vehicle_id, status, cargo_count, total_weight_kg, distance_km, fuel_cost, rental_cost, stops, path, started_at, completed_at`

func (p *Postgres) CreateTrip(ctx context.Context, t model.Trip) (model.Trip, error) {
    if t.ID == "" {
        t.ID = uuid.NewString()
    }
    if t.Status == "" {
        t.Status = "planned"
    }
    stops, err := json.Marshal(t.Stops)
    if err != nil {
        return model.Trip{}, err
    }
    path, err := json.Marshal(t.Path)
    if err != nil {
        return model.Trip{}, err
    }
    _, err = p.db.ExecContext(ctx,
        `INSERT INTO trips (id, route_id, vehicle_id, status, cargo_count, total_weight_kg, distance_km, fuel_cost, rental_cost, stops, path)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
        t.ID, t.RouteID, t.VehicleID, t.Status, t.CargoCount, t.TotalWeightKg, t.DistanceKm, t.FuelCost, t.RentalCost, stops, path)
    return t, err
}

func scanTrip(row interface{ Scan(...any) error }) (model.Trip, error) {
    var t model.Trip
    var stops, path []byte
    var started, completed sql.NullTime
    if err := row.Scan(&t.ID, &t.RouteID, &t.VehicleID, &t.Status, &t.CargoCount, &t.TotalWeightKg,
        &t.DistanceKm, &t.FuelCost, &t.RentalCost, &stops, &path, &started, &completed); err != nil {
        return model.Trip{}, err
    }
    if err := json.Unmarshal(stops, &t.Stops); err != nil {
        return model.Trip{}, err
    }
    if err := json.Unmarshal(path, &t.Path); err != nil {
        return model.Trip{}, err
    }
    if started.Valid {
        t.StartedAt = started.Time.UTC().Format(time.RFC3339)
    }
    if completed.Valid {
        t.CompletedAt = completed.Time.UTC().Format(time.RFC3339)
    }
    return t, nil
}

func (p *Postgres) ListTrips(ctx context.Context, status string) ([]model.Trip, error) {
    q := `SELECT ` + tripCols + ` FROM trips`
    var args []any
    if status != "" {
        q += ` WHERE status=$1`
        args = append(args, status)
    }
    q += ` ORDER BY id`
    rows, err := p.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer func() { _ = rows.Close() }()
    var out []model.Trip
    for rows.Next() {
        t, err := scanTrip(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, t)
    }
    return out, rows.Err()
}

func (p *Postgres) GetTrip(ctx context.Context, id string) (model.Trip, error) {
    t, err := scanTrip(p.db.QueryRowContext(ctx, `SELECT `+tripCols+` FROM trips WHERE id=$1`, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Trip{}, ErrNotFound
    }
    return t, err
}

func (p *Postgres) TripsByVehicle(ctx context.Context, vehicleID string) ([]model.Trip, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT `+tripCols+` FROM trips WHERE vehicle_id=$1 ORDER BY id`, vehicleID)
    if err != nil {
        return nil, err
    }
    defer func() { _ = rows.Close() }()
    var out []model.Trip
    for rows.Next() {
        t, err := scanTrip(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, t)
    }
    return out, rows.Err()
}

func (p *Postgres) SetTripStatus(ctx context.Context, id, status string) error {
    q := `UPDATE trips SET status=$2 WHERE id=$1`
    switch status {
    case "in_progress":
        q = `UPDATE trips SET status=$2, started_at=now() WHERE id=$1`
    case "completed":
        q = `UPDATE trips SET status=$2, completed_at=now() WHERE id=$1`
    }
    res, err := p.db.ExecContext(ctx, q, id, status)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrNotFound
    }
    return nil
}

// Analytics

func (p *Postgres) Summary(ctx context.Context) (model.AnalyticsSummary, error) {
    var s model.AnalyticsSummary
    err := p.db.QueryRowContext(ctx, `
        SELECT
            (SELECT count(*) FROM stations),
            (SELECT count(*) FROM vehicles),
            (SELECT count(*) FROM vehicles WHERE rental),
            (SELECT count(*) FROM cargos WHERE status='pending'),
            (SELECT count(*) FROM cargos WHERE status='in_transit'),
            (SELECT count(*) FROM cargos WHERE status='delivered'),
            (SELECT count(*) FROM cargos WHERE status='rejected'),
            (SELECT count(*) FROM trips WHERE status='in_progress'),
            (SELECT count(*) FROM trips WHERE status='completed'),
            COALESCE((SELECT sum(distance_km) FROM trips), 0),
            COALESCE((SELECT sum(fuel_cost + rental_cost) FROM trips), 0)
    `).Scan(&s.Stations, &s.Vehicles, &s.RentedVehicles, &s.PendingCargos, &s.InTransit,
        &s.Delivered, &s.Rejected, &s.ActiveTrips, &s.CompletedTrips, &s.TotalDistance, &s.TotalCost)
    return s, err
}

func (p *Postgres) CostBreakdown(ctx context.Context) (model.CostBreakdown, error) {
    var cb model.CostBreakdown
    err := p.db.QueryRowContext(ctx,
        `SELECT COALESCE(sum(fuel_cost),0), COALESCE(sum(rental_cost),0), count(*) FROM trips`).
        Scan(&cb.FuelCost, &cb.RentalCost, &cb.Trips)
    cb.TotalCost = cb.FuelCost + cb.RentalCost
    return cb, err
}

func (p *Postgres) VehicleBreakdown(ctx context.Context) ([]model.VehicleBreakdown, error) {
    rows, err := p.db.QueryContext(ctx, `
        SELECT v.id, v.name, v.rental,
               count(t.id),
               COALESCE(sum(t.cargo_count),0),
               COALESCE(sum(t.total_weight_kg),0),
               COALESCE(sum(t.distance_km),0),
               COALESCE(sum(t.fuel_cost + t.rental_cost),0)
        FROM vehicles v LEFT JOIN trips t ON t.vehicle_id = v.id
        GROUP BY v.id, v.name, v.rental, v.created_at
        ORDER BY v.created_at, v.id`)
    if err != nil {
        return nil, err
    }
    defer func() { _ = rows.Close() }()
    var out []model.VehicleBreakdown
    for rows.Next() {
        var vb model.VehicleBreakdown
        if err := rows.Scan(&vb.VehicleID, &vb.Name, &vb.Rental, &vb.Trips, &vb.CargoCount, &vb.WeightKg, &vb.DistanceKm, &vb.Cost); err != nil {
            return nil, err
        }
        out = append(out, vb)
    }
    return out, rows.Err()
}

func (p *Postgres) StationSummaries(ctx context.Context) ([]model.StationSummary, error) {
    rows, err := p.db.QueryContext(ctx, `
        SELECT s.id, s.name,
               count(c.id) FILTER (WHERE c.status='pending'),
               COALESCE(sum(c.weight_kg) FILTER (WHERE c.status='pending'), 0)
        FROM stations s LEFT JOIN cargos c ON c.source_station_id = s.id
        WHERE NOT s.is_depot
        GROUP BY s.id, s.name, s.created_at
        ORDER BY s.created_at, s.id`)
    if err != nil {
        return nil, err
    }
    defer func() { _ = rows.Close() }()
    var out []model.StationSummary
    for rows.Next() {
        var ss model.StationSummary
        if err := rows.Scan(&ss.StationID, &ss.Name, &ss.PendingCargos, &ss.PendingKg); err != nil {
            return nil, err
        }
        out = append(out, ss)
    }
    return out, rows.Err()
}

// Run metrics

func (p *Postgres) SaveRunMetrics(ctx context.Context, runID string, m model.OptimizeMetrics) error {
    doc, err := json.Marshal(m)
    if err != nil {
        return err
    }
    _, err = p.db.ExecContext(ctx,
        `INSERT INTO run_metrics (run_id, doc) VALUES ($1,$2) ON CONFLICT (run_id) DO UPDATE SET doc=EXCLUDED.doc`,
        runID, doc)
    return err
}

func (p *Postgres) RunMetrics(ctx context.Context) (map[string]model.OptimizeMetrics, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT run_id, doc FROM run_metrics ORDER BY created_at`)
    if err != nil {
        return nil, err
    }
    defer func() { _ = rows.Close() }()
    out := map[string]model.OptimizeMetrics{}
    for rows.Next() {
        var runID string
        var doc []byte
        if err := rows.Scan(&runID, &doc); err != nil {
            return nil, err
        }
        var m model.OptimizeMetrics
        if err := json.Unmarshal(doc, &m); err != nil {
            return nil, err
        }
        out[runID] = m
    }
    return out, rows.Err()
}
