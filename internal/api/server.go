package api

import (
    "net/http"
    "os"
    "strconv"
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/sirupsen/logrus"
    "golang.org/x/time/rate"

    "cargoroute/internal/buildinfo"
    "cargoroute/internal/geo"
    "cargoroute/internal/metrics"
    "cargoroute/internal/model"
    "cargoroute/internal/store"
)

// Server wires the store, the event broker, the road network and the
// external geometry provider behind the HTTP API.
type Server struct {
    store   store.Store
    broker  EventBroker
    network *geo.Network
    osrm    *OSRMClient
    limiter *rate.Limiter
    log     *logrus.Entry

    paramsMu sync.Mutex
    params   model.Parameters
}

// NewServer selects backends from the environment: Postgres when
// DATABASE_URL is set, Redis pub/sub when REDIS_URL is set, otherwise
// in-process implementations.
func NewServer() (*Server, error) {
    log := logrus.WithField("component", "api")

    var st store.Store
    if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
        pg, err := store.NewPostgres(dsn)
        if err != nil {
            return nil, err
        }
        st = pg
        log.Info("using postgres store")
    } else {
        st = store.NewMemory()
        log.Info("using in-memory store")
    }

    var broker EventBroker
    if url := os.Getenv("REDIS_URL"); url != "" {
        rb, err := NewRedisBroker(url)
        if err != nil {
            return nil, err
        }
        broker = rb
        log.Info("using redis event broker")
    } else {
        broker = NewBroker()
    }

    s := &Server{
        store:   st,
        broker:  broker,
        network: geo.Kocaeli(),
        osrm:    NewOSRMClient(os.Getenv("OSRM_URL")),
        limiter: rate.NewLimiter(rate.Every(2*time.Second), 2),
        log:     log,
        params:  defaultParameters(),
    }
    return s, nil
}

func NewServerWith(st store.Store, broker EventBroker) *Server {
    return &Server{
        store:   st,
        broker:  broker,
        network: geo.Kocaeli(),
        osrm:    NewOSRMClient(""),
        limiter: rate.NewLimiter(rate.Inf, 1),
        log:     logrus.WithField("component", "api"),
        params:  defaultParameters(),
    }
}

// Store exposes the backing store for startup seeding.
func (s *Server) Store() store.Store {
    return s.store
}

func defaultParameters() model.Parameters {
    return model.Parameters{
        PopulationSize:   100,
        Generations:      300,
        MutationRate:     0.1,
        CrossoverRate:    0.8,
        EliteSize:        10,
        TournamentK:      5,
        MaxRouteKm:       250,
        LongLegKm:        20,
        RentalCapacityKg: 500,
        RentalFixedCost:  200,
        RentalCostPerKm:  1.0,
    }
}

// Routes registers every endpoint on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
    metrics.RegisterDefault()
    mux := http.NewServeMux()

    mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
        writeJSON(w, http.StatusOK, map[string]any{"ok": true, "build": buildinfo.Info()})
    })
    mux.HandleFunc("/readyz", s.handleReady)
    mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

    mux.HandleFunc("/openapi.yaml", s.OpenAPIHandler)
    mux.HandleFunc("/docs", s.DocsHandler)
    mux.HandleFunc("/swagger", s.SwaggerHandler)

    mux.Handle("/api/stations", s.instrument("/api/stations", s.handleStations))
    mux.Handle("/api/stations/", s.instrument("/api/stations/:id", s.handleStationByID))
    mux.Handle("/api/vehicles", s.instrument("/api/vehicles", s.handleVehicles))
    mux.Handle("/api/vehicles/rent", s.instrument("/api/vehicles/rent", s.handleVehicleRent))
    mux.Handle("/api/vehicles/rental", s.instrument("/api/vehicles/rental", s.handleVehicleRentalBulk))
    mux.Handle("/api/vehicles/", s.instrument("/api/vehicles/:id", s.handleVehicleByID))
    mux.Handle("/api/cargos", s.instrument("/api/cargos", s.handleCargos))
    mux.Handle("/api/cargos/pending", s.instrument("/api/cargos/pending", s.handleCargosPending))
    mux.Handle("/api/cargos/", s.instrument("/api/cargos/:id", s.handleCargoByID))
    mux.Handle("/api/routes/optimize", s.instrument("/api/routes/optimize", s.handleOptimize))
    mux.Handle("/api/routes", s.instrument("/api/routes", s.handleRoutes))
    mux.Handle("/api/routes/active", s.instrument("/api/routes/active", s.handleRoutesActive))
    mux.Handle("/api/routes/", s.instrument("/api/routes/:id", s.handleRouteByID))
    mux.Handle("/api/trips", s.instrument("/api/trips", s.handleTrips))
    mux.Handle("/api/trips/active", s.instrument("/api/trips/active", s.handleTripsActive))
    mux.Handle("/api/trips/", s.instrument("/api/trips/:id", s.handleTripByID))
    mux.Handle("/api/distance-matrix", s.instrument("/api/distance-matrix", s.handleDistanceMatrix))
    mux.Handle("/api/analytics/", s.instrument("/api/analytics/:view", s.handleAnalytics))
    mux.Handle("/api/parameters", s.instrument("/api/parameters", s.handleParameters))
    mux.Handle("/api/scenarios/list", s.instrument("/api/scenarios/list", s.handleScenariosList))
    mux.Handle("/api/scenarios/load/", s.instrument("/api/scenarios/load/:id", s.handleScenarioLoad))

    mux.HandleFunc("/ws/optimize", s.OptimizeWSHandler)

    return mux
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
    if _, err := s.store.ListStations(r.Context()); err != nil {
        writeProblem(w, http.StatusServiceUnavailable, "store not ready", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}

type statusRecorder struct {
    http.ResponseWriter
    status int
}

func (sr *statusRecorder) WriteHeader(code int) {
    sr.status = code
    sr.ResponseWriter.WriteHeader(code)
}

// instrument wraps a handler with request metrics and structured access
// logging. The label is the route pattern, not the raw path, to keep
// metric cardinality bounded.
func (s *Server) instrument(label string, h http.HandlerFunc) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
        h(rec, r)
        elapsed := time.Since(start)
        metrics.HTTPRequests.WithLabelValues(r.Method, label, strconv.Itoa(rec.status)).Inc()
        metrics.HTTPDuration.WithLabelValues(r.Method, label).Observe(elapsed.Seconds())
        s.log.WithFields(logrus.Fields{
            "method": r.Method,
            "path":   r.URL.Path,
            "status": rec.status,
            "ms":     elapsed.Milliseconds(),
        }).Debug("request")
    })
}
