package store

import (
    "context"
    "fmt"

    "cargoroute/internal/model"
)

// Demo workloads used for acceptance runs. Each entry is a district's
// pending pickup; loading a scenario replaces the current pending
// backlog and releases any rentals from earlier runs.

type scenarioCargo struct {
    district string
    weightKg float64
    desc     string
}

type scenarioDef struct {
    model.Scenario
    cargos []scenarioCargo
}

var scenarios = []scenarioDef{
    {
        Scenario: model.Scenario{ID: 1, Name: "Senaryo 1 - Hafif Yük", Description: "Normal iş günü, az sayıda kargo", CargoCount: 5, TotalWeightKg: 880},
        cargos: []scenarioCargo{
            {"Gebze", 150, "Firma A"}, {"Darıca", 200, "Firma B"}, {"Körfez", 100, "Firma C"},
            {"Gölcük", 250, "Firma D"}, {"Kartepe", 180, "Firma E"},
        },
    },
    {
        Scenario: model.Scenario{ID: 2, Name: "Senaryo 2 - Orta Yük", Description: "Normal kapasite kullanımı", CargoCount: 8, TotalWeightKg: 2100},
        cargos: []scenarioCargo{
            {"Gebze", 300, "Firma A"}, {"Darıca", 250, "Firma B"}, {"Çayırova", 200, "Firma C"},
            {"Dilovası", 350, "Firma D"}, {"Körfez", 280, "Firma E"}, {"Derince", 320, "Firma F"},
            {"Gölcük", 180, "Firma G"}, {"Karamürsel", 220, "Firma H"},
        },
    },
    {
        Scenario: model.Scenario{ID: 3, Name: "Senaryo 3 - Kapasite Aşımı", Description: "2700 kg kargo, 2250 kg kapasite: kiralık araç gerekli", CargoCount: 9, TotalWeightKg: 2700},
        cargos: []scenarioCargo{
            {"Gebze", 400, "Firma A"}, {"Darıca", 350, "Firma B"}, {"Çayırova", 300, "Firma C"},
            {"Dilovası", 450, "Firma D"}, {"Körfez", 280, "Firma E"}, {"Derince", 320, "Firma F"},
            {"Gölcük", 250, "Firma G"}, {"Karamürsel", 180, "Firma H"}, {"Kartepe", 170, "Firma I"},
        },
    },
    {
        Scenario: model.Scenario{ID: 4, Name: "Senaryo 4 - Yoğun Gün", Description: "Tüm ilçelerden toplama", CargoCount: 12, TotalWeightKg: 2230},
        cargos: []scenarioCargo{
            {"Gebze", 200, "Firma A"}, {"Gebze", 150, "Firma A2"}, {"Darıca", 180, "Firma B"},
            {"Çayırova", 220, "Firma C"}, {"Dilovası", 190, "Firma D"}, {"Körfez", 210, "Firma E"},
            {"Derince", 170, "Firma F"}, {"Gölcük", 230, "Firma G"}, {"Karamürsel", 160, "Firma H"},
            {"Kandıra", 140, "Firma I"}, {"Kartepe", 200, "Firma J"}, {"Başiskele", 180, "Firma K"},
        },
    },
}

// Scenarios lists the available demo workloads.
func Scenarios() []model.Scenario {
    out := make([]model.Scenario, 0, len(scenarios))
    for _, s := range scenarios {
        out = append(out, s.Scenario)
    }
    return out
}

// LoadScenario clears the pending backlog and rented vehicles, then
// inserts the scenario's cargos as pending pickups bound for the depot.
func LoadScenario(ctx context.Context, s Store, id int) (model.Scenario, int, error) {
    var def *scenarioDef
    for i := range scenarios {
        if scenarios[i].ID == id {
            def = &scenarios[i]
            break
        }
    }
    if def == nil {
        return model.Scenario{}, 0, fmt.Errorf("scenario %d: %w", id, ErrNotFound)
    }

    if _, err := s.DeletePendingCargos(ctx); err != nil {
        return model.Scenario{}, 0, err
    }
    if _, err := s.DeleteRentals(ctx); err != nil {
        return model.Scenario{}, 0, err
    }

    depot, err := s.Depot(ctx)
    if err != nil {
        return model.Scenario{}, 0, err
    }
    stations, err := s.ListStations(ctx)
    if err != nil {
        return model.Scenario{}, 0, err
    }
    byName := make(map[string]model.Station, len(stations))
    for _, st := range stations {
        byName[st.Name] = st
    }

    inserted := 0
    for _, c := range def.cargos {
        src, ok := byName[c.district]
        if !ok {
            continue
        }
        in := model.CargoInput{Description: c.desc, WeightKg: c.weightKg, SourceStationID: src.ID}
        if _, err := s.CreateCargo(ctx, in, depot.ID); err != nil {
            return model.Scenario{}, inserted, err
        }
        inserted++
    }
    return def.Scenario, inserted, nil
}
