package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"cargoroute/internal/geo"
	"cargoroute/internal/model"
)

// OSRMClient fetches display geometry from an OSRM routing server.
// Geometry is cosmetic: any failure degrades to the road-graph path and
// is logged, never propagated.
type OSRMClient struct {
	base string
	hc   *http.Client
	log  *logrus.Entry
}

func NewOSRMClient(base string) *OSRMClient {
	if base == "" {
		base = "https://router.project-osrm.org"
	}
	return &OSRMClient{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 5 * time.Second},
		log:  logrus.WithField("component", "osrm"),
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// Route returns driving geometry through the given points, or an error
// the caller is expected to swallow in favor of a fallback.
func (c *OSRMClient) Route(ctx context.Context, points []geo.Point) ([]model.GeoPoint, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least two points")
	}
	coords := make([]string, len(points))
	for i, p := range points {
		coords[i] = fmt.Sprintf("%f,%f", p.Lng, p.Lat)
	}
	url := fmt.Sprintf("%s/route/v1/driving/%s?overview=full&geometries=geojson", c.base, strings.Join(coords, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("osrm status %d", resp.StatusCode)
	}
	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return nil, fmt.Errorf("osrm code %s", body.Code)
	}
	out := make([]model.GeoPoint, 0, len(body.Routes[0].Geometry.Coordinates))
	for _, c := range body.Routes[0].Geometry.Coordinates {
		if len(c) == 2 {
			out = append(out, model.GeoPoint{Lat: c[1], Lng: c[0]})
		}
	}
	return out, nil
}

// routeGeometry produces display geometry for an ordered point list.
// OSRM first, road-graph interpolation when it fails.
func (s *Server) routeGeometry(ctx context.Context, points []geo.Point) []model.GeoPoint {
	if len(points) < 2 {
		return nil
	}
	if pts, err := s.osrm.Route(ctx, points); err == nil {
		return pts
	} else {
		s.osrm.log.WithError(err).Warn("osrm unavailable, using road-graph geometry")
	}
	var out []model.GeoPoint
	for i := 0; i < len(points)-1; i++ {
		seg := s.network.PathCoordinates(points[i], points[i+1])
		for j, p := range seg {
			if i > 0 && j == 0 {
				continue
			}
			out = append(out, model.GeoPoint{Lat: p.Lat, Lng: p.Lng})
		}
	}
	return out
}
