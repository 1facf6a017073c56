package geo

import (
	"container/heap"
	"fmt"
	"math"
	"sort"
)

// Site is a station participating in the distance matrix.
type Site struct {
	ID   string
	Name string
	Pt   Point
}

// Edge is an explicit road connection between two sites. A zero WeightKm
// means the haversine distance between the endpoints is used.
type Edge struct {
	From     string
	To       string
	WeightKm float64
}

// Oracle answers station-to-station distance queries from a matrix
// precomputed at construction. With explicit edges the matrix holds
// shortest-path distances over the induced graph; pairs the graph does
// not reach (and all pairs when no edges are given) fall back to the
// road-factored haversine estimate. The oracle is immutable after
// construction and safe for concurrent reads.
type Oracle struct {
	sites map[string]Site
	order []string
	table map[string]float64
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func NewOracle(sites []Site, edges []Edge) (*Oracle, error) {
	o := &Oracle{
		sites: make(map[string]Site, len(sites)),
		order: make([]string, 0, len(sites)),
		table: make(map[string]float64, len(sites)*len(sites)/2),
	}
	for _, s := range sites {
		if _, dup := o.sites[s.ID]; dup {
			return nil, fmt.Errorf("duplicate site id %s", s.ID)
		}
		o.sites[s.ID] = s
		o.order = append(o.order, s.ID)
	}

	adj := make(map[string][]arc, len(sites))
	for _, e := range edges {
		a, aok := o.sites[e.From]
		b, bok := o.sites[e.To]
		if !aok || !bok {
			return nil, fmt.Errorf("edge references unknown site %s-%s", e.From, e.To)
		}
		w := e.WeightKm
		if w <= 0 {
			w = Haversine(a.Pt, b.Pt)
		}
		adj[e.From] = append(adj[e.From], arc{to: e.To, w: w})
		adj[e.To] = append(adj[e.To], arc{to: e.From, w: w})
	}

	if len(edges) > 0 {
		for _, id := range o.order {
			dist := dijkstra(adj, id)
			for to, d := range dist {
				if id < to {
					o.table[pairKey(id, to)] = d
				}
			}
		}
	}
	// Fill unreachable or unmodeled pairs with the road estimate so every
	// query stays finite.
	for i, a := range o.order {
		for _, b := range o.order[i+1:] {
			k := pairKey(a, b)
			if _, ok := o.table[k]; !ok {
				o.table[k] = RoadDistance(o.sites[a].Pt, o.sites[b].Pt)
			}
		}
	}
	return o, nil
}

// dijkstra returns shortest distances from src over the adjacency map.
func dijkstra(adj map[string][]arc, src string) map[string]float64 {
	dist := map[string]float64{src: 0}
	done := map[string]bool{}
	pq := &nodeQueue{{id: src, priority: 0}}
	heap.Init(pq)
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(nodeItem)
		if done[cur.id] {
			continue
		}
		done[cur.id] = true
		for _, a := range adj[cur.id] {
			cand := dist[cur.id] + a.w
			if old, seen := dist[a.to]; !seen || cand < old {
				dist[a.to] = cand
				heap.Push(pq, nodeItem{id: a.to, priority: cand})
			}
		}
	}
	return dist
}

// Between returns the distance in km between two sites. Unknown ids get
// +Inf so callers fail loudly instead of silently routing through them.
func (o *Oracle) Between(a, b string) float64 {
	if a == b {
		return 0
	}
	if _, ok := o.sites[a]; !ok {
		return math.Inf(1)
	}
	if _, ok := o.sites[b]; !ok {
		return math.Inf(1)
	}
	return o.table[pairKey(a, b)]
}

// Site returns the site definition for an id.
func (o *Oracle) Site(id string) (Site, bool) {
	s, ok := o.sites[id]
	return s, ok
}

// IDs returns all site ids in insertion order.
func (o *Oracle) IDs() []string {
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}

// Matrix materializes the full symmetric table keyed by site id, sorted
// deterministically for API responses.
func (o *Oracle) Matrix() map[string]map[string]float64 {
	ids := o.IDs()
	sort.Strings(ids)
	out := make(map[string]map[string]float64, len(ids))
	for _, a := range ids {
		row := make(map[string]float64, len(ids))
		for _, b := range ids {
			row[b] = o.Between(a, b)
		}
		out[a] = row
	}
	return out
}
