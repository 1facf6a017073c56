package geo

import (
	"container/heap"
	"math"
)

// Intersection is a named node of the curated road graph.
type Intersection struct {
	ID   string
	Name string
	Pt   Point
}

// Network is a bidirectional road graph over named intersections.
// Edge weights are haversine distances between the endpoints.
type Network struct {
	nodes []Intersection
	index map[string]int
	adj   map[string][]arc
}

type arc struct {
	to string
	w  float64
}

func NewNetwork(nodes []Intersection, edges [][2]string) *Network {
	n := &Network{
		nodes: nodes,
		index: make(map[string]int, len(nodes)),
		adj:   make(map[string][]arc, len(nodes)),
	}
	for i, nd := range nodes {
		n.index[nd.ID] = i
	}
	for _, e := range edges {
		ai, aok := n.index[e[0]]
		bi, bok := n.index[e[1]]
		if !aok || !bok {
			continue
		}
		w := Haversine(nodes[ai].Pt, nodes[bi].Pt)
		n.adj[e[0]] = append(n.adj[e[0]], arc{to: e[1], w: w})
		n.adj[e[1]] = append(n.adj[e[1]], arc{to: e[0], w: w})
	}
	return n
}

// Kocaeli returns the hand-built arterial road graph for the province.
// 16 intersections covering the D-100/TEM corridor, the Gölcük coastal
// road and the Kandıra connector.
func Kocaeli() *Network {
	nodes := []Intersection{
		{ID: "K1", Name: "İzmit Merkez", Pt: Point{40.7654, 29.9408}},
		{ID: "K2", Name: "İzmit Batı", Pt: Point{40.7700, 29.8800}},
		{ID: "K3", Name: "Derince Kavşak", Pt: Point{40.7600, 29.8200}},
		{ID: "K4", Name: "Körfez Kavşak", Pt: Point{40.7550, 29.7600}},
		{ID: "K5", Name: "Gölcük Kavşak", Pt: Point{40.7200, 29.8400}},
		{ID: "K6", Name: "Karamürsel Kavşak", Pt: Point{40.7000, 29.6500}},
		{ID: "K7", Name: "Dilovası Kavşak", Pt: Point{40.7800, 29.5500}},
		{ID: "K8", Name: "Gebze Batı", Pt: Point{40.8000, 29.4500}},
		{ID: "K9", Name: "Gebze Merkez", Pt: Point{40.8027, 29.4307}},
		{ID: "K10", Name: "Darıca Kavşak", Pt: Point{40.7700, 29.3800}},
		{ID: "K11", Name: "Çayırova Kavşak", Pt: Point{40.8200, 29.3700}},
		{ID: "K12", Name: "Kartepe Kavşak", Pt: Point{40.7400, 29.9800}},
		{ID: "K13", Name: "Başiskele Kavşak", Pt: Point{40.7200, 29.9400}},
		{ID: "K14", Name: "Kandıra Yol", Pt: Point{41.0000, 30.0000}},
		{ID: "K15", Name: "Kandıra Güney", Pt: Point{40.9000, 29.9800}},
		{ID: "K16", Name: "İzmit Kuzey", Pt: Point{40.8500, 29.9500}},
	}
	edges := [][2]string{
		{"K1", "K2"}, {"K2", "K3"}, {"K3", "K4"}, {"K4", "K7"},
		{"K7", "K8"}, {"K8", "K9"}, {"K9", "K10"}, {"K10", "K11"},
		{"K1", "K12"}, {"K12", "K13"}, {"K13", "K5"},
		{"K3", "K5"}, {"K5", "K6"}, {"K4", "K6"},
		{"K1", "K16"}, {"K16", "K15"}, {"K15", "K14"},
		{"K2", "K5"}, {"K6", "K7"}, {"K11", "K9"},
		{"K1", "K13"}, {"K16", "K12"},
	}
	return NewNetwork(nodes, edges)
}

// Nearest returns the id of the intersection closest to p by haversine.
// Ties keep the earlier node, so results are stable across runs.
func (n *Network) Nearest(p Point) string {
	best := ""
	bestD := math.Inf(1)
	for _, nd := range n.nodes {
		if d := Haversine(p, nd.Pt); d < bestD {
			bestD = d
			best = nd.ID
		}
	}
	return best
}

func (n *Network) point(id string) Point {
	return n.nodes[n.index[id]].Pt
}

// AStar finds the shortest road path between two intersections using the
// haversine distance to the goal as an admissible heuristic. ok is false
// when no path exists.
func (n *Network) AStar(from, to string) (path []string, dist float64, ok bool) {
	if _, exists := n.index[from]; !exists {
		return nil, 0, false
	}
	if _, exists := n.index[to]; !exists {
		return nil, 0, false
	}
	if from == to {
		return []string{from}, 0, true
	}
	goal := n.point(to)
	g := map[string]float64{from: 0}
	prev := map[string]string{}
	closed := map[string]bool{}

	pq := &nodeQueue{}
	heap.Init(pq)
	heap.Push(pq, nodeItem{id: from, priority: Haversine(n.point(from), goal)})

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(nodeItem)
		if closed[cur.id] {
			continue
		}
		if cur.id == to {
			out := []string{to}
			for at := to; at != from; {
				at = prev[at]
				out = append(out, at)
			}
			for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
				out[i], out[j] = out[j], out[i]
			}
			return out, g[to], true
		}
		closed[cur.id] = true
		for _, a := range n.adj[cur.id] {
			if closed[a.to] {
				continue
			}
			cand := g[cur.id] + a.w
			if old, seen := g[a.to]; !seen || cand < old {
				g[a.to] = cand
				prev[a.to] = cur.id
				heap.Push(pq, nodeItem{id: a.to, priority: cand + Haversine(n.point(a.to), goal)})
			}
		}
	}
	return nil, 0, false
}

// PathCoordinates builds display geometry between two arbitrary points by
// snapping both ends to the road graph and routing between them. When the
// snapped nodes are disconnected the result degrades to interpolated
// waypoints, never an error.
func (n *Network) PathCoordinates(a, b Point) []Point {
	ka := n.Nearest(a)
	kb := n.Nearest(b)
	path, _, ok := n.AStar(ka, kb)
	if !ok || len(path) == 0 {
		return append(append([]Point{a}, Interpolate(a, b, 6)...), b)
	}
	pts := make([]Point, 0, len(path)+2)
	pts = append(pts, a)
	for _, id := range path {
		pts = append(pts, n.point(id))
	}
	pts = append(pts, b)
	return pts
}

// nodeQueue is a min-heap over f-score.
type nodeItem struct {
	id       string
	priority float64
}

type nodeQueue []nodeItem

func (q nodeQueue) Len() int            { return len(q) }
func (q nodeQueue) Less(i, j int) bool  { return q[i].priority < q[j].priority }
func (q nodeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x any)         { *q = append(*q, x.(nodeItem)) }
func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}
