package opt

import (
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Genetic metaheuristic over vehicle-keyed chromosomes. A chromosome
// assigns every stop to exactly one vehicle with an explicit visiting
// order; fitness is the inverse of penalized cost so capacity and route
// length violations survive construction but lose the selection game.

type Params struct {
	PopulationSize int
	Generations    int
	MutationRate   float64
	CrossoverRate  float64
	EliteSize      int
	TournamentK    int
	NoImproveLimit int
	MaxRouteKm     float64
	LongLegKm      float64
	ClusterKm      float64
	Seed           int64
}

func (pr Params) withDefaults() Params {
	if pr.PopulationSize <= 0 {
		pr.PopulationSize = 100
	}
	if pr.Generations <= 0 {
		pr.Generations = 300
	}
	if pr.MutationRate <= 0 {
		pr.MutationRate = 0.1
	}
	if pr.CrossoverRate <= 0 {
		pr.CrossoverRate = 0.8
	}
	if pr.EliteSize <= 0 {
		pr.EliteSize = 10
	}
	if pr.EliteSize > pr.PopulationSize {
		pr.EliteSize = pr.PopulationSize
	}
	if pr.TournamentK <= 0 {
		pr.TournamentK = 5
	}
	if pr.NoImproveLimit <= 0 {
		pr.NoImproveLimit = 50
	}
	if pr.ClusterKm <= 0 {
		pr.ClusterKm = 20
	}
	return pr
}

// Metrics summarizes a run for persistence and monitoring.
type Metrics struct {
	Generations  int
	Improvements int
	BestCost     float64
	MeanCost     float64
	StddevCost   float64
	EarlyStopped bool
	// MergedRoutes is the cluster count the savings merge phase
	// produced; zero for the genetic engine.
	MergedRoutes int
	Elapsed      time.Duration
}

type chromosome [][]int

func (c chromosome) clone() chromosome {
	out := make(chromosome, len(c))
	for i, route := range c {
		out[i] = append([]int{}, route...)
	}
	return out
}

// SolveGenetic evolves a population toward a low-cost capacity-feasible
// plan. progress may be nil; when set it is called once per generation
// with the best penalized cost so far. The returned solution prefers
// the best feasible individual ever seen and falls back to the least
// penalized one, flagged infeasible.
func SolveGenetic(p Problem, params Params, progress func(gen, total int, best float64)) (Solution, Metrics) {
	start := time.Now()
	params = params.withDefaults()
	rng := newRNG(params.Seed)

	if len(p.Stops) == 0 || len(p.Vehicles) == 0 {
		sol := Solution{Feasible: len(p.Stops) == 0}
		for _, v := range p.Vehicles {
			sol.Plans = append(sol.Plans, RoutePlan{VehicleID: v.ID})
		}
		return sol, Metrics{Elapsed: time.Since(start)}
	}

	pop := make([]chromosome, params.PopulationSize)
	for i := range pop {
		switch rng.Intn(3) {
		case 0:
			pop[i] = p.initClustered(rng, params.ClusterKm)
		case 1:
			pop[i] = p.initNearestFirst(rng)
		default:
			pop[i] = p.initRandom(rng)
		}
	}

	var (
		bestFeasible     chromosome
		bestFeasibleCost float64
		bestAny          chromosome
		bestAnyPenalized float64
		m                Metrics
		sinceImprove     int
		lastCosts        []float64
	)

	for gen := 0; gen < params.Generations; gen++ {
		m.Generations = gen + 1
		fits := make([]float64, len(pop))
		lastCosts = lastCosts[:0]
		improvedThisGen := false

		for i, ind := range pop {
			pc := penalizedCost(p, ind, params.MaxRouteKm, params.LongLegKm)
			fits[i] = 1.0 / (pc + 1.0)
			lastCosts = append(lastCosts, pc)

			if bestAny == nil || pc < bestAnyPenalized {
				bestAny = ind.clone()
				bestAnyPenalized = pc
				improvedThisGen = true
			}
			if plansFeasible(p, ind) {
				if c := plansCost(p, ind); bestFeasible == nil || c < bestFeasibleCost {
					bestFeasible = ind.clone()
					bestFeasibleCost = c
					improvedThisGen = true
				}
			}
		}
		if improvedThisGen {
			m.Improvements++
			sinceImprove = 0
		} else {
			sinceImprove++
		}
		if progress != nil {
			progress(gen+1, params.Generations, bestAnyPenalized)
		}
		if sinceImprove >= params.NoImproveLimit {
			m.EarlyStopped = true
			break
		}

		next := make([]chromosome, 0, params.PopulationSize)
		elite := make([]int, len(pop))
		for i := range elite {
			elite[i] = i
		}
		sort.SliceStable(elite, func(a, b int) bool { return fits[elite[a]] > fits[elite[b]] })
		for _, idx := range elite[:params.EliteSize] {
			next = append(next, pop[idx].clone())
		}

		for len(next) < params.PopulationSize {
			p1 := p.tournament(rng, pop, fits, params.TournamentK)
			p2 := p.tournament(rng, pop, fits, params.TournamentK)
			c1, c2 := p.crossover(rng, p1, p2, params.CrossoverRate)
			next = append(next, p.mutate(rng, c1, params.MutationRate))
			if len(next) < params.PopulationSize {
				next = append(next, p.mutate(rng, c2, params.MutationRate))
			}
		}
		pop = next
	}

	chosen := bestFeasible
	feasible := true
	if chosen == nil {
		chosen = bestAny
		feasible = false
	}
	for vi := range chosen {
		chosen[vi] = ImproveOrder(p, chosen[vi])
	}

	sol := Solution{Feasible: feasible && plansFeasible(p, chosen)}
	for vi, v := range p.Vehicles {
		sol.Plans = append(sol.Plans, RoutePlan{VehicleID: v.ID, Order: chosen[vi]})
	}
	sol.Cost = SolutionCost(p, sol)

	m.BestCost = sol.Cost
	if len(lastCosts) > 1 {
		m.MeanCost = stat.Mean(lastCosts, nil)
		m.StddevCost = stat.StdDev(lastCosts, nil)
	}
	m.Elapsed = time.Since(start)
	return sol, m
}

// initRandom shuffles the stops and places each on a random vehicle
// with room, falling back to the least loaded one.
func (p Problem) initRandom(rng *rand.Rand) chromosome {
	order := rng.Perm(len(p.Stops))
	ch := make(chromosome, len(p.Vehicles))
	loads := make([]float64, len(p.Vehicles))
	for _, si := range order {
		w := p.Stops[si].WeightKg
		var fit []int
		for vi, v := range p.Vehicles {
			if loads[vi]+w <= v.CapacityKg {
				fit = append(fit, vi)
			}
		}
		vi := p.leastLoaded(loads)
		if len(fit) > 0 {
			vi = fit[rng.Intn(len(fit))]
		}
		ch[vi] = append(ch[vi], si)
		loads[vi] += w
	}
	return ch
}

// initClustered groups stops within clusterKm of a random seed stop and
// keeps each cluster on one vehicle where capacity allows.
func (p Problem) initClustered(rng *rand.Rand, clusterKm float64) chromosome {
	unvisited := rng.Perm(len(p.Stops))
	var clusters [][]int
	used := make([]bool, len(p.Stops))
	for _, seed := range unvisited {
		if used[seed] {
			continue
		}
		cluster := []int{seed}
		used[seed] = true
		for _, si := range unvisited {
			if !used[si] && p.Dist.Between(p.Stops[seed].ID, p.Stops[si].ID) <= clusterKm {
				cluster = append(cluster, si)
				used[si] = true
			}
		}
		clusters = append(clusters, cluster)
	}

	ch := make(chromosome, len(p.Vehicles))
	loads := make([]float64, len(p.Vehicles))
	for _, cluster := range clusters {
		var cw float64
		for _, si := range cluster {
			cw += p.Stops[si].WeightKg
		}
		target := -1
		for vi, v := range p.Vehicles {
			if loads[vi]+cw <= v.CapacityKg {
				target = vi
				break
			}
		}
		if target >= 0 {
			ch[target] = append(ch[target], cluster...)
			loads[target] += cw
			continue
		}
		// Cluster too heavy for any single vehicle; scatter it.
		for _, si := range cluster {
			vi := p.leastLoaded(loads)
			ch[vi] = append(ch[vi], si)
			loads[vi] += p.Stops[si].WeightKg
		}
	}
	return ch
}

// initNearestFirst deals stops round-robin in ascending depot distance.
func (p Problem) initNearestFirst(rng *rand.Rand) chromosome {
	order := make([]int, len(p.Stops))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return p.Dist.Between(p.DepotID, p.Stops[order[a]].ID) < p.Dist.Between(p.DepotID, p.Stops[order[b]].ID)
	})
	ch := make(chromosome, len(p.Vehicles))
	loads := make([]float64, len(p.Vehicles))
	vi := rng.Intn(len(p.Vehicles))
	for _, si := range order {
		w := p.Stops[si].WeightKg
		placed := false
		for try := 0; try < len(p.Vehicles); try++ {
			cand := (vi + try) % len(p.Vehicles)
			if loads[cand]+w <= p.Vehicles[cand].CapacityKg {
				ch[cand] = append(ch[cand], si)
				loads[cand] += w
				vi = cand + 1
				placed = true
				break
			}
		}
		if !placed {
			least := p.leastLoaded(loads)
			ch[least] = append(ch[least], si)
			loads[least] += w
		}
	}
	return ch
}

func (p Problem) leastLoaded(loads []float64) int {
	best := 0
	for i := 1; i < len(loads); i++ {
		if loads[i] < loads[best] {
			best = i
		}
	}
	return best
}

func (p Problem) tournament(rng *rand.Rand, pop []chromosome, fits []float64, k int) chromosome {
	best := rng.Intn(len(pop))
	for i := 1; i < k; i++ {
		if c := rng.Intn(len(pop)); fits[c] > fits[best] {
			best = c
		}
	}
	return pop[best].clone()
}

// crossover flattens both parents, cuts at one point and fills each
// child with the prefix of one parent followed by the other parent's
// remaining stops in its order, then redistributes onto vehicles.
func (p Problem) crossover(rng *rand.Rand, p1, p2 chromosome, rate float64) (chromosome, chromosome) {
	if rng.Float64() > rate {
		return p1.clone(), p2.clone()
	}
	f1 := flatten(p1)
	f2 := flatten(p2)
	if len(f1) < 2 {
		return p1.clone(), p2.clone()
	}
	cut := 1 + rng.Intn(len(f1)-1)
	return p.redistribute(orderCross(f1, f2, cut)), p.redistribute(orderCross(f2, f1, cut))
}

func flatten(c chromosome) []int {
	var out []int
	for _, route := range c {
		out = append(out, route...)
	}
	return out
}

func orderCross(a, b []int, cut int) []int {
	out := append([]int{}, a[:cut]...)
	used := make(map[int]bool, len(out))
	for _, si := range out {
		used[si] = true
	}
	for _, si := range b {
		if !used[si] {
			out = append(out, si)
			used[si] = true
		}
	}
	return out
}

// redistribute places a stop sequence onto vehicles: least-loaded
// vehicle with room first, least-loaded overall when nothing fits.
func (p Problem) redistribute(seq []int) chromosome {
	ch := make(chromosome, len(p.Vehicles))
	loads := make([]float64, len(p.Vehicles))
	for _, si := range seq {
		w := p.Stops[si].WeightKg
		target := -1
		for vi, v := range p.Vehicles {
			if loads[vi]+w > v.CapacityKg {
				continue
			}
			if target < 0 || loads[vi] < loads[target] {
				target = vi
			}
		}
		if target < 0 {
			target = p.leastLoaded(loads)
		}
		ch[target] = append(ch[target], si)
		loads[target] += w
	}
	return ch
}

type mutationKind int

const (
	mutSwap mutationKind = iota
	mutMove
	mutReverse
	mutSplit
	mutationKinds
)

// mutate applies at most one operator, chosen uniformly from the closed
// operator set.
func (p Problem) mutate(rng *rand.Rand, c chromosome, rate float64) chromosome {
	if rng.Float64() > rate {
		return c
	}
	out := c.clone()
	switch mutationKind(rng.Intn(int(mutationKinds))) {
	case mutSwap:
		p.mutateSwap(rng, out)
	case mutMove:
		p.mutateMove(rng, out)
	case mutReverse:
		p.mutateReverse(rng, out)
	case mutSplit:
		p.mutateSplit(rng, out)
	}
	return out
}

func nonEmpty(c chromosome, min int) []int {
	var out []int
	for vi, route := range c {
		if len(route) >= min {
			out = append(out, vi)
		}
	}
	return out
}

// mutateSwap exchanges one stop between two different routes.
func (p Problem) mutateSwap(rng *rand.Rand, c chromosome) {
	cands := nonEmpty(c, 1)
	if len(cands) < 2 {
		return
	}
	i := cands[rng.Intn(len(cands))]
	j := cands[rng.Intn(len(cands))]
	for j == i {
		j = cands[rng.Intn(len(cands))]
	}
	a := rng.Intn(len(c[i]))
	b := rng.Intn(len(c[j]))
	c[i][a], c[j][b] = c[j][b], c[i][a]
}

// mutateMove relocates one stop to a random vehicle.
func (p Problem) mutateMove(rng *rand.Rand, c chromosome) {
	cands := nonEmpty(c, 1)
	if len(cands) == 0 {
		return
	}
	src := cands[rng.Intn(len(cands))]
	dst := rng.Intn(len(c))
	at := rng.Intn(len(c[src]))
	stop := c[src][at]
	c[src] = append(c[src][:at], c[src][at+1:]...)
	c[dst] = append(c[dst], stop)
}

// mutateReverse flips the order of one whole route.
func (p Problem) mutateReverse(rng *rand.Rand, c chromosome) {
	cands := nonEmpty(c, 2)
	if len(cands) == 0 {
		return
	}
	vi := cands[rng.Intn(len(cands))]
	route := c[vi]
	for a, b := 0, len(route)-1; a < b; a, b = a+1, b-1 {
		route[a], route[b] = route[b], route[a]
	}
}

// mutateSplit cuts one route and hands the tail to another vehicle.
func (p Problem) mutateSplit(rng *rand.Rand, c chromosome) {
	if len(c) < 2 {
		return
	}
	cands := nonEmpty(c, 2)
	if len(cands) == 0 {
		return
	}
	src := cands[rng.Intn(len(cands))]
	dst := rng.Intn(len(c))
	for dst == src {
		dst = rng.Intn(len(c))
	}
	cut := 1 + rng.Intn(len(c[src])-1)
	tail := append([]int{}, c[src][cut:]...)
	c[src] = c[src][:cut]
	c[dst] = append(c[dst], tail...)
}
