// Package layout computes collision-free 2-D positions for flow graphs.
//
// Layout runs only on explicit request, never on every edit. Nodes are
// grouped by weakly-connected component; each component lays its longest
// greedy path left-to-right and tucks branch nodes around it. Every
// placement goes through a spatial occupancy grid, so no two node bounding
// rectangles can ever overlap in the result.
package layout

import (
	"math"
	"sort"

	"github.com/mattn/go-runewidth"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/quizflow/pkg/debug"
	"github.com/vanderheijden86/quizflow/pkg/metrics"
	"github.com/vanderheijden86/quizflow/pkg/model"
)

// Options tunes spacing. Zero values fall back to the compact preset.
type Options struct {
	HSpacing float64 // horizontal gap between consecutive main-path nodes
	VSpacing float64 // vertical gap between a main-path node and its branches
	CompGap  float64 // gap between components
}

// DefaultOptions returns the compact preset.
func DefaultOptions() Options {
	return Options{HSpacing: 260, VSpacing: 140, CompGap: 160}
}

// RoomyOptions returns a looser preset for presentation exports.
func RoomyOptions() Options {
	return Options{HSpacing: 320, VSpacing: 180, CompGap: 220}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HSpacing <= 0 {
		o.HSpacing = d.HSpacing
	}
	if o.VSpacing <= 0 {
		o.VSpacing = d.VSpacing
	}
	if o.CompGap <= 0 {
		o.CompGap = d.CompGap
	}
	return o
}

// NodeSize returns the bounding box for a node, wide enough for its label.
func NodeSize(n *model.Node) (w, h float64) {
	const (
		minW     = 170.0
		maxW     = 320.0
		perRune  = 8.0
		basePadW = 40.0
	)
	w = basePadW + perRune*float64(runewidth.StringWidth(n.Label()))
	w = math.Min(maxW, math.Max(minW, w))
	switch n.Type {
	case model.NodeQuestion:
		h = 80
	case model.NodeAnswer:
		h = 64 + 18*float64(len(n.Answer.Variants))
	case model.NodeOutcome:
		h = 70
	default:
		h = 70
	}
	return w, h
}

// Compute produces a fresh position for every node. Existing positions are
// only used to anchor each component near where the user last left it; the
// result is deterministic for a given input.
func Compute(nodes []*model.Node, edges []*model.Edge, opts Options) map[string]model.Position {
	opts = opts.withDefaults()
	defer debug.LogEnterExit("layout.Compute")()
	defer metrics.Timer(metrics.LayoutCompute)()

	byID := make(map[string]*model.Node, len(nodes))
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)

	adj := buildAdjacency(ids, edges)
	comps, isolated := components(ids, edges, adj)

	g := newGrid()
	positions := make(map[string]model.Position, len(nodes))

	for ci, comp := range comps {
		origin := componentOrigin(g, ci, comp, byID, opts)
		layoutComponent(g, comp, byID, adj, origin, opts, positions)
	}

	// Fully isolated nodes go in a row below everything positioned.
	if len(isolated) > 0 {
		y := 0.0
		if g.any {
			y = g.maxY + opts.CompGap
		}
		x := 0.0
		if g.any {
			x = g.minX
		}
		for _, id := range isolated {
			w, h := NodeSize(byID[id])
			px, py := g.place(x, y, w, h)
			positions[id] = model.Position{X: px, Y: py}
			x = px + w + opts.HSpacing/2
		}
	}
	return positions
}

// adjacency holds directed and undirected neighbor sets.
type adjacency struct {
	out    map[string][]string
	in     map[string][]string
	degree map[string]int
}

func buildAdjacency(ids []string, edges []*model.Edge) adjacency {
	a := adjacency{
		out:    map[string][]string{},
		in:     map[string][]string{},
		degree: map[string]int{},
	}
	for _, id := range ids {
		a.degree[id] = 0
	}
	sorted := append([]*model.Edge(nil), edges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, e := range sorted {
		if _, ok := a.degree[e.Source]; !ok {
			continue
		}
		if _, ok := a.degree[e.Target]; !ok {
			continue
		}
		a.out[e.Source] = append(a.out[e.Source], e.Target)
		a.in[e.Target] = append(a.in[e.Target], e.Source)
		a.degree[e.Source]++
		a.degree[e.Target]++
	}
	return a
}

// components groups connected nodes (edges treated as undirected) using
// gonum's weakly-connected component pass, and splits out fully isolated
// nodes. Components are ordered largest first, ties by smallest member id;
// members are sorted by id.
func components(ids []string, edges []*model.Edge, adj adjacency) (comps [][]string, isolated []string) {
	idx := make(map[string]int64, len(ids))
	rev := make(map[int64]string, len(ids))
	ug := simple.NewUndirectedGraph()
	for i, id := range ids {
		n := simple.Node(int64(i))
		idx[id] = int64(i)
		rev[int64(i)] = id
		ug.AddNode(n)
	}
	for _, e := range edges {
		si, ok1 := idx[e.Source]
		ti, ok2 := idx[e.Target]
		if !ok1 || !ok2 || si == ti {
			continue
		}
		ug.SetEdge(simple.Edge{F: simple.Node(si), T: simple.Node(ti)})
	}

	for _, cc := range topo.ConnectedComponents(ug) {
		members := make([]string, 0, len(cc))
		for _, n := range cc {
			members = append(members, rev[n.ID()])
		}
		sort.Strings(members)
		if len(members) == 1 && adj.degree[members[0]] == 0 {
			isolated = append(isolated, members[0])
			continue
		}
		comps = append(comps, members)
	}
	sort.Slice(comps, func(i, j int) bool {
		if len(comps[i]) != len(comps[j]) {
			return len(comps[i]) > len(comps[j])
		}
		return comps[i][0] < comps[j][0]
	})
	sort.Strings(isolated)
	return comps, isolated
}

// mainPath picks the component's spine: starting from each in-degree-0
// member (or the smallest id if none), greedily follow the child with the
// most total connections, and keep the longest walk found.
func mainPath(comp []string, adj adjacency) []string {
	inComp := make(map[string]bool, len(comp))
	for _, id := range comp {
		inComp[id] = true
	}
	var starts []string
	for _, id := range comp {
		if len(adj.in[id]) == 0 {
			starts = append(starts, id)
		}
	}
	if len(starts) == 0 {
		starts = []string{comp[0]}
	}

	var best []string
	for _, start := range starts {
		visited := map[string]bool{start: true}
		walk := []string{start}
		cur := start
		for {
			next := ""
			bestDeg := -1
			for _, child := range adj.out[cur] {
				if !inComp[child] || visited[child] {
					continue
				}
				if d := adj.degree[child]; d > bestDeg || (d == bestDeg && child < next) {
					next, bestDeg = child, d
				}
			}
			if next == "" {
				break
			}
			visited[next] = true
			walk = append(walk, next)
			cur = next
		}
		if len(walk) > len(best) || (len(walk) == len(best) && len(best) > 0 && walk[0] < best[0]) {
			best = walk
		}
	}
	return best
}

// componentOrigin picks where a component starts. The first component
// anchors near its existing position; later components try, in order, right
// of the current bounds, below, above, left, then a coarse grid scan, then
// far to the right.
func componentOrigin(g *grid, index int, comp []string, byID map[string]*model.Node, opts Options) model.Position {
	w, h := NodeSize(byID[comp[0]])

	if index == 0 || !g.any {
		// Snap the component's first member to the grid near where it was.
		p := byID[comp[0]].Position
		return model.Position{
			X: math.Round(p.X/cellSize) * cellSize,
			Y: math.Round(p.Y/cellSize) * cellSize,
		}
	}

	candidates := []model.Position{
		{X: g.maxX + opts.CompGap, Y: g.minY},              // right of bounds
		{X: g.minX, Y: g.maxY + opts.CompGap},              // below
		{X: g.minX, Y: g.minY - opts.CompGap - h},          // above
		{X: g.minX - opts.CompGap - 4*cellSize, Y: g.minY}, // left
	}
	for _, c := range candidates {
		if g.free(c.X, c.Y, w, h) {
			return c
		}
	}
	// Coarse scan over a gap-sized lattice.
	for row := 0; row < 50; row++ {
		for col := 0; col < 50; col++ {
			c := model.Position{
				X: g.minX + float64(col)*opts.CompGap,
				Y: g.minY + float64(row)*opts.CompGap,
			}
			if g.free(c.X, c.Y, w, h) {
				return c
			}
		}
	}
	// Unconditional fallback far to the right.
	return model.Position{X: g.maxX + 10*opts.CompGap, Y: g.minY}
}

// layoutComponent places the main path left-to-right, then tucks the
// remaining nodes next to whichever placed neighbor they connect to.
func layoutComponent(g *grid, comp []string, byID map[string]*model.Node, adj adjacency, origin model.Position, opts Options, positions map[string]model.Position) {
	spine := mainPath(comp, adj)

	placed := make(map[string]bool, len(comp))
	x := origin.X
	for _, id := range spine {
		w, h := NodeSize(byID[id])
		px, py := g.place(x, origin.Y, w, h)
		positions[id] = model.Position{X: px, Y: py}
		placed[id] = true
		x = px + w + opts.HSpacing
	}

	// Branch nodes: repeatedly place anything adjacent to a placed node,
	// trying the fixed candidate offsets before searching for the nearest
	// free position.
	inComp := make(map[string]bool, len(comp))
	for _, id := range comp {
		inComp[id] = true
	}
	frontier := append([]string(nil), spine...)
	for len(frontier) > 0 {
		anchor := frontier[0]
		frontier = frontier[1:]
		ap := positions[anchor]
		aw, ah := NodeSize(byID[anchor])

		var neighbors []string
		neighbors = append(neighbors, adj.out[anchor]...)
		neighbors = append(neighbors, adj.in[anchor]...)
		sort.Strings(neighbors)
		for _, nb := range neighbors {
			if !inComp[nb] || placed[nb] {
				continue
			}
			w, h := NodeSize(byID[nb])
			px, py := placeBranch(g, ap, aw, ah, w, h, opts)
			positions[nb] = model.Position{X: px, Y: py}
			placed[nb] = true
			frontier = append(frontier, nb)
		}
	}

	// Anything left in the component (unreachable from the spine through
	// the frontier walk) still gets a guaranteed spot.
	for _, id := range comp {
		if placed[id] {
			continue
		}
		w, h := NodeSize(byID[id])
		px, py := g.place(origin.X, origin.Y+opts.VSpacing, w, h)
		positions[id] = model.Position{X: px, Y: py}
		placed[id] = true
	}
}

// placeBranch tries the fixed candidate offsets around the anchor (above,
// below, left, right, then diagonals) and falls back to the nearest-free
// search seeded below the anchor.
func placeBranch(g *grid, anchor model.Position, aw, ah, w, h float64, opts Options) (float64, float64) {
	dx := opts.HSpacing
	dy := opts.VSpacing
	candidates := [][2]float64{
		{anchor.X, anchor.Y - dy - h},            // above
		{anchor.X, anchor.Y + ah + dy},           // below
		{anchor.X - dx - w, anchor.Y},            // left
		{anchor.X + aw + dx, anchor.Y},           // right
		{anchor.X - dx - w, anchor.Y - dy - h},   // upper-left
		{anchor.X + aw + dx, anchor.Y - dy - h},  // upper-right
		{anchor.X - dx - w, anchor.Y + ah + dy},  // lower-left
		{anchor.X + aw + dx, anchor.Y + ah + dy}, // lower-right
	}
	for _, c := range candidates {
		if g.free(c[0], c[1], w, h) {
			g.mark(c[0], c[1], w, h)
			return c[0], c[1]
		}
	}
	return g.place(anchor.X, anchor.Y+ah+dy, w, h)
}

// Overlaps reports whether any two positioned nodes' bounding rectangles
// overlap. Exported for tests and the check command.
func Overlaps(nodes []*model.Node, positions map[string]model.Position) bool {
	type rect struct{ x, y, w, h float64 }
	rects := make([]rect, 0, len(positions))
	for _, n := range nodes {
		p, ok := positions[n.ID]
		if !ok {
			continue
		}
		w, h := NodeSize(n)
		rects = append(rects, rect{p.X, p.Y, w, h})
	}
	for i := 0; i < len(rects); i++ {
		for j := i + 1; j < len(rects); j++ {
			a, b := rects[i], rects[j]
			if a.x < b.x+b.w && b.x < a.x+a.w && a.y < b.y+b.h && b.y < a.y+a.h {
				return true
			}
		}
	}
	return false
}
