package layout

import "math"

// cellSize is the spatial occupancy grid resolution, in canvas units.
// A rectangle is free only if every grid cell it covers is unmarked, which
// is what makes overlap impossible by construction.
const cellSize = 50.0

// grid tracks which cells are occupied by already-placed node rectangles.
type grid struct {
	occupied map[cell]bool

	// bounds of everything marked so far, valid once any is true
	any                    bool
	minX, minY, maxX, maxY float64
}

type cell struct{ col, row int }

func newGrid() *grid {
	return &grid{occupied: make(map[cell]bool)}
}

// cellsFor iterates the cells covered by the rectangle at top-left (x, y).
// A small margin keeps adjacent nodes from sharing a cell edge.
func cellsFor(x, y, w, h float64, fn func(cell) bool) bool {
	const margin = 1.0
	c0 := int(math.Floor((x - margin) / cellSize))
	r0 := int(math.Floor((y - margin) / cellSize))
	c1 := int(math.Floor((x + w + margin) / cellSize))
	r1 := int(math.Floor((y + h + margin) / cellSize))
	for c := c0; c <= c1; c++ {
		for r := r0; r <= r1; r++ {
			if !fn(cell{c, r}) {
				return false
			}
		}
	}
	return true
}

// free reports whether the rectangle overlaps nothing placed so far.
func (g *grid) free(x, y, w, h float64) bool {
	return cellsFor(x, y, w, h, func(c cell) bool {
		return !g.occupied[c]
	})
}

// mark claims the rectangle's cells and grows the bounds.
func (g *grid) mark(x, y, w, h float64) {
	cellsFor(x, y, w, h, func(c cell) bool {
		g.occupied[c] = true
		return true
	})
	if !g.any {
		g.any = true
		g.minX, g.minY, g.maxX, g.maxY = x, y, x+w, y+h
		return
	}
	g.minX = math.Min(g.minX, x)
	g.minY = math.Min(g.minY, y)
	g.maxX = math.Max(g.maxX, x+w)
	g.maxY = math.Max(g.maxY, y+h)
}

// nearestFree finds the closest free position to the ideal target using an
// expanding-ring search in cellSize steps. If the rings are exhausted it
// falls back to a coarse scan below the searched area and finally to a
// column beyond the right edge of everything placed, stepping down until a
// free spot appears. It never fails to produce a non-overlapping position.
func (g *grid) nearestFree(x, y, w, h float64) (float64, float64) {
	const maxRing = 40

	if g.free(x, y, w, h) {
		return x, y
	}
	for ring := 1; ring <= maxRing; ring++ {
		d := float64(ring) * cellSize
		for dc := -ring; dc <= ring; dc++ {
			for dr := -ring; dr <= ring; dr++ {
				// perimeter cells only
				if dc != -ring && dc != ring && dr != -ring && dr != ring {
					continue
				}
				cx := x + float64(dc)/float64(ring)*d
				cy := y + float64(dr)/float64(ring)*d
				if g.free(cx, cy, w, h) {
					return cx, cy
				}
			}
		}
	}

	// Coarse scan: sweep rows below the searched region.
	startY := y + float64(maxRing+1)*cellSize
	for row := 0; row < 200; row++ {
		for col := -100; col < 100; col++ {
			cx := x + float64(col)*cellSize
			cy := startY + float64(row)*cellSize
			if g.free(cx, cy, w, h) {
				return cx, cy
			}
		}
	}

	// Unconditional fallback: march right of all placed content.
	cx := g.maxX + 2*cellSize
	cy := g.minY
	for !g.free(cx, cy, w, h) {
		cx += cellSize
	}
	return cx, cy
}

// place resolves a free position near the ideal target, marks it, and
// returns it.
func (g *grid) place(x, y, w, h float64) (float64, float64) {
	px, py := g.nearestFree(x, y, w, h)
	g.mark(px, py, w, h)
	return px, py
}
