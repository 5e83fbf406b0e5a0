// Package cluster groups nearby farm markers into aggregate nodes per zoom
// level, so dense areas render as a handful of cluster pins instead of
// thousands of individual markers.
//
// The index stores farms projected into normalized world coordinates and
// bucketed into a fixed grid, so single-farm inserts and removals never
// rebuild the structure. Clustering itself is a sweep over the in-view
// points with a pixel radius that scales inversely with zoom.
package cluster

import (
	"sort"
	"strconv"
	"sync"

	"github.com/farmshopfinder/farmmap/internal/geo/mercator"
	"github.com/farmshopfinder/farmmap/internal/service"
)

// Options tunes the clustering behavior.
type Options struct {
	// Radius is the clustering radius in screen pixels.
	Radius float64
	// Extent is the tile extent used to convert pixels to world units.
	Extent int
	// DisableZoom is the zoom level at and above which clustering is off
	// and every farm renders as an individual pin.
	DisableZoom float64
	// MinPoints is the minimum number of neighbors that form an aggregate.
	MinPoints int
}

// DefaultOptions mirror the marker-cluster settings of the hosted map.
func DefaultOptions() Options {
	return Options{
		Radius:      48,
		Extent:      512,
		DisableZoom: 17,
		MinPoints:   2,
	}
}

// sizeTiers are the member-count thresholds at which a cluster pin steps up
// in visual size. Tier 0 is the smallest pin.
var sizeTiers = [...]int{5, 10, 20, 50}

// displayCap saturates the rendered count so dense urban clusters never
// overflow the pin label.
const displayCap = 99

// Node is one renderable unit: a leaf (single farm) or an aggregate.
// Nodes are transient and recomputed per viewport change, never persisted.
type Node struct {
	ID      string   `json:"id" doc:"Stable node identifier"`
	Lat     float64  `json:"lat" doc:"Latitude of the farm or cluster centroid"`
	Lng     float64  `json:"lng" doc:"Longitude of the farm or cluster centroid"`
	Count   int      `json:"count" doc:"Number of farms represented"`
	Members []string `json:"members,omitempty" doc:"Member farm IDs (aggregates only)"`
}

// IsCluster reports whether the node aggregates more than one farm.
func (n Node) IsCluster() bool { return n.Count > 1 }

// DisplayCount returns the pin label, saturating at "99+".
func (n Node) DisplayCount() string {
	if n.Count > displayCap {
		return strconv.Itoa(displayCap) + "+"
	}
	return strconv.Itoa(n.Count)
}

// SizeTier returns the visual size step for the node, 0 (smallest) to
// len(sizeTiers) (largest).
func (n Node) SizeTier() int {
	tier := 0
	for _, threshold := range sizeTiers {
		if n.Count >= threshold {
			tier++
		}
	}
	return tier
}

// gridZoom fixes the bucket granularity: 2^gridZoom cells per world axis.
const gridZoom = 7

type point struct {
	id   string
	x, y float64 // normalized world coordinates
	lat  float64
	lng  float64
}

type cell struct{ cx, cy int }

// Index is the incremental spatial index over the farm set.
type Index struct {
	mu     sync.RWMutex
	opts   Options
	points map[string]point
	grid   map[cell]map[string]struct{}
}

// NewIndex creates an empty index.
func NewIndex(opts Options) *Index {
	if opts.Radius <= 0 {
		opts.Radius = 48
	}
	if opts.Extent <= 0 {
		opts.Extent = 512
	}
	if opts.DisableZoom <= 0 {
		opts.DisableZoom = 17
	}
	if opts.MinPoints <= 0 {
		opts.MinPoints = 2
	}
	return &Index{
		opts:   opts,
		points: make(map[string]point),
		grid:   make(map[cell]map[string]struct{}),
	}
}

// Load replaces the whole farm set.
func (x *Index) Load(farms []service.FarmShop) {
	x.mu.Lock()
	x.points = make(map[string]point, len(farms))
	x.grid = make(map[cell]map[string]struct{})
	x.mu.Unlock()
	for _, f := range farms {
		x.Insert(f)
	}
}

// Insert adds or replaces a single farm.
func (x *Index) Insert(f service.FarmShop) {
	px, py := mercator.Project(f.Lat, f.Lng)
	p := point{id: f.ID, x: px, y: py, lat: f.Lat, lng: f.Lng}

	x.mu.Lock()
	defer x.mu.Unlock()

	if old, ok := x.points[f.ID]; ok {
		x.removeFromGrid(old)
	}
	x.points[f.ID] = p
	c := cellOf(p.x, p.y)
	if x.grid[c] == nil {
		x.grid[c] = make(map[string]struct{})
	}
	x.grid[c][f.ID] = struct{}{}
}

// Remove deletes a farm by ID. Removing an unknown ID is a no-op.
func (x *Index) Remove(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	p, ok := x.points[id]
	if !ok {
		return
	}
	delete(x.points, id)
	x.removeFromGrid(p)
}

// Len returns the number of indexed farms.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.points)
}

func (x *Index) removeFromGrid(p point) {
	c := cellOf(p.x, p.y)
	if bucket, ok := x.grid[c]; ok {
		delete(bucket, p.id)
		if len(bucket) == 0 {
			delete(x.grid, c)
		}
	}
}

func cellOf(px, py float64) cell {
	n := float64(int(1) << gridZoom)
	cx := int(px * n)
	cy := int(py * n)
	max := (1 << gridZoom) - 1
	if cx < 0 {
		cx = 0
	}
	if cx > max {
		cx = max
	}
	if cy < 0 {
		cy = 0
	}
	if cy > max {
		cy = max
	}
	return cell{cx, cy}
}

// ClustersIn returns the renderable nodes for the viewport at a zoom level.
// At or above the disable zoom every in-view farm is its own leaf node.
// An empty result is the normal empty state.
func (x *Index) ClustersIn(b service.Bounds, zoom float64) []Node {
	// Padding of one cluster radius so merges straddling the edge are stable.
	pad := x.opts.Radius / mercator.Scale(zoom, x.opts.Extent)
	pts := x.inBounds(b, pad)
	if len(pts) == 0 {
		return nil
	}

	// Sweep expects points ordered by x; tie on ID keeps the result
	// deterministic regardless of map iteration order.
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].x != pts[j].x {
			return pts[i].x < pts[j].x
		}
		return pts[i].id < pts[j].id
	})

	if zoom >= x.opts.DisableZoom {
		nodes := make([]Node, 0, len(pts))
		for _, p := range pts {
			if b.Contains(p.lat, p.lng) {
				nodes = append(nodes, Node{ID: p.id, Lat: p.lat, Lng: p.lng, Count: 1})
			}
		}
		return nodes
	}

	radius := x.opts.Radius / mercator.Scale(zoom, x.opts.Extent)
	nodes := x.sweep(pts, radius)

	// Drop nodes whose centroid drifted outside the unpadded viewport.
	out := nodes[:0]
	for _, n := range nodes {
		if b.Contains(n.Lat, n.Lng) {
			out = append(out, n)
		}
	}
	return out
}

// inBounds collects indexed points inside the padded box via the grid.
func (x *Index) inBounds(b service.Bounds, pad float64) []point {
	x.mu.RLock()
	defer x.mu.RUnlock()

	minX, minY := mercator.Project(b.North, b.West)
	maxX, maxY := mercator.Project(b.South, b.East)
	minX -= pad
	minY -= pad
	maxX += pad
	maxY += pad

	minC := cellOf(minX, minY)
	maxC := cellOf(maxX, maxY)

	// A viewport covering most of the grid is cheaper to satisfy with a
	// full scan than with per-cell lookups.
	cells := (maxC.cx - minC.cx + 1) * (maxC.cy - minC.cy + 1)
	var result []point
	if cells >= len(x.points) {
		for _, p := range x.points {
			if p.x >= minX && p.x <= maxX && p.y >= minY && p.y <= maxY {
				result = append(result, p)
			}
		}
		return result
	}

	for cx := minC.cx; cx <= maxC.cx; cx++ {
		for cy := minC.cy; cy <= maxC.cy; cy++ {
			for id := range x.grid[cell{cx, cy}] {
				p := x.points[id]
				if p.x >= minX && p.x <= maxX && p.y >= minY && p.y <= maxY {
					result = append(result, p)
				}
			}
		}
	}
	return result
}

// sweep greedily merges points within radius of each other, walking the
// x-sorted slice once. Aggregate IDs derive from the member set so the same
// membership always yields the same node identity.
func (x *Index) sweep(pts []point, radius float64) []Node {
	processed := make(map[string]bool, len(pts))
	var nodes []Node

	for i, p := range pts {
		if processed[p.id] {
			continue
		}

		nearby := []point{p}
		for j := i + 1; j < len(pts); j++ {
			other := pts[j]
			if other.x-p.x > radius {
				break // sorted by x, nothing further can be in range
			}
			if processed[other.id] {
				continue
			}
			dx := other.x - p.x
			dy := other.y - p.y
			if dx*dx+dy*dy <= radius*radius {
				nearby = append(nearby, other)
			}
		}

		if len(nearby) >= x.opts.MinPoints {
			nodes = append(nodes, makeAggregate(nearby))
			for _, np := range nearby {
				processed[np.id] = true
			}
			continue
		}

		nodes = append(nodes, Node{ID: p.id, Lat: p.lat, Lng: p.lng, Count: 1})
		processed[p.id] = true
	}

	return nodes
}

func makeAggregate(members []point) Node {
	var sumX, sumY float64
	ids := make([]string, len(members))
	for i, m := range members {
		sumX += m.x
		sumY += m.y
		ids[i] = m.id
	}
	sort.Strings(ids)

	lat, lng := mercator.Unproject(sumX/float64(len(members)), sumY/float64(len(members)))
	return Node{
		ID:      "cluster_" + ids[0] + "_" + strconv.Itoa(len(ids)),
		Lat:     lat,
		Lng:     lng,
		Count:   len(members),
		Members: ids,
	}
}
