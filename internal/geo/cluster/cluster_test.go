package cluster

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/farmshopfinder/farmmap/internal/service"
)

var ukBounds = service.Bounds{West: -8.6, South: 49.9, East: 1.8, North: 60.9}

// syntheticUK generates n farms spread over Great Britain with a few dense
// hotspots, roughly matching the real directory's distribution.
func syntheticUK(n int) []service.FarmShop {
	rng := rand.New(rand.NewSource(42))
	hotspots := [][2]float64{
		{50.72, -3.52}, // Exeter
		{51.45, -2.58}, // Bristol
		{53.48, -2.24}, // Manchester
		{52.48, -1.89}, // Birmingham
		{55.95, -3.19}, // Edinburgh
	}

	farms := make([]service.FarmShop, 0, n)
	for i := 0; i < n; i++ {
		var lat, lng float64
		if i%3 == 0 {
			h := hotspots[rng.Intn(len(hotspots))]
			lat = h[0] + rng.NormFloat64()*0.15
			lng = h[1] + rng.NormFloat64()*0.2
		} else {
			lat = 50.2 + rng.Float64()*8.0
			lng = -6.0 + rng.Float64()*7.0
		}
		farms = append(farms, service.FarmShop{
			ID:  fmt.Sprintf("farm_%04d", i),
			Lat: lat,
			Lng: lng,
		})
	}
	return farms
}

func TestClustersAtCountryZoom(t *testing.T) {
	x := NewIndex(DefaultOptions())
	x.Load(syntheticUK(1300))

	nodes := x.ClustersIn(ukBounds, 5)
	if len(nodes) == 0 {
		t.Fatal("no nodes at country zoom")
	}
	if len(nodes) >= 100 {
		t.Fatalf("country zoom produced %d nodes, want far fewer than the 1300 farms", len(nodes))
	}

	total := 0
	for _, n := range nodes {
		total += n.Count
	}
	if total > 1300 {
		t.Fatalf("nodes represent %d farms, more than indexed", total)
	}
}

func TestNoClusteringAboveDisableZoom(t *testing.T) {
	x := NewIndex(DefaultOptions())
	x.Load(syntheticUK(200))

	nodes := x.ClustersIn(ukBounds, 17)
	for _, n := range nodes {
		if n.IsCluster() {
			t.Fatalf("found cluster %s at zoom 17", n.ID)
		}
	}
}

func TestZoomSplitsClusters(t *testing.T) {
	x := NewIndex(DefaultOptions())
	x.Load(syntheticUK(1300))

	coarse := len(x.ClustersIn(ukBounds, 5))
	fine := len(x.ClustersIn(ukBounds, 12))
	if fine <= coarse {
		t.Fatalf("zoom 12 produced %d nodes, zoom 5 produced %d; zooming in should split clusters", fine, coarse)
	}
}

func TestDeterministicNodeIDs(t *testing.T) {
	x := NewIndex(DefaultOptions())
	x.Load(syntheticUK(500))

	first := x.ClustersIn(ukBounds, 6)
	second := x.ClustersIn(ukBounds, 6)
	if len(first) != len(second) {
		t.Fatalf("node count changed between identical queries: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("node %d ID changed: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
}

func TestInsertRemove(t *testing.T) {
	x := NewIndex(DefaultOptions())
	x.Insert(service.FarmShop{ID: "a", Lat: 51.5, Lng: -0.1})
	x.Insert(service.FarmShop{ID: "b", Lat: 51.5001, Lng: -0.1001})
	if x.Len() != 2 {
		t.Fatalf("Len=%d, want 2", x.Len())
	}

	box := service.Bounds{West: -1, South: 51, East: 1, North: 52}
	nodes := x.ClustersIn(box, 8)
	if len(nodes) != 1 || !nodes[0].IsCluster() {
		t.Fatalf("two adjacent farms at zoom 8 should form one cluster, got %+v", nodes)
	}

	x.Remove("b")
	x.Remove("b") // second remove is a no-op
	if x.Len() != 1 {
		t.Fatalf("Len=%d after remove, want 1", x.Len())
	}
	nodes = x.ClustersIn(box, 8)
	if len(nodes) != 1 || nodes[0].ID != "a" {
		t.Fatalf("expected single leaf a, got %+v", nodes)
	}
}

func TestEmptyViewport(t *testing.T) {
	x := NewIndex(DefaultOptions())
	x.Load(syntheticUK(100))

	// mid-Atlantic
	nodes := x.ClustersIn(service.Bounds{West: -40, South: 30, East: -30, North: 40}, 6)
	if len(nodes) != 0 {
		t.Fatalf("empty region returned %d nodes", len(nodes))
	}
}

func TestDisplayCountCap(t *testing.T) {
	cases := []struct {
		count int
		want  string
	}{
		{1, "1"},
		{99, "99"},
		{100, "99+"},
		{412, "99+"},
	}
	for _, c := range cases {
		n := Node{Count: c.count}
		if got := n.DisplayCount(); got != c.want {
			t.Fatalf("DisplayCount(%d)=%q, want %q", c.count, got, c.want)
		}
	}
}

func TestSizeTiers(t *testing.T) {
	cases := []struct {
		count int
		want  int
	}{
		{2, 0},
		{4, 0},
		{5, 1},
		{10, 2},
		{20, 3},
		{50, 4},
		{412, 4},
	}
	for _, c := range cases {
		n := Node{Count: c.count}
		if got := n.SizeTier(); got != c.want {
			t.Fatalf("SizeTier(%d)=%d, want %d", c.count, got, c.want)
		}
	}
}

func TestAggregateIdentityStableAcrossReload(t *testing.T) {
	farms := syntheticUK(300)

	x := NewIndex(DefaultOptions())
	x.Load(farms)
	before := x.ClustersIn(ukBounds, 6)

	// Reload in a different order; same membership must yield same IDs.
	reversed := make([]service.FarmShop, len(farms))
	for i, f := range farms {
		reversed[len(farms)-1-i] = f
	}
	x.Load(reversed)
	after := x.ClustersIn(ukBounds, 6)

	if len(before) != len(after) {
		t.Fatalf("node count changed after reload: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Fatalf("node ID changed after reload: %q vs %q", before[i].ID, after[i].ID)
		}
	}
}
