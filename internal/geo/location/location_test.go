package location

import (
	"context"
	"testing"
	"time"

	"github.com/farmshopfinder/farmmap/internal/service"
)

var testFarms = []service.FarmShop{
	{ID: "darts_farm", Name: "Darts Farm", Lat: 50.6921, Lng: -3.4458},
	{ID: "occombe", Name: "Occombe Farm", Lat: 50.4619, Lng: -3.5705},
	{ID: "river_swale", Name: "River Swale Dairy", Lat: 54.38, Lng: -1.73},
}

func farmsFn() []service.FarmShop { return testFarms }

func TestNearestTo(t *testing.T) {
	// Exeter city centre, a few km from Darts Farm.
	n, ok := NearestTo(50.7236, -3.5275, testFarms)
	if !ok {
		t.Fatal("no nearest farm found")
	}
	if n.Farm.ID != "darts_farm" {
		t.Fatalf("nearest = %s, want darts_farm", n.Farm.ID)
	}
	if n.Meters < 1000 || n.Meters > 20000 {
		t.Fatalf("distance %v meters implausible for Exeter to Topsham", n.Meters)
	}
}

func TestNearestToEmptySet(t *testing.T) {
	if _, ok := NearestTo(50.7, -3.5, nil); ok {
		t.Fatal("empty farm set returned a nearest farm")
	}
}

func TestNearestTieKeepsFirst(t *testing.T) {
	twins := []service.FarmShop{
		{ID: "twin_a", Lat: 51.0, Lng: -1.0},
		{ID: "twin_b", Lat: 51.0, Lng: -1.0},
	}
	n, ok := NearestTo(51.0, -1.0, twins)
	if !ok || n.Farm.ID != "twin_a" {
		t.Fatalf("tie broke to %v, want twin_a", n.Farm.ID)
	}
}

func TestMostRecentSampleWins(t *testing.T) {
	tr := NewTracker(farmsFn)

	tr.Apply(service.UserLocationSample{Lat: 50.72, Lng: -3.52, Timestamp: 1})
	tr.Apply(service.UserLocationSample{Lat: 54.40, Lng: -1.70, Timestamp: 2})

	cur, ok := tr.Current()
	if !ok || cur.Timestamp != 2 {
		t.Fatalf("current = %+v, want the second sample", cur)
	}
	n, ok := tr.NearestFarm()
	if !ok || n.Farm.ID != "river_swale" {
		t.Fatalf("nearest after move = %v, want river_swale", n.Farm.ID)
	}
}

func TestClosedChannelStopsTracking(t *testing.T) {
	tr := NewTracker(farmsFn)
	ch := make(chan service.UserLocationSample)
	tr.Start(context.Background(), ch)

	// permission denied: the feed closes without ever producing a sample
	close(ch)
	time.Sleep(20 * time.Millisecond)

	if _, ok := tr.Current(); ok {
		t.Fatal("tracker has a fix without any sample")
	}
	if _, ok := tr.NearestFarm(); ok {
		t.Fatal("tracker has a nearest farm without any sample")
	}
}

func TestStartConsumesSamples(t *testing.T) {
	tr := NewTracker(farmsFn)

	updates := make(chan struct{}, 4)
	tr.OnUpdate(func(service.UserLocationSample, *Nearest) {
		updates <- struct{}{}
	})

	ch := make(chan service.UserLocationSample, 2)
	tr.Start(context.Background(), ch)
	ch <- service.UserLocationSample{Lat: 50.72, Lng: -3.52, Timestamp: 1}

	select {
	case <-updates:
	case <-time.After(time.Second):
		t.Fatal("sample was not consumed")
	}

	n, ok := tr.NearestFarm()
	if !ok || n.Farm.ID != "darts_farm" {
		t.Fatalf("nearest = %v, want darts_farm", n.Farm.ID)
	}
}

func TestAccuracyCircle(t *testing.T) {
	s := service.UserLocationSample{Lat: 50.7, Lng: -3.5, Accuracy: 150}
	poly := AccuracyCircle(s, 0)
	if len(poly) != 1 {
		t.Fatalf("polygon has %d rings, want 1", len(poly))
	}
	ring := poly[0]
	if len(ring) != 37 {
		t.Fatalf("default ring has %d points, want 37 (36 segments closed)", len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		t.Fatal("ring is not closed")
	}
	// every vertex should be ~150m from the center
	for _, pt := range ring {
		n, _ := NearestTo(50.7, -3.5, []service.FarmShop{{ID: "v", Lat: pt.Lat(), Lng: pt.Lon()}})
		if n.Meters < 140 || n.Meters > 160 {
			t.Fatalf("vertex %v is %v meters from center, want ~150", pt, n.Meters)
		}
	}
}
