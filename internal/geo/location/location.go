// Package location surfaces the host platform's geolocation subscription as
// map state: at most one "you are here" position with a geographic accuracy
// circle, plus the nearest-farm computation other components read.
//
// Samples arrive on a channel at whatever cadence the platform chooses.
// A closed channel means permission was denied or the API is unavailable;
// the tracker simply stays empty, which is a normal, unannounced state.
package location

import (
	"context"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/farmshopfinder/farmmap/internal/service"
)

// Nearest is the closest farm to the latest location sample.
type Nearest struct {
	Farm   service.FarmShop
	Meters float64
}

// Tracker holds the latest location sample, most-recent-wins.
type Tracker struct {
	mu       sync.RWMutex
	farms    func() []service.FarmShop
	current  service.UserLocationSample
	hasFix   bool
	nearest  Nearest
	hasFarm  bool
	onUpdate func(service.UserLocationSample, *Nearest)
}

// NewTracker creates a tracker. farms supplies the full farm set (not the
// clustered in-view subset) for nearest-farm scans.
func NewTracker(farms func() []service.FarmShop) *Tracker {
	return &Tracker{farms: farms}
}

// OnUpdate registers an observer called after each applied sample. nearest
// is nil when the farm set is empty.
func (t *Tracker) OnUpdate(fn func(sample service.UserLocationSample, nearest *Nearest)) {
	t.mu.Lock()
	t.onUpdate = fn
	t.mu.Unlock()
}

// Start consumes samples until the channel closes or the context ends.
// It returns immediately; consumption happens on its own goroutine.
func (t *Tracker) Start(ctx context.Context, samples <-chan service.UserLocationSample) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-samples:
				if !ok {
					// Permission denied or API unavailable. Not an error:
					// the map just never shows a location marker.
					return
				}
				t.Apply(s)
			}
		}
	}()
}

// Apply replaces the current sample and recomputes the nearest farm.
func (t *Tracker) Apply(s service.UserLocationSample) {
	farms := t.farms()
	nearest, found := NearestTo(s.Lat, s.Lng, farms)

	t.mu.Lock()
	t.current = s
	t.hasFix = true
	t.hasFarm = found
	if found {
		t.nearest = nearest
	}
	onUpdate := t.onUpdate
	t.mu.Unlock()

	if onUpdate != nil {
		var n *Nearest
		if found {
			n = &nearest
		}
		onUpdate(s, n)
	}
}

// Current returns the latest sample, if any has arrived.
func (t *Tracker) Current() (service.UserLocationSample, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current, t.hasFix
}

// NearestFarm returns the nearest farm to the latest sample. ok is false
// when no sample has arrived or the farm set is empty.
func (t *Tracker) NearestFarm() (Nearest, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nearest, t.hasFix && t.hasFarm
}

// NearestTo scans the full farm set for the minimum haversine distance.
// An O(n) pass is fine here: samples arrive every few seconds and farm
// counts are in the low thousands. Ties keep the first farm encountered.
func NearestTo(lat, lng float64, farms []service.FarmShop) (Nearest, bool) {
	if len(farms) == 0 {
		return Nearest{}, false
	}

	from := orb.Point{lng, lat}
	best := Nearest{Farm: farms[0], Meters: geo.DistanceHaversine(from, orb.Point{farms[0].Lng, farms[0].Lat})}
	for _, f := range farms[1:] {
		d := geo.DistanceHaversine(from, orb.Point{f.Lng, f.Lat})
		if d < best.Meters {
			best = Nearest{Farm: f, Meters: d}
		}
	}
	return best, true
}

// AccuracyCircle polygonizes the sample's accuracy radius as a geographic
// circle. Being geographic (meters, not pixels), it scales with zoom when
// rendered.
func AccuracyCircle(s service.UserLocationSample, segments int) orb.Polygon {
	if segments < 3 {
		segments = 36
	}
	center := orb.Point{s.Lng, s.Lat}

	ring := make(orb.Ring, 0, segments+1)
	for i := 0; i < segments; i++ {
		bearing := float64(i) * 360 / float64(segments)
		ring = append(ring, geo.PointAtBearingAndDistance(center, bearing, s.Accuracy))
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}
