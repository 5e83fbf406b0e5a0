package viewport

import (
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/farmshopfinder/farmmap/internal/service"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SettleDelay = 20 * time.Millisecond
	cfg.FlyToDuration = 60 * time.Millisecond
	cfg.FlyToStep = 5 * time.Millisecond
	return cfg
}

type recorder struct {
	mu     sync.Mutex
	bounds []service.Bounds
	zooms  []float64
}

func (r *recorder) attach(c *Controller) {
	c.OnBoundsChange(func(b service.Bounds) {
		r.mu.Lock()
		r.bounds = append(r.bounds, b)
		r.mu.Unlock()
	})
	c.OnZoomChange(func(z float64) {
		r.mu.Lock()
		r.zooms = append(r.zooms, z)
		r.mu.Unlock()
	})
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bounds), len(r.zooms)
}

func TestRapidGesturesCoalesceToOneSettle(t *testing.T) {
	c := NewController(testConfig(), 54, -2.5, 6)
	defer c.Stop()
	var rec recorder
	rec.attach(c)

	// A burst of pans well inside the settle delay.
	for i := 0; i < 10; i++ {
		c.Pan(0.01, 0.01)
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	nb, _ := rec.counts()
	if nb != 1 {
		t.Fatalf("got %d bounds notifications for one gesture burst, want 1", nb)
	}
}

func TestZoomNotifiedOnlyWhenChanged(t *testing.T) {
	c := NewController(testConfig(), 54, -2.5, 6)
	defer c.Stop()
	var rec recorder
	rec.attach(c)

	c.Pan(0.5, 0) // same zoom
	time.Sleep(60 * time.Millisecond)
	c.SetZoom(8)
	time.Sleep(60 * time.Millisecond)

	nb, nz := rec.counts()
	if nb != 2 {
		t.Fatalf("got %d bounds notifications, want 2", nb)
	}
	// First settle reports the initial zoom, second reports the change.
	if nz != 2 {
		t.Fatalf("got %d zoom notifications, want 2", nz)
	}
	rec.mu.Lock()
	last := rec.zooms[len(rec.zooms)-1]
	rec.mu.Unlock()
	if last != 8 {
		t.Fatalf("last zoom notification = %v, want 8", last)
	}

	c.Pan(0.5, 0) // zoom unchanged again
	time.Sleep(60 * time.Millisecond)
	_, nz2 := rec.counts()
	if nz2 != 2 {
		t.Fatalf("pan without zoom change produced a zoom notification")
	}
}

func TestFlyToNeverZoomsOut(t *testing.T) {
	c := NewController(testConfig(), 54, -2.5, 16)
	defer c.Stop()

	c.FlyTo(50.69, -3.44, 14)
	time.Sleep(150 * time.Millisecond)

	if z := c.Zoom(); z != 16 {
		t.Fatalf("flight from zoom 16 with floor 14 ended at %v, want 16", z)
	}
	lat, lng := c.Center()
	if lat > 50.70 || lat < 50.68 || lng > -3.43 || lng < -3.45 {
		t.Fatalf("flight did not arrive: center=(%v, %v)", lat, lng)
	}
}

func TestFlyToRaisesToFloor(t *testing.T) {
	c := NewController(testConfig(), 54, -2.5, 6)
	defer c.Stop()

	c.FlyTo(50.69, -3.44, 14)
	time.Sleep(150 * time.Millisecond)

	if z := c.Zoom(); z != 14 {
		t.Fatalf("flight from zoom 6 with floor 14 ended at %v, want 14", z)
	}
}

func TestGestureCancelsFlight(t *testing.T) {
	c := NewController(testConfig(), 54, -2.5, 6)
	defer c.Stop()

	c.FlyTo(50.69, -3.44, 14)
	time.Sleep(10 * time.Millisecond) // mid-flight
	c.SetView(57.0, -4.0, 7)
	time.Sleep(150 * time.Millisecond)

	lat, lng := c.Center()
	if lat != 57.0 || lng != -4.0 {
		t.Fatalf("abandoned flight moved the camera: center=(%v, %v)", lat, lng)
	}
	if z := c.Zoom(); z != 7 {
		t.Fatalf("abandoned flight changed zoom: %v", z)
	}
}

func TestZoomClamped(t *testing.T) {
	c := NewController(testConfig(), 54, -2.5, 6)
	defer c.Stop()

	c.SetZoom(25)
	if z := c.Zoom(); z != 19 {
		t.Fatalf("zoom above max clamped to %v, want 19", z)
	}
	c.SetZoom(-2)
	if z := c.Zoom(); z != 3 {
		t.Fatalf("zoom below min clamped to %v, want 3", z)
	}
}

func TestBoundsContainCenter(t *testing.T) {
	c := NewController(testConfig(), 50.69, -3.44, 12)
	defer c.Stop()

	b := c.Bounds()
	if !b.Contains(50.69, -3.44) {
		t.Fatalf("bounds %+v do not contain the center", b)
	}
	if !b.Valid() {
		t.Fatalf("bounds %+v are not valid", b)
	}
}

func TestShareURLRoundTrip(t *testing.T) {
	c := NewController(testConfig(), 50.69215, -3.44583, 14.5)
	defer c.Stop()

	v := c.EncodeQuery()
	lat, lng, zoom, ok := ParseQuery(v)
	if !ok {
		t.Fatal("ParseQuery rejected EncodeQuery output")
	}
	if lat < 50.69 || lat > 50.70 || lng < -3.45 || lng > -3.44 || zoom != 14.5 {
		t.Fatalf("round trip drifted: lat=%v lng=%v zoom=%v", lat, lng, zoom)
	}

	if _, _, _, ok := ParseQuery(url.Values{"lat": {"51"}}); ok {
		t.Fatal("ParseQuery accepted partial query")
	}
}
