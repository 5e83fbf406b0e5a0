// Package viewport tracks the map's visible window: center, zoom, and the
// geographic bounds derived from them.
//
// Gesture updates (pan, zoom, programmatic jumps) do not notify listeners
// directly. Each update re-arms a settle timer; when input goes quiet the
// controller emits one bounds-changed and, if the zoom moved, one
// zoom-changed notification. Rapid intermediate states coalesce into a
// single notification per settle, and notifications are delivered in settle
// order.
package viewport

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/farmshopfinder/farmmap/internal/geo/mercator"
	"github.com/farmshopfinder/farmmap/internal/service"
)

// Config holds the viewport tuning knobs.
type Config struct {
	MinZoom float64
	MaxZoom float64
	// WidthPx/HeightPx are the viewport dimensions used to derive bounds.
	WidthPx  int
	HeightPx int
	// SettleDelay is how long input must be quiet before listeners fire.
	SettleDelay time.Duration
	// FlyToDuration is the length of a programmatic camera flight.
	FlyToDuration time.Duration
	// FlyToStep is the animation frame interval.
	FlyToStep time.Duration
}

// DefaultConfig returns the hosted map's viewport settings.
func DefaultConfig() Config {
	return Config{
		MinZoom:       3,
		MaxZoom:       19,
		WidthPx:       1280,
		HeightPx:      800,
		SettleDelay:   200 * time.Millisecond,
		FlyToDuration: 600 * time.Millisecond,
		FlyToStep:     16 * time.Millisecond,
	}
}

// Controller owns the viewport state. All mutation goes through its methods;
// listeners only observe settled states.
type Controller struct {
	cfg Config

	mu        sync.Mutex
	centerLat float64
	centerLng float64
	zoom      float64

	settleTimer *time.Timer
	gen         int // bumped on every gesture; in-flight animations check it

	lastSettledZoom float64
	settled         bool

	onBounds func(service.Bounds)
	onZoom   func(float64)

	// dispatchMu serializes listener callbacks so settle notifications
	// arrive in the order the gestures settled.
	dispatchMu sync.Mutex
}

// NewController creates a controller positioned at the given view.
func NewController(cfg Config, lat, lng, zoom float64) *Controller {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 200 * time.Millisecond
	}
	if cfg.FlyToDuration <= 0 {
		cfg.FlyToDuration = 600 * time.Millisecond
	}
	if cfg.FlyToStep <= 0 {
		cfg.FlyToStep = 16 * time.Millisecond
	}
	if cfg.MaxZoom <= cfg.MinZoom {
		cfg.MinZoom, cfg.MaxZoom = 3, 19
	}
	if cfg.WidthPx <= 0 || cfg.HeightPx <= 0 {
		cfg.WidthPx, cfg.HeightPx = 1280, 800
	}
	c := &Controller{cfg: cfg}
	c.centerLat = clampLat(lat)
	c.centerLng = clampLng(lng)
	c.zoom = c.clampZoom(zoom)
	c.lastSettledZoom = c.zoom
	return c
}

// OnBoundsChange registers the bounds-settled listener.
func (c *Controller) OnBoundsChange(fn func(service.Bounds)) {
	c.mu.Lock()
	c.onBounds = fn
	c.mu.Unlock()
}

// OnZoomChange registers the zoom-settled listener.
func (c *Controller) OnZoomChange(fn func(float64)) {
	c.mu.Lock()
	c.onZoom = fn
	c.mu.Unlock()
}

// Center returns the current center.
func (c *Controller) Center() (lat, lng float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.centerLat, c.centerLng
}

// Zoom returns the current zoom.
func (c *Controller) Zoom() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.zoom
}

// Bounds returns the bounds of the current view.
func (c *Controller) Bounds() service.Bounds {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.boundsLocked()
}

func (c *Controller) boundsLocked() service.Bounds {
	west, south, east, north := mercator.BoundsAt(
		c.centerLat, c.centerLng, c.zoom, c.cfg.WidthPx, c.cfg.HeightPx)
	return service.Bounds{West: west, South: south, East: east, North: north}
}

// SetView jumps the camera to a position. Any in-flight animation is
// abandoned; the move settles like a gesture.
func (c *Controller) SetView(lat, lng, zoom float64) {
	c.mu.Lock()
	c.gen++
	c.centerLat = clampLat(lat)
	c.centerLng = clampLng(lng)
	c.zoom = c.clampZoom(zoom)
	c.armSettleLocked()
	c.mu.Unlock()
}

// Pan offsets the center by degrees. Cancels any in-flight animation.
func (c *Controller) Pan(dLat, dLng float64) {
	c.mu.Lock()
	c.gen++
	c.centerLat = clampLat(c.centerLat + dLat)
	c.centerLng = clampLng(c.centerLng + dLng)
	c.armSettleLocked()
	c.mu.Unlock()
}

// SetZoom changes the zoom, clamped to the configured range. Cancels any
// in-flight animation.
func (c *Controller) SetZoom(zoom float64) {
	c.mu.Lock()
	c.gen++
	c.zoom = c.clampZoom(zoom)
	c.armSettleLocked()
	c.mu.Unlock()
}

// FlyTo animates the camera to the target. The destination zoom is the
// current zoom raised to at least minZoomFloor; a flight never zooms out.
// A gesture or another FlyTo starting mid-flight abandons this one.
func (c *Controller) FlyTo(lat, lng, minZoomFloor float64) {
	c.mu.Lock()
	c.gen++
	myGen := c.gen

	fromLat, fromLng, fromZoom := c.centerLat, c.centerLng, c.zoom
	toZoom := fromZoom
	if toZoom < minZoomFloor {
		toZoom = minZoomFloor
	}
	toZoom = c.clampZoom(toZoom)
	toLat, toLng := clampLat(lat), clampLng(lng)
	c.mu.Unlock()

	steps := int(c.cfg.FlyToDuration / c.cfg.FlyToStep)
	if steps < 1 {
		steps = 1
	}

	go func() {
		for i := 1; i <= steps; i++ {
			time.Sleep(c.cfg.FlyToStep)
			t := easeOutCubic(float64(i) / float64(steps))

			c.mu.Lock()
			if c.gen != myGen {
				c.mu.Unlock()
				return // abandoned, no settle from this flight
			}
			c.centerLat = fromLat + (toLat-fromLat)*t
			c.centerLng = fromLng + (toLng-fromLng)*t
			c.zoom = fromZoom + (toZoom-fromZoom)*t
			if i == steps {
				c.armSettleLocked()
			}
			c.mu.Unlock()
		}
	}()
}

// Stop cancels any pending settle timer and in-flight animation.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.gen++
	if c.settleTimer != nil {
		c.settleTimer.Stop()
		c.settleTimer = nil
	}
	c.mu.Unlock()
}

// armSettleLocked (re)starts the settle timer. Caller holds c.mu.
func (c *Controller) armSettleLocked() {
	if c.settleTimer != nil {
		c.settleTimer.Stop()
	}
	c.settleTimer = time.AfterFunc(c.cfg.SettleDelay, c.settle)
}

// settle snapshots the view and notifies listeners once per quiet period.
func (c *Controller) settle() {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.mu.Lock()
	bounds := c.boundsLocked()
	zoom := c.zoom
	zoomChanged := !c.settled || zoom != c.lastSettledZoom
	c.lastSettledZoom = zoom
	c.settled = true
	onBounds, onZoom := c.onBounds, c.onZoom
	c.mu.Unlock()

	if onBounds != nil {
		onBounds(bounds)
	}
	if zoomChanged && onZoom != nil {
		onZoom(zoom)
	}
}

func (c *Controller) clampZoom(z float64) float64 {
	return math.Max(c.cfg.MinZoom, math.Min(c.cfg.MaxZoom, z))
}

func clampLat(lat float64) float64 {
	return math.Max(-mercator.MaxLat, math.Min(mercator.MaxLat, lat))
}

func clampLng(lng float64) float64 {
	return math.Max(-180, math.Min(180, lng))
}

func easeOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

// EncodeQuery serializes the view for a shareable URL.
func (c *Controller) EncodeQuery() url.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := url.Values{}
	v.Set("lat", fmt.Sprintf("%.5f", c.centerLat))
	v.Set("lng", fmt.Sprintf("%.5f", c.centerLng))
	v.Set("z", fmt.Sprintf("%.2f", c.zoom))
	return v
}

// ParseQuery restores a view from URL query values. Returns false when any
// component is missing or malformed.
func ParseQuery(v url.Values) (lat, lng, zoom float64, ok bool) {
	var err error
	if lat, err = strconv.ParseFloat(v.Get("lat"), 64); err != nil {
		return 0, 0, 0, false
	}
	if lng, err = strconv.ParseFloat(v.Get("lng"), 64); err != nil {
		return 0, 0, 0, false
	}
	if zoom, err = strconv.ParseFloat(v.Get("z"), 64); err != nil {
		return 0, 0, 0, false
	}
	return lat, lng, zoom, true
}
