// Package mapui contains Datastar SSE handlers for the interactive map UI.
//
// The browser holds no map state of its own. It reports gestures and
// geolocation samples as Datastar signals; the handlers here run them through
// the viewport controller, selection machine, and cluster index, then stream
// back marker commands and overlay fragments.
package mapui

import (
	"sync"

	"github.com/farmshopfinder/farmmap/internal/geo/cluster"
	"github.com/farmshopfinder/farmmap/internal/geo/location"
	"github.com/farmshopfinder/farmmap/internal/geo/selection"
	"github.com/farmshopfinder/farmmap/internal/geo/viewport"
	"github.com/farmshopfinder/farmmap/internal/mapengine"
	"github.com/farmshopfinder/farmmap/internal/service"
)

// MapState bundles the live map subsystem shared by all map UI handlers.
type MapState struct {
	Farms     *service.FarmService
	Clusters  *cluster.Index
	Viewport  *viewport.Controller
	Selection *selection.Machine
	Tracker   *location.Tracker
	Bus       *service.EventBus
	PinRules  []mapengine.PinRule

	mu         sync.Mutex
	engine     mapengine.MapEngine
	reconciler *mapengine.Reconciler
	offering   string
}

// NewMapState wires a map state around an initialized engine.
func NewMapState(eng mapengine.MapEngine) *MapState {
	return &MapState{
		PinRules:   mapengine.DefaultPinRules,
		engine:     eng,
		reconciler: mapengine.NewReconciler(),
	}
}

// RefreshMarkers recomputes the clustered markers for the current viewport,
// reconciles them against what the client has rendered, and returns the
// engine commands needed to close the gap. A settled viewport with no farm
// or selection changes yields zero commands.
func (s *MapState) RefreshMarkers() []mapengine.Command {
	bounds := s.Viewport.Bounds()
	zoom := s.Viewport.Zoom()
	nodes := s.Clusters.ClustersIn(bounds, zoom)

	selectedID := ""
	if sel := s.Selection.Current(); sel.Farm != nil {
		selectedID = sel.Farm.ID
	}
	markers := mapengine.BuildMarkers(nodes, s.Farms.Get, selectedID, s.PinRules)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconciler.Apply(markers, s.engine)
	return s.engine.Flush()
}

// ResetMarkers forgets what the client has rendered, forcing the next
// refresh to emit the full marker set. Used when a new SSE stream attaches.
func (s *MapState) ResetMarkers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconciler.Reset()
	s.engine.Flush()
}

// EngineName reports the configured rendering backend.
func (s *MapState) EngineName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Name()
}

// SetOffering sets the offering tag the farm list panel is filtered by.
// Empty means unfiltered. The filter applies to the list only, never to
// the markers on the map.
func (s *MapState) SetOffering(tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offering = tag
}

// Offering returns the active farm list filter.
func (s *MapState) Offering() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offering
}

// FarmsInView lists the farms inside the current viewport, narrowed by the
// active offering filter.
func (s *MapState) FarmsInView() []service.FarmShop {
	farms := s.Farms.InBounds(s.Viewport.Bounds())
	tag := s.Offering()
	if tag == "" {
		return farms
	}
	filtered := farms[:0]
	for _, f := range farms {
		if f.HasOffering(tag) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}
