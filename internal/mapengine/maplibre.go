package mapengine

import "sync"

// MapLibre emits commands for the WebGL frontend. Markers live as features
// in a GeoJSON source; selection elevation maps to a feature sort key
// instead of a DOM z-index.
type MapLibre struct {
	mu       sync.Mutex
	bound    bool
	commands []Command
}

// NewMapLibre creates an unbound MapLibre engine.
func NewMapLibre() *MapLibre {
	return &MapLibre{}
}

func (e *MapLibre) Name() string { return "maplibre" }

func (e *MapLibre) Init(containerID string) error {
	if containerID == "" {
		return ErrNoContainer
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bound = true
	e.commands = append(e.commands, Command{
		Op: "map.init",
		Payload: map[string]any{
			"container": containerID,
			"engine":    "maplibre",
			"source":    "farms",
		},
	})
	return nil
}

func (e *MapLibre) AddMarker(m Marker) {
	e.push(Command{Op: "source.addFeature", Payload: e.feature(m)})
}

func (e *MapLibre) UpdateMarker(m Marker) {
	e.push(Command{Op: "source.setFeature", Payload: e.feature(m)})
}

func (e *MapLibre) RemoveMarker(id string) {
	e.push(Command{Op: "source.removeFeature", Payload: map[string]any{"id": id}})
}

func (e *MapLibre) SetViewport(lat, lng, zoom float64) {
	e.push(Command{Op: "map.jumpTo", Payload: map[string]any{
		"center": []float64{lng, lat}, // GeoJSON order
		"zoom":   zoom,
	}})
}

func (e *MapLibre) Flush() []Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.commands
	e.commands = nil
	return out
}

func (e *MapLibre) push(c Command) {
	e.mu.Lock()
	e.commands = append(e.commands, c)
	e.mu.Unlock()
}

// feature shapes a marker as a GeoJSON point feature for the farms source.
func (e *MapLibre) feature(m Marker) map[string]any {
	props := map[string]any{
		"icon":    m.Pin.Icon,
		"color":   m.Pin.Color,
		"sortKey": m.ZIndex,
	}
	if m.Cluster {
		props["cluster"] = true
		props["label"] = m.Label
		props["tier"] = m.Tier
	}
	if m.Selected {
		props["selected"] = true
	}
	return map[string]any{
		"id": m.ID,
		"geometry": map[string]any{
			"type":        "Point",
			"coordinates": []float64{m.Lng, m.Lat},
		},
		"properties": props,
	}
}
