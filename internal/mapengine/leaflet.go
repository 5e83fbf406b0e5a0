package mapengine

import "sync"

// Leaflet emits commands for the Leaflet frontend: divIcon markers with a
// zIndexOffset, panes untouched, setView for camera moves.
type Leaflet struct {
	mu       sync.Mutex
	bound    bool
	commands []Command
}

// NewLeaflet creates an unbound Leaflet engine.
func NewLeaflet() *Leaflet {
	return &Leaflet{}
}

func (e *Leaflet) Name() string { return "leaflet" }

// Init binds to the page container.
func (e *Leaflet) Init(containerID string) error {
	if containerID == "" {
		return ErrNoContainer
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bound = true
	e.commands = append(e.commands, Command{
		Op:      "map.init",
		Payload: map[string]any{"container": containerID, "engine": "leaflet"},
	})
	return nil
}

func (e *Leaflet) AddMarker(m Marker) {
	e.push(Command{Op: "marker.add", Payload: e.payload(m)})
}

func (e *Leaflet) UpdateMarker(m Marker) {
	e.push(Command{Op: "marker.update", Payload: e.payload(m)})
}

func (e *Leaflet) RemoveMarker(id string) {
	e.push(Command{Op: "marker.remove", Payload: map[string]any{"id": id}})
}

func (e *Leaflet) SetViewport(lat, lng, zoom float64) {
	e.push(Command{Op: "map.setView", Payload: map[string]any{
		"latlng": []float64{lat, lng},
		"zoom":   zoom,
	}})
}

// Flush drains the queued commands.
func (e *Leaflet) Flush() []Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.commands
	e.commands = nil
	return out
}

func (e *Leaflet) push(c Command) {
	e.mu.Lock()
	e.commands = append(e.commands, c)
	e.mu.Unlock()
}

// payload shapes a marker for L.marker + L.divIcon options.
func (e *Leaflet) payload(m Marker) map[string]any {
	p := map[string]any{
		"id":           m.ID,
		"latlng":       []float64{m.Lat, m.Lng},
		"icon":         m.Pin.Icon,
		"color":        m.Pin.Color,
		"zIndexOffset": m.ZIndex,
	}
	if m.Cluster {
		p["cluster"] = true
		p["label"] = m.Label
		p["tier"] = m.Tier
	}
	if m.Selected {
		p["selected"] = true
	}
	return p
}
