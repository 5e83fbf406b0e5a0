// Package mapengine renders the clustered farm set onto a browser map.
//
// A MapEngine is a command emitter for one rendering backend (Leaflet or
// MapLibre). Callers never talk to a backend directly: they declare the
// desired marker set and the Reconciler diffs it against what is already
// rendered, issuing the minimal add/update/remove calls. Clustering and
// selection logic never branch on backend identity.
package mapengine

import "fmt"

// Command is one backend-specific instruction shipped to the browser over
// the SSE channel.
type Command struct {
	Op      string         `json:"op"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Marker is a renderable pin: a single farm or a cluster aggregate.
// All fields are comparable so the reconciler can detect changes with a
// plain equality check; anything not listed here cannot cause a re-render.
type Marker struct {
	ID       string  `json:"id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Pin      Pin     `json:"pin"`
	Cluster  bool    `json:"cluster"`
	Label    string  `json:"label,omitempty"` // cluster count label, saturates at 99+
	Tier     int     `json:"tier"`            // cluster size step
	Selected bool    `json:"selected"`        // highlight ring
	ZIndex   int     `json:"zIndex"`          // selected markers float above siblings
}

// MapEngine abstracts one rendering backend.
type MapEngine interface {
	// Name identifies the backend ("leaflet" or "maplibre").
	Name() string
	// Init binds the engine to a page container. A missing container id is
	// a fatal initialization failure: the caller surfaces a retryable
	// "map unavailable" state, never a silently blank map.
	Init(containerID string) error
	AddMarker(m Marker)
	UpdateMarker(m Marker)
	RemoveMarker(id string)
	SetViewport(lat, lng, zoom float64)
	// Flush drains the queued commands for delivery to the browser.
	Flush() []Command
}

// ErrNoContainer is returned by Init when no container id was supplied.
var ErrNoContainer = fmt.Errorf("mapengine: no map container")

// New returns the engine for a backend name.
func New(backend string) (MapEngine, error) {
	switch backend {
	case "leaflet":
		return NewLeaflet(), nil
	case "maplibre":
		return NewMapLibre(), nil
	default:
		return nil, fmt.Errorf("mapengine: unknown backend %q", backend)
	}
}
