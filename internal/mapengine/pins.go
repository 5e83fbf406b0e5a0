package mapengine

import (
	"github.com/farmshopfinder/farmmap/internal/geo/cluster"
	"github.com/farmshopfinder/farmmap/internal/service"
)

// Pin is the visual identity of a marker.
type Pin struct {
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// PinRule maps one offering tag to a pin. Rules are evaluated in order and
// the first match wins, so a farm with several offerings always renders the
// same pin regardless of recomputation order.
type PinRule struct {
	Offering string
	Pin      Pin
}

// DefaultPinRules is the priority table for offering tags. Order matters:
// the more specific destination offerings outrank the generic farm-shop tag.
var DefaultPinRules = []PinRule{
	{"butcher", Pin{Icon: "meat", Color: "#c0392b"}},
	{"dairy", Pin{Icon: "milk", Color: "#f5e6c8"}},
	{"fishmonger", Pin{Icon: "fish", Color: "#2980b9"}},
	{"pick-your-own", Pin{Icon: "strawberry", Color: "#e74c3c"}},
	{"vineyard", Pin{Icon: "grapes", Color: "#8e44ad"}},
	{"cafe", Pin{Icon: "cup", Color: "#d35400"}},
	{"farm-shop", Pin{Icon: "barn", Color: "#27ae60"}},
}

// defaultPin renders farms whose offerings match no rule.
var defaultPin = Pin{Icon: "pin", Color: "#2c3e50"}

// clusterPin is shared by all aggregates; size tier drives the visual step.
var clusterPin = Pin{Icon: "cluster", Color: "#16a085"}

// selectedZIndex floats the selected marker above every sibling so it is
// never occluded. The icon itself is unchanged.
const selectedZIndex = 1000

// PinFor picks the pin for a farm from the rule table.
func PinFor(farm service.FarmShop, rules []PinRule) Pin {
	for _, rule := range rules {
		for _, tag := range farm.Offerings {
			if tag == rule.Offering {
				return rule.Pin
			}
		}
	}
	return defaultPin
}

// BuildMarkers converts cluster nodes into the desired marker set. lookup
// resolves leaf node IDs to farms; selectedID elevates that farm's marker.
func BuildMarkers(nodes []cluster.Node, lookup func(id string) (service.FarmShop, bool), selectedID string, rules []PinRule) []Marker {
	markers := make([]Marker, 0, len(nodes))
	for _, n := range nodes {
		if n.IsCluster() {
			markers = append(markers, Marker{
				ID:      n.ID,
				Lat:     n.Lat,
				Lng:     n.Lng,
				Pin:     clusterPin,
				Cluster: true,
				Label:   n.DisplayCount(),
				Tier:    n.SizeTier(),
			})
			continue
		}

		farm, ok := lookup(n.ID)
		if !ok {
			continue
		}
		m := Marker{
			ID:  n.ID,
			Lat: farm.Lat,
			Lng: farm.Lng,
			Pin: PinFor(farm, rules),
		}
		if n.ID == selectedID {
			m.Selected = true
			m.ZIndex = selectedZIndex
		}
		markers = append(markers, m)
	}
	return markers
}
