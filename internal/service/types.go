// Package service contains business logic for the farmmap platform.
package service

// FarmShop is a single farm-shop record as the map layer sees it: identity,
// location, and the offering tags that drive pin selection. Approval state is
// owned by the directory CRUD layer and never reaches this service.
//
// Single source of truth: Huma reads the tags for OpenAPI + validation.
type FarmShop struct {
	ID        string   `json:"id,omitempty" doc:"Unique farm identifier" example:"darts_farm"`
	Slug      string   `json:"slug,omitempty" doc:"URL slug" example:"darts-farm"`
	Name      string   `json:"name" required:"true" minLength:"1" maxLength:"120" doc:"Display name" example:"Darts Farm"`
	Lat       float64  `json:"lat" required:"true" minimum:"-90" maximum:"90" doc:"Latitude (WGS84)" example:"50.6921"`
	Lng       float64  `json:"lng" required:"true" minimum:"-180" maximum:"180" doc:"Longitude (WGS84)" example:"-3.4458"`
	Address   string   `json:"address,omitempty" doc:"Street address" example:"Topsham Road, Exeter"`
	County    string   `json:"county,omitempty" doc:"County" example:"Devon"`
	Postcode  string   `json:"postcode,omitempty" doc:"Postcode" example:"EX3 0QH"`
	Offerings []string `json:"offerings,omitempty" doc:"Offering category tags, used for pin selection" example:"[\"farm-shop\",\"cafe\"]"`
}

// HasOffering reports whether the farm carries the given offering tag.
func (f FarmShop) HasOffering(tag string) bool {
	for _, o := range f.Offerings {
		if o == tag {
			return true
		}
	}
	return false
}

// Bounds is a geographic bounding box in WGS84 degrees.
type Bounds struct {
	West  float64 `json:"west" minimum:"-180" maximum:"180" doc:"Western longitude" example:"-5.7"`
	South float64 `json:"south" minimum:"-90" maximum:"90" doc:"Southern latitude" example:"49.9"`
	East  float64 `json:"east" minimum:"-180" maximum:"180" doc:"Eastern longitude" example:"1.8"`
	North float64 `json:"north" minimum:"-90" maximum:"90" doc:"Northern latitude" example:"58.7"`
}

// Contains reports whether the point lies within the box.
func (b Bounds) Contains(lat, lng float64) bool {
	return lng >= b.West && lng <= b.East && lat >= b.South && lat <= b.North
}

// Valid reports whether the box is ordered and non-degenerate.
func (b Bounds) Valid() bool {
	if b.West == 0 && b.East == 0 && b.South == 0 && b.North == 0 {
		return false
	}
	return b.West <= b.East && b.South <= b.North
}

// UserLocationSample is one point-in-time geolocation reading from the host
// platform. A new sample fully replaces the previous one.
type UserLocationSample struct {
	Lat       float64 `json:"lat" doc:"Latitude (WGS84)"`
	Lng       float64 `json:"lng" doc:"Longitude (WGS84)"`
	Accuracy  float64 `json:"accuracy" minimum:"0" doc:"Accuracy radius in meters"`
	Timestamp int64   `json:"timestamp" doc:"Unix milliseconds when the sample was taken"`
}
