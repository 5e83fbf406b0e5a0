// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	"github.com/farmshopfinder/farmmap/internal/geo/cluster"
	"github.com/farmshopfinder/farmmap/internal/geo/location"
	"github.com/farmshopfinder/farmmap/internal/humastar"
	"github.com/farmshopfinder/farmmap/internal/service"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Farms    *service.FarmService
	Clusters *cluster.Index
	Bus      *service.EventBus
}

// farmActionDefs are the state-independent actions attached to every farm.
var farmActionDefs = []humastar.ActionDef{
	{Rel: "delete", Pattern: "/api/v1/farms/%s", Method: "DELETE", Title: "Delete farm"},
	{Rel: "edit", Pattern: "/api/v1/farms/%s", Method: "PUT", Title: "Update farm"},
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Farm ID" example:"darts_farm"`
}

type BoundsInput struct {
	West  float64 `query:"west" required:"true" doc:"Western longitude of the viewport" example:"-3.6"`
	South float64 `query:"south" required:"true" doc:"Southern latitude of the viewport" example:"50.6"`
	East  float64 `query:"east" required:"true" doc:"Eastern longitude of the viewport" example:"-3.3"`
	North float64 `query:"north" required:"true" doc:"Northern latitude of the viewport" example:"50.8"`
}

func (b BoundsInput) Bounds() service.Bounds {
	return service.Bounds{West: b.West, South: b.South, East: b.East, North: b.North}
}

type FarmBody struct {
	service.FarmShop
	Directions string `json:"directions,omitempty" doc:"External directions URL"`
}

// Actions implements humastar.Actor so farm responses carry Link headers
// for the operations a client can perform next.
func (b FarmBody) Actions() []humastar.Action {
	actions := humastar.ActionsFor(b.ID, farmActionDefs)
	actions = append(actions, humastar.Action{
		Rel:    "directions",
		Href:   b.Directions,
		Method: "GET",
		Title:  "Get directions",
	})
	return actions
}

type FarmOutput struct {
	Body FarmBody
}

type FarmsOutput struct {
	Body humastar.PageBody[FarmBody]
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type CreatedFarmBody struct {
	ID      string           `json:"id" doc:"Generated farm ID"`
	Farm    service.FarmShop `json:"farm" doc:"Created farm record"`
	Message string           `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// directionsURL builds an external routing link for a farm.
func directionsURL(f service.FarmShop) string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("destination", fmt.Sprintf("%f,%f", f.Lat, f.Lng))
	return "https://www.google.com/maps/dir/?" + q.Encode()
}

func farmBody(f service.FarmShop) FarmBody {
	return FarmBody{FarmShop: f, Directions: directionsURL(f)}
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterFarms registers farm CRUD routes.
func (h *APIHandler) RegisterFarms(api huma.API) {
	huma.Get(api, "/api/v1/farms", h.GetFarms, huma.OperationTags("farms"))
	huma.Post(api, "/api/v1/farms", h.CreateFarm, huma.OperationTags("farms"))
	huma.Get(api, "/api/v1/farms/nearest", h.GetNearestFarm, huma.OperationTags("farms"))
	huma.Get(api, "/api/v1/farms/{id}", h.GetFarm, huma.OperationTags("farms"))
	huma.Put(api, "/api/v1/farms/{id}", h.PutFarm, huma.OperationTags("farms"))
	huma.Delete(api, "/api/v1/farms/{id}", h.DeleteFarm, huma.OperationTags("farms"))
}

// RegisterClusters registers the cluster query route.
func (h *APIHandler) RegisterClusters(api huma.API) {
	huma.Get(api, "/api/v1/clusters", h.GetClusters, huma.OperationTags("map"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

type FarmListInput struct {
	Offering string   `query:"offering" doc:"Filter by offering slug" example:"butcher"`
	West     *float64 `query:"west" doc:"Western longitude filter"`
	South    *float64 `query:"south" doc:"Southern latitude filter"`
	East     *float64 `query:"east" doc:"Eastern longitude filter"`
	North    *float64 `query:"north" doc:"Northern latitude filter"`
	Offset   int      `query:"offset" default:"0" minimum:"0" doc:"Pagination offset"`
	Limit    int      `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Page size"`
}

// box returns the bbox filter. The four sides travel as a unit: all present
// or all absent, anything in between is an error, like the share-URL
// parameters.
func (in *FarmListInput) box() (service.Bounds, bool, error) {
	sides := 0
	for _, p := range []*float64{in.West, in.South, in.East, in.North} {
		if p != nil {
			sides++
		}
	}
	switch sides {
	case 0:
		return service.Bounds{}, false, nil
	case 4:
		b := service.Bounds{West: *in.West, South: *in.South, East: *in.East, North: *in.North}
		if !b.Valid() {
			return service.Bounds{}, false, huma.Error422UnprocessableEntity("bounds are empty or inverted")
		}
		return b, true, nil
	default:
		return service.Bounds{}, false, huma.Error422UnprocessableEntity("bounds need all of west, south, east, north")
	}
}

func (h *APIHandler) GetFarms(ctx context.Context, input *FarmListInput) (*FarmsOutput, error) {
	if h.svc == nil || h.svc.Farms == nil {
		return nil, huma.Error503ServiceUnavailable("farm service not available")
	}

	box, bounded, err := input.box()
	if err != nil {
		return nil, err
	}
	var farms []service.FarmShop
	if bounded {
		farms = h.svc.Farms.InBounds(box)
		sort.Slice(farms, func(i, j int) bool { return farms[i].ID < farms[j].ID })
	} else {
		farms = h.svc.Farms.List()
	}

	if input.Offering != "" {
		filtered := farms[:0]
		for _, f := range farms {
			if f.HasOffering(input.Offering) {
				filtered = append(filtered, f)
			}
		}
		farms = filtered
	}

	total := len(farms)
	start := input.Offset
	if start > total {
		start = total
	}
	end := start + input.Limit
	if end > total {
		end = total
	}

	page := make([]FarmBody, 0, end-start)
	for _, f := range farms[start:end] {
		page = append(page, farmBody(f))
	}

	return &FarmsOutput{Body: humastar.PageBody[FarmBody]{
		Total:  total,
		Offset: input.Offset,
		Limit:  input.Limit,
		Data:   page,
	}}, nil
}

func (h *APIHandler) CreateFarm(ctx context.Context, input *struct{ Body service.FarmShop }) (*struct{ Body CreatedFarmBody }, error) {
	if h.svc == nil || h.svc.Farms == nil {
		return nil, huma.Error503ServiceUnavailable("farm service not available")
	}
	created, err := h.svc.Farms.Create(input.Body)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	if h.svc.Clusters != nil {
		h.svc.Clusters.Insert(created)
	}
	h.publishFarmsChanged()
	return &struct{ Body CreatedFarmBody }{Body: CreatedFarmBody{
		ID: created.ID, Farm: created, Message: "Farm created",
	}}, nil
}

func (h *APIHandler) GetFarm(ctx context.Context, input *IDInput) (*FarmOutput, error) {
	if h.svc == nil || h.svc.Farms == nil {
		return nil, huma.Error503ServiceUnavailable("farm service not available")
	}
	farm, ok := h.svc.Farms.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("farm not found")
	}
	return &FarmOutput{Body: farmBody(farm)}, nil
}

func (h *APIHandler) PutFarm(ctx context.Context, input *struct {
	IDInput
	Body service.FarmShop
}) (*FarmOutput, error) {
	if h.svc == nil || h.svc.Farms == nil {
		return nil, huma.Error503ServiceUnavailable("farm service not available")
	}
	updated, err := h.svc.Farms.Update(input.ID, input.Body)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	if h.svc.Clusters != nil {
		h.svc.Clusters.Remove(input.ID)
		h.svc.Clusters.Insert(updated)
	}
	h.publishFarmsChanged()
	return &FarmOutput{Body: farmBody(updated)}, nil
}

func (h *APIHandler) DeleteFarm(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Farms == nil {
		return nil, huma.Error503ServiceUnavailable("farm service not available")
	}
	if err := h.svc.Farms.Delete(input.ID); err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	if h.svc.Clusters != nil {
		h.svc.Clusters.Remove(input.ID)
	}
	h.publishFarmsChanged()
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Farm deleted"}}, nil
}

type NearestInput struct {
	Lat float64 `query:"lat" required:"true" minimum:"-90" maximum:"90" doc:"Latitude of the user position"`
	Lng float64 `query:"lng" required:"true" minimum:"-180" maximum:"180" doc:"Longitude of the user position"`
}

type NearestBody struct {
	Farm     FarmBody `json:"farm" doc:"Nearest farm shop"`
	MetersTo float64  `json:"meters_to" doc:"Great-circle distance in meters"`
}

func (h *APIHandler) GetNearestFarm(ctx context.Context, input *NearestInput) (*struct{ Body NearestBody }, error) {
	if h.svc == nil || h.svc.Farms == nil {
		return nil, huma.Error503ServiceUnavailable("farm service not available")
	}
	nearest, ok := location.NearestTo(input.Lat, input.Lng, h.svc.Farms.List())
	if !ok {
		return nil, huma.Error404NotFound("no farms loaded")
	}
	return &struct{ Body NearestBody }{Body: NearestBody{
		Farm:     farmBody(nearest.Farm),
		MetersTo: nearest.Meters,
	}}, nil
}

type ClustersInput struct {
	BoundsInput
	Zoom float64 `query:"zoom" required:"true" minimum:"0" maximum:"22" doc:"Map zoom level"`
}

type ClusterNodeBody struct {
	ID      string   `json:"id" doc:"Stable node ID"`
	Lat     float64  `json:"lat" doc:"Node latitude"`
	Lng     float64  `json:"lng" doc:"Node longitude"`
	Count   int      `json:"count" doc:"Number of farms represented"`
	Display string   `json:"display" doc:"Count label, capped at 99+"`
	Tier    int      `json:"tier" doc:"Size tier for styling"`
	Members []string `json:"members,omitempty" doc:"Member farm IDs for clusters"`
}

type ClustersBody struct {
	Zoom  float64           `json:"zoom" doc:"Zoom the nodes were computed at"`
	Nodes []ClusterNodeBody `json:"nodes" doc:"Cluster and single-farm nodes"`
}

func (h *APIHandler) GetClusters(ctx context.Context, input *ClustersInput) (*struct{ Body ClustersBody }, error) {
	if h.svc == nil || h.svc.Clusters == nil {
		return nil, huma.Error503ServiceUnavailable("cluster index not available")
	}
	if !input.Bounds().Valid() {
		return nil, huma.Error422UnprocessableEntity("bounds are empty or inverted")
	}

	nodes := h.svc.Clusters.ClustersIn(input.Bounds(), input.Zoom)
	body := ClustersBody{Zoom: input.Zoom, Nodes: make([]ClusterNodeBody, 0, len(nodes))}
	for _, n := range nodes {
		nb := ClusterNodeBody{
			ID:      n.ID,
			Lat:     n.Lat,
			Lng:     n.Lng,
			Count:   n.Count,
			Display: n.DisplayCount(),
			Tier:    n.SizeTier(),
		}
		if n.IsCluster() {
			nb.Members = n.Members
		}
		body.Nodes = append(body.Nodes, nb)
	}
	return &struct{ Body ClustersBody }{Body: body}, nil
}

func (h *APIHandler) publishFarmsChanged() {
	if h.svc.Bus != nil {
		h.svc.Bus.Publish(service.Event{Kind: service.EventFarms})
	}
}

// RegisterRoutes registers all REST API routes on the Huma API.
func RegisterRoutes(humaAPI huma.API, svc *Services) {
	huma.AutoRegister(humaAPI, NewAPIHandler(svc))
}
