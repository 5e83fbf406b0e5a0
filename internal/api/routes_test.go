package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"

	"github.com/farmshopfinder/farmmap/internal/geo/cluster"
	"github.com/farmshopfinder/farmmap/internal/service"
)

func newTestAPI(t *testing.T) (humatest.TestAPI, *Services) {
	t.Helper()

	farms := service.NewFarmService(t.TempDir())
	seed := []service.FarmShop{
		{Name: "Darts Farm", Lat: 50.6921, Lng: -3.4458, County: "Devon", Offerings: []string{"farm-shop", "butcher"}},
		{Name: "Occombe Farm", Lat: 50.4619, Lng: -3.5705, County: "Devon", Offerings: []string{"cafe"}},
		{Name: "River Swale Dairy", Lat: 54.38, Lng: -1.73, County: "North Yorkshire", Offerings: []string{"dairy"}},
	}
	for _, f := range seed {
		if _, err := farms.Create(f); err != nil {
			t.Fatal(err)
		}
	}

	clusters := cluster.NewIndex(cluster.DefaultOptions())
	clusters.Load(farms.List())

	svc := &Services{
		Farms:    farms,
		Clusters: clusters,
		Bus:      service.NewEventBus(),
	}

	_, api := humatest.New(t, huma.DefaultConfig("farmmap test", "1.0.0"))
	RegisterRoutes(api, svc)
	return api, svc
}

func TestHealth(t *testing.T) {
	api, _ := newTestAPI(t)
	resp := api.Get("/health")
	if resp.Code != http.StatusOK {
		t.Fatalf("health returned %d", resp.Code)
	}
}

func TestListFarmsPagination(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/api/v1/farms?offset=0&limit=2")
	if resp.Code != http.StatusOK {
		t.Fatalf("list returned %d: %s", resp.Code, resp.Body.String())
	}
	body := resp.Body.String()
	if want := `"total":3`; !contains(body, want) {
		t.Fatalf("body missing %s: %s", want, body)
	}

	resp = api.Get("/api/v1/farms?offset=2&limit=2")
	if !contains(resp.Body.String(), `"river_swale_dairy"`) {
		t.Fatalf("second page missing last farm: %s", resp.Body.String())
	}
}

func TestListFarmsOfferingFilter(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/api/v1/farms?offering=butcher&offset=0&limit=50")
	body := resp.Body.String()
	if !contains(body, "darts_farm") || contains(body, "occombe_farm") {
		t.Fatalf("offering filter wrong: %s", body)
	}
}

func TestListFarmsBoundsFilter(t *testing.T) {
	api, _ := newTestAPI(t)

	// Devon box: the two south-west farms, not the Yorkshire dairy.
	resp := api.Get("/api/v1/farms?west=-3.7&south=50.3&east=-3.3&north=50.8&offset=0&limit=50")
	if resp.Code != http.StatusOK {
		t.Fatalf("bounded list returned %d", resp.Code)
	}
	body := resp.Body.String()
	if !contains(body, "darts_farm") || contains(body, "river_swale_dairy") {
		t.Fatalf("bounds filter wrong: %s", body)
	}
}

func TestListFarmsPartialBoundsRejected(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/api/v1/farms?west=-3.6")
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("partial bounds returned %d, want 422", resp.Code)
	}

	// A full but inverted box is rejected too.
	resp = api.Get("/api/v1/farms?west=-3.3&south=50.8&east=-3.7&north=50.3")
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("inverted bounds returned %d, want 422", resp.Code)
	}

	// No box at all still lists everything.
	resp = api.Get("/api/v1/farms?offset=0&limit=50")
	if resp.Code != http.StatusOK || !contains(resp.Body.String(), `"total":3`) {
		t.Fatalf("unbounded list broken: %d %s", resp.Code, resp.Body.String())
	}
}

func TestGetFarm(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/api/v1/farms/darts_farm")
	if resp.Code != http.StatusOK {
		t.Fatalf("get returned %d", resp.Code)
	}
	if !contains(resp.Body.String(), "google.com/maps/dir") {
		t.Fatalf("farm body missing directions link: %s", resp.Body.String())
	}

	resp = api.Get("/api/v1/farms/not_a_farm")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("missing farm returned %d", resp.Code)
	}
}

func TestCreateUpdateDeleteFarm(t *testing.T) {
	api, svc := newTestAPI(t)

	resp := api.Post("/api/v1/farms", map[string]any{
		"name": "New Forest Larder",
		"lat":  50.87,
		"lng":  -1.57,
	})
	if resp.Code != http.StatusOK && resp.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", resp.Code, resp.Body.String())
	}
	if svc.Clusters.Len() != 4 {
		t.Fatalf("cluster index has %d farms after create, want 4", svc.Clusters.Len())
	}

	resp = api.Put("/api/v1/farms/new_forest_larder", map[string]any{
		"name": "New Forest Larder",
		"lat":  50.88,
		"lng":  -1.57,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("update returned %d: %s", resp.Code, resp.Body.String())
	}

	resp = api.Delete("/api/v1/farms/new_forest_larder")
	if resp.Code != http.StatusOK {
		t.Fatalf("delete returned %d", resp.Code)
	}
	if svc.Clusters.Len() != 3 {
		t.Fatalf("cluster index has %d farms after delete, want 3", svc.Clusters.Len())
	}
}

func TestNearestFarm(t *testing.T) {
	api, _ := newTestAPI(t)

	// Exeter city centre
	resp := api.Get("/api/v1/farms/nearest?lat=50.7236&lng=-3.5275")
	if resp.Code != http.StatusOK {
		t.Fatalf("nearest returned %d: %s", resp.Code, resp.Body.String())
	}
	if !contains(resp.Body.String(), "darts_farm") {
		t.Fatalf("nearest body: %s", resp.Body.String())
	}
}

func TestClusters(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/api/v1/clusters?west=-8.6&south=49.9&east=1.8&north=60.9&zoom=5")
	if resp.Code != http.StatusOK {
		t.Fatalf("clusters returned %d: %s", resp.Code, resp.Body.String())
	}
	body := resp.Body.String()
	if !contains(body, `"nodes"`) {
		t.Fatalf("clusters body: %s", body)
	}

	// The two Devon farms are ~26km apart: clustered at country zoom,
	// separate at town zoom.
	devon := "west=-4.5&south=50.2&east=-3.0&north=51.2"
	low := api.Get("/api/v1/clusters?" + devon + "&zoom=5")
	if !contains(low.Body.String(), `"count":2`) {
		t.Fatalf("zoom 5 should cluster the Devon farms: %s", low.Body.String())
	}
	high := api.Get("/api/v1/clusters?" + devon + "&zoom=12")
	if contains(high.Body.String(), `"count":2`) {
		t.Fatalf("zoom 12 should split the Devon farms: %s", high.Body.String())
	}
}

func TestClustersInvalidBounds(t *testing.T) {
	api, _ := newTestAPI(t)

	// east < west
	resp := api.Get("/api/v1/clusters?west=1.8&south=49.9&east=-8.6&north=60.9&zoom=5")
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("inverted bounds returned %d", resp.Code)
	}
}

func contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}
