package service

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateGeneratesIDAndSlug(t *testing.T) {
	s := NewFarmService(t.TempDir())

	created, err := s.Create(FarmShop{Name: "Darts Farm", Lat: 50.6921, Lng: -3.4458})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID != "darts_farm" {
		t.Fatalf("ID = %q, want darts_farm", created.ID)
	}
	if created.Slug != "darts-farm" {
		t.Fatalf("Slug = %q, want darts-farm", created.Slug)
	}

	if _, err := s.Create(FarmShop{ID: "darts_farm", Name: "Duplicate"}); err == nil {
		t.Fatal("duplicate ID accepted")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s := NewFarmService(dir)
	s.Create(FarmShop{Name: "Occombe Farm", Lat: 50.4619, Lng: -3.5705, County: "Devon"})

	s2 := NewFarmService(dir)
	farm, ok := s2.Get("occombe_farm")
	if !ok {
		t.Fatal("farm not reloaded from disk")
	}
	if farm.County != "Devon" {
		t.Fatalf("County = %q after reload", farm.County)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	s := NewFarmService(t.TempDir())
	s.Create(FarmShop{Name: "River Swale Dairy", Lat: 54.38, Lng: -1.73})

	updated, err := s.Update("river_swale_dairy", FarmShop{Name: "River Swale Dairy", Lat: 54.38, Lng: -1.73, Postcode: "DL10 6AA"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.ID != "river_swale_dairy" || updated.Postcode != "DL10 6AA" {
		t.Fatalf("updated = %+v", updated)
	}

	if _, err := s.Update("missing", FarmShop{}); err == nil {
		t.Fatal("update of missing farm accepted")
	}

	if err := s.Delete("river_swale_dairy"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("river_swale_dairy"); err == nil {
		t.Fatal("double delete accepted")
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d after delete", s.Len())
	}
}

func TestInBounds(t *testing.T) {
	s := NewFarmService(t.TempDir())
	s.Create(FarmShop{Name: "Devon Farm", Lat: 50.7, Lng: -3.5})
	s.Create(FarmShop{Name: "Yorkshire Farm", Lat: 54.3, Lng: -1.7})

	devon := Bounds{West: -4.5, South: 50.2, East: -3.0, North: 51.2}
	got := s.InBounds(devon)
	if len(got) != 1 || got[0].ID != "devon_farm" {
		t.Fatalf("InBounds = %+v", got)
	}
}

func TestImportGeoJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "farms.geojson")
	data := `{
	  "type": "FeatureCollection",
	  "features": [
	    {
	      "type": "Feature",
	      "geometry": {"type": "Point", "coordinates": [-3.4458, 50.6921]},
	      "properties": {
	        "name": "Darts Farm",
	        "county": "Devon",
	        "offerings": ["farm-shop", "butcher"]
	      }
	    },
	    {
	      "type": "Feature",
	      "geometry": {"type": "Point", "coordinates": [-1.73, 54.38]},
	      "properties": {}
	    },
	    {
	      "type": "Feature",
	      "geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 1]]},
	      "properties": {"name": "Not A Point"}
	    }
	  ]
	}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewFarmService(dir)
	n, err := s.ImportGeoJSON(path)
	if err != nil {
		t.Fatal(err)
	}
	// nameless and non-point features are skipped
	if n != 1 {
		t.Fatalf("imported %d farms, want 1", n)
	}

	farm, ok := s.Get("darts_farm")
	if !ok {
		t.Fatal("imported farm not found")
	}
	if farm.Lat != 50.6921 || farm.Lng != -3.4458 {
		t.Fatalf("coordinates = (%v, %v)", farm.Lat, farm.Lng)
	}
	if !farm.HasOffering("butcher") || farm.HasOffering("vineyard") {
		t.Fatalf("offerings = %v", farm.Offerings)
	}
}

func TestEventBusFanOut(t *testing.T) {
	bus := NewEventBus()
	a := bus.Subscribe()
	b := bus.Subscribe()
	defer bus.Unsubscribe(a)

	bus.Publish(Event{Kind: EventFarms, ID: "darts_farm"})

	for _, ch := range []chan Event{a, b} {
		select {
		case ev := <-ch:
			if ev.Kind != EventFarms || ev.ID != "darts_farm" {
				t.Fatalf("event = %+v", ev)
			}
		default:
			t.Fatal("subscriber missed the event")
		}
	}

	bus.Unsubscribe(b)
	bus.Publish(Event{Kind: EventZoom})
	if _, ok := <-b; ok {
		t.Fatal("unsubscribed channel still receives")
	}
}
