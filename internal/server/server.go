package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/farmshopfinder/farmmap/internal/api"
	"github.com/farmshopfinder/farmmap/internal/api/mapui"
	"github.com/farmshopfinder/farmmap/internal/db"
	"github.com/farmshopfinder/farmmap/internal/geo/cluster"
	"github.com/farmshopfinder/farmmap/internal/geo/location"
	"github.com/farmshopfinder/farmmap/internal/geo/selection"
	"github.com/farmshopfinder/farmmap/internal/geo/viewport"
	"github.com/farmshopfinder/farmmap/internal/humastar"
	"github.com/farmshopfinder/farmmap/internal/mapengine"
	"github.com/farmshopfinder/farmmap/internal/service"
)

// Default view: roughly all of Great Britain.
const (
	defaultLat  = 54.0
	defaultLng  = -2.5
	defaultZoom = 6

	// selections triggered from search fly in to at least this zoom
	selectZoomFloor = 14
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	WebDir  string // Path to web/ directory for static files and templates
	Engine  string // Map rendering backend: "leaflet" or "maplibre"
	Device  string // Overlay device class: "touch" or "pointer"
}

// Server is the farmmap HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	services *api.Services
	mapState *mapui.MapState
	renderer *humastar.Renderer
}

// New creates a new farmmap server.
func New(cfg Config) (*Server, error) {
	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("farmmap API", "1.0.0")
	humaConfig.Info.Description = "Farm shop directory map API: clustered markers, viewport queries, and selection-driven overlays."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}

	// the link table is built after route registration
	links := humastar.NewLinks()
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())

	humaAPI := humago.New(mux, humaConfig)

	farms := service.NewFarmService(cfg.DataDir)
	bus := service.NewEventBus()

	clusters := cluster.NewIndex(cluster.DefaultOptions())
	clusters.Load(farms.List())

	vp := viewport.NewController(viewport.DefaultConfig(), defaultLat, defaultLng, defaultZoom)
	vp.OnBoundsChange(func(b service.Bounds) {
		bus.Publish(service.Event{Kind: service.EventBounds, Box: b})
	})
	vp.OnZoomChange(func(z float64) {
		bus.Publish(service.Event{Kind: service.EventZoom, Zoom: z})
	})

	eng, err := mapengine.New(cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("create map engine: %w", err)
	}
	if err := eng.Init("map"); err != nil {
		return nil, fmt.Errorf("init map engine: %w", err)
	}

	device := selection.DeviceTouch
	if cfg.Device == "pointer" {
		device = selection.DevicePointer
	}
	sel := selection.NewMachine(device, farms.Get,
		selection.WithFlyTo(func(lat, lng float64) {
			vp.FlyTo(lat, lng, selectZoomFloor)
		}),
		selection.WithListener(func(st selection.State) {
			ev := service.Event{Kind: service.EventSelection}
			if st.Farm != nil {
				ev.ID = st.Farm.ID
			}
			bus.Publish(ev)
		}),
	)

	tracker := location.NewTracker(farms.List)

	mapState := mapui.NewMapState(eng)
	mapState.Farms = farms
	mapState.Clusters = clusters
	mapState.Viewport = vp
	mapState.Selection = sel
	mapState.Tracker = tracker
	mapState.Bus = bus

	var renderer *humastar.Renderer
	if cfg.WebDir != "" {
		fragmentsDir := filepath.Join(cfg.WebDir, "templates", "fragments")
		r, err := humastar.NewRenderer(fragmentsDir)
		if err != nil {
			log.Printf("fragment templates unavailable: %v", err)
		} else {
			renderer = r
		}
	}

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		services: &api.Services{Farms: farms, Clusters: clusters, Bus: bus},
		mapState: mapState,
		renderer: renderer,
	}

	conn, err := db.Open(db.Config{DataDir: cfg.DataDir, DBName: "farmmap"})
	if err != nil {
		log.Printf("duckdb unavailable: %v", err)
	} else {
		s.db = conn
		if err := db.SyncFarms(conn, farms.List()); err != nil {
			log.Printf("farm sync failed: %v", err)
		}
	}

	s.routes()
	links.Build(humaAPI)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the API description for spec export.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close closes server resources.
func (s *Server) Close() error {
	s.mapState.Viewport.Stop()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) routes() {
	// REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)

	infoHandler := api.NewInfoHandler(s.config.DataDir, s.db != nil, s.mapState.EngineName(), s.services.Farms.Len())
	infoHandler.RegisterRoutes(s.humaAPI)

	if s.db != nil {
		dbHandler := api.NewDBHandler(s.db)
		dbHandler.RegisterRoutes(s.humaAPI)
	}

	// Map UI SSE routes using Huma + Datastar
	if s.renderer != nil {
		mapui.NewMarkerHandler(s.mapState, s.renderer).RegisterRoutes(s.humaAPI)
		mapui.NewSelectionHandler(s.mapState, s.renderer).RegisterRoutes(s.humaAPI)
		mapui.NewLocationHandler(s.mapState, s.renderer).RegisterRoutes(s.humaAPI)
		mapui.NewEventHandler(s.mapState, s.renderer).RegisterRoutes(s.humaAPI)
	}

	// Static files and tiles
	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}
	tilesDir := filepath.Join(s.config.DataDir, "tiles")
	s.mux.Handle("/tiles/", http.StripPrefix("/tiles/", s.handleTiles(tilesDir)))

	// Page routes
	s.mux.HandleFunc("/map", s.handleMap)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "farmmap",
		"status":  "running",
	})
}

// handleMap serves the map page. The page restores a shared view from the
// lat/lng/zoom query parameters when present.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	if lat, lng, zoom, ok := viewport.ParseQuery(r.URL.Query()); ok {
		s.mapState.Viewport.SetView(lat, lng, zoom)
	}
	templatePath := filepath.Join(s.config.WebDir, "templates", "map.html")
	http.ServeFile(w, r, templatePath)
}

// handleTiles serves PMTiles archives with the CORS and Range headers the
// browser protocol needs for partial reads.
func (s *Server) handleTiles(tilesDir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		http.FileServer(http.Dir(tilesDir)).ServeHTTP(w, r)
	})
}
