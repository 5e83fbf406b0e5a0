package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/farmshopfinder/farmmap/internal/server"
	"github.com/farmshopfinder/farmmap/internal/service"
	"github.com/farmshopfinder/farmmap/internal/tiles"
)

// Options defines all CLI flags and env vars for the farmmap server.
// Flags: --host, --port, --data-dir, --web-dir, --engine, --device
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_WEB_DIR,
// SERVICE_ENGINE, SERVICE_DEVICE
type Options struct {
	Host    string `doc:"Host to bind to" default:"0.0.0.0"`
	Port    int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir string `doc:"Directory for farm data files" default:".data"`
	WebDir  string `doc:"Path to web/ directory" default:"web"`
	Engine  string `doc:"Map rendering backend (leaflet or maplibre)" default:"leaflet"`
	Device  string `doc:"Overlay device class (touch or pointer)" default:"touch"`
}

func newServer(opts *Options) (*server.Server, error) {
	return server.New(server.Config{
		Host:    opts.Host,
		Port:    fmt.Sprintf("%d", opts.Port),
		DataDir: opts.DataDir,
		WebDir:  opts.WebDir,
		Engine:  opts.Engine,
		Device:  opts.Device,
	})
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		hooks.OnStart(func() {
			srv, err := newServer(opts)
			if err != nil {
				log.Fatalf("Server setup error: %v", err)
			}
			defer srv.Close()

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("farmmap API server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Printf("  Engine:  %s\n", opts.Engine)
			fmt.Println()
			fmt.Printf("  Map:     %s/map\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(addr, srv); err != nil {
				log.Fatalf("Server error: %v", err)
			}
		})
	})

	cli.Root().Use = "farmmap"
	cli.Root().Short = "Farm shop directory map server"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := newServer(opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error creating server: %v\n", err)
				os.Exit(1)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// import subcommand: load farms from a GeoJSON file
	importCmd := &cobra.Command{
		Use:   "import <file.geojson>",
		Short: "Import farm shops from a GeoJSON FeatureCollection",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			farms := service.NewFarmService(opts.DataDir)
			n, err := farms.ImportGeoJSON(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Imported %d farms (%d total)\n", n, farms.Len())
		}),
	}
	cli.Root().AddCommand(importCmd)

	// tiles subcommand: write the farm overlay as a PMTiles archive
	tilesCmd := &cobra.Command{
		Use:   "tiles",
		Short: "Generate a PMTiles archive of all farms",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			farms := service.NewFarmService(opts.DataDir)
			if farms.Len() == 0 {
				fmt.Fprintln(os.Stderr, "No farms loaded; run import first")
				os.Exit(1)
			}

			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				output = filepath.Join(opts.DataDir, "tiles", "farms.pmtiles")
			}
			minZoom, _ := cmd.Flags().GetInt("min-zoom")
			maxZoom, _ := cmd.Flags().GetInt("max-zoom")

			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				fmt.Fprintf(os.Stderr, "Creating output directory: %v\n", err)
				os.Exit(1)
			}

			cfg := tiles.Config{Layer: "farms", MinZoom: minZoom, MaxZoom: maxZoom}
			if err := tiles.Generate(farms.List(), output, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "Tile generation failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Wrote %s (%d farms, z%d-z%d)\n", output, farms.Len(), minZoom, maxZoom)
		}),
	}
	tilesCmd.Flags().StringP("output", "o", "", "Output path (default <data-dir>/tiles/farms.pmtiles)")
	tilesCmd.Flags().Int("min-zoom", 0, "Minimum tile zoom")
	tilesCmd.Flags().Int("max-zoom", 14, "Maximum tile zoom")
	cli.Root().AddCommand(tilesCmd)

	cli.Run()
}
