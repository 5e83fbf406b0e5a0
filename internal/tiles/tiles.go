// Package tiles generates the farms overlay as a PMTiles archive of
// point-only MVT tiles, served alongside the basemap so the MapLibre
// frontend can render every approved farm at high zoom without holding the
// whole corpus in browser memory.
package tiles

import (
	"fmt"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"

	"github.com/farmshopfinder/farmmap/internal/mapengine"
	"github.com/farmshopfinder/farmmap/internal/service"
)

// Config tunes the overlay generation.
type Config struct {
	Layer   string `json:"layer" doc:"Layer name within the tiles" example:"farms"`
	MinZoom int    `json:"minZoom" minimum:"0" maximum:"22" doc:"Minimum zoom level"`
	MaxZoom int    `json:"maxZoom" minimum:"0" maximum:"22" doc:"Maximum zoom level"`
}

// Generate writes a PMTiles archive of the farm set to outputPath.
func Generate(farms []service.FarmShop, outputPath string, cfg Config) error {
	if cfg.Layer == "" {
		cfg.Layer = "farms"
	}
	if cfg.MinZoom < 0 {
		cfg.MinZoom = 0
	}
	if cfg.MaxZoom <= 0 || cfg.MaxZoom > 16 {
		cfg.MaxZoom = 14
	}
	if len(farms) == 0 {
		return fmt.Errorf("no farms to tile")
	}

	tileData := make(map[maptile.Tile][]byte)
	for z := cfg.MinZoom; z <= cfg.MaxZoom; z++ {
		for tile, group := range groupByTile(farms, maptile.Zoom(z)) {
			data, err := encodeTile(tile, group, cfg.Layer)
			if err != nil {
				return fmt.Errorf("encoding tile %d/%d/%d: %w", tile.Z, tile.X, tile.Y, err)
			}
			if len(data) > 0 {
				tileData[tile] = data
			}
		}
	}

	return writeArchive(outputPath, tileData, cfg)
}

// groupByTile buckets farms into the tile containing each point. Points
// need no bounds intersection pass: a point lives in exactly one tile.
func groupByTile(farms []service.FarmShop, zoom maptile.Zoom) map[maptile.Tile][]service.FarmShop {
	groups := make(map[maptile.Tile][]service.FarmShop)
	for _, f := range farms {
		tile := maptile.At(orb.Point{f.Lng, f.Lat}, zoom)
		groups[tile] = append(groups[tile], f)
	}
	return groups
}

// encodeTile builds one gzipped MVT tile from a farm group.
func encodeTile(tile maptile.Tile, farms []service.FarmShop, layerName string) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, farm := range farms {
		f := geojson.NewFeature(orb.Point{farm.Lng, farm.Lat})
		f.Properties["id"] = farm.ID
		f.Properties["name"] = farm.Name
		pin := mapengine.PinFor(farm, mapengine.DefaultPinRules)
		f.Properties["icon"] = pin.Icon
		f.Properties["color"] = pin.Color
		fc.Append(f)
	}

	layer := mvt.NewLayer(layerName, fc)
	layer.ProjectToTile(tile)

	return mvt.MarshalGzipped(mvt.Layers{layer})
}

// writeArchive lays the archive out as header, root directory, metadata,
// then tile data, with entries sorted by Hilbert tile ID for clustering.
func writeArchive(path string, tileData map[maptile.Tile][]byte, cfg Config) error {
	if len(tileData) == 0 {
		return fmt.Errorf("no tiles to write")
	}

	type idTile struct {
		id   uint64
		data []byte
	}
	ordered := make([]idTile, 0, len(tileData))
	for t, data := range tileData {
		ordered = append(ordered, idTile{id: zxyToID(uint8(t.Z), t.X, t.Y), data: data})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].id < ordered[j].id })

	var entries []entry
	var data []byte
	for _, t := range ordered {
		entries = append(entries, entry{
			TileID: t.id,
			Offset: uint64(len(data)),
			Length: uint32(len(t.data)),
		})
		data = append(data, t.data...)
	}

	metadataBytes, err := serializeMetadata(map[string]any{
		"name":        cfg.Layer,
		"format":      "pbf",
		"compression": "gzip",
		"minzoom":     cfg.MinZoom,
		"maxzoom":     cfg.MaxZoom,
	})
	if err != nil {
		return fmt.Errorf("serializing metadata: %w", err)
	}

	rootBytes := serializeEntries(entries)

	h := header{
		RootOffset:     headerLen,
		RootLength:     uint64(len(rootBytes)),
		MetadataOffset: headerLen + uint64(len(rootBytes)),
		MetadataLength: uint64(len(metadataBytes)),
		TileDataOffset: headerLen + uint64(len(rootBytes)) + uint64(len(metadataBytes)),
		TileDataLength: uint64(len(data)),
		TileCount:      uint64(len(entries)),
		MinZoom:        uint8(cfg.MinZoom),
		MaxZoom:        uint8(cfg.MaxZoom),
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, chunk := range [][]byte{serializeHeader(h), rootBytes, metadataBytes, data} {
		if _, err := f.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}
