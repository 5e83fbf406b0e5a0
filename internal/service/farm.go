package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FarmService manages the farm-shop records backing the map. Records are
// mutex-guarded in memory and persisted as a single JSON file under the data
// directory. The map layer only reads; mutations come from the directory
// CRUD surface and the GeoJSON importer.
type FarmService struct {
	dataDir string
	farms   map[string]FarmShop
	mu      sync.RWMutex
}

// NewFarmService creates a new farm service and loads any persisted records.
func NewFarmService(dataDir string) *FarmService {
	s := &FarmService{
		dataDir: dataDir,
		farms:   make(map[string]FarmShop),
	}
	s.loadFromDisk()
	return s
}

// List returns all farms ordered by ID so callers see a stable order.
func (s *FarmService) List() []FarmShop {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]FarmShop, 0, len(s.farms))
	for _, f := range s.farms {
		result = append(result, f)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Len returns the number of farms.
func (s *FarmService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.farms)
}

// Get returns a farm by ID.
func (s *FarmService) Get(id string) (FarmShop, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	farm, ok := s.farms[id]
	return farm, ok
}

// InBounds returns the farms whose coordinates fall within the box, in
// stable ID order. An empty result is a normal state, not an error.
func (s *FarmService) InBounds(b Bounds) []FarmShop {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []FarmShop
	for _, f := range s.farms {
		if b.Contains(f.Lat, f.Lng) {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Create adds a new farm record.
func (s *FarmService) Create(farm FarmShop) (FarmShop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if farm.ID == "" {
		farm.ID = generateID(farm.Name)
	}
	if farm.ID == "" {
		farm.ID = uuid.NewString()
	}
	if farm.Slug == "" {
		farm.Slug = strings.ReplaceAll(farm.ID, "_", "-")
	}

	if _, exists := s.farms[farm.ID]; exists {
		return FarmShop{}, fmt.Errorf("farm with ID %q already exists", farm.ID)
	}

	s.farms[farm.ID] = farm
	if err := s.saveToDisk(); err != nil {
		return FarmShop{}, err
	}

	return farm, nil
}

// Update replaces a farm record by ID.
func (s *FarmService) Update(id string, farm FarmShop) (FarmShop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.farms[id]; !exists {
		return FarmShop{}, fmt.Errorf("farm %q not found", id)
	}

	farm.ID = id
	s.farms[id] = farm
	if err := s.saveToDisk(); err != nil {
		return FarmShop{}, err
	}

	return farm, nil
}

// Delete removes a farm by ID.
func (s *FarmService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.farms[id]; !exists {
		return fmt.Errorf("farm %q not found", id)
	}

	delete(s.farms, id)
	return s.saveToDisk()
}

// ImportGeoJSON loads point features from a GeoJSON file into the farm set.
// Feature properties map onto the record: name, address, county, postcode,
// offerings (array of strings). Non-point geometries are skipped. Returns
// the number of farms imported.
func (s *FarmService) ImportGeoJSON(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading geojson: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return 0, fmt.Errorf("parsing geojson: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}

		farm := FarmShop{
			Name:     f.Properties.MustString("name", ""),
			Lng:      pt[0],
			Lat:      pt[1],
			Address:  f.Properties.MustString("address", ""),
			County:   f.Properties.MustString("county", ""),
			Postcode: f.Properties.MustString("postcode", ""),
		}
		if farm.Name == "" {
			continue
		}

		if raw, ok := f.Properties["offerings"]; ok {
			if list, ok := raw.([]interface{}); ok {
				for _, v := range list {
					if tag, ok := v.(string); ok {
						farm.Offerings = append(farm.Offerings, tag)
					}
				}
			}
		}

		farm.ID = generateID(farm.Name)
		if farm.ID == "" {
			farm.ID = uuid.NewString()
		}
		farm.Slug = strings.ReplaceAll(farm.ID, "_", "-")

		s.farms[farm.ID] = farm
		count++
	}

	if err := s.saveToDisk(); err != nil {
		return 0, err
	}
	return count, nil
}

// configFile returns the path to the farms data file.
func (s *FarmService) configFile() string {
	return filepath.Join(s.dataDir, "farms.json")
}

// loadFromDisk loads farm records from disk.
func (s *FarmService) loadFromDisk() {
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		return // File doesn't exist yet, start empty
	}

	var farms map[string]FarmShop
	if err := json.Unmarshal(data, &farms); err != nil {
		return // Invalid JSON, start empty
	}

	s.farms = farms
}

// saveToDisk persists farm records to disk.
func (s *FarmService) saveToDisk() error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.farms, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.configFile(), data, 0644)
}

// generateID creates a URL-safe ID from a name.
func generateID(name string) string {
	id := strings.ToLower(name)
	id = strings.ReplaceAll(id, " ", "_")
	var result strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
