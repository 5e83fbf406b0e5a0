// PMTiles v3 writing, reduced to what the farm overlay needs: a gzip MVT
// archive with a single root directory and no leaf directories.
//
// Derived from github.com/protomaps/go-pmtiles (BSD-3-Clause).
// Spec: https://github.com/protomaps/PMTiles/blob/main/spec/v3/spec.md
package tiles

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"encoding/json"
	"errors"
)

const (
	compressionGzip = 2
	tileTypeMvt     = 1

	// headerLen is the fixed-size binary header.
	headerLen = 127
)

// header is the PMTiles v3 binary header. Only the fields the farm overlay
// writes are populated; bounds/center stay zero.
type header struct {
	RootOffset     uint64
	RootLength     uint64
	MetadataOffset uint64
	MetadataLength uint64
	TileDataOffset uint64
	TileDataLength uint64
	TileCount      uint64
	MinZoom        uint8
	MaxZoom        uint8
}

// entry is one tile in the root directory.
type entry struct {
	TileID uint64
	Offset uint64
	Length uint32
}

// zxyToID converts (z,x,y) tile coordinates to a Hilbert tile ID.
func zxyToID(z uint8, x, y uint32) uint64 {
	var acc uint64 = (1<<(z*2) - 1) / 3
	n := uint32(z - 1)
	for s := uint32(1 << n); s > 0; s >>= 1 {
		rx := s & x
		ry := s & y
		acc += uint64((3*rx)^ry) << n
		x, y = hilbertRotate(s, x, y, rx, ry)
		n--
	}
	return acc
}

func hilbertRotate(n, x, y, rx, ry uint32) (uint32, uint32) {
	if ry == 0 {
		if rx != 0 {
			x = n - 1 - x
			y = n - 1 - y
		}
		return y, x
	}
	return x, y
}

// serializeHeader lays the header out in the fixed 127-byte format.
func serializeHeader(h header) []byte {
	b := make([]byte, headerLen)
	copy(b[0:7], "PMTiles")
	b[7] = 3

	binary.LittleEndian.PutUint64(b[8:], h.RootOffset)
	binary.LittleEndian.PutUint64(b[16:], h.RootLength)
	binary.LittleEndian.PutUint64(b[24:], h.MetadataOffset)
	binary.LittleEndian.PutUint64(b[32:], h.MetadataLength)
	// Leaf directory offset/length stay zero: a single root directory is
	// plenty for a few thousand farm point tiles.
	binary.LittleEndian.PutUint64(b[56:], h.TileDataOffset)
	binary.LittleEndian.PutUint64(b[64:], h.TileDataLength)
	binary.LittleEndian.PutUint64(b[72:], h.TileCount) // addressed tiles
	binary.LittleEndian.PutUint64(b[80:], h.TileCount) // tile entries
	binary.LittleEndian.PutUint64(b[88:], h.TileCount) // tile contents

	b[96] = 0x1 // clustered
	b[97] = compressionGzip
	b[98] = compressionGzip
	b[99] = tileTypeMvt
	b[100] = h.MinZoom
	b[101] = h.MaxZoom
	return b
}

// parseHeader reads back the fields serializeHeader writes.
func parseHeader(d []byte) (header, error) {
	if len(d) < headerLen {
		return header{}, errors.New("buffer too small for header")
	}
	if string(d[0:7]) != "PMTiles" {
		return header{}, errors.New("magic number not detected")
	}
	return header{
		RootOffset:     binary.LittleEndian.Uint64(d[8:]),
		RootLength:     binary.LittleEndian.Uint64(d[16:]),
		MetadataOffset: binary.LittleEndian.Uint64(d[24:]),
		MetadataLength: binary.LittleEndian.Uint64(d[32:]),
		TileDataOffset: binary.LittleEndian.Uint64(d[56:]),
		TileDataLength: binary.LittleEndian.Uint64(d[64:]),
		TileCount:      binary.LittleEndian.Uint64(d[80:]),
		MinZoom:        d[100],
		MaxZoom:        d[101],
	}, nil
}

// serializeMetadata gzips the metadata JSON.
func serializeMetadata(metadata map[string]any) ([]byte, error) {
	jsonBytes, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	w, err := gzip.NewWriterLevel(&b, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	w.Write(jsonBytes)
	w.Close()
	return b.Bytes(), nil
}

// serializeEntries writes the gzipped root directory: entry count, then
// delta-encoded tile IDs, run lengths, lengths, and offsets, all uvarint.
func serializeEntries(entries []entry) []byte {
	var b bytes.Buffer
	w, _ := gzip.NewWriterLevel(&b, gzip.BestCompression)

	tmp := make([]byte, binary.MaxVarintLen64)
	put := func(v uint64) {
		n := binary.PutUvarint(tmp, v)
		w.Write(tmp[:n])
	}

	put(uint64(len(entries)))

	lastID := uint64(0)
	for _, e := range entries {
		put(e.TileID - lastID)
		lastID = e.TileID
	}
	for range entries {
		put(1) // run length
	}
	for _, e := range entries {
		put(uint64(e.Length))
	}
	for i, e := range entries {
		if i > 0 && e.Offset == entries[i-1].Offset+uint64(entries[i-1].Length) {
			put(0)
		} else {
			put(e.Offset + 1)
		}
	}

	w.Close()
	return b.Bytes()
}
