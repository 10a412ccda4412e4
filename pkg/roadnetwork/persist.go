package roadnetwork

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cockroachdb/pebble"
	"github.com/lintang-b-s/roadmatch/pkg/spatial"
	"github.com/twpayne/go-polyline"
)

// Store persists a RoadMap's BaseRoads to a pebble key-value database, keyed
// by big-endian BaseRoad id so range scans come back in id order. The
// on-disk record layout mirrors the teacher's EdgeCH.Serialize: fixed-width
// scalar fields followed by a length-prefixed variable section.
type Store struct {
	db *pebble.DB
}

// OpenStore opens (creating if absent) a pebble database at dir.
func OpenStore(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("roadnetwork: open pebble store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func baseRoadKey(id int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// SaveAll writes every BaseRoad in m to the store in a single batch.
func (s *Store) SaveAll(m *RoadMap) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for id, b := range m.bases {
		buf, err := encodeBaseRoad(b)
		if err != nil {
			return fmt.Errorf("roadnetwork: encode base road %d: %w", id, err)
		}
		if err := batch.Set(baseRoadKey(id), buf, nil); err != nil {
			return fmt.Errorf("roadnetwork: batch set %d: %w", id, err)
		}
	}
	return batch.Commit(pebble.Sync)
}

// Load rebuilds a RoadMap by scanning every BaseRoad record in the store.
func Load(dir string) (*RoadMap, *Store, error) {
	store, err := OpenStore(dir)
	if err != nil {
		return nil, nil, err
	}

	m := NewRoadMap()
	iter, err := store.db.NewIter(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("roadnetwork: new iter: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		b, err := decodeBaseRoad(iter.Value())
		if err != nil {
			return nil, nil, fmt.Errorf("roadnetwork: decode: %w", err)
		}
		if err := m.AddRoad(b); err != nil {
			return nil, nil, err
		}
	}
	return m, store, nil
}

// encodeBaseRoad packs a BaseRoad into: id(8) direction(4)
// maxspeedForward(8) maxspeedBackward(8) priority(8) tunnel(1) refID-len(4)
// refID name-len(4) name roadClass-len(4) roadClass then the geometry as a
// go-polyline encoded byte string, length-prefixed.
func encodeBaseRoad(b *BaseRoad) ([]byte, error) {
	coords := make([][]float64, len(b.Geometry))
	for i, p := range b.Geometry {
		coords[i] = []float64{p.Lat, p.Lon}
	}
	geom := polyline.EncodeCoords(coords)

	size := 8 + 4 + 8 + 8 + 8 + 1 +
		4 + len(b.RefID) +
		4 + len(b.Name) +
		4 + len(b.RoadClass) +
		4 + len(geom)
	buf := make([]byte, size)
	off := 0

	binary.LittleEndian.PutUint64(buf[off:off+8], uint64(b.ID))
	off += 8
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(b.Direction))
	off += 4
	binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(b.MaxSpeedForwardKM))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(b.MaxSpeedBackwardKM))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(b.Priority))
	off += 8
	if b.Tunnel {
		buf[off] = 1
	}
	off += 1

	off = putString(buf, off, b.RefID)
	off = putString(buf, off, b.Name)
	off = putString(buf, off, b.RoadClass)
	_ = putBytes(buf, off, geom)

	return buf, nil
}

func decodeBaseRoad(buf []byte) (*BaseRoad, error) {
	if len(buf) < 37 {
		return nil, fmt.Errorf("roadnetwork: record too short (%d bytes)", len(buf))
	}
	off := 0
	id := int64(binary.LittleEndian.Uint64(buf[off : off+8]))
	off += 8
	direction := Direction(binary.LittleEndian.Uint32(buf[off : off+4]))
	off += 4
	maxSpeedForward := math.Float64frombits(binary.LittleEndian.Uint64(buf[off : off+8]))
	off += 8
	maxSpeedBackward := math.Float64frombits(binary.LittleEndian.Uint64(buf[off : off+8]))
	off += 8
	priority := math.Float64frombits(binary.LittleEndian.Uint64(buf[off : off+8]))
	off += 8
	tunnel := buf[off] == 1
	off += 1

	refID, off := getString(buf, off)
	name, off := getString(buf, off)
	roadClass, off := getString(buf, off)
	geomBytes, _ := getBytes(buf, off)

	coords, _, err := polyline.DecodeCoords(geomBytes)
	if err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}
	geometry := make([]spatial.Point, len(coords))
	for i, c := range coords {
		geometry[i] = spatial.Point{Lat: c[0], Lon: c[1]}
	}

	return &BaseRoad{
		ID:                 id,
		RefID:              refID,
		Name:               name,
		RoadClass:          roadClass,
		Direction:          direction,
		MaxSpeedForwardKM:  maxSpeedForward,
		MaxSpeedBackwardKM: maxSpeedBackward,
		Priority:           priority,
		Tunnel:             tunnel,
		Geometry:           geometry,
	}, nil
}

func putString(buf []byte, off int, s string) int {
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(s)))
	off += 4
	copy(buf[off:off+len(s)], s)
	return off + len(s)
}

func getString(buf []byte, off int) (string, int) {
	n := int(binary.LittleEndian.Uint32(buf[off : off+4]))
	off += 4
	return string(buf[off : off+n]), off + n
}

func putBytes(buf []byte, off int, b []byte) int {
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(b)))
	off += 4
	copy(buf[off:off+len(b)], b)
	return off + len(b)
}

func getBytes(buf []byte, off int) ([]byte, int) {
	n := int(binary.LittleEndian.Uint32(buf[off : off+4]))
	off += 4
	return buf[off : off+n], off + n
}
