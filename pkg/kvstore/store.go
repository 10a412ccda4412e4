package kvstore

import (
	"errors"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v4"
	h3 "github.com/uber/h3-go/v4"
)

const h3Resolution = 9

var ErrNotFound = errors.New("kvstore: no records found near location")

// Store is an H3-bucketed badger-backed cache of Records, grounded on
// pkg/kv/kv_db.go's KVDB.
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) a badger database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func cellKey(cell h3.Cell) []byte {
	return []byte(cell.String())
}

// Save appends records to their H3 cell buckets. Each bucket is read,
// decoded, appended to and rewritten, mirroring the teacher's
// saveBatchEdges batch-write pattern but operating per-cell since snapshot
// records are written far less often than edges were bulk-loaded.
func (s *Store) Save(records []Record) error {
	byCell := make(map[h3.Cell][]Record)
	for _, r := range records {
		cell := h3.LatLngToCell(h3.NewLatLng(r.Lat, r.Lon), h3Resolution)
		byCell[cell] = append(byCell[cell], r)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for cell, newRecords := range byCell {
			existing, err := s.getLocked(txn, cell)
			if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			merged := append(existing, newRecords...)

			encoded, err := encodeRecords(merged)
			if err != nil {
				return err
			}
			if err := txn.Set(cellKey(cell), encoded); err != nil {
				return fmt.Errorf("kvstore: set cell %s: %w", cell, err)
			}
		}
		return nil
	})
}

func (s *Store) getLocked(txn *badger.Txn, cell h3.Cell) ([]Record, error) {
	item, err := txn.Get(cellKey(cell))
	if err != nil {
		return nil, err
	}
	var records []Record
	err = item.Value(func(val []byte) error {
		decoded, err := decodeRecords(val)
		if err != nil {
			return err
		}
		records = decoded
		return nil
	})
	return records, err
}

// Nearest returns every Record in the H3 cell containing (lat, lon),
// widening to successive rings of neighboring cells (up to the ring that
// covers radiusKm) when that cell is empty, mirroring
// GetNearestStreetsFromPointCoord's expanding-ring search.
func (s *Store) Nearest(lat, lon, radiusKm float64) ([]Record, error) {
	origin := h3.LatLngToCell(h3.NewLatLng(lat, lon), h3Resolution)
	maxRing := ringCountForRadius(lat, lon, radiusKm)
	if maxRing > 10 {
		maxRing = 10
	}
	if maxRing < 1 {
		maxRing = 1
	}

	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		if r, err := s.getLocked(txn, origin); err == nil {
			records = r
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		for ring := 1; ring <= maxRing; ring++ {
			for _, cell := range h3.GridDisk(origin, ring) {
				if cell == origin {
					continue
				}
				r, err := s.getLocked(txn, cell)
				if err != nil {
					if errors.Is(err, badger.ErrKeyNotFound) {
						continue
					}
					return err
				}
				records = append(records, r...)
			}
			if len(records) > 0 {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// ringCountForRadius returns the minimum H3 grid ring whose disk area
// covers a circle of radiusKm around lat/lon, mirroring the teacher's
// kRingIndexesArea helper.
func ringCountForRadius(lat, lon, radiusKm float64) int {
	origin := h3.LatLngToCell(h3.NewLatLng(lat, lon), h3Resolution)
	originArea := h3.CellAreaKm2(origin)
	searchArea := math.Pi * radiusKm * radiusKm

	radius := 0
	diskArea := originArea
	for diskArea < searchArea {
		radius++
		cellCount := float64(3*radius*(radius+1) + 1)
		diskArea = cellCount * originArea
	}
	return radius
}
