// Package osmroad ingests OpenStreetMap ways into a roadnetwork.RoadMap.
// Grounded on pkg/osmparser/osm_parser2.go's two-pass osmpbf.Scanner loop
// (acceptOsmWay, getReversedOneWay, RoadTypeMaxSpeed2) and pkg/osmparser/map.go
// (ValidRoadType, getMaxspeedOneWayRoadType).
package osmroad

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"github.com/lintang-b-s/roadmatch/pkg/roadnetwork"
	"github.com/lintang-b-s/roadmatch/pkg/spatial"
)

// validRoadType mirrors pkg/osmparser/map.go's ValidRoadType: the highway tag
// values accepted as car-usable roads.
var validRoadType = map[string]bool{
	"motorway":       true,
	"trunk":          true,
	"primary":        true,
	"secondary":      true,
	"tertiary":       true,
	"unclassified":   true,
	"residential":    true,
	"motorway_link":  true,
	"trunk_link":     true,
	"primary_link":   true,
	"secondary_link": true,
	"tertiary_link":  true,
	"living_street":  true,
	"road":           true,
	"service":        true,
	"track":          true,
}

// roadTypeMaxSpeed is the maxspeed fallback table used when a way has no
// maxspeed tag, ported from pkg/datastructure/graph.go's RoadTypeMaxSpeed.
func roadTypeMaxSpeed(roadType string) float64 {
	switch roadType {
	case "motorway":
		return 95
	case "trunk":
		return 85
	case "primary":
		return 75
	case "secondary":
		return 65
	case "tertiary":
		return 50
	case "unclassified":
		return 50
	case "residential":
		return 30
	case "service":
		return 20
	case "motorway_link":
		return 90
	case "trunk_link":
		return 80
	case "primary_link":
		return 70
	case "secondary_link":
		return 60
	case "tertiary_link":
		return 50
	case "living_street":
		return 20
	default:
		return 40
	}
}

// isRestricted mirrors pkg/osmparser/osm_parser2.go's isRestricted: access
// tag values that mean a direction is closed to ordinary vehicles.
func isRestricted(value string) bool {
	switch value {
	case "no", "restricted", "military", "emergency", "private", "permit":
		return true
	}
	return false
}

// wayTags holds the attributes pulled out of an osm.Way's tag list in a
// single pass, mirroring getMaxspeedOneWayRoadType's return tuple.
type wayTags struct {
	maxSpeed         float64
	maxSpeedForward  float64
	maxSpeedBackward float64
	oneWay           bool
	reversedOneWay   bool
	roadType         string
	name             string
	refID            string
	forwardClosed    bool
	backwardClosed   bool
	priority         float64
	tunnel           bool
}

func parseWayTags(way *osm.Way) wayTags {
	wt := wayTags{maxSpeed: 0, priority: 1}
	for _, tag := range way.Tags {
		switch {
		case tag.Key == "highway" && !strings.Contains(tag.Value, "link"):
			wt.roadType = tag.Value
		case tag.Key == "highway" && strings.Contains(tag.Value, "link"):
			wt.roadType = tag.Value
		case strings.Contains(tag.Key, "oneway") && tag.Value != "no":
			wt.oneWay = true
			if tag.Value == "-1" {
				wt.reversedOneWay = true
			}
		case tag.Key == "maxspeed":
			if v, err := strconv.ParseFloat(tag.Value, 64); err == nil {
				wt.maxSpeed = v
			}
		case tag.Key == "maxspeed:forward":
			if v, err := strconv.ParseFloat(tag.Value, 64); err == nil {
				wt.maxSpeedForward = v
			}
		case tag.Key == "maxspeed:backward":
			if v, err := strconv.ParseFloat(tag.Value, 64); err == nil {
				wt.maxSpeedBackward = v
			}
		case tag.Key == "name":
			wt.name = tag.Value
		case tag.Key == "ref":
			wt.refID = tag.Value
		case tag.Key == "tunnel" && tag.Value != "no":
			wt.tunnel = true
		case tag.Key == "vehicle:forward" || tag.Key == "motor_vehicle:forward":
			if isRestricted(tag.Value) {
				wt.forwardClosed = true
			}
		case tag.Key == "vehicle:backward" || tag.Key == "motor_vehicle:backward":
			if isRestricted(tag.Value) {
				wt.backwardClosed = true
			}
		}
	}
	if wt.maxSpeed == 0 {
		wt.maxSpeed = roadTypeMaxSpeed(wt.roadType)
	}
	if wt.maxSpeedForward == 0 {
		wt.maxSpeedForward = wt.maxSpeed
	}
	if wt.maxSpeedBackward == 0 {
		wt.maxSpeedBackward = wt.maxSpeed
	}
	// priority is a routing cost multiplier, matching roadnetwork.BaseRoad's
	// >= 1.0 invariant; arterials carry no penalty, minor roads a larger one.
	switch wt.roadType {
	case "motorway", "trunk":
		wt.priority = 1.0
	case "primary", "motorway_link", "trunk_link":
		wt.priority = 1.2
	case "secondary", "primary_link":
		wt.priority = 1.4
	case "tertiary", "secondary_link", "tertiary_link":
		wt.priority = 1.8
	case "residential", "unclassified", "living_street":
		wt.priority = 2.5
	default:
		wt.priority = 4.0
	}
	return wt
}

func (wt wayTags) direction() roadnetwork.Direction {
	switch {
	case wt.oneWay && wt.reversedOneWay:
		return roadnetwork.DirectionBackward
	case wt.oneWay:
		return roadnetwork.DirectionForward
	case wt.forwardClosed && !wt.backwardClosed:
		return roadnetwork.DirectionBackward
	case wt.backwardClosed && !wt.forwardClosed:
		return roadnetwork.DirectionForward
	default:
		return roadnetwork.DirectionBoth
	}
}

// LoadPBF reads an OSM PBF extract and returns the RoadMap built from its
// car-usable ways in three osmpbf.Scanner passes over the file: collect the
// node ids the accepted ways use, resolve those nodes' coordinates, then
// assemble the ways into BaseRoads. It adapts the scan loop of
// pkg/osmparser/osm_parser2.go's Parse.
func LoadPBF(path string) (*roadnetwork.RoadMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("osmroad: open %s: %w", path, err)
	}
	defer f.Close()

	usedNodes := make(map[int64]bool)
	if err := scanWays(f, func(way *osm.Way, _ wayTags) {
		for _, n := range way.Nodes {
			usedNodes[int64(n.ID)] = true
		}
	}); err != nil {
		return nil, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("osmroad: rewind %s: %w", path, err)
	}

	coords := make(map[int64]spatial.Point, len(usedNodes))
	nodeCount := 0
	scanner := osmpbf.New(context.Background(), f, 0)
	defer scanner.Close()
	for scanner.Scan() {
		obj := scanner.Object()
		if obj.ObjectID().Type() != osm.TypeNode {
			continue
		}
		node := obj.(*osm.Node)
		if !usedNodes[int64(node.ID)] {
			continue
		}
		coords[int64(node.ID)] = spatial.NewPoint(node.Lat, node.Lon)
		nodeCount++
		if nodeCount%50000 == 0 {
			log.Printf("osmroad: resolved %d node coordinates", nodeCount)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("osmroad: scan nodes: %w", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("osmroad: rewind %s: %w", path, err)
	}

	roadMap := roadnetwork.NewRoadMap()
	wayCount := 0
	skipped := 0
	var nextID int64
	err = scanWays(f, func(way *osm.Way, wt wayTags) {
		geometry := make([]spatial.Point, 0, len(way.Nodes))
		for _, n := range way.Nodes {
			pt, ok := coords[int64(n.ID)]
			if !ok {
				continue
			}
			geometry = append(geometry, pt)
		}
		if len(geometry) < 2 {
			skipped++
			return
		}

		base := &roadnetwork.BaseRoad{
			ID:                 nextID,
			RefID:              wt.refID,
			Name:               wt.name,
			RoadClass:          wt.roadType,
			Direction:          wt.direction(),
			MaxSpeedForwardKM:  wt.maxSpeedForward * 0.8,
			MaxSpeedBackwardKM: wt.maxSpeedBackward * 0.8,
			Priority:           wt.priority,
			Tunnel:             wt.tunnel,
			Geometry:           geometry,
		}
		nextID++
		if err := roadMap.AddRoad(base); err != nil {
			skipped++
			return
		}

		wayCount++
		if wayCount%50000 == 0 {
			log.Printf("osmroad: ingested %d ways", wayCount)
		}
	})
	if err != nil {
		return nil, err
	}

	log.Printf("osmroad: ingested %d ways (%d skipped) into %d base roads", wayCount, skipped, roadMap.NumBaseRoads())
	return roadMap, nil
}

// scanWays runs a single osmpbf.Scanner pass over car-usable, valid-highway
// ways, calling fn for each.
func scanWays(f *os.File, fn func(way *osm.Way, tags wayTags)) error {
	scanner := osmpbf.New(context.Background(), f, 0)
	defer scanner.Close()
	for scanner.Scan() {
		obj := scanner.Object()
		if obj.ObjectID().Type() != osm.TypeWay {
			continue
		}
		way := obj.(*osm.Way)
		if len(way.Nodes) < 2 {
			continue
		}
		if !acceptOsmWay(way) {
			continue
		}
		wt := parseWayTags(way)
		if !validRoadType[wt.roadType] {
			continue
		}
		fn(way, wt)
	}
	return scanner.Err()
}

// skipHighway mirrors pkg/osmparser/osm_parser2.go's skipHighway set: highway
// values that are never car-usable regardless of validRoadType.
var skipHighway = map[string]bool{
	"footway":      true,
	"cycleway":     true,
	"path":         true,
	"pedestrian":   true,
	"steps":        true,
	"bridleway":    true,
	"corridor":     true,
	"construction": true,
}

// acceptOsmWay mirrors pkg/osmparser/osm_parser2.go's acceptOsmWay.
func acceptOsmWay(way *osm.Way) bool {
	highway := way.Tags.Find("highway")
	if highway == "" {
		return false
	}
	return !skipHighway[highway]
}
