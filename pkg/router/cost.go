// Package router implements Cost functions and a bounded, goal-directed
// multi-target Dijkstra search over a roadnetwork.RoadMap, returning Path
// values the map matcher uses as route-length evidence between candidates.
package router

import "github.com/lintang-b-s/roadmatch/pkg/roadnetwork"

// Cost assigns a non-negative weight to traversing a full Road.
type Cost func(r *roadnetwork.Road) float64

// DistanceCost weighs edges by their geodesic length in meters.
func DistanceCost() Cost {
	return func(r *roadnetwork.Road) float64 {
		return r.Length()
	}
}

// TimeCost weighs edges by travel time in seconds at the road's
// direction-of-travel speed limit, multiplied by the BaseRoad's routing
// priority.
func TimeCost() Cost {
	return func(r *roadnetwork.Road) float64 {
		speedMS := r.MaxSpeedKM() * 1000 / 3600
		if speedMS <= 0 {
			speedMS = 1
		}
		timeSec := r.Length() / speedMS
		priority := r.Base.Priority
		if priority <= 0 {
			priority = 1
		}
		return timeSec * priority
	}
}
